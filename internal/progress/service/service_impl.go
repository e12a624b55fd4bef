package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/events"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"github.com/smallbiznis/academy/internal/progress/domain"
	"github.com/smallbiznis/academy/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("progress.service"),
		repo:    p.Repo,
		genID:   p.GenID,
		clock:   clk,
		metrics: p.Metrics,
	}
}

// ApplyLevelPassed adds the level's delta to the learner's course progress,
// creating the row on first sight. The result is not capped.
func (s *Service) ApplyLevelPassed(ctx context.Context, evt events.CourseLevelPassed) (domain.Snapshot, error) {
	userID := strings.TrimSpace(evt.UserID)
	if userID == "" {
		return domain.Snapshot{}, domain.ErrInvalidUser
	}
	if evt.CourseID == 0 {
		return domain.Snapshot{}, domain.ErrInvalidCourse
	}

	var (
		snapshot domain.Snapshot
		outcome  string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		updated, err := s.repo.Increment(ctx, tx, userID, evt.CourseID, evt.Progress, now)
		if err != nil {
			return fmt.Errorf("increment progress: %w", err)
		}

		if updated == 0 {
			record := &domain.Progress{
				ID:         s.genID.Generate(),
				UserID:     userID,
				CourseID:   evt.CourseID,
				CourseName: evt.CourseName,
				Progress:   evt.Progress,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.repo.Insert(ctx, tx, record); err != nil {
				return fmt.Errorf("insert progress: %w", err)
			}
			snapshot = toSnapshot(record)
			outcome = "inserted"
			return nil
		}

		current, err := s.repo.FindByUserAndCourse(ctx, tx, userID, evt.CourseID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if current == nil {
			return fmt.Errorf("load progress: row for user %s course %d vanished", userID, evt.CourseID)
		}
		snapshot = toSnapshot(current)
		outcome = "updated"
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	s.metrics.RecordProgressApplied(ctx, outcome)
	ctxlogger.WithContext(ctx, s.log).Info("progress applied",
		zap.String("user_id", snapshot.UserID),
		zap.Int64("course_id", snapshot.CourseID),
		zap.Int("delta", evt.Progress),
		zap.Int("progress", snapshot.Progress),
		zap.String("outcome", outcome),
	)
	return snapshot, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Response, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.Response{
			ID:         item.ID.String(),
			UserID:     item.UserID,
			CourseID:   fmt.Sprintf("%d", item.CourseID),
			CourseName: item.CourseName,
			Progress:   item.Progress,
			Completed:  item.Progress >= domain.CompletionThreshold,
			UpdatedAt:  item.UpdatedAt,
		})
	}
	return resp, nil
}

func toSnapshot(p *domain.Progress) domain.Snapshot {
	return domain.Snapshot{
		ID:       p.ID,
		UserID:   p.UserID,
		CourseID: p.CourseID,
		Progress: p.Progress,
	}
}
