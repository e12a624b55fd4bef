package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/achievement/domain"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/events"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
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
		log:     p.Log.Named("achievement.service"),
		repo:    p.Repo,
		genID:   p.GenID,
		clock:   clk,
		metrics: p.Metrics,
	}
}

// Record stores an achievement for the issued certificate. There is no
// existence check: every call inserts a row.
func (s *Service) Record(ctx context.Context, evt events.CertificateIssued) (*domain.Response, error) {
	userID := strings.TrimSpace(evt.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if evt.CertificateID == 0 {
		return nil, domain.ErrInvalidCertificate
	}

	record := &domain.Achievement{
		ID:            s.genID.Generate(),
		UserID:        userID,
		CertificateID: evt.CertificateID,
		CourseID:      evt.Course.ID,
		CourseName:    evt.Course.Name,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.metrics.RecordAchievement(ctx)
	ctxlogger.WithContext(ctx, s.log).Info("achievement recorded",
		zap.String("achievement_id", record.ID.String()),
		zap.String("user_id", userID),
		zap.Int64("certificate_id", evt.CertificateID),
	)

	resp := toResponse(record)
	return &resp, nil
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
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func toResponse(a *domain.Achievement) domain.Response {
	return domain.Response{
		ID:            a.ID.String(),
		UserID:        a.UserID,
		CertificateID: strconv.FormatInt(a.CertificateID, 10),
		CourseID:      strconv.FormatInt(a.CourseID, 10),
		CourseName:    a.CourseName,
		CreatedAt:     a.CreatedAt,
	}
}
