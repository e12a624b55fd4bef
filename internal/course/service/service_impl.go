package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/course/domain"
	"github.com/smallbiznis/academy/internal/events"
	"github.com/smallbiznis/academy/internal/messaging"
	"github.com/smallbiznis/academy/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Clock     clock.Clock
	Publisher messaging.EventPublisher
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	genID     *snowflake.Node
	clock     clock.Clock
	publisher messaging.EventPublisher
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("course.service"),
		repo:      p.Repo,
		genID:     p.GenID,
		clock:     clk,
		publisher: p.Publisher,
	}
}

func (s *Service) CreateCourse(ctx context.Context, req domain.CreateCourseRequest) (*domain.CourseResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	record := &domain.Course{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateCourse(ctx, s.db, record); err != nil {
		return nil, err
	}

	resp := toCourseResponse(record, nil)
	return &resp, nil
}

func (s *Service) CreateLevel(ctx context.Context, req domain.CreateLevelRequest) (*domain.LevelResponse, error) {
	courseID, err := parseID(req.CourseID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Progress <= 0 {
		return nil, domain.ErrInvalidProgress
	}

	if _, err := s.Lookup(ctx, int64(courseID)); err != nil {
		return nil, err
	}

	record := &domain.Level{
		ID:        s.genID.Generate(),
		CourseID:  courseID,
		Name:      name,
		Progress:  req.Progress,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateLevel(ctx, s.db, record); err != nil {
		return nil, err
	}

	resp := toLevelResponse(*record)
	return &resp, nil
}

func (s *Service) GetCourse(ctx context.Context, id string) (*domain.CourseResponse, error) {
	courseID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	course, err := s.Lookup(ctx, int64(courseID))
	if err != nil {
		return nil, err
	}
	levels, err := s.repo.ListLevels(ctx, s.db, int64(courseID))
	if err != nil {
		return nil, err
	}

	resp := toCourseResponse(course, levels)
	return &resp, nil
}

func (s *Service) Lookup(ctx context.Context, id int64) (*domain.Course, error) {
	course, err := s.repo.FindCourse(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrCourseNotFound, id)
	}
	return course, nil
}

// PassLevel announces that a learner passed a level. The learner's
// progress is owned by the users service, which folds the event in.
func (s *Service) PassLevel(ctx context.Context, req domain.PassLevelRequest) (*domain.PassLevelResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	courseID, err := parseID(req.CourseID)
	if err != nil {
		return nil, err
	}
	levelID, err := parseID(req.LevelID)
	if err != nil {
		return nil, err
	}

	course, err := s.Lookup(ctx, int64(courseID))
	if err != nil {
		return nil, err
	}
	level, err := s.repo.FindLevel(ctx, s.db, int64(courseID), int64(levelID))
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrLevelNotFound, int64(levelID))
	}

	evt := events.CourseLevelPassed{
		UserID:     userID,
		CourseID:   int64(course.ID),
		LevelID:    int64(level.ID),
		Progress:   level.Progress,
		CourseName: course.Name,
	}
	if err := s.publisher.Publish(ctx, events.CourseLevelPassedKey, evt, events.LevelHeaders(evt.LevelID)); err != nil {
		return nil, fmt.Errorf("publish level passed: %w", err)
	}

	ctxlogger.WithContext(ctx, s.log).Info("level passed",
		zap.String("user_id", userID),
		zap.String("course_id", course.ID.String()),
		zap.String("level_id", level.ID.String()),
		zap.Int("progress", level.Progress),
	)

	return &domain.PassLevelResponse{
		UserID:   userID,
		CourseID: course.ID.String(),
		LevelID:  level.ID.String(),
		Progress: level.Progress,
	}, nil
}

func toCourseResponse(c *domain.Course, levels []domain.Level) domain.CourseResponse {
	items := make([]domain.LevelResponse, 0, len(levels))
	for _, l := range levels {
		items = append(items, toLevelResponse(l))
	}
	return domain.CourseResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Levels:    items,
		CreatedAt: c.CreatedAt,
	}
}

func toLevelResponse(l domain.Level) domain.LevelResponse {
	return domain.LevelResponse{
		ID:       l.ID.String(),
		CourseID: l.CourseID.String(),
		Name:     l.Name,
		Progress: l.Progress,
	}
}

func parseID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}
