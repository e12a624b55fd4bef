package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/config"
	coursedomain "github.com/smallbiznis/academy/internal/course/domain"
	"github.com/smallbiznis/academy/internal/events"
	"github.com/smallbiznis/academy/internal/messaging"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"github.com/smallbiznis/academy/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Config    config.Config
	GenID     *snowflake.Node
	Repo      domain.Repository
	CourseSvc coursedomain.Service
	Clock     clock.Clock
	Publisher messaging.EventPublisher
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	baseURL   string
	repo      domain.Repository
	courseSvc coursedomain.Service
	genID     *snowflake.Node
	clock     clock.Clock
	publisher messaging.EventPublisher
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("certificate.service"),
		baseURL:   strings.TrimRight(p.Config.CertificateBaseURL, "/"),
		repo:      p.Repo,
		courseSvc: p.CourseSvc,
		genID:     p.GenID,
		clock:     clk,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

// HandleRequested issues the course certificate unless one exists already.
// The lookup and the insert are separate statements; two concurrent
// requests for the same course can both issue.
func (s *Service) HandleRequested(ctx context.Context, req events.CertificateRequested) (domain.Outcome, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.Outcome{}, domain.ErrInvalidUser
	}
	if req.CourseID == 0 {
		return domain.Outcome{}, domain.ErrInvalidCourse
	}
	log := ctxlogger.WithContext(ctx, s.log).With(
		zap.String("user_id", userID),
		zap.Int64("course_id", req.CourseID),
	)

	course, err := s.courseSvc.Lookup(ctx, req.CourseID)
	if err != nil {
		return domain.Outcome{}, err
	}

	existing, err := s.repo.FindByCourseID(ctx, s.db, req.CourseID)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("find certificate: %w", err)
	}
	if existing != nil {
		s.metrics.RecordCertificateSkipped(ctx)
		log.Info("certificate already issued", zap.String("certificate_id", existing.ID.String()))
		if n, err := s.repo.CountByCourseID(ctx, s.db, req.CourseID); err == nil && n > 1 {
			log.Warn("course has more than one certificate", zap.Int64("certificates", n))
		}
		return domain.Outcome{Certificate: *existing}, nil
	}

	id := s.genID.Generate()
	record := &domain.Certificate{
		ID:           id,
		CourseID:     course.ID,
		Name:         course.Name + " Certificate",
		ReferenceURL: s.referenceURL(course.Name, id),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		return domain.Outcome{}, fmt.Errorf("insert certificate: %w", err)
	}

	evt := events.CertificateIssued{
		CertificateID: int64(record.ID),
		Name:          record.Name,
		UserID:        userID,
		Course:        events.CourseSummary{ID: int64(course.ID), Name: course.Name},
		ReferenceURL:  record.ReferenceURL,
	}
	if err := s.publisher.Publish(ctx, events.CertificateIssuedKey, evt, events.CourseHeaders(req.CourseID)); err != nil {
		// A redelivery finds the row above and will not publish again.
		log.Error("certificate stored but not announced", zap.String("certificate_id", record.ID.String()), zap.Error(err))
		return domain.Outcome{}, fmt.Errorf("publish certificate issued: %w", err)
	}

	s.metrics.RecordCertificateIssued(ctx)
	log.Info("certificate issued",
		zap.String("certificate_id", record.ID.String()),
		zap.String("reference_url", record.ReferenceURL),
	)
	return domain.Outcome{Issued: true, Certificate: *record}, nil
}

func (s *Service) GetByCourse(ctx context.Context, courseID string) (*domain.Response, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(courseID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidCourse
	}

	record, err := s.repo.FindByCourseID(ctx, s.db, int64(id))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}

	return &domain.Response{
		ID:           record.ID.String(),
		CourseID:     record.CourseID.String(),
		Name:         record.Name,
		ReferenceURL: record.ReferenceURL,
		CreatedAt:    record.CreatedAt,
	}, nil
}

func (s *Service) referenceURL(courseName string, id snowflake.ID) string {
	return fmt.Sprintf("%s/%s-%s", s.baseURL, slug.Make(courseName), id.String())
}
