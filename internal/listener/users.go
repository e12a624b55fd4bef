package listener

import (
	"context"
	"errors"
	"fmt"

	achievementdomain "github.com/smallbiznis/academy/internal/achievement/domain"
	"github.com/smallbiznis/academy/internal/events"
	"github.com/smallbiznis/academy/internal/messaging"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	progressdomain "github.com/smallbiznis/academy/internal/progress/domain"
	"github.com/smallbiznis/academy/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type UsersParams struct {
	fx.In

	Log          *zap.Logger
	Progress     progressdomain.Service
	Achievements achievementdomain.Service
	Publisher    messaging.EventPublisher
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

// Users handles the events consumed by the users service.
type Users struct {
	log          *zap.Logger
	progress     progressdomain.Service
	achievements achievementdomain.Service
	publisher    messaging.EventPublisher
	metrics      *obsmetrics.Metrics
}

func NewUsers(p UsersParams) *Users {
	return &Users{
		log:          p.Log.Named("listener.users"),
		progress:     p.Progress,
		achievements: p.Achievements,
		publisher:    p.Publisher,
		metrics:      p.Metrics,
	}
}

// LevelPassed folds a passed level into the learner's progress and asks
// for a certificate whenever the running total is at or past completion.
func (u *Users) LevelPassed(ctx context.Context, evt events.CourseLevelPassed, msg messaging.Inbound) error {
	log := ctxlogger.WithContext(ctx, u.log)
	log.Info("processing user progress",
		zap.String("user_id", evt.UserID),
		zap.Int64("course_id", evt.CourseID),
		zap.Int64("level_id", evt.LevelID),
		zap.Bool("redelivered", msg.Redelivered),
	)

	snapshot, err := u.progress.ApplyLevelPassed(ctx, evt)
	if err != nil {
		return classify(err, progressdomain.ErrInvalidUser, progressdomain.ErrInvalidCourse)
	}
	if !snapshot.Completed() {
		return nil
	}

	req := events.CertificateRequested{UserID: snapshot.UserID, CourseID: snapshot.CourseID}
	if err := u.publisher.Publish(ctx, events.CertificateRequestedKey, req, events.CourseHeaders(req.CourseID)); err != nil {
		return fmt.Errorf("publish certificate request: %w", err)
	}
	u.metrics.RecordCertificateRequested(ctx)
	log.Info("course completed, certificate requested",
		zap.String("user_id", snapshot.UserID),
		zap.Int64("course_id", snapshot.CourseID),
		zap.Int("progress", snapshot.Progress),
	)
	return nil
}

// CertificateIssued records the learner's achievement.
func (u *Users) CertificateIssued(ctx context.Context, evt events.CertificateIssued, _ messaging.Inbound) error {
	ctxlogger.WithContext(ctx, u.log).Info("processing issued certificate",
		zap.String("user_id", evt.UserID),
		zap.Int64("certificate_id", evt.CertificateID),
	)

	if _, err := u.achievements.Record(ctx, evt); err != nil {
		return classify(err, achievementdomain.ErrInvalidUser, achievementdomain.ErrInvalidCertificate)
	}
	return nil
}

// classify marks payload validation failures as malformed so they are
// dead-lettered instead of redelivered.
func classify(err error, invalid ...error) error {
	for _, target := range invalid {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", messaging.ErrMalformed, err)
		}
	}
	return err
}
