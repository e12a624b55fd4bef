package listener

import (
	"context"

	certificatedomain "github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/internal/events"
	"github.com/smallbiznis/academy/internal/messaging"
	"github.com/smallbiznis/academy/pkg/log/ctxlogger"
	"go.uber.org/zap"
)

// Courses handles the events consumed by the courses service.
type Courses struct {
	log          *zap.Logger
	certificates certificatedomain.Service
}

func NewCourses(log *zap.Logger, certificates certificatedomain.Service) *Courses {
	return &Courses{
		log:          log.Named("listener.courses"),
		certificates: certificates,
	}
}

func (c *Courses) CertificateRequested(ctx context.Context, req events.CertificateRequested, _ messaging.Inbound) error {
	ctxlogger.WithContext(ctx, c.log).Info("processing certificate request",
		zap.String("user_id", req.UserID),
		zap.Int64("course_id", req.CourseID),
	)

	if _, err := c.certificates.HandleRequested(ctx, req); err != nil {
		return classify(err, certificatedomain.ErrInvalidUser, certificatedomain.ErrInvalidCourse)
	}
	return nil
}
