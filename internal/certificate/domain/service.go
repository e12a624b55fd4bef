package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/academy/internal/events"
)

type Service interface {
	HandleRequested(ctx context.Context, req events.CertificateRequested) (Outcome, error)
	GetByCourse(ctx context.Context, courseID string) (*Response, error)
}

// Outcome reports what HandleRequested did. Issued is false when the course
// already had a certificate.
type Outcome struct {
	Issued      bool
	Certificate Certificate
}

type Response struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"course_id"`
	Name         string    `json:"name"`
	ReferenceURL string    `json:"reference_url"`
	CreatedAt    time.Time `json:"created_at"`
}

var (
	ErrInvalidUser   = errors.New("invalid_user")
	ErrInvalidCourse = errors.New("invalid_course")
	ErrNotFound      = errors.New("certificate_not_found")
)
