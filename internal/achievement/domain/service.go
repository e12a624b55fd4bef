package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/academy/internal/events"
)

type Service interface {
	Record(ctx context.Context, evt events.CertificateIssued) (*Response, error)
	ListByUser(ctx context.Context, userID string) ([]Response, error)
}

type Response struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	CertificateID string    `json:"certificate_id"`
	CourseID      string    `json:"course_id"`
	CourseName    string    `json:"course_name"`
	CreatedAt     time.Time `json:"created_at"`
}

var (
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidCertificate = errors.New("invalid_certificate")
)
