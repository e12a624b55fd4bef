package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/academy/internal/events"
)

type Service interface {
	ApplyLevelPassed(ctx context.Context, evt events.CourseLevelPassed) (Snapshot, error)
	ListByUser(ctx context.Context, userID string) ([]Response, error)
}

type Response struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	CourseName string    `json:"course_name"`
	Progress   int       `json:"progress"`
	Completed  bool      `json:"completed"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	ErrInvalidUser   = errors.New("invalid_user")
	ErrInvalidCourse = errors.New("invalid_course")
)
