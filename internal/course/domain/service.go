package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	CreateCourse(ctx context.Context, req CreateCourseRequest) (*CourseResponse, error)
	CreateLevel(ctx context.Context, req CreateLevelRequest) (*LevelResponse, error)
	GetCourse(ctx context.Context, id string) (*CourseResponse, error)
	// Lookup loads a course by numeric id for other services.
	Lookup(ctx context.Context, id int64) (*Course, error)
	PassLevel(ctx context.Context, req PassLevelRequest) (*PassLevelResponse, error)
}

type CreateCourseRequest struct {
	Name string `json:"name"`
}

type CreateLevelRequest struct {
	CourseID string `json:"-"`
	Name     string `json:"name"`
	Progress int    `json:"progress"`
}

type PassLevelRequest struct {
	CourseID string
	LevelID  string
	UserID   string
}

type CourseResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Levels    []LevelResponse `json:"levels"`
	CreatedAt time.Time       `json:"created_at"`
}

type LevelResponse struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Name     string `json:"name"`
	Progress int    `json:"progress"`
}

type PassLevelResponse struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	LevelID  string `json:"level_id"`
	Progress int    `json:"progress"`
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidProgress = errors.New("invalid_progress")
	ErrInvalidUser     = errors.New("invalid_user")
	ErrCourseNotFound  = errors.New("course_not_found")
	ErrLevelNotFound   = errors.New("level_not_found")
)
