package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	CreateCourse(ctx context.Context, db *gorm.DB, c *Course) error
	FindCourse(ctx context.Context, db *gorm.DB, id int64) (*Course, error)
	CreateLevel(ctx context.Context, db *gorm.DB, l *Level) error
	FindLevel(ctx context.Context, db *gorm.DB, courseID, levelID int64) (*Level, error)
	ListLevels(ctx context.Context, db *gorm.DB, courseID int64) ([]Level, error)
}
