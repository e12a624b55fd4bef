package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByCourseID(ctx context.Context, db *gorm.DB, courseID int64) (*Certificate, error)
	Insert(ctx context.Context, db *gorm.DB, c *Certificate) error
	CountByCourseID(ctx context.Context, db *gorm.DB, courseID int64) (int64, error)
}
