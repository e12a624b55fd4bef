package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Increment(ctx context.Context, db *gorm.DB, userID string, courseID int64, delta int, now time.Time) (int64, error)
	FindByUserAndCourse(ctx context.Context, db *gorm.DB, userID string, courseID int64) (*Progress, error)
	Insert(ctx context.Context, db *gorm.DB, p *Progress) error
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]Progress, error)
}
