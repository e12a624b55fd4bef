package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, a *Achievement) error
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]Achievement, error)
}
