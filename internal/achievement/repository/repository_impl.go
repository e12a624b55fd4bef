package repository

import (
	"context"

	"github.com/smallbiznis/academy/internal/achievement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, a *domain.Achievement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO achievements (id, user_id, certificate_id, course_id, course_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.UserID,
		a.CertificateID,
		a.CourseID,
		a.CourseName,
		a.CreatedAt,
	).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Achievement, error) {
	var items []domain.Achievement
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, certificate_id, course_id, course_name, created_at
		 FROM achievements
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
