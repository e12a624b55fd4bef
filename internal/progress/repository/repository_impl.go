package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/academy/internal/progress/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, userID string, courseID int64, delta int, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE progress
		 SET progress = progress + ?, updated_at = ?
		 WHERE user_id = ? AND course_id = ?`,
		delta,
		now,
		userID,
		courseID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) FindByUserAndCourse(ctx context.Context, db *gorm.DB, userID string, courseID int64) (*domain.Progress, error) {
	var p domain.Progress
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, course_id, course_name, progress, created_at, updated_at
		 FROM progress
		 WHERE user_id = ? AND course_id = ?
		 ORDER BY id
		 LIMIT 1`,
		userID,
		courseID,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Progress) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO progress (id, user_id, course_id, course_name, progress, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.UserID,
		p.CourseID,
		p.CourseName,
		p.Progress,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Progress, error) {
	var items []domain.Progress
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, course_id, course_name, progress, created_at, updated_at
		 FROM progress
		 WHERE user_id = ?
		 ORDER BY updated_at DESC, id`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
