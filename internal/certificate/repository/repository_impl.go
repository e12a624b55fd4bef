package repository

import (
	"context"

	"github.com/smallbiznis/academy/internal/certificate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByCourseID(ctx context.Context, db *gorm.DB, courseID int64) (*domain.Certificate, error) {
	var c domain.Certificate
	err := db.WithContext(ctx).Raw(
		`SELECT id, course_id, name, reference_url, created_at
		 FROM certificates
		 WHERE course_id = ?
		 ORDER BY id
		 LIMIT 1`,
		courseID,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Certificate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO certificates (id, course_id, name, reference_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID,
		c.CourseID,
		c.Name,
		c.ReferenceURL,
		c.CreatedAt,
	).Error
}

func (r *repo) CountByCourseID(ctx context.Context, db *gorm.DB, courseID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM certificates WHERE course_id = ?`,
		courseID,
	).Scan(&count).Error
	return count, err
}
