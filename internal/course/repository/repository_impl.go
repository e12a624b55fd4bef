package repository

import (
	"context"

	"github.com/smallbiznis/academy/internal/course/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateCourse(ctx context.Context, db *gorm.DB, c *domain.Course) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO courses (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.ID,
		c.Name,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindCourse(ctx context.Context, db *gorm.DB, id int64) (*domain.Course, error) {
	var c domain.Course
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at, updated_at FROM courses WHERE id = ?`,
		id,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) CreateLevel(ctx context.Context, db *gorm.DB, l *domain.Level) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO levels (id, course_id, name, progress, created_at) VALUES (?, ?, ?, ?, ?)`,
		l.ID,
		l.CourseID,
		l.Name,
		l.Progress,
		l.CreatedAt,
	).Error
}

func (r *repo) FindLevel(ctx context.Context, db *gorm.DB, courseID, levelID int64) (*domain.Level, error) {
	var l domain.Level
	err := db.WithContext(ctx).Raw(
		`SELECT id, course_id, name, progress, created_at FROM levels WHERE course_id = ? AND id = ?`,
		courseID,
		levelID,
	).Scan(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == 0 {
		return nil, nil
	}
	return &l, nil
}

func (r *repo) ListLevels(ctx context.Context, db *gorm.DB, courseID int64) ([]domain.Level, error) {
	var items []domain.Level
	err := db.WithContext(ctx).Raw(
		`SELECT id, course_id, name, progress, created_at FROM levels WHERE course_id = ? ORDER BY created_at, id`,
		courseID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
