package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Course struct {
	ID   snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Name string       `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Course) TableName() string { return "courses" }

// Level is one passable unit of a course. Progress is the share of the
// course a learner earns by passing it.
type Level struct {
	ID       snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	CourseID snowflake.ID `gorm:"column:course_id;not null;index"`
	Name     string       `gorm:"type:text;not null"`
	Progress int          `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
}

func (Level) TableName() string { return "levels" }
