package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Certificate certifies a course. At most one per course is intended;
// issuance checks before inserting and course_id carries no constraint.
type Certificate struct {
	ID           snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	CourseID     snowflake.ID `gorm:"column:course_id;not null;index"`
	Name         string       `gorm:"type:text;not null"`
	ReferenceURL string       `gorm:"column:reference_url;type:text;not null"`
	CreatedAt    time.Time    `gorm:"not null"`
}

func (Certificate) TableName() string { return "certificates" }
