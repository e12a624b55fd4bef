package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Achievement records that a learner was awarded a certificate. Rows are
// appended per delivery, so a redelivered event yields a second row.
type Achievement struct {
	ID            snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	UserID        string       `gorm:"column:user_id;type:text;not null;index"`
	CertificateID int64        `gorm:"column:certificate_id;not null"`
	CourseID      int64        `gorm:"column:course_id;not null"`
	CourseName    string       `gorm:"column:course_name;type:text;not null;default:''"`
	CreatedAt     time.Time    `gorm:"not null"`
}

func (Achievement) TableName() string { return "achievements" }
