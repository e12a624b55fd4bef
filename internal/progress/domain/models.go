package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CompletionThreshold is the cumulative progress at which a course counts
// as completed. Progress is never capped, so completion is ">=".
const CompletionThreshold = 100

// Progress is the running completion of one learner in one course.
// (user_id, course_id) is a lookup key only; nothing enforces uniqueness.
type Progress struct {
	ID         snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	UserID     string       `gorm:"column:user_id;type:text;not null;index:idx_progress_user_course,priority:1"`
	CourseID   int64        `gorm:"column:course_id;not null;index:idx_progress_user_course,priority:2"`
	CourseName string       `gorm:"column:course_name;type:text;not null;default:''"`
	Progress   int          `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Progress) TableName() string { return "progress" }

// Snapshot is the state of a progress row right after a level was applied.
type Snapshot struct {
	ID       snowflake.ID
	UserID   string
	CourseID int64
	Progress int
}

func (s Snapshot) Completed() bool {
	return s.Progress >= CompletionThreshold
}
