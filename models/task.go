package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Task struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"id"`
	UserID      string                      `gorm:"size:64;not null;index" json:"user_id"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Rewards     datatypes.JSONType[[]Award] `json:"rewards"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
	Completions []TaskCompletion            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Timestamps
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// TaskCompletion records one completion. The cascade is a safety net; task
// deletion reverses grants explicitly first.
type TaskCompletion struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	TaskID      string    `gorm:"size:36;not null;index" json:"task_id"`
	UserID      string    `gorm:"size:64;not null;index" json:"user_id"`
	XPAwarded   int64     `gorm:"not null" json:"xp_awarded"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
}

func (c *TaskCompletion) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
