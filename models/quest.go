package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CompletionStatus string

const (
	StatusActive    CompletionStatus = "active"
	StatusCompleted CompletionStatus = "completed"
)

type Quest struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"id"`
	UserID      string                      `gorm:"size:64;not null;index" json:"user_id"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Status      CompletionStatus            `gorm:"size:16;not null;default:'active'" json:"status"`
	Rewards     datatypes.JSONType[[]Award] `json:"rewards"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
	Timestamps
}

func (q *Quest) BeforeCreate(tx *gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

// Experiment is a time-boxed self-experiment ("no coffee for two weeks").
type Experiment struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"id"`
	UserID      string                      `gorm:"size:64;not null;index" json:"user_id"`
	Title       string                      `gorm:"not null" json:"title"`
	Hypothesis  string                      `gorm:"type:text" json:"hypothesis"`
	Outcome     string                      `gorm:"type:text" json:"outcome"`
	Status      CompletionStatus            `gorm:"size:16;not null;default:'active'" json:"status"`
	Rewards     datatypes.JSONType[[]Award] `json:"rewards"`
	CompletedAt *time.Time                  `json:"completed_at,omitempty"`
	Timestamps
}

func (e *Experiment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
