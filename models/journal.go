package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JournalStatus string

const (
	JournalDraft     JournalStatus = "draft"
	JournalFinalized JournalStatus = "finalized"
)

// Journal is a source record. Finalizing it grants XP; editing a finalized
// journal reverses those grants and returns it to draft.
type Journal struct {
	ID      string        `gorm:"primaryKey;size:36" json:"id"`
	UserID  string        `gorm:"size:64;not null;index" json:"user_id"`
	Title   string        `gorm:"not null" json:"title"`
	Content string        `gorm:"type:text" json:"content"`
	Status  JournalStatus `gorm:"size:16;not null;default:'draft'" json:"status"`

	// Produced upstream (summarization); used when Finalize gets no explicit awards.
	SuggestedAwards datatypes.JSONType[JournalAwards] `json:"suggested_awards"`

	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
	Timestamps
}

func (j *Journal) BeforeCreate(tx *gorm.DB) error {
	ensureID(&j.ID)
	return nil
}
