package models

import (
	"time"

	"gorm.io/gorm"
)

// FamilyInteraction is a logged moment with a family member ("called mom").
// It is the source record for interaction grants.
type FamilyInteraction struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string    `gorm:"size:64;not null;index" json:"user_id"`
	FamilyMemberID string    `gorm:"size:36;not null;index" json:"family_member_id"`
	Kind           string    `gorm:"size:64;not null" json:"kind"`
	Note           string    `gorm:"type:text" json:"note"`
	XPAmount       int64     `gorm:"not null" json:"xp_amount"`
	OccurredAt     time.Time `gorm:"not null" json:"occurred_at"`
	Timestamps
}

func (i *FamilyInteraction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
