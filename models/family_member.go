package models

import (
	"time"

	"gorm.io/gorm"
)

// FamilyMember tracks a relationship. ConnectionXP / ConnectionLevel play the
// same role as a stat's TotalXP / CurrentLevel.
type FamilyMember struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	UserID       string `gorm:"size:64;not null;index" json:"user_id"`
	Name         string `gorm:"not null" json:"name"`
	Relationship string `gorm:"size:64" json:"relationship"`
	Notes        string `gorm:"type:text" json:"notes"`

	ConnectionXP    int64      `gorm:"column:connection_xp;not null;default:0" json:"connection_xp"`
	ConnectionLevel int        `gorm:"not null;default:1" json:"connection_level"`
	LastLevelUpAt   *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

func (f *FamilyMember) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
