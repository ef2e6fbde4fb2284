package models

import (
	"time"

	"gorm.io/gorm"
)

// CharacterStat is a user-defined stat ("Strength", "Patience") that
// accumulates XP. TotalXP is a cache of the ledger; CurrentLevel only moves
// through an explicit level-up.
type CharacterStat struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	UserID      string `gorm:"size:64;not null;uniqueIndex:idx_stats_user_slug,priority:1" json:"user_id"`
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"size:128;not null;uniqueIndex:idx_stats_user_slug,priority:2" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"size:64" json:"category"`

	TotalXP       int64      `gorm:"not null;default:0" json:"total_xp"`
	CurrentLevel  int        `gorm:"not null;default:1" json:"current_level"`
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

func (s *CharacterStat) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
