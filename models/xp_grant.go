package models

import (
	"time"

	"gorm.io/gorm"
)

// EntityType tags the kind of progressable entity a grant targets.
type EntityType string

const (
	EntityCharacterStat EntityType = "character_stat"
	EntityFamilyMember  EntityType = "family_member"
	EntityGoal          EntityType = "goal"
	EntityProject       EntityType = "project"
	EntityAdventure     EntityType = "adventure"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityCharacterStat, EntityFamilyMember, EntityGoal, EntityProject, EntityAdventure:
		return true
	}
	return false
}

// SourceType tags the record that caused a grant.
type SourceType string

const (
	SourceTask        SourceType = "task"
	SourceJournal     SourceType = "journal"
	SourceAdhoc       SourceType = "adhoc"
	SourceQuest       SourceType = "quest"
	SourceExperiment  SourceType = "experiment"
	SourceInteraction SourceType = "interaction"
)

func (t SourceType) Valid() bool {
	switch t {
	case SourceTask, SourceJournal, SourceAdhoc, SourceQuest, SourceExperiment, SourceInteraction:
		return true
	}
	return false
}

// XpGrant is one immutable ledger row. Rows are only ever inserted by the
// grant service and deleted by source reversal or entity deletion; an
// entity's cached total is always the sum of its rows.
type XpGrant struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"size:64;not null;index:idx_xp_grants_entity,priority:1;index:idx_xp_grants_source,priority:1" json:"user_id"`
	EntityType EntityType `gorm:"size:32;not null;index:idx_xp_grants_entity,priority:2" json:"entity_type"`
	EntityID   string     `gorm:"size:36;not null;index:idx_xp_grants_entity,priority:3" json:"entity_id"`
	XPAmount   int64      `gorm:"not null" json:"xp_amount"`
	SourceType SourceType `gorm:"size:32;not null;index:idx_xp_grants_source,priority:2" json:"source_type"`
	SourceID   *string    `gorm:"size:36;index:idx_xp_grants_source,priority:3" json:"source_id,omitempty"`
	Reason     *string    `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"created_at"`
}

func (XpGrant) TableName() string { return "xp_grants" }

func (g *XpGrant) BeforeCreate(tx *gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
