package models

import (
	"time"

	"github.com/google/uuid"
)

// Timestamps adds GORM auto-times. No soft delete: ledger sums must only ever
// see rows that really exist.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// All returns every model in migration order. The ledger and the cached-total
// columns live in the same migration.
func All() []any {
	return []any{
		&CharacterStat{},
		&FamilyMember{},
		&XpGrant{},
		&Journal{},
		&Task{},
		&TaskCompletion{},
		&Quest{},
		&Experiment{},
		&FamilyInteraction{},
	}
}
