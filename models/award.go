package models

// Award is a planned XP grant attached to a source record (task reward,
// quest reward, journal suggestion).
type Award struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Amount     int64      `json:"amount"`
	Reason     string     `json:"reason,omitempty"`
}

// JournalAwards is what finalizing a journal grants: stat XP, family XP, and
// zero-XP content tags against stats.
type JournalAwards struct {
	Stats       []Award  `json:"stats"`
	Family      []Award  `json:"family"`
	ContentTags []string `json:"content_tags"`
}

func (a JournalAwards) Empty() bool {
	return len(a.Stats) == 0 && len(a.Family) == 0 && len(a.ContentTags) == 0
}
