package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lifequest-api/logger"
)

// Drift is an entity whose cached total disagrees with its ledger.
type Drift struct {
	UserID   string    `json:"user_id"`
	Entity   EntityRef `json:"entity"`
	CachedXP int64     `json:"cached_xp"`
	LedgerXP int64     `json:"ledger_xp"`
	Repaired bool      `json:"repaired"`
}

// Orphan is a group of ledger rows pointing at an entity that no longer
// exists.
type Orphan struct {
	UserID string    `json:"user_id"`
	Entity EntityRef `json:"entity"`
	XP     int64     `json:"xp"`
	Grants int64     `json:"grants"`
}

type AuditReport struct {
	StartedAt time.Time `json:"started_at"`
	Checked   int       `json:"checked"`
	Drifts    []Drift   `json:"drifts"`
	Orphans   []Orphan  `json:"orphans"`
	Repaired  int       `json:"repaired"`
}

// LedgerAuditor checks every progressable entity against the ledger.
type LedgerAuditor struct {
	DB       *gorm.DB
	Ledger   *XpLedger
	Adapters *AdapterRegistry
	Recalc   *RecalculationService
	Repair   bool
	Log      *logger.Logger
	Now      func() time.Time
}

func NewLedgerAuditor(db *gorm.DB, ledger *XpLedger, adapters *AdapterRegistry, recalc *RecalculationService, repair bool, log *logger.Logger) *LedgerAuditor {
	return &LedgerAuditor{
		DB:       db,
		Ledger:   ledger,
		Adapters: adapters,
		Recalc:   recalc,
		Repair:   repair,
		Log:      log.With("service", "LedgerAuditor"),
		Now:      utcNow,
	}
}

type auditKey struct {
	userID string
	ref    EntityRef
}

func (a *LedgerAuditor) Audit(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{StartedAt: a.Now(), Drifts: []Drift{}, Orphans: []Orphan{}}

	sums, err := a.Ledger.SumsByEntity(ctx, nil)
	if err != nil {
		return nil, err
	}
	byKey := make(map[auditKey]EntitySum, len(sums))
	for _, s := range sums {
		byKey[auditKey{s.UserID, EntityRef{Type: s.EntityType, ID: s.EntityID}}] = s
	}

	for _, adapter := range a.Adapters.All() {
		entities, err := adapter.ListAll(ctx, a.DB)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			report.Checked++
			key := auditKey{e.UserID, e.Ref()}
			sum := byKey[key]
			delete(byKey, key)
			if sum.Total == e.TotalXP {
				continue
			}
			report.Drifts = append(report.Drifts, Drift{
				UserID:   e.UserID,
				Entity:   e.Ref(),
				CachedXP: e.TotalXP,
				LedgerXP: sum.Total,
			})
		}
	}

	for key, s := range byKey {
		report.Orphans = append(report.Orphans, Orphan{UserID: key.userID, Entity: key.ref, XP: s.Total, Grants: s.Grants})
	}

	if a.Repair {
		for i := range report.Drifts {
			d := &report.Drifts[i]
			err := a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				_, err := a.Recalc.RecomputeEntity(ctx, tx, d.UserID, d.Entity)
				return err
			})
			if err != nil {
				a.Log.Error("audit repair failed", "user_id", d.UserID, "entity_type", d.Entity.Type, "entity_id", d.Entity.ID, "error", err)
				continue
			}
			d.Repaired = true
			report.Repaired++
		}
	}

	if len(report.Drifts) > 0 || len(report.Orphans) > 0 {
		a.Log.Warn("ledger audit found inconsistencies",
			"checked", report.Checked, "drifts", len(report.Drifts),
			"orphans", len(report.Orphans), "repaired", report.Repaired)
	} else {
		a.Log.Debug("ledger audit clean", "checked", report.Checked)
	}
	return report, nil
}
