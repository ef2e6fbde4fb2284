package services

import (
	"time"

	"gorm.io/gorm"

	"lifequest-api/logger"
)

type Options struct {
	LevelStep   int64
	StatCurve   CurveName
	FamilyCurve CurveName
	ObjectStore ObjectStore
	AuditRepair bool
	// Now overrides the clock of every time-stamping service. Tests only.
	Now func() time.Time
}

// Services wires the ledger core and everything that calls into it.
type Services struct {
	Ledger      *XpLedger
	Adapters    *AdapterRegistry
	Grants      *GrantService
	Recalc      *RecalculationService
	Progression *ProgressionService
	History     *HistoryService
	Auditor     *LedgerAuditor
	Exporter    *LedgerExporter

	Stats        *StatService
	Family       *FamilyService
	Journals     *JournalService
	Tasks        *TaskService
	Quests       *QuestService
	Experiments  *ExperimentService
	Interactions *InteractionService
}

func New(db *gorm.DB, log *logger.Logger, opts Options) (*Services, error) {
	step := opts.LevelStep
	if step == 0 {
		step = BaseXPPerLevel
	}
	if opts.StatCurve == "" {
		opts.StatCurve = CurveThreshold
	}
	if opts.FamilyCurve == "" {
		opts.FamilyCurve = CurveLinear
	}
	statCurve, err := CurveByName(opts.StatCurve, step)
	if err != nil {
		return nil, err
	}
	familyCurve, err := CurveByName(opts.FamilyCurve, step)
	if err != nil {
		return nil, err
	}

	ledger := NewXpLedger(db)
	adapters := NewAdapterRegistry(
		NewCharacterStatAdapter(statCurve),
		NewFamilyMemberAdapter(familyCurve),
	)
	grants := NewGrantService(db, ledger, adapters, log)
	recalc := NewRecalculationService(db, ledger, adapters, log)

	s := &Services{
		Ledger:       ledger,
		Adapters:     adapters,
		Grants:       grants,
		Recalc:       recalc,
		Progression:  NewProgressionService(db, adapters, log),
		History:      NewHistoryService(db, ledger, adapters),
		Auditor:      NewLedgerAuditor(db, ledger, adapters, recalc, opts.AuditRepair, log),
		Exporter:     NewLedgerExporter(ledger, opts.ObjectStore, log),
		Stats:        NewStatService(db, ledger, statCurve, log),
		Family:       NewFamilyService(db, ledger, familyCurve, log),
		Journals:     NewJournalService(db, grants, recalc, log),
		Tasks:        NewTaskService(db, grants, recalc, log),
		Quests:       NewQuestService(db, grants, recalc, log),
		Experiments:  NewExperimentService(db, grants, recalc, log),
		Interactions: NewInteractionService(db, grants, recalc, log),
	}
	if opts.Now != nil {
		s.Grants.Now = opts.Now
		s.Progression.Now = opts.Now
		s.Auditor.Now = opts.Now
		s.Exporter.Now = opts.Now
		s.Journals.Now = opts.Now
		s.Tasks.Now = opts.Now
		s.Quests.Now = opts.Now
		s.Experiments.Now = opts.Now
		s.Interactions.Now = opts.Now
	}
	return s, nil
}
