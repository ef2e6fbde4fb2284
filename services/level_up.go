package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lifequest-api/logger"
)

// EntityProgress is an entity snapshot with its progression numbers.
type EntityProgress struct {
	Entity      Progress        `json:"entity"`
	Progression ProgressionInfo `json:"progression"`
}

type LevelUpResult struct {
	PreviousLevel int             `json:"previous_level"`
	Entity        Progress        `json:"entity"`
	Progression   ProgressionInfo `json:"progression"`
}

// ProgressionService serves level reads and the explicit level-up claim.
type ProgressionService struct {
	DB       *gorm.DB
	Adapters *AdapterRegistry
	Log      *logger.Logger
	Now      func() time.Time
}

func NewProgressionService(db *gorm.DB, adapters *AdapterRegistry, log *logger.Logger) *ProgressionService {
	return &ProgressionService{
		DB:       db,
		Adapters: adapters,
		Log:      log.With("service", "ProgressionService"),
		Now:      utcNow,
	}
}

func (s *ProgressionService) Progress(ctx context.Context, userID string, ref EntityRef) (*EntityProgress, error) {
	adapter, err := s.Adapters.For(ref.Type)
	if err != nil {
		return nil, err
	}
	p, err := adapter.Load(ctx, s.DB, userID, ref.ID)
	if err != nil {
		return nil, err
	}
	return &EntityProgress{Entity: *p, Progression: Describe(adapter.Curve(), p.Level, p.TotalXP)}, nil
}

// LevelUp raises the level by exactly one when the curve allows it. XP is
// not spent. Of two claims racing from the same level only one succeeds.
func (s *ProgressionService) LevelUp(ctx context.Context, userID string, ref EntityRef) (*LevelUpResult, error) {
	adapter, err := s.Adapters.For(ref.Type)
	if err != nil {
		return nil, err
	}

	var result *LevelUpResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := adapter.Load(ctx, tx, userID, ref.ID)
		if err != nil {
			return err
		}
		curve := adapter.Curve()
		if !curve.CanLevelUp(p.Level, p.TotalXP) {
			return &LevelUpNotEligibleError{
				EntityType: ref.Type,
				EntityID:   ref.ID,
				Level:      p.Level,
				TotalXP:    p.TotalXP,
				Shortfall:  levelUpShortfall(curve, p.Level, p.TotalXP),
			}
		}

		now := s.Now()
		if err := adapter.SetLevel(ctx, tx, userID, ref.ID, p.Level, p.Level+1, now); err != nil {
			return err
		}
		prev := p.Level
		p.Level++
		p.LastLevelUpAt = &now
		result = &LevelUpResult{
			PreviousLevel: prev,
			Entity:        *p,
			Progression:   Describe(curve, p.Level, p.TotalXP),
		}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}

	s.Log.Info("level up claimed",
		"user_id", userID, "entity_type", ref.Type, "entity_id", ref.ID,
		"level", result.Entity.Level, "total_xp", result.Entity.TotalXP)
	return result, nil
}

// levelUpShortfall is the XP that would make CanLevelUp true.
func levelUpShortfall(curve LevelCurve, level int, totalXP int64) int64 {
	switch c := curve.(type) {
	case ThresholdCurve:
		return c.Threshold(level) + 1 - totalXP
	case LinearCurve:
		return stepOf(c.Step)*int64(clampLevel(level)) - totalXP
	}
	return curve.XPToNextLevel(level, totalXP)
}
