package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lifequest-api/models"
)

// EntityRef identifies a progressable entity.
type EntityRef struct {
	Type models.EntityType `json:"entity_type"`
	ID   string            `json:"entity_id"`
}

// Progress is a snapshot of the XP columns of one progressable entity.
type Progress struct {
	EntityType    models.EntityType `json:"entity_type"`
	EntityID      string            `json:"entity_id"`
	UserID        string            `json:"user_id"`
	Name          string            `json:"name"`
	TotalXP       int64             `json:"total_xp"`
	Level         int               `json:"level"`
	LastLevelUpAt *time.Time        `json:"last_level_up_at,omitempty"`
}

func (p Progress) Ref() EntityRef { return EntityRef{Type: p.EntityType, ID: p.EntityID} }

// ProgressableAdapter reads and writes the cached XP and level of one entity
// kind. Every call is scoped by userID; an entity owned by another user is
// reported as ErrNotFound.
type ProgressableAdapter interface {
	Type() models.EntityType
	Curve() LevelCurve
	Load(ctx context.Context, tx *gorm.DB, userID, entityID string) (*Progress, error)
	// Lock holds the entity row until tx ends. Call it before reading the
	// ledger sum that will overwrite the cached total.
	Lock(ctx context.Context, tx *gorm.DB, userID, entityID string) error
	AddXP(ctx context.Context, tx *gorm.DB, userID, entityID string, delta int64) error
	SetTotalXP(ctx context.Context, tx *gorm.DB, userID, entityID string, total int64) error
	// SetLevel moves the level from one value to another. If the stored level
	// is no longer from, nothing is written and ErrLevelUpNotEligible is
	// returned.
	SetLevel(ctx context.Context, tx *gorm.DB, userID, entityID string, from, to int, at time.Time) error
	// ListAll returns every entity of this kind across users (audit only).
	ListAll(ctx context.Context, tx *gorm.DB) ([]Progress, error)
}

type AdapterRegistry struct {
	adapters map[models.EntityType]ProgressableAdapter
}

func NewAdapterRegistry(adapters ...ProgressableAdapter) *AdapterRegistry {
	r := &AdapterRegistry{adapters: make(map[models.EntityType]ProgressableAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Type()] = a
	}
	return r
}

func (r *AdapterRegistry) For(entityType models.EntityType) (ProgressableAdapter, error) {
	a, ok := r.adapters[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEntityType, entityType)
	}
	return a, nil
}

func (r *AdapterRegistry) All() []ProgressableAdapter {
	out := make([]ProgressableAdapter, 0, len(r.adapters))
	for _, t := range []models.EntityType{models.EntityCharacterStat, models.EntityFamilyMember} {
		if a, ok := r.adapters[t]; ok {
			out = append(out, a)
		}
	}
	for t, a := range r.adapters {
		if t != models.EntityCharacterStat && t != models.EntityFamilyMember {
			out = append(out, a)
		}
	}
	return out
}

// =============================================================================
// CHARACTER STAT
// =============================================================================

type characterStatAdapter struct {
	curve LevelCurve
}

func NewCharacterStatAdapter(curve LevelCurve) ProgressableAdapter {
	return &characterStatAdapter{curve: curve}
}

func (a *characterStatAdapter) Type() models.EntityType { return models.EntityCharacterStat }
func (a *characterStatAdapter) Curve() LevelCurve       { return a.curve }

func (a *characterStatAdapter) Load(ctx context.Context, tx *gorm.DB, userID, entityID string) (*Progress, error) {
	var s models.CharacterStat
	err := tx.WithContext(ctx).Where("id = ? AND user_id = ?", entityID, userID).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(a.Type(), entityID)
	}
	if err != nil {
		return nil, err
	}
	p := statProgress(s)
	return &p, nil
}

func (a *characterStatAdapter) AddXP(ctx context.Context, tx *gorm.DB, userID, entityID string, delta int64) error {
	res := tx.WithContext(ctx).Model(&models.CharacterStat{}).
		Where("id = ? AND user_id = ?", entityID, userID).
		Update("total_xp", gorm.Expr("total_xp + ?", delta))
	return affected(res, a.Type(), entityID)
}

func (a *characterStatAdapter) SetTotalXP(ctx context.Context, tx *gorm.DB, userID, entityID string, total int64) error {
	res := tx.WithContext(ctx).Model(&models.CharacterStat{}).
		Where("id = ? AND user_id = ?", entityID, userID).
		Update("total_xp", total)
	return affected(res, a.Type(), entityID)
}

func (a *characterStatAdapter) Lock(ctx context.Context, tx *gorm.DB, userID, entityID string) error {
	return lockRow(ctx, tx, &models.CharacterStat{}, a.Type(), userID, entityID)
}

func (a *characterStatAdapter) SetLevel(ctx context.Context, tx *gorm.DB, userID, entityID string, from, to int, at time.Time) error {
	res := tx.WithContext(ctx).Model(&models.CharacterStat{}).
		Where("id = ? AND user_id = ? AND current_level = ?", entityID, userID, from).
		Updates(map[string]any{"current_level": to, "last_level_up_at": at})
	return levelMoved(res, a.Type(), entityID, from)
}

func (a *characterStatAdapter) ListAll(ctx context.Context, tx *gorm.DB) ([]Progress, error) {
	var stats []models.CharacterStat
	if err := tx.WithContext(ctx).Order("user_id, id").Find(&stats).Error; err != nil {
		return nil, err
	}
	out := make([]Progress, 0, len(stats))
	for _, s := range stats {
		out = append(out, statProgress(s))
	}
	return out, nil
}

func statProgress(s models.CharacterStat) Progress {
	return Progress{
		EntityType:    models.EntityCharacterStat,
		EntityID:      s.ID,
		UserID:        s.UserID,
		Name:          s.Name,
		TotalXP:       s.TotalXP,
		Level:         s.CurrentLevel,
		LastLevelUpAt: s.LastLevelUpAt,
	}
}

// =============================================================================
// FAMILY MEMBER
// =============================================================================

type familyMemberAdapter struct {
	curve LevelCurve
}

func NewFamilyMemberAdapter(curve LevelCurve) ProgressableAdapter {
	return &familyMemberAdapter{curve: curve}
}

func (a *familyMemberAdapter) Type() models.EntityType { return models.EntityFamilyMember }
func (a *familyMemberAdapter) Curve() LevelCurve       { return a.curve }

func (a *familyMemberAdapter) Load(ctx context.Context, tx *gorm.DB, userID, entityID string) (*Progress, error) {
	var f models.FamilyMember
	err := tx.WithContext(ctx).Where("id = ? AND user_id = ?", entityID, userID).Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(a.Type(), entityID)
	}
	if err != nil {
		return nil, err
	}
	p := familyProgress(f)
	return &p, nil
}

func (a *familyMemberAdapter) AddXP(ctx context.Context, tx *gorm.DB, userID, entityID string, delta int64) error {
	res := tx.WithContext(ctx).Model(&models.FamilyMember{}).
		Where("id = ? AND user_id = ?", entityID, userID).
		Update("connection_xp", gorm.Expr("connection_xp + ?", delta))
	return affected(res, a.Type(), entityID)
}

func (a *familyMemberAdapter) SetTotalXP(ctx context.Context, tx *gorm.DB, userID, entityID string, total int64) error {
	res := tx.WithContext(ctx).Model(&models.FamilyMember{}).
		Where("id = ? AND user_id = ?", entityID, userID).
		Update("connection_xp", total)
	return affected(res, a.Type(), entityID)
}

func (a *familyMemberAdapter) Lock(ctx context.Context, tx *gorm.DB, userID, entityID string) error {
	return lockRow(ctx, tx, &models.FamilyMember{}, a.Type(), userID, entityID)
}

func (a *familyMemberAdapter) SetLevel(ctx context.Context, tx *gorm.DB, userID, entityID string, from, to int, at time.Time) error {
	res := tx.WithContext(ctx).Model(&models.FamilyMember{}).
		Where("id = ? AND user_id = ? AND connection_level = ?", entityID, userID, from).
		Updates(map[string]any{"connection_level": to, "last_level_up_at": at})
	return levelMoved(res, a.Type(), entityID, from)
}

func (a *familyMemberAdapter) ListAll(ctx context.Context, tx *gorm.DB) ([]Progress, error) {
	var members []models.FamilyMember
	if err := tx.WithContext(ctx).Order("user_id, id").Find(&members).Error; err != nil {
		return nil, err
	}
	out := make([]Progress, 0, len(members))
	for _, f := range members {
		out = append(out, familyProgress(f))
	}
	return out, nil
}

func familyProgress(f models.FamilyMember) Progress {
	return Progress{
		EntityType:    models.EntityFamilyMember,
		EntityID:      f.ID,
		UserID:        f.UserID,
		Name:          f.Name,
		TotalXP:       f.ConnectionXP,
		Level:         f.ConnectionLevel,
		LastLevelUpAt: f.LastLevelUpAt,
	}
}

// lockRow selects the entity FOR UPDATE. The SQLite dialect drops the
// locking clause; its single connection already serializes writers.
func lockRow(ctx context.Context, tx *gorm.DB, model any, entityType models.EntityType, userID, entityID string) error {
	var ids []string
	err := tx.WithContext(ctx).Model(model).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", entityID, userID).
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return notFound(entityType, entityID)
	}
	return nil
}

func levelMoved(res *gorm.DB, entityType models.EntityType, id string, from int) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s is no longer at level %d", ErrLevelUpNotEligible, entityType, id, from)
	}
	return nil
}

func affected(res *gorm.DB, entityType models.EntityType, id string) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(entityType, id)
	}
	return nil
}
