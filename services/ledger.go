package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lifequest-api/models"
)

// XpLedger is the query layer over xp_grants. It does not open transactions;
// callers pass tx (or nil for the base connection).
type XpLedger struct {
	DB *gorm.DB
}

func NewXpLedger(db *gorm.DB) *XpLedger {
	return &XpLedger{DB: db}
}

func (l *XpLedger) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		tx = l.DB
	}
	return tx.WithContext(ctx)
}

func (l *XpLedger) Insert(ctx context.Context, tx *gorm.DB, grant *models.XpGrant) error {
	return l.conn(ctx, tx).Create(grant).Error
}

func (l *XpLedger) FindBySource(ctx context.Context, tx *gorm.DB, userID string, sourceType models.SourceType, sourceID string) ([]models.XpGrant, error) {
	var grants []models.XpGrant
	err := l.conn(ctx, tx).
		Where("user_id = ? AND source_type = ? AND source_id = ?", userID, sourceType, sourceID).
		Order("created_at ASC, id ASC").
		Find(&grants).Error
	return grants, err
}

func (l *XpLedger) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := l.conn(ctx, tx).Where("id IN ?", ids).Delete(&models.XpGrant{})
	return res.RowsAffected, res.Error
}

func (l *XpLedger) DeleteByEntity(ctx context.Context, tx *gorm.DB, userID string, ref EntityRef) (int64, error) {
	res := l.conn(ctx, tx).
		Where("user_id = ? AND entity_type = ? AND entity_id = ?", userID, ref.Type, ref.ID).
		Delete(&models.XpGrant{})
	return res.RowsAffected, res.Error
}

func (l *XpLedger) SumForEntity(ctx context.Context, tx *gorm.DB, userID string, ref EntityRef) (int64, error) {
	var sum int64
	err := l.conn(ctx, tx).Model(&models.XpGrant{}).
		Where("user_id = ? AND entity_type = ? AND entity_id = ?", userID, ref.Type, ref.ID).
		Select("COALESCE(SUM(xp_amount), 0)").
		Scan(&sum).Error
	return sum, err
}

func (l *XpLedger) CountForSource(ctx context.Context, tx *gorm.DB, userID string, sourceType models.SourceType, sourceID string) (int64, error) {
	var n int64
	err := l.conn(ctx, tx).Model(&models.XpGrant{}).
		Where("user_id = ? AND source_type = ? AND source_id = ?", userID, sourceType, sourceID).
		Count(&n).Error
	return n, err
}

// SourceHeldByOthers reports whether any other user has rows for the source.
func (l *XpLedger) SourceHeldByOthers(ctx context.Context, tx *gorm.DB, userID string, sourceType models.SourceType, sourceID string) (bool, error) {
	var n int64
	err := l.conn(ctx, tx).Model(&models.XpGrant{}).
		Where("user_id <> ? AND source_type = ? AND source_id = ?", userID, sourceType, sourceID).
		Count(&n).Error
	return n > 0, err
}

// EntitySum is one row of a grouped ledger sum.
type EntitySum struct {
	UserID     string
	EntityType models.EntityType
	EntityID   string
	Total      int64
	Grants     int64
}

// SumsByEntity groups the whole ledger by (user, entity).
func (l *XpLedger) SumsByEntity(ctx context.Context, tx *gorm.DB) ([]EntitySum, error) {
	var rows []EntitySum
	err := l.conn(ctx, tx).Model(&models.XpGrant{}).
		Select("user_id, entity_type, entity_id, COALESCE(SUM(xp_amount), 0) AS total, COUNT(*) AS grants").
		Group("user_id, entity_type, entity_id").
		Scan(&rows).Error
	return rows, err
}

// LedgerFilter narrows a ledger page. Zero values mean "any".
type LedgerFilter struct {
	EntityType models.EntityType
	EntityID   string
	SourceType models.SourceType
	SourceID   string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// Page returns one page of a user's grants, newest first, and the total count.
func (l *XpLedger) Page(ctx context.Context, tx *gorm.DB, userID string, f LedgerFilter) ([]models.XpGrant, int64, error) {
	q := l.conn(ctx, tx).Model(&models.XpGrant{}).Where("user_id = ?", userID)
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.SourceType != "" {
		q = q.Where("source_type = ?", f.SourceType)
	}
	if f.SourceID != "" {
		q = q.Where("source_id = ?", f.SourceID)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("created_at <= ?", *f.Until)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var grants []models.XpGrant
	err := q.Order("created_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&grants).Error
	if err != nil {
		return nil, 0, err
	}
	return grants, total, nil
}

// AllForUser returns a user's full ledger in chronological order.
func (l *XpLedger) AllForUser(ctx context.Context, tx *gorm.DB, userID string) ([]models.XpGrant, error) {
	var grants []models.XpGrant
	err := l.conn(ctx, tx).Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&grants).Error
	return grants, err
}
