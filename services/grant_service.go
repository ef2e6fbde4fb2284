package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lifequest-api/logger"
	"lifequest-api/models"
)

// GrantRequest is one XP award. SourceID may only be nil for ad-hoc grants.
type GrantRequest struct {
	UserID     string
	EntityType models.EntityType
	EntityID   string
	Amount     int64
	SourceType models.SourceType
	SourceID   *string
	Reason     *string
	// AllowZero admits zero-XP rows (journal content tags).
	AllowZero bool
}

// GrantResult is the ledger row plus the entity as it stands after the grant.
type GrantResult struct {
	Grant       models.XpGrant  `json:"grant"`
	Entity      Progress        `json:"entity"`
	Progression ProgressionInfo `json:"progression"`
}

// GrantService is the only writer of ledger rows. Each grant inserts one row
// and bumps the target's cached total in the same transaction.
type GrantService struct {
	DB       *gorm.DB
	Ledger   *XpLedger
	Adapters *AdapterRegistry
	Log      *logger.Logger
	Now      func() time.Time
}

func NewGrantService(db *gorm.DB, ledger *XpLedger, adapters *AdapterRegistry, log *logger.Logger) *GrantService {
	return &GrantService{
		DB:       db,
		Ledger:   ledger,
		Adapters: adapters,
		Log:      log.With("service", "GrantService"),
		Now:      utcNow,
	}
}

// Grant issues a single grant in its own transaction.
func (s *GrantService) Grant(ctx context.Context, req GrantRequest) (*GrantResult, error) {
	results, err := s.GrantBatch(ctx, []GrantRequest{req})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// GrantAdhoc is the manual grant path: no source record, positive amounts only.
func (s *GrantService) GrantAdhoc(ctx context.Context, userID string, ref EntityRef, amount int64, reason string) (*GrantResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: manual grants must be positive, got %d", ErrInvalidAmount, amount)
	}
	return s.Grant(ctx, GrantRequest{
		UserID:     userID,
		EntityType: ref.Type,
		EntityID:   ref.ID,
		Amount:     amount,
		SourceType: models.SourceAdhoc,
		Reason:     optionalString(reason),
	})
}

// GrantBatch issues all grants in one transaction: either every row lands or
// none does.
func (s *GrantService) GrantBatch(ctx context.Context, reqs []GrantRequest) ([]GrantResult, error) {
	var results []GrantResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		results, err = s.GrantTx(ctx, tx, reqs)
		return err
	})
	if err != nil {
		return nil, txError(err)
	}
	return results, nil
}

// GrantTx issues grants inside a caller-owned transaction, so source services
// can commit their own state change together with the grants.
func (s *GrantService) GrantTx(ctx context.Context, tx *gorm.DB, reqs []GrantRequest) ([]GrantResult, error) {
	results := make([]GrantResult, 0, len(reqs))
	for i, req := range reqs {
		res, err := s.grantOne(ctx, tx, req)
		if err != nil {
			s.Log.Warn("grant rejected",
				"user_id", req.UserID, "entity_type", req.EntityType, "entity_id", req.EntityID,
				"source_type", req.SourceType, "batch_index", i, "error", err)
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

func (s *GrantService) grantOne(ctx context.Context, tx *gorm.DB, req GrantRequest) (*GrantResult, error) {
	if err := validateGrant(req); err != nil {
		return nil, err
	}
	adapter, err := s.Adapters.For(req.EntityType)
	if err != nil {
		return nil, err
	}
	if _, err := adapter.Load(ctx, tx, req.UserID, req.EntityID); err != nil {
		return nil, err
	}

	grant := models.XpGrant{
		UserID:     req.UserID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		XPAmount:   req.Amount,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Reason:     req.Reason,
		CreatedAt:  s.Now(),
	}
	if err := s.Ledger.Insert(ctx, tx, &grant); err != nil {
		return nil, err
	}
	if err := adapter.AddXP(ctx, tx, req.UserID, req.EntityID, req.Amount); err != nil {
		return nil, err
	}

	entity, err := adapter.Load(ctx, tx, req.UserID, req.EntityID)
	if err != nil {
		return nil, err
	}

	s.Log.Info("xp granted",
		"user_id", req.UserID, "entity_type", req.EntityType, "entity_id", req.EntityID,
		"amount", req.Amount, "source_type", req.SourceType, "source_id", deref(req.SourceID),
		"total_xp", entity.TotalXP)

	return &GrantResult{
		Grant:       grant,
		Entity:      *entity,
		Progression: Describe(adapter.Curve(), entity.Level, entity.TotalXP),
	}, nil
}

func validateGrant(req GrantRequest) error {
	if req.UserID == "" {
		return invalidInput("user id is required")
	}
	if req.EntityID == "" {
		return invalidInput("entity id is required")
	}
	if !req.EntityType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedEntityType, req.EntityType)
	}
	if !req.SourceType.Valid() {
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidSource, req.SourceType)
	}
	if req.SourceType != models.SourceAdhoc && (req.SourceID == nil || *req.SourceID == "") {
		return fmt.Errorf("%w: %s grants need a source id", ErrInvalidSource, req.SourceType)
	}
	if req.Amount < 0 || (req.Amount == 0 && !req.AllowZero) {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, req.Amount)
	}
	return nil
}

func utcNow() time.Time { return time.Now().UTC() }

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
