package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"lifequest-api/logger"
	"lifequest-api/models"
)

// RecalculationService undoes every grant of one source record and rebuilds
// the affected totals from what is left in the ledger. Levels are left alone.
type RecalculationService struct {
	DB       *gorm.DB
	Ledger   *XpLedger
	Adapters *AdapterRegistry
	Log      *logger.Logger
}

func NewRecalculationService(db *gorm.DB, ledger *XpLedger, adapters *AdapterRegistry, log *logger.Logger) *RecalculationService {
	return &RecalculationService{
		DB:       db,
		Ledger:   ledger,
		Adapters: adapters,
		Log:      log.With("service", "RecalculationService"),
	}
}

// ReverseGrantsForSource deletes the source's grants and recomputes the
// affected entities. A second call finds nothing and changes nothing. A source
// whose rows belong to another user is NotFound.
func (s *RecalculationService) ReverseGrantsForSource(ctx context.Context, userID string, sourceType models.SourceType, sourceID string) ([]EntityRef, error) {
	var affected []EntityRef
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		affected, err = s.ReverseTx(ctx, tx, userID, sourceType, sourceID)
		return err
	})
	if err != nil {
		return nil, txError(err)
	}
	return affected, nil
}

// ReverseTx is ReverseGrantsForSource inside a caller-owned transaction.
func (s *RecalculationService) ReverseTx(ctx context.Context, tx *gorm.DB, userID string, sourceType models.SourceType, sourceID string) ([]EntityRef, error) {
	if !sourceType.Valid() {
		return nil, fmt.Errorf("%w: unknown source type %q", ErrInvalidSource, sourceType)
	}
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source id is required", ErrInvalidSource)
	}

	grants, err := s.Ledger.FindBySource(ctx, tx, userID, sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		foreign, err := s.Ledger.SourceHeldByOthers(ctx, tx, userID, sourceType, sourceID)
		if err != nil {
			return nil, err
		}
		if foreign {
			return nil, notFoundRecord(string(sourceType), sourceID)
		}
		return nil, nil
	}

	ids := make([]string, 0, len(grants))
	var refs []EntityRef
	seen := make(map[EntityRef]bool)
	for _, g := range grants {
		ids = append(ids, g.ID)
		ref := EntityRef{Type: g.EntityType, ID: g.EntityID}
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	deleted, err := s.Ledger.DeleteByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	affected := make([]EntityRef, 0, len(refs))
	for _, ref := range refs {
		total, err := s.RecomputeEntity(ctx, tx, userID, ref)
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnsupportedEntityType):
			s.Log.Warn("skipping orphaned grant target",
				"user_id", userID, "entity_type", ref.Type, "entity_id", ref.ID)
			continue
		case err != nil:
			return nil, err
		}
		s.Log.Debug("entity recomputed", "entity_type", ref.Type, "entity_id", ref.ID, "total_xp", total)
		affected = append(affected, ref)
	}

	s.Log.Info("grants reversed",
		"user_id", userID, "source_type", sourceType, "source_id", sourceID,
		"deleted", deleted, "entities", len(affected))
	return affected, nil
}

// RecomputeEntity rewrites the cached total as the sum of the entity's
// remaining ledger rows and returns it. The entity row is locked before the
// sum is read so a grant committing in between is not overwritten.
func (s *RecalculationService) RecomputeEntity(ctx context.Context, tx *gorm.DB, userID string, ref EntityRef) (int64, error) {
	adapter, err := s.Adapters.For(ref.Type)
	if err != nil {
		return 0, err
	}
	if err := adapter.Lock(ctx, tx, userID, ref.ID); err != nil {
		return 0, err
	}
	total, err := s.Ledger.SumForEntity(ctx, tx, userID, ref)
	if err != nil {
		return 0, err
	}
	if err := adapter.SetTotalXP(ctx, tx, userID, ref.ID, total); err != nil {
		return 0, err
	}
	return total, nil
}
