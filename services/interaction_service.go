package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"lifequest-api/logger"
	"lifequest-api/models"
)

// DefaultInteractionXP is granted when an interaction is logged without an
// explicit amount.
const DefaultInteractionXP int64 = 10

type InteractionInput struct {
	Kind       string     `json:"kind"`
	Note       string     `json:"note"`
	XP         int64      `json:"xp"`
	OccurredAt *time.Time `json:"occurred_at"`
}

type InteractionResult struct {
	Interaction models.FamilyInteraction `json:"interaction"`
	Grant       GrantResult              `json:"grant"`
}

// InteractionService logs time spent with a family member and grants
// connection XP for it.
type InteractionService struct {
	DB     *gorm.DB
	Grants *GrantService
	Recalc *RecalculationService
	Log    *logger.Logger
	Now    func() time.Time
}

func NewInteractionService(db *gorm.DB, grants *GrantService, recalc *RecalculationService, log *logger.Logger) *InteractionService {
	return &InteractionService{DB: db, Grants: grants, Recalc: recalc, Log: log.With("service", "InteractionService"), Now: utcNow}
}

func (s *InteractionService) Record(ctx context.Context, userID, familyMemberID string, in InteractionInput) (*InteractionResult, error) {
	kind := strings.TrimSpace(in.Kind)
	if kind == "" {
		return nil, invalidInput("interaction kind is required")
	}
	amount := in.XP
	if amount == 0 {
		amount = DefaultInteractionXP
	}
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	occurred := s.Now()
	if in.OccurredAt != nil {
		occurred = in.OccurredAt.UTC()
	}

	var result *InteractionResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.FamilyMember
		if err := takeOwned(ctx, tx, &member, string(models.EntityFamilyMember), userID, familyMemberID); err != nil {
			return err
		}
		interaction := models.FamilyInteraction{
			UserID:         userID,
			FamilyMemberID: member.ID,
			Kind:           kind,
			Note:           in.Note,
			XPAmount:       amount,
			OccurredAt:     occurred,
		}
		if err := tx.Create(&interaction).Error; err != nil {
			return err
		}
		grants, err := s.Grants.GrantTx(ctx, tx, []GrantRequest{{
			UserID:     userID,
			EntityType: models.EntityFamilyMember,
			EntityID:   member.ID,
			Amount:     amount,
			SourceType: models.SourceInteraction,
			SourceID:   &interaction.ID,
			Reason:     optionalString(kind),
		}})
		if err != nil {
			return err
		}
		result = &InteractionResult{Interaction: interaction, Grant: grants[0]}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	s.Log.Info("interaction logged", "user_id", userID, "family_member_id", familyMemberID, "xp", amount)
	return result, nil
}

func (s *InteractionService) List(ctx context.Context, userID, familyMemberID string) ([]models.FamilyInteraction, error) {
	var member models.FamilyMember
	if err := takeOwned(ctx, s.DB, &member, string(models.EntityFamilyMember), userID, familyMemberID); err != nil {
		return nil, err
	}
	var out []models.FamilyInteraction
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND family_member_id = ?", userID, familyMemberID).
		Order("occurred_at DESC").
		Find(&out).Error
	return out, err
}

// Delete removes the interaction and reverses the connection XP it granted.
func (s *InteractionService) Delete(ctx context.Context, userID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var interaction models.FamilyInteraction
		if err := takeOwned(ctx, tx, &interaction, "interaction", userID, id); err != nil {
			return err
		}
		if _, err := s.Recalc.ReverseTx(ctx, tx, userID, models.SourceInteraction, id); err != nil {
			return err
		}
		return tx.Delete(&interaction).Error
	})
	return txError(err)
}
