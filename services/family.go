package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"lifequest-api/logger"
	"lifequest-api/models"
	"lifequest-api/utils"
)

type FamilyInput struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Notes        string `json:"notes"`
}

type FamilyUpdate struct {
	Name         *string `json:"name"`
	Relationship *string `json:"relationship"`
	Notes        *string `json:"notes"`
}

type FamilyView struct {
	models.FamilyMember
	Progression ProgressionInfo `json:"progression"`
}

type FamilyService struct {
	DB     *gorm.DB
	Ledger *XpLedger
	Curve  LevelCurve
	Log    *logger.Logger
}

func NewFamilyService(db *gorm.DB, ledger *XpLedger, curve LevelCurve, log *logger.Logger) *FamilyService {
	return &FamilyService{DB: db, Ledger: ledger, Curve: curve, Log: log.With("service", "FamilyService")}
}

func (s *FamilyService) view(m models.FamilyMember) *FamilyView {
	return &FamilyView{FamilyMember: m, Progression: Describe(s.Curve, m.ConnectionLevel, m.ConnectionXP)}
}

func (s *FamilyService) Create(ctx context.Context, userID string, in FamilyInput) (*FamilyView, error) {
	name := utils.DisplayName(in.Name)
	if name == "" {
		return nil, invalidInput("family member name is required")
	}
	m := models.FamilyMember{
		UserID:          userID,
		Name:            name,
		Relationship:    in.Relationship,
		Notes:           in.Notes,
		ConnectionXP:    0,
		ConnectionLevel: 1,
	}
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	s.Log.Info("family member created", "user_id", userID, "family_member_id", m.ID)
	return s.view(m), nil
}

func (s *FamilyService) Get(ctx context.Context, userID, id string) (*FamilyView, error) {
	var m models.FamilyMember
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(models.EntityFamilyMember, id)
	}
	if err != nil {
		return nil, err
	}
	return s.view(m), nil
}

func (s *FamilyService) List(ctx context.Context, userID string) ([]FamilyView, error) {
	var members []models.FamilyMember
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	out := make([]FamilyView, 0, len(members))
	for _, m := range members {
		out = append(out, *s.view(m))
	}
	return out, nil
}

func (s *FamilyService) Update(ctx context.Context, userID, id string, in FamilyUpdate) (*FamilyView, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.Name != nil {
		name := utils.DisplayName(*in.Name)
		if name == "" {
			return nil, invalidInput("family member name is required")
		}
		updates["name"] = name
	}
	if in.Relationship != nil {
		updates["relationship"] = *in.Relationship
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&existing.FamilyMember).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID, id)
}

// Delete removes the member, its ledger rows and its logged interactions.
func (s *FamilyService) Delete(ctx context.Context, userID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.FamilyMember{})
		if err := affected(res, models.EntityFamilyMember, id); err != nil {
			return err
		}
		n, err := s.Ledger.DeleteByEntity(ctx, tx, userID, EntityRef{Type: models.EntityFamilyMember, ID: id})
		if err != nil {
			return err
		}
		if err := tx.Where("family_member_id = ? AND user_id = ?", id, userID).Delete(&models.FamilyInteraction{}).Error; err != nil {
			return err
		}
		s.Log.Info("family member deleted", "user_id", userID, "family_member_id", id, "grants_deleted", n)
		return nil
	})
	return txError(err)
}
