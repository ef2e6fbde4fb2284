package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"lifequest-api/logger"
	"lifequest-api/models"
	"lifequest-api/utils"
)

type StatInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type StatUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

type StatView struct {
	models.CharacterStat
	Progression ProgressionInfo `json:"progression"`
}

type StatService struct {
	DB     *gorm.DB
	Ledger *XpLedger
	Curve  LevelCurve
	Log    *logger.Logger
}

func NewStatService(db *gorm.DB, ledger *XpLedger, curve LevelCurve, log *logger.Logger) *StatService {
	return &StatService{DB: db, Ledger: ledger, Curve: curve, Log: log.With("service", "StatService")}
}

func (s *StatService) view(stat models.CharacterStat) *StatView {
	return &StatView{CharacterStat: stat, Progression: Describe(s.Curve, stat.CurrentLevel, stat.TotalXP)}
}

// Create starts a stat at zero XP and level 1.
func (s *StatService) Create(ctx context.Context, userID string, in StatInput) (*StatView, error) {
	name := utils.DisplayName(in.Name)
	if name == "" {
		return nil, invalidInput("stat name is required")
	}
	stat := models.CharacterStat{
		UserID:       userID,
		Name:         name,
		Slug:         utils.Slug(name),
		Description:  in.Description,
		Category:     in.Category,
		TotalXP:      0,
		CurrentLevel: 1,
	}
	if err := s.ensureSlugFree(ctx, userID, stat.Slug, ""); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(&stat).Error; err != nil {
		return nil, err
	}
	s.Log.Info("stat created", "user_id", userID, "stat_id", stat.ID, "slug", stat.Slug)
	return s.view(stat), nil
}

func (s *StatService) Get(ctx context.Context, userID, id string) (*StatView, error) {
	stat, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.view(*stat), nil
}

func (s *StatService) List(ctx context.Context, userID string) ([]StatView, error) {
	var stats []models.CharacterStat
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&stats).Error; err != nil {
		return nil, err
	}
	out := make([]StatView, 0, len(stats))
	for _, st := range stats {
		out = append(out, *s.view(st))
	}
	return out, nil
}

// Update changes display fields only; XP and level are not writable here.
func (s *StatService) Update(ctx context.Context, userID, id string, in StatUpdate) (*StatView, error) {
	stat, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.Name != nil {
		name := utils.DisplayName(*in.Name)
		if name == "" {
			return nil, invalidInput("stat name is required")
		}
		newSlug := utils.Slug(name)
		if err := s.ensureSlugFree(ctx, userID, newSlug, id); err != nil {
			return nil, err
		}
		updates["name"] = name
		updates["slug"] = newSlug
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(stat).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID, id)
}

// Delete removes the stat and its ledger rows together.
func (s *StatService) Delete(ctx context.Context, userID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.CharacterStat{})
		if err := affected(res, models.EntityCharacterStat, id); err != nil {
			return err
		}
		n, err := s.Ledger.DeleteByEntity(ctx, tx, userID, EntityRef{Type: models.EntityCharacterStat, ID: id})
		if err != nil {
			return err
		}
		s.Log.Info("stat deleted", "user_id", userID, "stat_id", id, "grants_deleted", n)
		return nil
	})
	return txError(err)
}

func (s *StatService) load(ctx context.Context, userID, id string) (*models.CharacterStat, error) {
	var stat models.CharacterStat
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(models.EntityCharacterStat, id)
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// ensureSlugFree rejects empty keys (names made only of punctuation) and keys
// already used by another of the user's stats.
func (s *StatService) ensureSlugFree(ctx context.Context, userID, slug, exceptID string) error {
	if slug == "" {
		return invalidInput("stat name must contain a letter or digit")
	}
	q := s.DB.WithContext(ctx).Model(&models.CharacterStat{}).Where("user_id = ? AND slug = ?", userID, slug)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return invalidInput("a stat with key %q already exists", slug)
	}
	return nil
}
