package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lifequest-api/logger"
	"lifequest-api/models"
)

const contentTagReason = "content tag"

type JournalInput struct {
	Title           string                `json:"title"`
	Content         string                `json:"content"`
	SuggestedAwards *models.JournalAwards `json:"suggested_awards"`
}

type JournalUpdate struct {
	Title           *string               `json:"title"`
	Content         *string               `json:"content"`
	SuggestedAwards *models.JournalAwards `json:"suggested_awards"`
}

type FinalizeResult struct {
	Journal models.Journal `json:"journal"`
	Grants  []GrantResult  `json:"grants"`
	TotalXP int64          `json:"total_xp"`
}

// JournalService owns the journal lifecycle: draft -> finalized (grants
// issued) -> draft again on edit (grants reversed).
type JournalService struct {
	DB     *gorm.DB
	Grants *GrantService
	Recalc *RecalculationService
	Log    *logger.Logger
	Now    func() time.Time
}

func NewJournalService(db *gorm.DB, grants *GrantService, recalc *RecalculationService, log *logger.Logger) *JournalService {
	return &JournalService{DB: db, Grants: grants, Recalc: recalc, Log: log.With("service", "JournalService"), Now: utcNow}
}

func (s *JournalService) Create(ctx context.Context, userID string, in JournalInput) (*models.Journal, error) {
	if in.Title == "" {
		return nil, invalidInput("journal title is required")
	}
	j := models.Journal{
		UserID:  userID,
		Title:   in.Title,
		Content: in.Content,
		Status:  models.JournalDraft,
	}
	if in.SuggestedAwards != nil {
		j.SuggestedAwards = datatypes.NewJSONType(*in.SuggestedAwards)
	}
	if err := s.DB.WithContext(ctx).Create(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *JournalService) Get(ctx context.Context, userID, id string) (*models.Journal, error) {
	return loadJournal(ctx, s.DB, userID, id)
}

func (s *JournalService) List(ctx context.Context, userID string) ([]models.Journal, error) {
	var journals []models.Journal
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&journals).Error
	return journals, err
}

// Finalize issues the journal's grants as one batch: stat XP, family XP and
// a zero-XP row per content tag. Explicit awards win over stored suggestions.
func (s *JournalService) Finalize(ctx context.Context, userID, id string, awards *models.JournalAwards) (*FinalizeResult, error) {
	var result *FinalizeResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		j, err := loadJournal(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if j.Status == models.JournalFinalized {
			return ErrAlreadyProcessed
		}

		plan := j.SuggestedAwards.Data()
		if awards != nil {
			plan = *awards
		}
		reqs, err := journalRequests(userID, j.ID, plan)
		if err != nil {
			return err
		}

		now := s.Now()
		res := tx.Model(&models.Journal{}).
			Where("id = ? AND user_id = ? AND status = ?", j.ID, userID, models.JournalDraft).
			Updates(map[string]any{"status": models.JournalFinalized, "finalized_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyProcessed
		}

		grants, err := s.Grants.GrantTx(ctx, tx, reqs)
		if err != nil {
			return err
		}
		j.Status = models.JournalFinalized
		j.FinalizedAt = &now
		result = &FinalizeResult{Journal: *j, Grants: grants, TotalXP: sumAwards(grants)}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	s.Log.Info("journal finalized", "user_id", userID, "journal_id", id,
		"grants", len(result.Grants), "total_xp", result.TotalXP)
	return result, nil
}

// Update edits a journal. A finalized journal has its grants reversed and
// goes back to draft so it can be finalized again.
func (s *JournalService) Update(ctx context.Context, userID, id string, in JournalUpdate) (*models.Journal, error) {
	var out *models.Journal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		j, err := loadJournal(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if in.Title != nil {
			if *in.Title == "" {
				return invalidInput("journal title is required")
			}
			updates["title"] = *in.Title
		}
		if in.Content != nil {
			updates["content"] = *in.Content
		}
		if in.SuggestedAwards != nil {
			updates["suggested_awards"] = datatypes.NewJSONType(*in.SuggestedAwards)
		}
		if j.Status == models.JournalFinalized {
			if _, err := s.Recalc.ReverseTx(ctx, tx, userID, models.SourceJournal, j.ID); err != nil {
				return err
			}
			updates["status"] = models.JournalDraft
			updates["finalized_at"] = nil
		}
		if len(updates) > 0 {
			if err := tx.Model(j).Updates(updates).Error; err != nil {
				return err
			}
		}
		out, err = loadJournal(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return nil, txError(err)
	}
	return out, nil
}

// Delete reverses the journal's grants and removes it.
func (s *JournalService) Delete(ctx context.Context, userID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		j, err := loadJournal(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if _, err := s.Recalc.ReverseTx(ctx, tx, userID, models.SourceJournal, j.ID); err != nil {
			return err
		}
		return tx.Delete(j).Error
	})
	if err != nil {
		return txError(err)
	}
	s.Log.Info("journal deleted", "user_id", userID, "journal_id", id)
	return nil
}

func journalRequests(userID, journalID string, plan models.JournalAwards) ([]GrantRequest, error) {
	var awards []models.Award
	for _, a := range plan.Stats {
		a.EntityType = models.EntityCharacterStat
		awards = append(awards, a)
	}
	for _, a := range plan.Family {
		a.EntityType = models.EntityFamilyMember
		awards = append(awards, a)
	}
	if err := validateAwards(awards); err != nil {
		return nil, err
	}
	reqs, err := awardRequests(userID, models.SourceJournal, journalID, awards)
	if err != nil {
		return nil, err
	}
	reason := contentTagReason
	for _, statID := range plan.ContentTags {
		if statID == "" {
			return nil, invalidInput("content tag needs a stat id")
		}
		src := journalID
		reqs = append(reqs, GrantRequest{
			UserID:     userID,
			EntityType: models.EntityCharacterStat,
			EntityID:   statID,
			Amount:     0,
			SourceType: models.SourceJournal,
			SourceID:   &src,
			Reason:     &reason,
			AllowZero:  true,
		})
	}
	return reqs, nil
}

func loadJournal(ctx context.Context, db *gorm.DB, userID, id string) (*models.Journal, error) {
	var j models.Journal
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundRecord("journal", id)
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}
