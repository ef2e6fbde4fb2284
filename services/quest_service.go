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

type QuestInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Rewards     []models.Award `json:"rewards"`
}

type QuestCompletionResult struct {
	Quest models.Quest `json:"quest"`
	CompletionResult
}

type QuestService struct {
	DB     *gorm.DB
	Grants *GrantService
	Recalc *RecalculationService
	Log    *logger.Logger
	Now    func() time.Time
}

func NewQuestService(db *gorm.DB, grants *GrantService, recalc *RecalculationService, log *logger.Logger) *QuestService {
	return &QuestService{DB: db, Grants: grants, Recalc: recalc, Log: log.With("service", "QuestService"), Now: utcNow}
}

func (s *QuestService) Create(ctx context.Context, userID string, in QuestInput) (*models.Quest, error) {
	if in.Title == "" {
		return nil, invalidInput("quest title is required")
	}
	if err := validateAwards(in.Rewards); err != nil {
		return nil, err
	}
	q := models.Quest{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.StatusActive,
		Rewards:     datatypes.NewJSONType(in.Rewards),
	}
	if err := s.DB.WithContext(ctx).Create(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *QuestService) Get(ctx context.Context, userID, id string) (*models.Quest, error) {
	var q models.Quest
	if err := takeOwned(ctx, s.DB, &q, "quest", userID, id); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *QuestService) List(ctx context.Context, userID string) ([]models.Quest, error) {
	var quests []models.Quest
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&quests).Error
	return quests, err
}

func (s *QuestService) Complete(ctx context.Context, userID, id string) (*QuestCompletionResult, error) {
	var result *QuestCompletionResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Quest
		if err := takeOwned(ctx, tx, &q, "quest", userID, id); err != nil {
			return err
		}
		now := s.Now()
		if err := markCompleted(tx, &models.Quest{}, userID, id, now); err != nil {
			return err
		}
		grants, err := grantRewards(ctx, tx, s.Grants, userID, models.SourceQuest, id, q.Rewards.Data())
		if err != nil {
			return err
		}
		q.Status = models.StatusCompleted
		q.CompletedAt = &now
		result = &QuestCompletionResult{Quest: q, CompletionResult: CompletionResult{Grants: grants, TotalXP: sumAwards(grants)}}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	s.Log.Info("quest completed", "user_id", userID, "quest_id", id, "total_xp", result.TotalXP)
	return result, nil
}

func (s *QuestService) Delete(ctx context.Context, userID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Quest
		if err := takeOwned(ctx, tx, &q, "quest", userID, id); err != nil {
			return err
		}
		if _, err := s.Recalc.ReverseTx(ctx, tx, userID, models.SourceQuest, id); err != nil {
			return err
		}
		return tx.Delete(&q).Error
	})
	return txError(err)
}

type ExperimentInput struct {
	Title      string         `json:"title"`
	Hypothesis string         `json:"hypothesis"`
	Rewards    []models.Award `json:"rewards"`
}

type ExperimentCompletionResult struct {
	Experiment models.Experiment `json:"experiment"`
	CompletionResult
}

type ExperimentService struct {
	DB     *gorm.DB
	Grants *GrantService
	Recalc *RecalculationService
	Log    *logger.Logger
	Now    func() time.Time
}

func NewExperimentService(db *gorm.DB, grants *GrantService, recalc *RecalculationService, log *logger.Logger) *ExperimentService {
	return &ExperimentService{DB: db, Grants: grants, Recalc: recalc, Log: log.With("service", "ExperimentService"), Now: utcNow}
}

func (s *ExperimentService) Create(ctx context.Context, userID string, in ExperimentInput) (*models.Experiment, error) {
	if in.Title == "" {
		return nil, invalidInput("experiment title is required")
	}
	if err := validateAwards(in.Rewards); err != nil {
		return nil, err
	}
	e := models.Experiment{
		UserID:     userID,
		Title:      in.Title,
		Hypothesis: in.Hypothesis,
		Status:     models.StatusActive,
		Rewards:    datatypes.NewJSONType(in.Rewards),
	}
	if err := s.DB.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *ExperimentService) Get(ctx context.Context, userID, id string) (*models.Experiment, error) {
	var e models.Experiment
	if err := takeOwned(ctx, s.DB, &e, "experiment", userID, id); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *ExperimentService) List(ctx context.Context, userID string) ([]models.Experiment, error) {
	var experiments []models.Experiment
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&experiments).Error
	return experiments, err
}

// Complete records the outcome and grants the experiment's rewards.
func (s *ExperimentService) Complete(ctx context.Context, userID, id, outcome string) (*ExperimentCompletionResult, error) {
	var result *ExperimentCompletionResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.Experiment
		if err := takeOwned(ctx, tx, &e, "experiment", userID, id); err != nil {
			return err
		}
		now := s.Now()
		if err := markCompleted(tx, &models.Experiment{}, userID, id, now); err != nil {
			return err
		}
		if outcome != "" {
			if err := tx.Model(&e).Update("outcome", outcome).Error; err != nil {
				return err
			}
			e.Outcome = outcome
		}
		grants, err := grantRewards(ctx, tx, s.Grants, userID, models.SourceExperiment, id, e.Rewards.Data())
		if err != nil {
			return err
		}
		e.Status = models.StatusCompleted
		e.CompletedAt = &now
		result = &ExperimentCompletionResult{Experiment: e, CompletionResult: CompletionResult{Grants: grants, TotalXP: sumAwards(grants)}}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	s.Log.Info("experiment completed", "user_id", userID, "experiment_id", id, "total_xp", result.TotalXP)
	return result, nil
}

func (s *ExperimentService) Delete(ctx context.Context, userID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.Experiment
		if err := takeOwned(ctx, tx, &e, "experiment", userID, id); err != nil {
			return err
		}
		if _, err := s.Recalc.ReverseTx(ctx, tx, userID, models.SourceExperiment, id); err != nil {
			return err
		}
		return tx.Delete(&e).Error
	})
	return txError(err)
}

// markCompleted flips an active record to completed. Losing the race (or a
// record that is already completed) is ErrAlreadyCompleted.
func markCompleted(tx *gorm.DB, model any, userID, id string, at time.Time) error {
	res := tx.Model(model).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, models.StatusActive).
		Updates(map[string]any{"status": models.StatusCompleted, "completed_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyCompleted
	}
	return nil
}

func grantRewards(ctx context.Context, tx *gorm.DB, grants *GrantService, userID string, sourceType models.SourceType, sourceID string, rewards []models.Award) ([]GrantResult, error) {
	reqs, err := awardRequests(userID, sourceType, sourceID, rewards)
	if err != nil {
		return nil, err
	}
	return grants.GrantTx(ctx, tx, reqs)
}

func takeOwned(ctx context.Context, db *gorm.DB, dest any, kind, userID, id string) error {
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundRecord(kind, id)
	}
	return err
}
