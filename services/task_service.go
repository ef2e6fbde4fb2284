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

type TaskInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Rewards     []models.Award `json:"rewards"`
}

type CompletionResult struct {
	Grants  []GrantResult `json:"grants"`
	TotalXP int64         `json:"total_xp"`
}

type TaskCompletionResult struct {
	Task       models.Task           `json:"task"`
	Completion models.TaskCompletion `json:"completion"`
	CompletionResult
}

type TaskService struct {
	DB     *gorm.DB
	Grants *GrantService
	Recalc *RecalculationService
	Log    *logger.Logger
	Now    func() time.Time
}

func NewTaskService(db *gorm.DB, grants *GrantService, recalc *RecalculationService, log *logger.Logger) *TaskService {
	return &TaskService{DB: db, Grants: grants, Recalc: recalc, Log: log.With("service", "TaskService"), Now: utcNow}
}

func (s *TaskService) Create(ctx context.Context, userID string, in TaskInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, invalidInput("task title is required")
	}
	if err := validateAwards(in.Rewards); err != nil {
		return nil, err
	}
	t := models.Task{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Rewards:     datatypes.NewJSONType(in.Rewards),
	}
	if err := s.DB.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	return loadTask(ctx, s.DB, userID, id)
}

func (s *TaskService) List(ctx context.Context, userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

// Complete marks the task done and grants its rewards. A second completion
// is ErrAlreadyCompleted and grants nothing.
func (s *TaskService) Complete(ctx context.Context, userID, id string) (*TaskCompletionResult, error) {
	var result *TaskCompletionResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := loadTask(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if t.CompletedAt != nil {
			return ErrAlreadyCompleted
		}

		now := s.Now()
		res := tx.Model(&models.Task{}).
			Where("id = ? AND user_id = ? AND completed_at IS NULL", t.ID, userID).
			Update("completed_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyCompleted
		}

		reqs, err := awardRequests(userID, models.SourceTask, t.ID, t.Rewards.Data())
		if err != nil {
			return err
		}
		grants, err := s.Grants.GrantTx(ctx, tx, reqs)
		if err != nil {
			return err
		}

		completion := models.TaskCompletion{
			TaskID:      t.ID,
			UserID:      userID,
			XPAwarded:   sumAwards(grants),
			CompletedAt: now,
		}
		if err := tx.Create(&completion).Error; err != nil {
			return err
		}

		t.CompletedAt = &now
		result = &TaskCompletionResult{
			Task:             *t,
			Completion:       completion,
			CompletionResult: CompletionResult{Grants: grants, TotalXP: completion.XPAwarded},
		}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	s.Log.Info("task completed", "user_id", userID, "task_id", id, "total_xp", result.TotalXP)
	return result, nil
}

// Reopen undoes a completion: grants reversed, completion rows removed.
// Reopening an open task is a no-op.
func (s *TaskService) Reopen(ctx context.Context, userID, id string) (*models.Task, error) {
	var out *models.Task
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := loadTask(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if t.CompletedAt == nil {
			out = t
			return nil
		}
		if _, err := s.Recalc.ReverseTx(ctx, tx, userID, models.SourceTask, t.ID); err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", t.ID).Delete(&models.TaskCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Model(t).Update("completed_at", nil).Error; err != nil {
			return err
		}
		t.CompletedAt = nil
		out = t
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	return out, nil
}

// Delete reverses the task's grants before removing it. Completion rows are
// deleted explicitly; the foreign-key cascade only backs that up.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := loadTask(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if _, err := s.Recalc.ReverseTx(ctx, tx, userID, models.SourceTask, t.ID); err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", t.ID).Delete(&models.TaskCompletion{}).Error; err != nil {
			return err
		}
		return tx.Delete(t).Error
	})
	if err != nil {
		return txError(err)
	}
	s.Log.Info("task deleted", "user_id", userID, "task_id", id)
	return nil
}

func loadTask(ctx context.Context, db *gorm.DB, userID, id string) (*models.Task, error) {
	var t models.Task
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundRecord("task", id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
