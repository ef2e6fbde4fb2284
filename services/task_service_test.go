package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifequest-api/models"
)

func newTask(t *testing.T, f *fixture, rewards ...models.Award) *models.Task {
	t.Helper()
	task, err := f.svc.Tasks.Create(f.ctx, userA, TaskInput{Title: "Run 5k", Rewards: rewards})
	require.NoError(t, err)
	return task
}

func TestTask_Complete(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Endurance")
	task := newTask(t, f, models.Award{EntityType: models.EntityCharacterStat, EntityID: s, Amount: 40})

	res, err := f.svc.Tasks.Complete(f.ctx, userA, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.TotalXP)
	assert.Equal(t, int64(40), res.Completion.XPAwarded)
	assert.NotNil(t, res.Task.CompletedAt)

	_, err = f.svc.Tasks.Complete(f.ctx, userA, task.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	xp, _ := f.statXP(userA, s)
	assert.Equal(t, int64(40), xp)

	var completions int64
	require.NoError(t, f.db.Model(&models.TaskCompletion{}).Where("task_id = ?", task.ID).Count(&completions).Error)
	assert.Equal(t, int64(1), completions)
}

func TestTask_ReopenAndComplete(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Endurance")
	task := newTask(t, f, models.Award{EntityType: models.EntityCharacterStat, EntityID: s, Amount: 40})

	_, err := f.svc.Tasks.Complete(f.ctx, userA, task.ID)
	require.NoError(t, err)

	reopened, err := f.svc.Tasks.Reopen(f.ctx, userA, task.ID)
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)
	xp, _ := f.statXP(userA, s)
	assert.Zero(t, xp)

	_, err = f.svc.Tasks.Complete(f.ctx, userA, task.ID)
	require.NoError(t, err)
	xp, _ = f.statXP(userA, s)
	assert.Equal(t, int64(40), xp)
}

func TestTask_CreateRejectsBadRewards(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Tasks.Create(f.ctx, userA, TaskInput{Title: "x", Rewards: []models.Award{{EntityType: models.EntityCharacterStat, EntityID: "s", Amount: -1}}})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.Tasks.Create(f.ctx, userA, TaskInput{Title: "x", Rewards: []models.Award{{EntityType: "pet", EntityID: "s", Amount: 1}}})
	assert.ErrorIs(t, err, ErrUnsupportedEntityType)

	_, err = f.svc.Tasks.Create(f.ctx, userA, TaskInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTask_Delete(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Endurance")
	task := newTask(t, f, models.Award{EntityType: models.EntityCharacterStat, EntityID: s, Amount: 40})
	_, err := f.svc.Tasks.Complete(f.ctx, userA, task.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Tasks.Delete(f.ctx, userB, task.ID), ErrNotFound)
	require.NoError(t, f.svc.Tasks.Delete(f.ctx, userA, task.ID))

	xp, _ := f.statXP(userA, s)
	assert.Zero(t, xp)
	assert.Zero(t, f.ledgerRows("source_id = ?", task.ID))
	_, err = f.svc.Tasks.Get(f.ctx, userA, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
