package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifequest-api/models"
)

func TestLevelUp_Threshold(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")
	f.grant(userA, statRef(s), 110, models.SourceTask, "T1")

	res, err := f.svc.Progression.LevelUp(f.ctx, userA, statRef(s))
	require.NoError(t, err)

	assert.Equal(t, 1, res.PreviousLevel)
	assert.Equal(t, 2, res.Entity.Level)
	assert.Equal(t, int64(110), res.Entity.TotalXP)
	assert.NotNil(t, res.Entity.LastLevelUpAt)
	assert.Equal(t, int64(90), res.Progression.XPToNextLevel)

	xp, level := f.statXP(userA, s)
	assert.Equal(t, int64(110), xp, "leveling does not spend xp")
	assert.Equal(t, 2, level)
}

func TestLevelUp_NotEligible(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")
	f.grant(userA, statRef(s), 110, models.SourceTask, "T1")
	for i := 0; i < 2; i++ {
		_, err := f.svc.Progression.LevelUp(f.ctx, userA, statRef(s))
		require.NoError(t, err)
	}

	// Level 3 needs more than 200.
	_, err := f.svc.Progression.LevelUp(f.ctx, userA, statRef(s))
	require.ErrorIs(t, err, ErrLevelUpNotEligible)

	var notEligible *LevelUpNotEligibleError
	require.True(t, errors.As(err, &notEligible))
	assert.Equal(t, 3, notEligible.Level)
	assert.Equal(t, int64(110), notEligible.TotalXP)
	assert.Equal(t, int64(91), notEligible.Shortfall)

	_, level := f.statXP(userA, s)
	assert.Equal(t, 3, level)
}

func TestLevelUp_OneLevelPerClaim(t *testing.T) {
	f := newFixture(t)
	m := f.member(userA, "grandma")
	f.grant(userA, memberRef(m), 350, models.SourceInteraction, "I1")

	for want := 2; want <= 4; want++ {
		res, err := f.svc.Progression.LevelUp(f.ctx, userA, memberRef(m))
		require.NoError(t, err)
		assert.Equal(t, want, res.Entity.Level)
	}

	_, err := f.svc.Progression.LevelUp(f.ctx, userA, memberRef(m))
	var notEligible *LevelUpNotEligibleError
	require.ErrorAs(t, err, &notEligible)
	assert.Equal(t, int64(50), notEligible.Shortfall)
}

func TestLevelUp_StaleClaimLoses(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")
	f.grant(userA, statRef(s), 500, models.SourceTask, "T1")

	adapter, err := f.svc.Adapters.For(models.EntityCharacterStat)
	require.NoError(t, err)
	_, err = f.svc.Progression.LevelUp(f.ctx, userA, statRef(s))
	require.NoError(t, err)

	// A second claim that read level 1 before the first one committed.
	err = adapter.SetLevel(f.ctx, f.db, userA, s, 1, 2, f.clock.Now())
	require.ErrorIs(t, err, ErrLevelUpNotEligible)

	_, level := f.statXP(userA, s)
	assert.Equal(t, 2, level)

	m := f.member(userA, "mom")
	family, err := f.svc.Adapters.For(models.EntityFamilyMember)
	require.NoError(t, err)
	require.NoError(t, family.SetLevel(f.ctx, f.db, userA, m, 1, 2, f.clock.Now()))
	assert.ErrorIs(t, family.SetLevel(f.ctx, f.db, userA, m, 1, 2, f.clock.Now()), ErrLevelUpNotEligible)
}

func TestProgress(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")
	f.grant(userA, statRef(s), 250, models.SourceTask, "T1")

	p, err := f.svc.Progression.Progress(f.ctx, userA, statRef(s))
	require.NoError(t, err)
	assert.Equal(t, "Strength", p.Entity.Name)
	assert.Equal(t, 1, p.Progression.Level)
	assert.Equal(t, 4, p.Progression.EarnedLevel)
	assert.True(t, p.Progression.CanLevelUp)

	_, err = f.svc.Progression.Progress(f.ctx, userA, EntityRef{Type: models.EntityProject, ID: s})
	assert.ErrorIs(t, err, ErrUnsupportedEntityType)
}
