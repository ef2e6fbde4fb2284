package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifequest-api/models"
)

func TestGrant_ThenReverse(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")

	f.grant(userA, statRef(s), 25, models.SourceJournal, "J1")

	xp, _ := f.statXP(userA, s)
	assert.Equal(t, int64(25), xp)
	assert.Equal(t, int64(1), f.ledgerRows("source_type = ? AND source_id = ?", models.SourceJournal, "J1"))

	refs, err := f.svc.Recalc.ReverseGrantsForSource(f.ctx, userA, models.SourceJournal, "J1")
	require.NoError(t, err)
	assert.Equal(t, []EntityRef{statRef(s)}, refs)

	xp, _ = f.statXP(userA, s)
	assert.Equal(t, int64(0), xp)
	assert.Zero(t, f.ledgerRows("source_type = ? AND source_id = ?", models.SourceJournal, "J1"))
}

func TestGrant_ReturnsProgression(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Focus")

	res, err := f.svc.Grants.GrantAdhoc(f.ctx, userA, statRef(s), 110, "deep work")
	require.NoError(t, err)

	assert.Equal(t, models.SourceAdhoc, res.Grant.SourceType)
	assert.Nil(t, res.Grant.SourceID)
	require.NotNil(t, res.Grant.Reason)
	assert.Equal(t, "deep work", *res.Grant.Reason)
	assert.Equal(t, int64(110), res.Entity.TotalXP)
	assert.Equal(t, 1, res.Entity.Level, "grants never change the level")
	assert.True(t, res.Progression.CanLevelUp)
}

func TestGrant_Validation(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Wisdom")
	src := "T1"

	cases := []struct {
		name string
		req  GrantRequest
		want error
	}{
		{"negative", GrantRequest{UserID: userA, EntityType: models.EntityCharacterStat, EntityID: s, Amount: -5, SourceType: models.SourceTask, SourceID: &src}, ErrInvalidAmount},
		{"zero without allow", GrantRequest{UserID: userA, EntityType: models.EntityCharacterStat, EntityID: s, Amount: 0, SourceType: models.SourceTask, SourceID: &src}, ErrInvalidAmount},
		{"unknown entity type", GrantRequest{UserID: userA, EntityType: "pet", EntityID: s, Amount: 5, SourceType: models.SourceTask, SourceID: &src}, ErrUnsupportedEntityType},
		{"no adapter", GrantRequest{UserID: userA, EntityType: models.EntityGoal, EntityID: s, Amount: 5, SourceType: models.SourceTask, SourceID: &src}, ErrUnsupportedEntityType},
		{"unknown source", GrantRequest{UserID: userA, EntityType: models.EntityCharacterStat, EntityID: s, Amount: 5, SourceType: "rumor", SourceID: &src}, ErrInvalidSource},
		{"missing source id", GrantRequest{UserID: userA, EntityType: models.EntityCharacterStat, EntityID: s, Amount: 5, SourceType: models.SourceTask}, ErrInvalidSource},
		{"missing user", GrantRequest{EntityType: models.EntityCharacterStat, EntityID: s, Amount: 5, SourceType: models.SourceAdhoc}, ErrInvalidInput},
		{"unknown entity", GrantRequest{UserID: userA, EntityType: models.EntityCharacterStat, EntityID: "missing", Amount: 5, SourceType: models.SourceAdhoc}, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Grants.Grant(f.ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	xp, _ := f.statXP(userA, s)
	assert.Zero(t, xp)
	assert.Zero(t, f.ledgerRows("1 = 1"))
}

func TestGrant_ZeroAllowed(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Creativity")
	src := "J1"

	res, err := f.svc.Grants.Grant(f.ctx, GrantRequest{
		UserID: userA, EntityType: models.EntityCharacterStat, EntityID: s,
		Amount: 0, SourceType: models.SourceJournal, SourceID: &src, AllowZero: true,
	})
	require.NoError(t, err)
	assert.Zero(t, res.Entity.TotalXP)
	assert.Equal(t, int64(1), f.ledgerRows("entity_id = ?", s))
}

func TestGrantAdhoc_RejectsNonPositive(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Charisma")

	_, err := f.svc.Grants.GrantAdhoc(f.ctx, userA, statRef(s), 0, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestGrantBatch_Atomic(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")
	m := f.member(userA, "mom")
	src := "J1"

	_, err := f.svc.Grants.GrantBatch(f.ctx, []GrantRequest{
		{UserID: userA, EntityType: models.EntityCharacterStat, EntityID: s, Amount: 10, SourceType: models.SourceJournal, SourceID: &src},
		{UserID: userA, EntityType: models.EntityFamilyMember, EntityID: m, Amount: 20, SourceType: models.SourceJournal, SourceID: &src},
		{UserID: userA, EntityType: models.EntityCharacterStat, EntityID: "deleted-stat", Amount: 30, SourceType: models.SourceJournal, SourceID: &src},
	})
	require.ErrorIs(t, err, ErrNotFound)

	assert.Zero(t, f.ledgerRows("source_id = ?", src))
	xp, _ := f.statXP(userA, s)
	assert.Zero(t, xp)
	assert.Zero(t, f.memberXP(userA, m))
}

func TestGrant_CrossUserIsolation(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")
	f.grant(userA, statRef(s), 40, models.SourceTask, "T1")

	_, err := f.svc.Grants.GrantAdhoc(f.ctx, userB, statRef(s), 50, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Recalc.ReverseGrantsForSource(f.ctx, userB, models.SourceTask, "T1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Progression.LevelUp(f.ctx, userB, statRef(s))
	assert.ErrorIs(t, err, ErrNotFound)

	xp, level := f.statXP(userA, s)
	assert.Equal(t, int64(40), xp)
	assert.Equal(t, 1, level)
	assert.Equal(t, int64(1), f.ledgerRows("source_id = ?", "T1"))
}

func TestGrant_Concurrent(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Endurance")

	const workers, perWorker = 8, 5
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				src := fmt.Sprintf("T-%d-%d", w, i)
				_, err := f.svc.Grants.Grant(f.ctx, GrantRequest{
					UserID: userA, EntityType: models.EntityCharacterStat, EntityID: s,
					Amount: 3, SourceType: models.SourceTask, SourceID: &src,
				})
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	xp, _ := f.statXP(userA, s)
	assert.Equal(t, int64(workers*perWorker*3), xp)
	sum, err := f.svc.Ledger.SumForEntity(f.ctx, nil, userA, statRef(s))
	require.NoError(t, err)
	assert.Equal(t, xp, sum)
}
