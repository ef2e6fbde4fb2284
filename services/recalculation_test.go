package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lifequest-api/models"
)

func TestReverse_Idempotent(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")
	f.grant(userA, statRef(s), 30, models.SourceTask, "T1")
	f.grant(userA, statRef(s), 12, models.SourceTask, "T2")

	_, err := f.svc.Recalc.ReverseGrantsForSource(f.ctx, userA, models.SourceTask, "T1")
	require.NoError(t, err)
	refs, err := f.svc.Recalc.ReverseGrantsForSource(f.ctx, userA, models.SourceTask, "T1")
	require.NoError(t, err)
	assert.Empty(t, refs)

	xp, _ := f.statXP(userA, s)
	assert.Equal(t, int64(12), xp)
}

func TestReverse_UnknownSourceIsNoop(t *testing.T) {
	f := newFixture(t)

	refs, err := f.svc.Recalc.ReverseGrantsForSource(f.ctx, userA, models.SourceQuest, "never-granted")
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = f.svc.Recalc.ReverseGrantsForSource(f.ctx, userA, "rumor", "x")
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestReverse_KeepsLevel(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")
	f.grant(userA, statRef(s), 150, models.SourceTask, "T1")

	_, err := f.svc.Progression.LevelUp(f.ctx, userA, statRef(s))
	require.NoError(t, err)

	_, err = f.svc.Recalc.ReverseGrantsForSource(f.ctx, userA, models.SourceTask, "T1")
	require.NoError(t, err)

	xp, level := f.statXP(userA, s)
	assert.Zero(t, xp)
	assert.Equal(t, 2, level, "recalculation never lowers a level")
}

func TestReverse_SkipsOrphanedEntity(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")
	m := f.member(userA, "dad")
	f.grant(userA, statRef(s), 10, models.SourceJournal, "J1")
	f.grant(userA, memberRef(m), 15, models.SourceJournal, "J1")

	// Drop the member row behind the service's back.
	require.NoError(t, f.db.Exec("DELETE FROM family_members WHERE id = ?", m).Error)

	refs, err := f.svc.Recalc.ReverseGrantsForSource(f.ctx, userA, models.SourceJournal, "J1")
	require.NoError(t, err)
	assert.Equal(t, []EntityRef{statRef(s)}, refs)
	assert.Zero(t, f.ledgerRows("source_id = ?", "J1"))
}

func TestReverse_TotalsMatchLedger(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(42))

	stats := []string{f.stat(userA, "Strength"), f.stat(userA, "Focus"), f.stat(userA, "Wisdom")}
	members := []string{f.member(userA, "mom"), f.member(userA, "sis")}
	sources := make([]string, 12)
	for i := range sources {
		sources[i] = fmt.Sprintf("T%d", i)
	}

	requireTotalsMatch := func(step int) {
		t.Helper()
		for _, id := range stats {
			xp, _ := f.statXP(userA, id)
			sum, err := f.svc.Ledger.SumForEntity(f.ctx, nil, userA, statRef(id))
			require.NoError(t, err)
			require.Equal(t, sum, xp, "stat %s after step %d", id, step)
		}
		for _, id := range members {
			sum, err := f.svc.Ledger.SumForEntity(f.ctx, nil, userA, memberRef(id))
			require.NoError(t, err)
			require.Equal(t, sum, f.memberXP(userA, id), "member %s after step %d", id, step)
		}
	}

	reversed := 0
	for step := 0; step < 120; step++ {
		src := sources[rng.Intn(len(sources))]
		switch op := rng.Intn(4); {
		case op == 0:
			_, err := f.svc.Recalc.ReverseGrantsForSource(f.ctx, userA, models.SourceTask, src)
			require.NoError(t, err)
			require.Zero(t, f.ledgerRows("source_type = ? AND source_id = ?", models.SourceTask, src))
			reversed++
		case op == 1:
			f.grant(userA, memberRef(members[rng.Intn(len(members))]), int64(rng.Intn(50)+1), models.SourceTask, src)
		default:
			f.grant(userA, statRef(stats[rng.Intn(len(stats))]), int64(rng.Intn(50)+1), models.SourceTask, src)
		}
		requireTotalsMatch(step)
	}
	assert.Positive(t, reversed)
}

func TestRecomputeEntity_LocksEntityRow(t *testing.T) {
	f := newFixture(t)
	s := f.stat(userA, "Strength")
	m := f.member(userA, "mom")
	f.grant(userA, statRef(s), 30, models.SourceTask, "T1")
	f.grant(userA, memberRef(m), 20, models.SourceTask, "T1")

	var locked []string
	require.NoError(t, f.db.Callback().Query().Before("gorm:query").Register("lifequest:record_locking", func(d *gorm.DB) {
		if _, ok := d.Statement.Clauses["FOR"]; ok {
			locked = append(locked, d.Statement.Table)
		}
	}))

	_, err := f.svc.Recalc.ReverseGrantsForSource(f.ctx, userA, models.SourceTask, "T1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"character_stats", "family_members"}, locked)

	_, err = f.svc.Recalc.RecomputeEntity(f.ctx, f.db, userB, statRef(s))
	assert.ErrorIs(t, err, ErrNotFound, "lock is scoped by owner")
}

func TestLockRow_ForUpdateOnPostgres(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=lifequest dbname=lifequest sslmode=disable"}),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	var statements []string
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("lifequest:record_sql", func(d *gorm.DB) {
		statements = append(statements, d.Statement.SQL.String())
	}))

	adapters := []ProgressableAdapter{NewCharacterStatAdapter(ThresholdCurve{Step: 100}), NewFamilyMemberAdapter(ThresholdCurve{Step: 100})}
	for _, a := range adapters {
		// Dry runs return no rows, so the lock reports NotFound.
		assert.ErrorIs(t, a.Lock(context.Background(), db, userA, "e1"), ErrNotFound)
	}

	require.Len(t, statements, 2)
	for _, stmt := range statements {
		assert.Contains(t, stmt, "user_id = $2")
		assert.True(t, strings.HasSuffix(stmt, "FOR UPDATE"), stmt)
	}
}
