package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lifequest-api/database"
	"lifequest-api/logger"
	"lifequest-api/models"
)

const (
	userA = "user-a"
	userB = "user-b"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	svc   *Services
	clock *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one second per call so ledger rows get distinct timestamps.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, Options{})
}

func newFixtureWith(t *testing.T, opts Options) *fixture {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clock := &testClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	opts.Now = clock.Now
	svc, err := New(db, logger.Nop(), opts)
	require.NoError(t, err)
	return &fixture{t: t, ctx: context.Background(), db: db, svc: svc, clock: clock}
}

func (f *fixture) stat(userID, name string) string {
	f.t.Helper()
	v, err := f.svc.Stats.Create(f.ctx, userID, StatInput{Name: name})
	require.NoError(f.t, err)
	return v.ID
}

func (f *fixture) member(userID, name string) string {
	f.t.Helper()
	v, err := f.svc.Family.Create(f.ctx, userID, FamilyInput{Name: name, Relationship: "parent"})
	require.NoError(f.t, err)
	return v.ID
}

func (f *fixture) statXP(userID, id string) (int64, int) {
	f.t.Helper()
	v, err := f.svc.Stats.Get(f.ctx, userID, id)
	require.NoError(f.t, err)
	return v.TotalXP, v.CurrentLevel
}

func (f *fixture) memberXP(userID, id string) int64 {
	f.t.Helper()
	v, err := f.svc.Family.Get(f.ctx, userID, id)
	require.NoError(f.t, err)
	return v.ConnectionXP
}

func (f *fixture) ledgerRows(where string, args ...any) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(&models.XpGrant{}).Where(where, args...).Count(&n).Error)
	return n
}

func (f *fixture) grant(userID string, ref EntityRef, amount int64, src models.SourceType, srcID string) {
	f.t.Helper()
	_, err := f.svc.Grants.Grant(f.ctx, GrantRequest{
		UserID:     userID,
		EntityType: ref.Type,
		EntityID:   ref.ID,
		Amount:     amount,
		SourceType: src,
		SourceID:   &srcID,
	})
	require.NoError(f.t, err)
}

func statRef(id string) EntityRef   { return EntityRef{Type: models.EntityCharacterStat, ID: id} }
func memberRef(id string) EntityRef { return EntityRef{Type: models.EntityFamilyMember, ID: id} }
