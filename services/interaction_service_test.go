package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifequest-api/models"
)

func TestInteraction_RecordAndDelete(t *testing.T) {
	f := newFixture(t)
	m := f.member(userA, "dad")

	res, err := f.svc.Interactions.Record(f.ctx, userA, m, InteractionInput{Kind: "phone call", Note: "talked about fishing"})
	require.NoError(t, err)
	assert.Equal(t, DefaultInteractionXP, res.Interaction.XPAmount)
	assert.Equal(t, models.SourceInteraction, res.Grant.Grant.SourceType)
	assert.Equal(t, DefaultInteractionXP, f.memberXP(userA, m))

	_, err = f.svc.Interactions.Record(f.ctx, userA, m, InteractionInput{Kind: "dinner", XP: 25})
	require.NoError(t, err)
	assert.Equal(t, DefaultInteractionXP+25, f.memberXP(userA, m))

	list, err := f.svc.Interactions.List(f.ctx, userA, m)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, f.svc.Interactions.Delete(f.ctx, userA, res.Interaction.ID))
	assert.Equal(t, int64(25), f.memberXP(userA, m))
}

func TestInteraction_Validation(t *testing.T) {
	f := newFixture(t)
	m := f.member(userA, "dad")

	_, err := f.svc.Interactions.Record(f.ctx, userA, m, InteractionInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Interactions.Record(f.ctx, userA, m, InteractionInput{Kind: "call", XP: -3})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.Interactions.Record(f.ctx, userB, m, InteractionInput{Kind: "call"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Zero(t, f.memberXP(userA, m))
	var n int64
	require.NoError(t, f.db.Model(&models.FamilyInteraction{}).Count(&n).Error)
	assert.Zero(t, n)
}
