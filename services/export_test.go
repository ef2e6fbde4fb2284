package services

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifequest-api/models"
)

type memoryStore struct {
	objects map[string][]byte
	types   map[string]string
	fail    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) PutObject(_ context.Context, key, contentType string, body []byte) (string, error) {
	if m.fail != nil {
		return "", m.fail
	}
	m.objects[key] = body
	m.types[key] = contentType
	return "https://cdn.test/" + key, nil
}

func TestExport_UploadsCSV(t *testing.T) {
	store := newMemoryStore()
	f := newFixtureWith(t, Options{ObjectStore: store})
	s := f.stat(userA, "Strength")
	f.grant(userA, statRef(s), 10, models.SourceTask, "T1")
	_, err := f.svc.Grants.GrantAdhoc(f.ctx, userA, statRef(s), 5, "bonus, with comma")
	require.NoError(t, err)
	f.grant(userB, statRef(f.stat(userB, "Strength")), 30, models.SourceTask, "T9")

	res, err := f.svc.Exporter.Export(f.ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.True(t, strings.HasPrefix(res.Key, "exports/xp/"+userA+"/"))
	assert.Equal(t, "https://cdn.test/"+res.Key, res.URL)
	assert.Equal(t, "text/csv", store.types[res.Key])

	records, err := csv.NewReader(strings.NewReader(string(store.objects[res.Key]))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, "10", records[1][4])
	assert.Equal(t, "T1", records[1][6])
	assert.Equal(t, "adhoc", records[2][5])
	assert.Equal(t, "bonus, with comma", records[2][7])
}

func TestExport_Disabled(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Exporter.Export(f.ctx, userA)
	assert.ErrorIs(t, err, ErrObjectStoreDisabled)
}

func TestExport_UploadFailure(t *testing.T) {
	store := newMemoryStore()
	store.fail = errors.New("bucket gone")
	f := newFixtureWith(t, Options{ObjectStore: store})

	_, err := f.svc.Exporter.Export(f.ctx, userA)
	assert.ErrorContains(t, err, "bucket gone")
}
