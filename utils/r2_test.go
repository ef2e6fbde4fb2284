package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifequest-api/config"
)

func TestR2Store_PublicURL(t *testing.T) {
	store, err := NewR2Store(context.Background(), config.ObjectStoreConfig{
		AccountID:       "acct",
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		Bucket:          "exports",
		CDNBaseURL:      "https://cdn.example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/exports/xp/u1/a.csv", store.PublicURL("/exports/xp/u1/a.csv"))
}

func TestR2Store_DefaultsToBucketURL(t *testing.T) {
	store, err := NewR2Store(context.Background(), config.ObjectStoreConfig{
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		Bucket:          "exports",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/exports/k.csv", store.PublicURL("k.csv"))
}
