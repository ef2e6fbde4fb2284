package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:test.db")
	t.Setenv("GATEWAY_SERVICE_TOKEN", "secret")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 5200, cfg.Port)
	assert.Equal(t, int64(100), cfg.XP.LevelStep)
	assert.Equal(t, "threshold", cfg.XP.StatCurve)
	assert.Equal(t, "linear", cfg.XP.FamilyCurve)
	assert.Equal(t, 15*time.Minute, cfg.XP.AuditInterval)
	assert.False(t, cfg.XP.AuditRepair)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.False(t, cfg.ObjectStore.Enabled())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/lifequest")
	t.Setenv("GATEWAY_SERVICE_TOKEN", "secret")
	t.Setenv("XP_LEVEL_STEP", "250")
	t.Setenv("XP_AUDIT_REPAIR", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("R2_BUCKET_NAME", "exports")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acct")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, int64(250), cfg.XP.LevelStep)
	assert.True(t, cfg.XP.AuditRepair)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.ObjectStore.Enabled())
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", cfg.ObjectStore.EndpointURL())
}

func TestParse_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GATEWAY_SERVICE_TOKEN", "")

	_, err := Parse()
	assert.Error(t, err)
}

func TestParse_RejectsNonPositiveStep(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:test.db")
	t.Setenv("GATEWAY_SERVICE_TOKEN", "secret")
	t.Setenv("XP_LEVEL_STEP", "0")

	_, err := Parse()
	assert.ErrorContains(t, err, "XP_LEVEL_STEP")
}

func TestParse_RejectsNonPositiveAuditInterval(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:test.db")
	t.Setenv("GATEWAY_SERVICE_TOKEN", "secret")

	for _, v := range []string{"0", "0s", "-5m"} {
		t.Setenv("XP_AUDIT_INTERVAL", v)
		_, err := Parse()
		assert.ErrorContains(t, err, "XP_AUDIT_INTERVAL", v)
	}
}
