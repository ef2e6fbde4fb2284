package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read once at startup from the environment (and an optional .env).
type Config struct {
	Port           int      `env:"PORT" envDefault:"5200"`
	Env            string   `env:"APP_ENV" envDefault:"development"`
	DatabaseURL    string   `env:"DATABASE_URL,required,notEmpty"`
	ServiceToken   string   `env:"GATEWAY_SERVICE_TOKEN,required,notEmpty"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	XP          XPConfig
	ObjectStore ObjectStoreConfig
}

type XPConfig struct {
	LevelStep     int64         `env:"XP_LEVEL_STEP" envDefault:"100"`
	StatCurve     string        `env:"XP_STAT_CURVE" envDefault:"threshold"`
	FamilyCurve   string        `env:"XP_FAMILY_CURVE" envDefault:"linear"`
	AuditInterval time.Duration `env:"XP_AUDIT_INTERVAL" envDefault:"15m"`
	AuditRepair   bool          `env:"XP_AUDIT_REPAIR" envDefault:"false"`
}

// ObjectStoreConfig points at an S3-compatible bucket (Cloudflare R2 by
// default). Ledger export is disabled when Bucket is empty.
type ObjectStoreConfig struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	Endpoint        string `env:"OBJECT_STORE_ENDPOINT"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

func (c ObjectStoreConfig) Enabled() bool { return c.Bucket != "" }

// EndpointURL is the explicit endpoint if set, else the R2 account endpoint.
func (c ObjectStoreConfig) EndpointURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

// Load reads .env if present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.XP.LevelStep <= 0 {
		return errors.New("XP_LEVEL_STEP must be positive")
	}
	if c.XP.AuditInterval <= 0 {
		return errors.New("XP_AUDIT_INTERVAL must be positive")
	}
	if c.ObjectStore.Enabled() && c.ObjectStore.AccountID == "" && c.ObjectStore.Endpoint == "" {
		return errors.New("R2_BUCKET_NAME requires CLOUDFLARE_ACCOUNT_ID or OBJECT_STORE_ENDPOINT")
	}
	return nil
}
