// Package daemon manages the HelloBible runtime lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // engine.timezone must resolve on devices without zoneinfo

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all daemon configuration.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Remote    RemoteConfig    `toml:"remote"`
	Auth      AuthConfig      `toml:"auth"`
	Engine    EngineConfig    `toml:"engine"`
	Resync    ResyncConfig    `toml:"resync"`
	API       APIConfig       `toml:"api"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// StorageConfig locates the local state database.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// RemoteConfig controls the hosted Postgres progress store.
type RemoteConfig struct {
	Enabled     bool   `toml:"enabled"`
	DatabaseURL string `toml:"database_url"`
	Timeout     string `toml:"timeout"`
	MaxConns    int32  `toml:"max_conns"`
	Migrate     bool   `toml:"migrate"` // create tables on startup
}

// AuthConfig controls access token validation.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	Issuer    string `toml:"issuer"`
}

// EngineConfig tunes the gamification engine.
type EngineConfig struct {
	// Timezone whose midnight separates study days. Empty means the
	// process local zone.
	Timezone string `toml:"timezone"`
}

// ResyncConfig controls the background remote resync.
type ResyncConfig struct {
	Interval    string `toml:"interval"`
	MaxAttempts int    `toml:"max_attempts"`
	BaseDelay   string `toml:"base_delay"`
	MaxDelay    string `toml:"max_delay"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	CORSOrigins    []string `toml:"cors_origins"` // empty: no cross-origin access; list the app's origin explicitly
	RequestTimeout string   `toml:"request_timeout"`
	RateLimit      float64  `toml:"rate_limit"` // requests/sec per IP
	RateBurst      int      `toml:"rate_burst"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	File string `toml:"file"` // empty = stderr
}

// DefaultConfig returns a configuration that runs fully local.
func DefaultConfig() Config {
	homeDir := helloBibleHome()
	return Config{
		Storage: StorageConfig{Dir: homeDir},
		Remote: RemoteConfig{
			Timeout:  "5s",
			MaxConns: 4,
		},
		Resync: ResyncConfig{
			Interval:    "1m",
			MaxAttempts: 8,
			BaseDelay:   "30s",
			MaxDelay:    "30m",
		},
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8787,
			RequestTimeout: "30s",
			RateLimit:      5,
			RateBurst:      30,
		},
		Telemetry: TelemetryConfig{Prometheus: true},
	}
}

// LoadConfig reads $HELLOBIBLE_HOME/config.toml over the defaults, then
// applies environment overrides. A .env file in the working directory
// or in $HELLOBIBLE_HOME is loaded first; variables already set win.
func LoadConfig() (Config, error) {
	for _, path := range []string{".env", filepath.Join(helloBibleHome(), ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	path := filepath.Join(helloBibleHome(), "config.toml")

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays the deployment secrets that never live in config.toml.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Remote.DatabaseURL = v
		cfg.Remote.Enabled = true
	}
	if v := os.Getenv("SUPABASE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("HELLOBIBLE_TZ"); v != "" {
		cfg.Engine.Timezone = v
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	if c.Remote.Enabled && c.Remote.DatabaseURL == "" {
		return fmt.Errorf("remote.enabled requires remote.database_url or DATABASE_URL")
	}
	if _, err := c.Engine.Location(); err != nil {
		return err
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	return nil
}

// Location resolves the configured study-day time zone.
func (e EngineConfig) Location() (*time.Location, error) {
	if e.Timezone == "" || e.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine.timezone: %w", err)
	}
	return loc, nil
}

// SaveConfig writes the config to $HELLOBIBLE_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(helloBibleHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// helloBibleHome returns the HelloBible data directory.
func helloBibleHome() string {
	if env := os.Getenv("HELLOBIBLE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hellobible")
}

// Home is exported for use by other packages.
func Home() string {
	return helloBibleHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
