package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
	APIToken  string `env:"API_TOKEN"`

	StoreBackend string `env:"STORE_BACKEND" default:"postgres"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisURL     string `env:"REDIS_URL"`

	RateWindow      time.Duration `env:"RATE_WINDOW" default:"60s"`
	RateThreshold   int           `env:"RATE_THRESHOLD" default:"5"`
	BanDuration     time.Duration `env:"BAN_DURATION" default:"900s"`
	BanProbability  float64       `env:"BAN_PROBABILITY" default:"0.1"`
	CritProbability float64       `env:"CRIT_PROBABILITY" default:"0.2"`

	SelfInteraction      bool          `env:"SELF_INTERACTION" default:"false"`
	ToggleCooldown       time.Duration `env:"TOGGLE_COOLDOWN" default:"1800s"`
	Blacklist            []string      `env:"BLACKLIST"`
	PrivilegedActorsFile string        `env:"PRIVILEGED_ACTORS_FILE"`

	NicknameCacheSize int           `env:"NICKNAME_CACHE_SIZE" default:"2000"`
	NicknameCacheTTL  time.Duration `env:"NICKNAME_CACHE_TTL" default:"5m"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" default:"10m"`
	MemberNameTTL     time.Duration `env:"MEMBER_NAME_TTL" default:"24h"`

	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET"`

	LegacyDataFile string `env:"LEGACY_DATA_FILE"`

	HTTPRateLimit float64 `env:"HTTP_RATE_LIMIT" default:"20"`
	HTTPRateBurst int     `env:"HTTP_RATE_BURST" default:"40"`
}

// Load reads and validates the full server configuration.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStore reads the configuration but validates only the store settings,
// for admin tools that never serve requests.
func LoadStore() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := validateStore(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	return &cfg, nil
}

// TwitchEnabled reports whether Helix credentials are configured.
func (c *Config) TwitchEnabled() bool {
	return c.TwitchClientID != "" && c.TwitchClientSecret != ""
}

func validate(cfg *Config) error {
	if cfg.APIToken == "" {
		return errors.New("API_TOKEN is required")
	}
	if err := validateStore(cfg); err != nil {
		return err
	}

	if cfg.RateWindow <= 0 {
		return errors.New("RATE_WINDOW must be positive")
	}
	if cfg.RateThreshold < 1 {
		return errors.New("RATE_THRESHOLD must be at least 1")
	}
	if cfg.BanDuration < 0 || cfg.ToggleCooldown < 0 {
		return errors.New("BAN_DURATION and TOGGLE_COOLDOWN must not be negative")
	}
	if !isProbability(cfg.BanProbability) {
		return errors.New("BAN_PROBABILITY must be within [0, 1]")
	}
	if !isProbability(cfg.CritProbability) {
		return errors.New("CRIT_PROBABILITY must be within [0, 1]")
	}

	if cfg.NicknameCacheSize < 1 {
		return errors.New("NICKNAME_CACHE_SIZE must be at least 1")
	}
	if cfg.NicknameCacheTTL <= 0 || cfg.SweepInterval <= 0 {
		return errors.New("NICKNAME_CACHE_TTL and SWEEP_INTERVAL must be positive")
	}

	if (cfg.TwitchClientID == "") != (cfg.TwitchClientSecret == "") {
		return errors.New("TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET must be set together")
	}

	return nil
}

func validateStore(cfg *Config) error {
	backends := []string{BackendPostgres, BackendRedis, BackendMemory}
	if !slices.Contains(backends, cfg.StoreBackend) {
		return fmt.Errorf("STORE_BACKEND must be one of %v, got %q", backends, cfg.StoreBackend)
	}
	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if cfg.StoreBackend == BackendRedis && cfg.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	return nil
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}
