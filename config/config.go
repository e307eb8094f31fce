// Package config loads runtime settings from defaults, an optional YAML file
// and BRANCHQUEST_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Persistence backends.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
	StoreNone  = "none"
)

// LevelUp is the progression policy applied after every transition.
type LevelUp struct {
	XPPerLevel      int  `yaml:"xp_per_level" env:"XP_PER_LEVEL"`
	HealthBonus     int  `yaml:"health_bonus" env:"HEALTH_BONUS"`
	MagicBonus      int  `yaml:"magic_bonus" env:"MAGIC_BONUS"`
	ResetExperience bool `yaml:"reset_experience" env:"RESET_EXPERIENCE"`
}

// Config holds every tunable of the game binary.
type Config struct {
	Environment string `yaml:"environment" env:"ENV"`

	// GameDir is a directory of Lua content. Empty means the bundled game.
	GameDir string `yaml:"game_dir" env:"GAME_DIR"`

	Store     string `yaml:"store" env:"STORE"`
	SaveDir   string `yaml:"save_dir" env:"SAVE_DIR"`
	SaveName  string `yaml:"save_name" env:"SAVE_NAME"`
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
	SessionID string `yaml:"session_id" env:"SESSION_ID"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
	LogFile   string `yaml:"log_file" env:"LOG_FILE"`

	Telemetry bool `yaml:"telemetry" env:"TELEMETRY"`

	// Fallback overrides the game's start scene as the recovery target.
	Fallback string `yaml:"fallback" env:"FALLBACK"`

	LevelUp LevelUp `yaml:"level_up" envPrefix:"LEVEL_UP_"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		Store:       StoreFile,
		SaveDir:     defaultSaveDir(),
		SaveName:    "autosave",
		RedisAddr:   "localhost:6379",
		LogLevel:    "info",
		LogFormat:   "text",
		LevelUp: LevelUp{
			XPPerLevel:  100,
			HealthBonus: 10,
			MagicBonus:  10,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty or the file does not exist) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "BRANCHQUEST_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreRedis, StoreNone:
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if c.LevelUp.XPPerLevel <= 0 {
		return fmt.Errorf("config: level_up.xp_per_level must be positive, got %d", c.LevelUp.XPPerLevel)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level. Unknown names mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SavePath returns the file used by the file store.
func (c *Config) SavePath() string {
	name := c.SaveName
	if filepath.Ext(name) == "" {
		name += ".json"
	}
	return filepath.Join(c.SaveDir, name)
}

func defaultSaveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".branchquest", "saves")
	}
	return filepath.Join(home, ".branchquest", "saves")
}
