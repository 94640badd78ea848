// Package config loads the application configuration consumed by the
// storage layer and its callers.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings for a single database instance.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Display  DisplayConfig  `mapstructure:"display"`
}

// DatabaseConfig locates the local SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig controls the global slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DisplayConfig carries presentation preferences for UI collaborators.
type DisplayConfig struct {
	Currency string `mapstructure:"currency"`
	Locale   string `mapstructure:"locale"`
}

// Load reads configuration from cfgFile, or when empty from
// $HOME/.config/serenity/config.yaml, with SERENITY_* environment variables
// taking precedence. A missing config file is not an error; defaults apply.
func Load(cfgFile string) (*Config, error) {
	// Seed the process environment from a local .env if one exists.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("database.path", "~/.local/share/serenity/serenity_budget.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("display.currency", "EUR")
	v.SetDefault("display.locale", "fr-FR")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "serenity"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SERENITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	return &cfg, nil
}

// LogLevel converts the configured level string to a slog.Level.
// Unknown values fall back to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
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
