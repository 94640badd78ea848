package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file is not an error")

	assert.Contains(t, cfg.Database.Path, "serenity_budget.db")
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "EUR", cfg.Display.Currency)
	assert.Equal(t, "fr-FR", cfg.Display.Locale)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgFile := filepath.Join(tmpDir, "config.yaml")
	content := `
database:
  path: /tmp/custom.db
logging:
  level: debug
display:
  currency: CHF
`
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0600))

	cfg, err := Load(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "CHF", cfg.Display.Currency)
	assert.Equal(t, "fr-FR", cfg.Display.Locale, "unset keys keep their defaults")
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{level: "debug", want: slog.LevelDebug},
		{level: "info", want: slog.LevelInfo},
		{level: "warn", want: slog.LevelWarn},
		{level: "warning", want: slog.LevelWarn},
		{level: "error", want: slog.LevelError},
		{level: "bogus", want: slog.LevelInfo},
		{level: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			cfg := Config{Logging: LoggingConfig{Level: tt.level}}
			assert.Equal(t, tt.want, cfg.LogLevel())
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data.db"), ExpandPath("~/data.db"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/absolute/path.db", ExpandPath("/absolute/path.db"))
	assert.Empty(t, ExpandPath(""))

	t.Setenv("SERENITY_TEST_DIR", "/var/data")
	assert.Equal(t, "/var/data/app.db", ExpandPath("$SERENITY_TEST_DIR/app.db"))
}
