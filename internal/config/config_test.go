package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Library: LibraryConfig{Path: t.TempDir(), DuplicateThreshold: 10},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.Validate())

	cfg = validConfig(t)
	cfg.App.Environment = "prod"
	assert.Error(t, cfg.Validate(), "unknown environment")

	cfg = validConfig(t)
	cfg.Logger.Level = "verbose"
	assert.Error(t, cfg.Validate(), "unknown log level")

	cfg = validConfig(t)
	cfg.Library.Path = ""
	assert.Error(t, cfg.Validate(), "library path is required")

	cfg = validConfig(t)
	cfg.Library.DuplicateThreshold = 65
	assert.Error(t, cfg.Validate(), "threshold above 64")

	cfg = validConfig(t)
	cfg.Library.DuplicateThreshold = -1
	assert.Error(t, cfg.Validate(), "negative threshold")

	cfg = validConfig(t)
	cfg.Library.DuplicateThreshold = 0
	assert.NoError(t, cfg.Validate(), "zero threshold means exact duplicates only")
}

func TestExpandPathsDatabaseDefault(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig(t)
	cfg.Library.Path = dir
	cfg.Database.Path = ""

	require.NoError(t, cfg.expandPaths())
	assert.Equal(t, filepath.Join(dir, "library.db"), cfg.Database.Path)
}

func TestExpandPathsKeepsExplicitDatabase(t *testing.T) {
	cfg := validConfig(t)
	cfg.Database.Path = "/var/lib/pictoria/library.db"

	require.NoError(t, cfg.expandPaths())
	assert.Equal(t, "/var/lib/pictoria/library.db", cfg.Database.Path)
}

func TestGetConfigValuePrecedence(t *testing.T) {
	t.Setenv("PICTORIA_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "PICTORIA_TEST_KEY", "fallback"))
	assert.Equal(t, "from-env", getConfigValue("", "PICTORIA_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", getConfigValue("", "PICTORIA_TEST_MISSING", "fallback"))
}

func TestGetBoolConfigValue(t *testing.T) {
	assert.True(t, getBoolConfigValue("true", "X", false))
	assert.True(t, getBoolConfigValue("1", "X", false))
	assert.True(t, getBoolConfigValue("YES", "X", false))
	assert.False(t, getBoolConfigValue("no", "X", true))
	assert.True(t, getBoolConfigValue("", "PICTORIA_TEST_MISSING", true))
}

func TestGetIntConfigValue(t *testing.T) {
	assert.Equal(t, 7, getIntConfigValue("7", "X", 10))
	assert.Equal(t, 10, getIntConfigValue("", "PICTORIA_TEST_MISSING", 10))
	assert.Equal(t, 10, getIntConfigValue("not-a-number", "X", 10))
}
