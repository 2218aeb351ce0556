package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "folio", cfg.AppName)
	assert.Equal(t, config.Development, cfg.Environment)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 15*time.Second, cfg.ClientTimeout())
	assert.Equal(t, filepath.Join("storage", "folio-development.db"), cfg.DatabaseName)
	assert.Equal(t, 10, cfg.GetMaxOpenConns())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FOLIO_ENV", config.Test)
	t.Setenv("FOLIO_PAGE_SIZE", "25")
	t.Setenv("FOLIO_API_TOKEN", "abc")
	t.Setenv("FOLIO_DASHBOARD_URL", "https://example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsTest())
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, "abc", cfg.APIToken)
	assert.Equal(t, "https://example.com", cfg.DashboardURL)
	assert.Equal(t, 1, cfg.GetMaxOpenConns())
	assert.Equal(t, 1, cfg.GetMaxIdleConns())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "Unknown environment", key: "FOLIO_ENV", val: "staging"},
		{name: "Unknown database", key: "FOLIO_DB_TYPE", val: "postgres"},
		{name: "Zero page size", key: "FOLIO_PAGE_SIZE", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestProductionRequiresSalt(t *testing.T) {
	t.Setenv("FOLIO_ENV", config.Production)

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("FOLIO_HASH_SALT", "unique")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestConfigProvidesCartridgeSettings(t *testing.T) {
	t.Setenv("FOLIO_APP_PORT", "4000")
	t.Setenv("FOLIO_LOG_LEVEL", "warn")
	t.Setenv("FOLIO_LOGS_DIR", "/var/log/folio")

	cfg, err := config.Load()
	require.NoError(t, err)

	var runtime cartridge.Config = cfg
	assert.Equal(t, "4000", runtime.GetPort())
	assert.True(t, runtime.IsDevelopment())

	var logs cartridge.LogConfigProvider = cfg
	logCfg := cartridge.LogConfigFromProvider(logs)
	assert.Equal(t, "warn", logCfg.Level)
	assert.Equal(t, "/var/log/folio", logCfg.Directory)
	assert.Equal(t, 20, logCfg.MaxSizeMB)
	assert.Equal(t, 10, logCfg.MaxBackups)
	assert.Equal(t, 30, logCfg.MaxAgeDays)
	assert.Equal(t, "folio", logCfg.AppName)
}
