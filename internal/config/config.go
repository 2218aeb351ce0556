// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	APIToken    string   `mapstructure:"apitoken"`
	HashSalt    string   `mapstructure:"hashsalt"`

	// File paths
	DatabasePath string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from other settings
	GeoDBPath    string `mapstructure:"geodbpath"`
	ExportDir    string `mapstructure:"exportdir"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Dashboard client settings
	DashboardURL         string `mapstructure:"dashboardurl"`
	ClientTimeoutSeconds int    `mapstructure:"clienttimeoutseconds"`
	PageSize             int    `mapstructure:"pagesize"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`

	// Data retention settings
	VisitorRetentionDays int `mapstructure:"visitorretentiondays"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		c, err := Load()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = c
	})
	return cfg
}

// Load reads the configuration from defaults and FOLIO_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("appname", "folio")
	v.SetDefault("appport", "3000")
	v.SetDefault("environment", Development)
	v.SetDefault("loglevel", string(LogLevelDebug))
	v.SetDefault("apitoken", "")
	v.SetDefault("hashsalt", "folio-default-salt")
	v.SetDefault("storagepath", "storage")
	v.SetDefault("geodbpath", "storage/GeoLite2-Country.mmdb")
	v.SetDefault("exportdir", "exports")
	v.SetDefault("logsdir", "logs")
	v.SetDefault("logsmaxsizeinmb", 20)
	v.SetDefault("logsmaxbackups", 10)
	v.SetDefault("logsmaxageindays", 30)
	v.SetDefault("dbtype", SQLiteDatabase)
	v.SetDefault("dbmaxopenconns", 0)
	v.SetDefault("dbmaxidleconns", 0)
	v.SetDefault("dashboardurl", "http://localhost:3000")
	v.SetDefault("clienttimeoutseconds", 15)
	v.SetDefault("pagesize", 10)
	v.SetDefault("jobintervalseconds", 3600)
	v.SetDefault("visitorretentiondays", 30)

	v.BindEnv("appname", "FOLIO_APP_NAME")
	v.BindEnv("appport", "FOLIO_APP_PORT")
	v.BindEnv("environment", "FOLIO_ENV")
	v.BindEnv("loglevel", "FOLIO_LOG_LEVEL")
	v.BindEnv("apitoken", "FOLIO_API_TOKEN")
	v.BindEnv("hashsalt", "FOLIO_HASH_SALT")
	v.BindEnv("storagepath", "FOLIO_STORAGE_PATH")
	v.BindEnv("geodbpath", "FOLIO_GEO_DB_PATH")
	v.BindEnv("exportdir", "FOLIO_EXPORT_DIR")
	v.BindEnv("logsdir", "FOLIO_LOGS_DIR")
	v.BindEnv("logsmaxsizeinmb", "FOLIO_LOGS_MAX_SIZE_IN_MB")
	v.BindEnv("logsmaxbackups", "FOLIO_LOGS_MAX_BACKUPS")
	v.BindEnv("logsmaxageindays", "FOLIO_LOGS_MAX_AGE_IN_DAYS")
	v.BindEnv("dbtype", "FOLIO_DB_TYPE")
	v.BindEnv("dbmaxopenconns", "FOLIO_DB_MAX_OPEN_CONNS")
	v.BindEnv("dbmaxidleconns", "FOLIO_DB_MAX_IDLE_CONNS")
	v.BindEnv("dashboardurl", "FOLIO_DASHBOARD_URL")
	v.BindEnv("clienttimeoutseconds", "FOLIO_CLIENT_TIMEOUT_SECONDS")
	v.BindEnv("pagesize", "FOLIO_PAGE_SIZE")
	v.BindEnv("jobintervalseconds", "FOLIO_JOB_INTERVAL_SECONDS")
	v.BindEnv("visitorretentiondays", "FOLIO_VISITOR_RETENTION_DAYS")

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Set derived values
	c.DatabaseName = c.GetDatabasePath()

	if c.IsProduction() && c.HashSalt == "folio-default-salt" {
		return nil, fmt.Errorf("production requires a unique FOLIO_HASH_SALT (cannot use default)")
	}
	return c, nil
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.PageSize < 1 {
		return fmt.Errorf("invalid page size: %d", c.PageSize)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP listen port.
func (c *Config) GetPort() string { return c.AppPort }

// The API serves no static assets.
func (c *Config) GetPublicDirectory() string { return "" }
func (c *Config) GetAssetsPrefix() string    { return "" }

// Log settings consumed by cartridge.NewLogger.
func (c *Config) GetLogLevel() string     { return string(c.LogLevel) }
func (c *Config) GetLogDirectory() string { return c.LogsDirectory }
func (c *Config) GetLogMaxSizeMB() int    { return c.LogsMaxSizeInMb }
func (c *Config) GetLogMaxBackups() int   { return c.LogsMaxBackups }
func (c *Config) GetLogMaxAgeDays() int   { return c.LogsMaxAgeInDays }
func (c *Config) GetAppName() string      { return c.AppName }

// ClientTimeout returns the dashboard client's per-request timeout.
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.ClientTimeoutSeconds) * time.Second
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for in-memory test databases)
// - Development/Production: 10 (allows the breakdown and summary queries to run in parallel)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
