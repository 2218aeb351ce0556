package testsupport

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/events"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager around a folio test database
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates an in-memory database with every model migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Subtests share their root test's database
	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", rootName, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a migrated test database behind a connector.
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	return NewTestDBManager(SetupTestDB(t)), GetLogger()
}

// TestConfig returns a configuration for the test environment rooted in a
// temporary directory.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		AppName:              "folio",
		AppPort:              "0",
		Environment:          config.Test,
		LogLevel:             config.LogLevelError,
		HashSalt:             "test-salt",
		DatabasePath:         dir,
		ExportDir:            dir,
		DatabaseType:         config.SQLiteDatabase,
		DashboardURL:         "http://localhost:3000",
		ClientTimeoutSeconds: 5,
		PageSize:             10,
		JobIntervalSeconds:   3600,
		VisitorRetentionDays: 30,
	}
}

// CleanTables empties the given tables.
func CleanTables(db *gorm.DB, tables ...string) {
	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
		}
		return nil
	})
}

// CleanAllAggregates cleans all aggregate tables
func CleanAllAggregates(db *gorm.DB) {
	CleanTables(db, "site_stats", "page_stats", "country_stats", "device_stats", "visitors")
}

// GetLogger returns a logger that discards everything
func GetLogger() *slog.Logger {
	return ctestsupport.NewTestLogger()
}

// RecordViews writes n page views for one visitor directly to the
// aggregates.
func RecordViews(t *testing.T, db *gorm.DB, view events.PageView, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return events.RecordPageView(tx, view)
		}))
	}
}

// View builds a page view with a fingerprint derived from visitor.
func View(path, country, device, visitor string, ts time.Time) events.PageView {
	return events.PageView{
		Pathname:    path,
		Country:     country,
		DeviceType:  device,
		Fingerprint: events.Fingerprint("test-salt", visitor, "test-agent", ts),
		Timestamp:   ts,
	}
}
