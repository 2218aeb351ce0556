package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"folio/internal/analytics"
	"folio/internal/config"
	"folio/internal/events"
)

// DBManager wraps cartridge's sqlite.Manager with folio's migrations.
type DBManager struct {
	*sqlite.Manager
	path   string
	logger *slog.Logger
}

var _ cartridge.DBManager = (*DBManager)(nil)

// NewDBManager creates a database manager. The connection is opened lazily.
func NewDBManager(cfg *config.Config, logger *slog.Logger) *DBManager {
	path := cfg.GetDatabasePath()
	sqliteCfg := sqlite.Config{
		Path:         path,
		MaxOpenConns: cfg.GetMaxOpenConns(),
		MaxIdleConns: cfg.GetMaxIdleConns(),
		Logger:       logger,
		EnableWAL:    true,
		TxImmediate:  true,
		BusyTimeout:  5000,
	}

	return &DBManager{
		Manager: sqlite.NewManager(sqliteCfg),
		path:    path,
		logger:  logger,
	}
}

// Init creates the storage directory and opens the connection.
func (dm *DBManager) Init() error {
	if dir := filepath.Dir(dm.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	_, err := dm.Manager.Connect()
	return err
}

// Models lists every table the application owns.
func Models() []any {
	return append(analytics.Models(), &events.Visitor{})
}

// MigrateDatabase creates or updates all tables.
func (dm *DBManager) MigrateDatabase() error {
	db := dm.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	// Run migrations in a transaction
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(Models()...)
	})
	if err != nil {
		dm.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	if err := dm.CheckpointWAL("FULL"); err != nil {
		dm.logger.Warn("Failed to checkpoint WAL after migration", slog.Any("error", err))
	}

	dm.logger.Info("Database migration completed successfully")
	return nil
}
