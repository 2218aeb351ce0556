// Package internal contains core application functionality
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/events"
	"folio/internal/http"
	"folio/internal/jobs"
	"folio/internal/pkg/geoip"
	"folio/internal/timeframe"
)

// Application wraps cartridge.Application with folio-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // Folio-specific DB manager with migration methods
	Geo       *geoip.Reader
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	geo, err := geoip.Open(cfg.GeoDBPath, logger)
	if err != nil {
		// Country breakdowns degrade to "unknown"; tracking keeps working.
		logger.Warn("Failed to open GeoLite2 database", slog.Any("error", err))
		geo = nil
	}

	api := &http.API{
		Collector: events.NewCollector(dbManager, geo, logger, cfg.HashSalt),
		Clock:     &timeframe.DefaultTimeProvider{},
	}

	interval := time.Duration(cfg.JobIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	backgroundJobs := []jobs.Job{
		jobs.NewVisitorCleanupJob(dbManager, logger, cfg.VisitorRetentionDays, interval),
	}
	if geo != nil {
		backgroundJobs = append(backgroundJobs, jobs.NewGeoIPReloadJob(geo, cfg.GeoDBPath, logger))
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:       cfg,
		Logger:       logger,
		DBManager:    dbManager,
		ServerConfig: ServerConfig(),
		RouteMountFunc: func(srv *cartridge.Server) {
			MountAppRoutes(srv, cfg, api)
		},
		BackgroundWorkers: []cartridge.BackgroundWorker{jobs.NewScheduler(logger, backgroundJobs...)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Geo:         geo,
	}, nil
}

// Shutdown stops the jobs and the server, then closes the database and the
// GeoIP reader.
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Application.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
	}
	if err := a.DBManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if err := a.Geo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close geoip: %w", err))
	}
	a.Logger.Info("Application stopped")
	return errors.Join(errs...)
}
