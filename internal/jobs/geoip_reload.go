package jobs

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// GeoIPReloadInterval is how often the GeoLite file is checked for changes.
const GeoIPReloadInterval = time.Hour

// reloader is satisfied by *geoip.Reader.
type reloader interface {
	Reload() error
}

// GeoIPReloadJob reopens the GeoLite database when the file on disk has been
// replaced, so a weekly download takes effect without a restart.
type GeoIPReloadJob struct {
	reader   reloader
	path     string
	logger   *slog.Logger
	loadedAt time.Time
}

func NewGeoIPReloadJob(reader reloader, path string, logger *slog.Logger) *GeoIPReloadJob {
	return &GeoIPReloadJob{reader: reader, path: path, logger: logger, loadedAt: time.Now()}
}

func (j *GeoIPReloadJob) Name() string { return "geoip_reload" }

func (j *GeoIPReloadJob) Interval() time.Duration { return GeoIPReloadInterval }

func (j *GeoIPReloadJob) Run(context.Context) error {
	info, err := os.Stat(j.path)
	if err != nil {
		j.logger.Debug("GeoLite database not available", slog.String("path", j.path), slog.Any("error", err))
		return nil
	}
	if !info.ModTime().After(j.loadedAt) {
		return nil
	}
	if err := j.reader.Reload(); err != nil {
		return err
	}
	j.loadedAt = info.ModTime()
	return nil
}
