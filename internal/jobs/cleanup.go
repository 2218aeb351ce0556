package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"folio/internal/events"
)

// VisitorCleanupJob drops visitor fingerprints older than the retention
// period. Aggregated counts are kept.
type VisitorCleanupJob struct {
	dbManager     cartridge.DBManager
	logger        *slog.Logger
	retentionDays int
	interval      time.Duration
	now           func() time.Time
}

func NewVisitorCleanupJob(dbManager cartridge.DBManager, logger *slog.Logger, retentionDays int, interval time.Duration) *VisitorCleanupJob {
	return &VisitorCleanupJob{
		dbManager:     dbManager,
		logger:        logger,
		retentionDays: retentionDays,
		interval:      interval,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (j *VisitorCleanupJob) Name() string { return "visitor_cleanup" }

func (j *VisitorCleanupJob) Interval() time.Duration { return j.interval }

// Run deletes fingerprints for days before now minus the retention period.
func (j *VisitorCleanupJob) Run(ctx context.Context) error {
	if j.retentionDays <= 0 {
		j.logger.Debug("Visitor retention disabled")
		return nil
	}
	db := j.dbManager.GetConnection()
	if db == nil {
		return nil
	}
	cutoff := j.now().AddDate(0, 0, -j.retentionDays)

	deleted, err := events.DeleteVisitorsBefore(db.WithContext(ctx), cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.logger.Info("Cleaned up old visitor fingerprints",
			slog.Int64("deleted_count", deleted),
			slog.Int("retention_days", j.retentionDays))
	}
	return nil
}
