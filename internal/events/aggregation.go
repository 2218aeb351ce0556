package events

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"folio/internal/timeframe"
)

// getVisitorIncrement returns the increment value for visitors_count based on isNewVisitor.
func getVisitorIncrement(isNewVisitor bool) int {
	if isNewVisitor {
		return 1
	}
	return 0
}

// markVisitor records the fingerprint for the view's day and reports whether
// it was the first sighting.
func markVisitor(tx *gorm.DB, fingerprint string, ts time.Time) (bool, error) {
	query := `
		INSERT INTO visitors (fingerprint, day, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (fingerprint, day) DO NOTHING
	`
	res := tx.Exec(query, fingerprint, timeframe.StartOfDay(ts), time.Now().UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RecordPageView updates every aggregate touched by one page view.
func RecordPageView(tx *gorm.DB, view PageView) error {
	isNewVisitor, err := markVisitor(tx, view.Fingerprint, view.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to mark visitor: %w", err)
	}

	// Truncate timestamp to half-hour bucket for finer granularity
	hour := timeframe.TruncateToHalfHour(view.Timestamp)

	if err := updateSiteStatForPageView(tx, hour, isNewVisitor); err != nil {
		return fmt.Errorf("failed to update site stats: %w", err)
	}
	if err := updateDimensionStat(tx, "page_stats", "pathname", view.Pathname, hour, isNewVisitor); err != nil {
		return fmt.Errorf("failed to update page stats: %w", err)
	}
	if err := updateDimensionStat(tx, "country_stats", "country", view.Country, hour, isNewVisitor); err != nil {
		return fmt.Errorf("failed to update country stats: %w", err)
	}
	if err := updateDimensionStat(tx, "device_stats", "device_type", view.DeviceType, hour, isNewVisitor); err != nil {
		return fmt.Errorf("failed to update device stats: %w", err)
	}
	return nil
}

// RecordDuration adds one visit duration to the site bucket for ts.
func RecordDuration(tx *gorm.DB, ts time.Time, seconds int) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO site_stats (hour, page_views_count, visitors_count, duration_sum, duration_count, created_at, updated_at)
		VALUES (?, 0, 0, ?, 1, ?, ?)
		ON CONFLICT (hour) DO UPDATE SET
			duration_sum = site_stats.duration_sum + ?,
			duration_count = site_stats.duration_count + 1,
			updated_at = ?
	`
	hour := timeframe.TruncateToHalfHour(ts)
	if err := tx.Exec(query, hour, seconds, now, now, seconds, now).Error; err != nil {
		return fmt.Errorf("failed to record duration: %w", err)
	}
	return nil
}

// Incremental update functions

func updateSiteStatForPageView(tx *gorm.DB, hour time.Time, isNewVisitor bool) error {
	visitorInc := getVisitorIncrement(isNewVisitor)
	now := time.Now().UTC()
	query := `
		INSERT INTO site_stats (hour, page_views_count, visitors_count, duration_sum, duration_count, created_at, updated_at)
		VALUES (?, 1, ?, 0, 0, ?, ?)
		ON CONFLICT (hour) DO UPDATE SET
			page_views_count = site_stats.page_views_count + 1,
			visitors_count = site_stats.visitors_count + ?,
			updated_at = ?
	`
	return tx.Exec(query, hour, visitorInc, now, now, visitorInc, now).Error
}

// updateDimensionStat upserts one per-dimension bucket. table and column
// come from the fixed call sites above, never from input.
func updateDimensionStat(tx *gorm.DB, table, column, value string, hour time.Time, isNewVisitor bool) error {
	visitorInc := getVisitorIncrement(isNewVisitor)
	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s, hour, visitors_count, page_views_count, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (%[2]s, hour) DO UPDATE SET
			visitors_count = %[1]s.visitors_count + ?,
			page_views_count = %[1]s.page_views_count + 1,
			updated_at = ?
	`, table, column)
	return tx.Exec(query, value, hour, visitorInc, now, now, visitorInc, now).Error
}

// DeleteVisitorsBefore removes fingerprints for days before cutoff and
// returns how many were deleted. Aggregates are unaffected.
func DeleteVisitorsBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.Where("day < ?", timeframe.StartOfDay(cutoff)).Delete(&Visitor{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete visitors: %w", res.Error)
	}
	return res.RowsAffected, nil
}
