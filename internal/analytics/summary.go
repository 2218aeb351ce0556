package analytics

import (
	"fmt"

	"gorm.io/gorm"

	"folio/internal/timeframe"
	"folio/pkg/dashboard"
)

// GetSummary returns total page views, unique visitors and the average visit
// duration in seconds across the whole time frame. Dimension filters do not
// apply to the summary.
func GetSummary(db *gorm.DB, tf *timeframe.TimeFrame) (dashboard.SummaryStats, error) {
	var result struct {
		PageViews     int64
		Visitors      int64
		DurationSum   int64
		DurationCount int64
	}

	query := `
    SELECT
        COALESCE(SUM(page_views_count), 0) AS page_views,
        COALESCE(SUM(visitors_count), 0) AS visitors,
        COALESCE(SUM(duration_sum), 0) AS duration_sum,
        COALESCE(SUM(duration_count), 0) AS duration_count
    FROM site_stats
    WHERE hour BETWEEN ? AND ?
    `

	err := db.Raw(query, tf.From.UTC(), tf.To.UTC()).Scan(&result).Error
	if err != nil {
		return dashboard.SummaryStats{}, fmt.Errorf("error fetching summary: %w", err)
	}

	stats := dashboard.SummaryStats{
		TotalViews:     int(result.PageViews),
		UniqueVisitors: int(result.Visitors),
	}
	if result.DurationCount > 0 {
		stats.AvgDurationSeconds = float64(result.DurationSum) / float64(result.DurationCount)
	}
	return stats, nil
}
