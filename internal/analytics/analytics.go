// Package analytics provides the aggregate statistics tables and the
// queries that serve the dashboard API.
//
//   - analytics.go: aggregate table models and the view → table mapping
//   - breakdown.go: filtered, sorted, paginated per-dimension counts
//   - summary.go: dataset-wide totals for a time frame
package analytics

import (
	"time"

	"folio/pkg/dashboard"
)

// MetricCountResult represents a generic key-count pair for query results
type MetricCountResult struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// ===== Aggregate Table Definitions =====

// SiteStat holds site-wide totals per half-hour bucket
type SiteStat struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	PageViewsCount int       `gorm:"not null;default:0"`
	VisitorsCount  int       `gorm:"not null;default:0"`
	DurationSum    int64     `gorm:"not null;default:0"`
	DurationCount  int       `gorm:"not null;default:0"`
	Hour           time.Time `gorm:"uniqueIndex:idx_site_unique;type:datetime;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PageStat represents aggregated page path statistics
type PageStat struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	Pathname       string    `gorm:"uniqueIndex:idx_page_unique;not null"`
	VisitorsCount  int       `gorm:"not null;default:0"`
	PageViewsCount int       `gorm:"not null;default:0"`
	Hour           time.Time `gorm:"uniqueIndex:idx_page_unique;type:datetime;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CountryStat represents aggregated country statistics
type CountryStat struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	Country        string    `gorm:"uniqueIndex:idx_country_unique;not null"`
	VisitorsCount  int       `gorm:"not null;default:0"`
	PageViewsCount int       `gorm:"not null;default:0"`
	Hour           time.Time `gorm:"uniqueIndex:idx_country_unique;type:datetime;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DeviceStat represents aggregated device type statistics
type DeviceStat struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	DeviceType     string    `gorm:"uniqueIndex:idx_device_unique;not null"`
	VisitorsCount  int       `gorm:"not null;default:0"`
	PageViewsCount int       `gorm:"not null;default:0"`
	Hour           time.Time `gorm:"uniqueIndex:idx_device_unique;type:datetime;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Models lists every aggregate table for migrations.
func Models() []any {
	return []any{&SiteStat{}, &PageStat{}, &CountryStat{}, &DeviceStat{}}
}

// Dimension locates a view's aggregate table and its value column.
type Dimension struct {
	Table  string
	Column string
}

var dimensions = map[dashboard.View]Dimension{
	dashboard.ViewCountries: {Table: "country_stats", Column: "country"},
	dashboard.ViewPages:     {Table: "page_stats", Column: "pathname"},
	dashboard.ViewDevices:   {Table: "device_stats", Column: "device_type"},
}

// DimensionFor returns the storage location for a view. Unknown views fall
// back to countries.
func DimensionFor(v dashboard.View) Dimension {
	if d, ok := dimensions[v]; ok {
		return d
	}
	return dimensions[dashboard.ViewCountries]
}
