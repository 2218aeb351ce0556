package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"folio/internal/analytics"
	"folio/internal/testsupport"
	"folio/internal/timeframe"
	"folio/pkg/dashboard"
)

var day = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func window() *timeframe.TimeFrame {
	return &timeframe.TimeFrame{From: day.AddDate(0, 0, -1), To: day.AddDate(0, 0, 1)}
}

// seed writes: US 5 views, DE 3, GB 2, FR 1 across pages and devices.
func seed(t *testing.T) *gorm.DB {
	db := testsupport.SetupTestDB(t)
	testsupport.RecordViews(t, db, testsupport.View("/", "US", "desktop", "u1", day), 3)
	testsupport.RecordViews(t, db, testsupport.View("/pricing", "US", "mobile", "u2", day), 2)
	testsupport.RecordViews(t, db, testsupport.View("/", "DE", "desktop", "d1", day), 3)
	testsupport.RecordViews(t, db, testsupport.View("/blog", "GB", "tablet", "g1", day), 2)
	testsupport.RecordViews(t, db, testsupport.View("/blog", "FR", "mobile", "f1", day), 1)
	// Outside the window
	testsupport.RecordViews(t, db, testsupport.View("/", "US", "desktop", "u1", day.AddDate(0, 0, -10)), 50)
	return db
}

func breakdown(t *testing.T, db *gorm.DB, q dashboard.Query) *analytics.Breakdown {
	t.Helper()
	if q.View == "" {
		q.View = dashboard.ViewCountries
	}
	if q.Sort.Field == "" {
		q.Sort = dashboard.DefaultSort()
	}
	b, err := analytics.GetBreakdown(db, analytics.BreakdownParams{TimeFrame: window(), Query: q})
	require.NoError(t, err)
	return b
}

func names(items []analytics.MetricCountResult) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestGetBreakdownDefaults(t *testing.T) {
	db := seed(t)
	b := breakdown(t, db, dashboard.Query{})

	assert.Equal(t, []string{"US", "DE", "GB", "FR"}, names(b.Items))
	assert.Equal(t, int64(5), b.Items[0].Count)
	assert.Equal(t, 4, b.Total)
	assert.Equal(t, 1, b.Page)
	assert.Equal(t, 1, b.TotalPages)
}

func TestGetBreakdownViews(t *testing.T) {
	db := seed(t)

	pages := breakdown(t, db, dashboard.Query{View: dashboard.ViewPages})
	assert.Equal(t, []string{"/", "/blog", "/pricing"}, names(pages.Items))

	devices := breakdown(t, db, dashboard.Query{View: dashboard.ViewDevices})
	assert.Equal(t, []string{"desktop", "mobile", "tablet"}, names(devices.Items))
	assert.Equal(t, int64(6), devices.Items[0].Count)
}

func TestGetBreakdownPagination(t *testing.T) {
	db := seed(t)

	first := breakdown(t, db, dashboard.Query{Page: 1, PageSize: 3})
	assert.Equal(t, []string{"US", "DE", "GB"}, names(first.Items))
	assert.Equal(t, 4, first.Total)
	assert.Equal(t, 2, first.TotalPages)

	second := breakdown(t, db, dashboard.Query{Page: 2, PageSize: 3})
	assert.Equal(t, []string{"FR"}, names(second.Items))
	assert.Equal(t, 2, second.Page)

	beyond := breakdown(t, db, dashboard.Query{Page: 5, PageSize: 3})
	assert.Equal(t, []string{"FR"}, names(beyond.Items))
	assert.Equal(t, 2, beyond.Page)
	assert.Equal(t, 4, beyond.Total)
}

func TestGetBreakdownSort(t *testing.T) {
	db := seed(t)

	asc := breakdown(t, db, dashboard.Query{Sort: dashboard.SortSpec{Field: dashboard.SortByCount, Direction: dashboard.Asc}})
	assert.Equal(t, []string{"FR", "GB", "DE", "US"}, names(asc.Items))

	byName := breakdown(t, db, dashboard.Query{Sort: dashboard.SortSpec{Field: dashboard.SortByDimension, Direction: dashboard.Asc}})
	assert.Equal(t, []string{"DE", "FR", "GB", "US"}, names(byName.Items))
}

func TestGetBreakdownFilters(t *testing.T) {
	db := seed(t)

	tests := []struct {
		name     string
		view     dashboard.View
		filter   dashboard.FilterState
		expected []string
	}{
		{
			name:     "search matches code",
			filter:   dashboard.FilterState{SearchTerm: "de"},
			expected: []string{"DE"},
		},
		{
			name:     "search matches country name",
			filter:   dashboard.FilterState{SearchTerm: "united"},
			expected: []string{"US", "GB"},
		},
		{
			name:     "search on pages",
			view:     dashboard.ViewPages,
			filter:   dashboard.FilterState{SearchTerm: "BLO"},
			expected: []string{"/blog"},
		},
		{
			name:     "search wildcard is literal",
			view:     dashboard.ViewPages,
			filter:   dashboard.FilterState{SearchTerm: "%"},
			expected: []string{},
		},
		{
			name:     "selection",
			filter:   dashboard.FilterState{SelectedCountries: dashboard.NewSet("FR", "DE")},
			expected: []string{"DE", "FR"},
		},
		{
			name:     "selection for another view is ignored",
			filter:   dashboard.FilterState{SelectedDevices: dashboard.NewSet("tablet")},
			expected: []string{"US", "DE", "GB", "FR"},
		},
		{
			name:     "min views",
			filter:   dashboard.FilterState{MinCount: 3},
			expected: []string{"US", "DE"},
		},
		{
			name:     "max views",
			filter:   dashboard.FilterState{MaxCount: 2},
			expected: []string{"GB", "FR"},
		},
		{
			name:     "inverted bounds match nothing",
			filter:   dashboard.FilterState{MinCount: 4, MaxCount: 2},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := breakdown(t, db, dashboard.Query{View: tt.view, Filter: tt.filter})
			assert.Equal(t, tt.expected, names(b.Items))
			assert.Equal(t, len(tt.expected), b.Total)
		})
	}
}

func TestGetBreakdownRequiresTimeFrame(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	_, err := analytics.GetBreakdown(db, analytics.BreakdownParams{})
	assert.Error(t, err)
}

func TestGetSummary(t *testing.T) {
	db := seed(t)

	stats, err := analytics.GetSummary(db, window())
	require.NoError(t, err)
	assert.Equal(t, 11, stats.TotalViews)
	assert.Equal(t, 5, stats.UniqueVisitors)
	assert.Zero(t, stats.AvgDurationSeconds)
}

func TestGetSummaryEmpty(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	stats, err := analytics.GetSummary(db, window())
	require.NoError(t, err)
	assert.Equal(t, dashboard.SummaryStats{}, stats)
}
