package dashboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/pkg/dashboard"
)

func countryRows() []dashboard.MetricRow {
	return []dashboard.MetricRow{
		{DimensionValue: "United States", Count: 120},
		{DimensionValue: "united kingdom", Count: 30},
		{DimensionValue: "Germany", Count: 30},
		{DimensionValue: "France", Count: 7},
		{DimensionValue: "Brazil", Count: 0},
	}
}

func names(rows []dashboard.MetricRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.DimensionValue
	}
	return out
}

func TestApplyFilter(t *testing.T) {
	tests := []struct {
		name     string
		filter   dashboard.FilterState
		sort     dashboard.SortSpec
		expected []string
	}{
		{
			name:     "No filter sorts by count descending and keeps ties stable",
			sort:     dashboard.DefaultSort(),
			expected: []string{"United States", "united kingdom", "Germany", "France", "Brazil"},
		},
		{
			name:     "Search is case-insensitive substring",
			filter:   dashboard.FilterState{SearchTerm: "UNITED"},
			sort:     dashboard.DefaultSort(),
			expected: []string{"United States", "united kingdom"},
		},
		{
			name:     "Selection keeps only selected values",
			filter:   dashboard.FilterState{SelectedCountries: dashboard.NewSet("France", "Germany")},
			sort:     dashboard.DefaultSort(),
			expected: []string{"Germany", "France"},
		},
		{
			name:     "Selection for another dimension is ignored",
			filter:   dashboard.FilterState{SelectedDevices: dashboard.NewSet("mobile")},
			sort:     dashboard.DefaultSort(),
			expected: []string{"United States", "united kingdom", "Germany", "France", "Brazil"},
		},
		{
			name:     "Min bound only",
			filter:   dashboard.FilterState{MinCount: 30},
			sort:     dashboard.DefaultSort(),
			expected: []string{"United States", "united kingdom", "Germany"},
		},
		{
			name:     "Max bound only",
			filter:   dashboard.FilterState{MaxCount: 30},
			sort:     dashboard.DefaultSort(),
			expected: []string{"united kingdom", "Germany", "France", "Brazil"},
		},
		{
			name:     "Inverted bounds match nothing",
			filter:   dashboard.FilterState{MinCount: 100, MaxCount: 10},
			sort:     dashboard.DefaultSort(),
			expected: []string{},
		},
		{
			name:     "Dimension ascending compares lower-cased",
			sort:     dashboard.SortSpec{Field: dashboard.SortByDimension, Direction: dashboard.Asc},
			expected: []string{"Brazil", "France", "Germany", "united kingdom", "United States"},
		},
		{
			name:     "Dimension descending flips polarity only",
			sort:     dashboard.SortSpec{Field: dashboard.SortByDimension, Direction: dashboard.Desc},
			expected: []string{"United States", "united kingdom", "Germany", "France", "Brazil"},
		},
		{
			name:     "Count ascending keeps ties stable",
			sort:     dashboard.SortSpec{Field: dashboard.SortByCount, Direction: dashboard.Asc},
			expected: []string{"Brazil", "France", "united kingdom", "Germany", "United States"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := dashboard.ApplyFilter(countryRows(), dashboard.ViewCountries, tt.filter, tt.sort)
			assert.Equal(t, tt.expected, names(result))
		})
	}
}

func TestApplyFilterIsIdempotent(t *testing.T) {
	filter := dashboard.FilterState{SearchTerm: "an", MinCount: 1}
	sortSpec := dashboard.SortSpec{Field: dashboard.SortByDimension, Direction: dashboard.Asc}

	once := dashboard.ApplyFilter(countryRows(), dashboard.ViewCountries, filter, sortSpec)
	twice := dashboard.ApplyFilter(once, dashboard.ViewCountries, filter, sortSpec)

	assert.Equal(t, once, twice)
}

func TestApplyFilterDoesNotModifyInput(t *testing.T) {
	rows := countryRows()
	dashboard.ApplyFilter(rows, dashboard.ViewCountries, dashboard.FilterState{}, dashboard.SortSpec{Field: dashboard.SortByDimension, Direction: dashboard.Asc})
	assert.Equal(t, countryRows(), rows)
}

func TestDeriveAppliesPerViewSelection(t *testing.T) {
	rows := dashboard.RowSet{
		Countries: []dashboard.MetricRow{{DimensionValue: "US", Count: 3}, {DimensionValue: "DE", Count: 1}},
		Pages:     []dashboard.MetricRow{{DimensionValue: "/", Count: 4}, {DimensionValue: "/blog", Count: 2}},
		Devices:   []dashboard.MetricRow{{DimensionValue: "desktop", Count: 5}, {DimensionValue: "mobile", Count: 6}},
	}
	filter := dashboard.FilterState{SelectedDevices: dashboard.NewSet("desktop")}

	derived := dashboard.Derive(rows, filter, dashboard.DefaultSort())

	assert.Equal(t, []string{"US", "DE"}, names(derived.Countries))
	assert.Equal(t, []string{"/", "/blog"}, names(derived.Pages))
	assert.Equal(t, []string{"desktop"}, names(derived.Devices))
}

func TestShare(t *testing.T) {
	rows := []dashboard.MetricRow{
		{DimensionValue: "US", Count: 120},
		{DimensionValue: "UK", Count: 30},
	}

	pct, ok := dashboard.Share(rows[0], rows)
	assert.True(t, ok)
	assert.InDelta(t, 80.0, pct, 0.0001)
	assert.Equal(t, "80.0%", dashboard.FormatShare(rows[0], rows))
	assert.Equal(t, "20.0%", dashboard.FormatShare(rows[1], rows))
}

func TestShareWithZeroTotal(t *testing.T) {
	rows := []dashboard.MetricRow{{DimensionValue: "US", Count: 0}}

	_, ok := dashboard.Share(rows[0], rows)
	assert.False(t, ok)
	assert.Equal(t, "—", dashboard.FormatShare(rows[0], rows))
}

func TestApplyFilterLabeledMatchesLabel(t *testing.T) {
	rows := []dashboard.MetricRow{
		{DimensionValue: "US", Count: 10},
		{DimensionValue: "DE", Count: 5},
	}
	names := map[string]string{"US": "United States", "DE": "Germany"}
	label := func(v dashboard.View, value string) string {
		if v != dashboard.ViewCountries {
			return ""
		}
		return names[value]
	}
	f := dashboard.FilterState{SearchTerm: "germ"}

	assert.Empty(t, dashboard.ApplyFilter(rows, dashboard.ViewCountries, f, dashboard.DefaultSort()))

	got := dashboard.ApplyFilterLabeled(rows, dashboard.ViewCountries, f, dashboard.DefaultSort(), label)
	require.Len(t, got, 1)
	assert.Equal(t, "DE", got[0].DimensionValue)

	assert.Empty(t, dashboard.ApplyFilterLabeled(rows, dashboard.ViewPages, f, dashboard.DefaultSort(), label))
}
