package dashboard_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/pkg/dashboard"
)

func TestQueryEncodeIsDeterministic(t *testing.T) {
	q := dashboard.Query{
		TimeRange: dashboard.Range30Days,
		View:      dashboard.ViewCountries,
		Page:      2,
		PageSize:  10,
		Sort:      dashboard.SortSpec{Field: dashboard.SortByDimension, Direction: dashboard.Asc},
		Filter: dashboard.FilterState{
			SearchTerm:        "an",
			SelectedCountries: dashboard.NewSet("US", "DE", "FR"),
			SelectedDevices:   dashboard.NewSet("mobile", "desktop"),
			MinCount:          5,
			MaxCount:          500,
		},
	}

	first := q.Encode()
	for i := 0; i < 50; i++ {
		require.Equal(t, first, q.Encode())
	}

	assert.Equal(t,
		"range=30d&view=countries&page=2&limit=10&sortField=country&sortDirection=asc"+
			"&selectedCountries=DE&selectedCountries=FR&selectedCountries=US"+
			"&selectedDevices=desktop&selectedDevices=mobile"+
			"&searchTerm=an&minViews=5&maxViews=500",
		first)
}

func TestQueryEncodeSearchScenario(t *testing.T) {
	q := dashboard.Query{
		TimeRange: dashboard.Range7Days,
		View:      dashboard.ViewCountries,
		Page:      1,
		PageSize:  10,
		Sort:      dashboard.DefaultSort(),
		Filter:    dashboard.FilterState{SearchTerm: "united"},
	}

	encoded := q.Encode()
	assert.Equal(t, "range=7d&view=countries&page=1&limit=10&sortField=count&sortDirection=desc&searchTerm=united", encoded)
	assert.NotContains(t, encoded, "minViews")
	assert.NotContains(t, encoded, "maxViews")
}

func TestQueryEncodeOmitsEmptyFilters(t *testing.T) {
	q := dashboard.Query{
		TimeRange: dashboard.RangeAll,
		View:      dashboard.ViewDevices,
		Filter: dashboard.FilterState{
			SearchTerm:      "   ",
			SelectedDevices: dashboard.NewSet(),
		},
	}

	encoded := q.Encode()
	assert.Equal(t, "range=all&view=devices&page=1&limit=10&sortField=count&sortDirection=desc", encoded)
}

func TestQueryEncodeEscapesValues(t *testing.T) {
	q := dashboard.Query{
		TimeRange: dashboard.Range24Hours,
		View:      dashboard.ViewPages,
		Sort:      dashboard.SortSpec{Field: dashboard.SortByDimension, Direction: dashboard.Desc},
		Filter: dashboard.FilterState{
			SearchTerm:    "blog & news",
			SelectedPages: dashboard.NewSet("/blog?id=1"),
		},
	}

	encoded := q.Encode()
	assert.Contains(t, encoded, "sortField=page")
	assert.Contains(t, encoded, "selectedPages=%2Fblog%3Fid%3D1")
	assert.Contains(t, encoded, "searchTerm=blog+%26+news")
}

func TestParseQueryRoundTrip(t *testing.T) {
	original := dashboard.Query{
		TimeRange: dashboard.Range24Hours,
		View:      dashboard.ViewDevices,
		Page:      3,
		PageSize:  25,
		Sort:      dashboard.SortSpec{Field: dashboard.SortByDimension, Direction: dashboard.Asc},
		Filter: dashboard.FilterState{
			SearchTerm:        "mob",
			SelectedCountries: dashboard.NewSet("US"),
			SelectedDevices:   dashboard.NewSet("mobile", "tablet"),
			SelectedPages:     dashboard.NewSet(),
			MinCount:          2,
			MaxCount:          9,
		},
	}

	values, err := url.ParseQuery(original.Encode())
	require.NoError(t, err)

	parsed := dashboard.ParseQuery(values)
	assert.Equal(t, original.Encode(), parsed.Encode())
	assert.Equal(t, dashboard.SortByDimension, parsed.Sort.Field)
	assert.True(t, parsed.Filter.SelectedDevices.Has("tablet"))
}

func TestParseQueryDefaults(t *testing.T) {
	parsed := dashboard.ParseQuery(url.Values{
		"range": {"90d"},
		"view":  {"browsers"},
		"page":  {"-4"},
		"limit": {"abc"},
	})

	assert.Equal(t, dashboard.Range7Days, parsed.TimeRange)
	assert.Equal(t, dashboard.ViewCountries, parsed.View)
	assert.Equal(t, 1, parsed.Page)
	assert.Equal(t, dashboard.DefaultPageSize, parsed.PageSize)
	assert.Equal(t, dashboard.DefaultSort(), parsed.Sort)
	assert.Zero(t, parsed.Filter.MinCount)
}

func TestSortSpecToggle(t *testing.T) {
	s := dashboard.DefaultSort()

	s = s.Toggle(dashboard.SortByCount)
	assert.Equal(t, dashboard.Asc, s.Direction)

	s = s.Toggle(dashboard.SortByCount)
	assert.Equal(t, dashboard.Desc, s.Direction)

	s = s.Toggle(dashboard.SortByCount).Toggle(dashboard.SortByDimension)
	assert.Equal(t, dashboard.SortSpec{Field: dashboard.SortByDimension, Direction: dashboard.Desc}, s)
}

func TestParseTimeRange(t *testing.T) {
	for _, label := range []string{"24h", "7d", "30d", "all"} {
		r, err := dashboard.ParseTimeRange(label)
		require.NoError(t, err)
		assert.Equal(t, label, string(r))
	}

	_, err := dashboard.ParseTimeRange("1y")
	assert.ErrorIs(t, err, dashboard.ErrUnknownRange)
}
