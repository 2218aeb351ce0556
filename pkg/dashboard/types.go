// Package dashboard implements the filtered aggregation view over the remote
// analytics API: query construction, fetching, local re-filtering and sorting,
// pagination and JSON export.
package dashboard

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultPageSize is the number of rows requested per page.
const DefaultPageSize = 10

// ErrUnknownRange is returned when a time range label is not recognised.
var ErrUnknownRange = errors.New("unknown time range")

// TimeRange is the reporting window requested from the server.
type TimeRange string

const (
	Range24Hours TimeRange = "24h"
	Range7Days   TimeRange = "7d"
	Range30Days  TimeRange = "30d"
	RangeAll     TimeRange = "all"
)

// ParseTimeRange validates a range label.
func ParseTimeRange(s string) (TimeRange, error) {
	switch r := TimeRange(s); r {
	case Range24Hours, Range7Days, Range30Days, RangeAll:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRange, s)
}

// View selects the dimension the rows represent.
type View string

const (
	ViewCountries View = "countries"
	ViewPages     View = "pages"
	ViewDevices   View = "devices"
)

// Views lists every view in display order.
var Views = []View{ViewCountries, ViewPages, ViewDevices}

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewCountries, ViewPages, ViewDevices:
		return v, nil
	}
	return "", fmt.Errorf("unknown view: %q", s)
}

// Dimension returns the singular field name used on the wire for the view
// (country, page or device).
func (v View) Dimension() string {
	switch v {
	case ViewPages:
		return "page"
	case ViewDevices:
		return "device"
	default:
		return "country"
	}
}

// MetricRow is one aggregated dimension bucket.
type MetricRow struct {
	DimensionValue string
	Count          int
}

// SummaryStats are dataset-wide scalars for the active query.
type SummaryStats struct {
	TotalViews         int     `json:"totalViews"`
	UniqueVisitors     int     `json:"uniqueVisitors"`
	AvgDurationSeconds float64 `json:"avgDuration"`
}

// SortField is the column the table is ordered by.
type SortField string

const (
	SortByDimension SortField = "dimension"
	SortByCount     SortField = "count"
)

// Direction is the sort polarity.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortSpec is the active ordering.
type SortSpec struct {
	Field     SortField
	Direction Direction
}

// DefaultSort orders by count, highest first.
func DefaultSort() SortSpec {
	return SortSpec{Field: SortByCount, Direction: Desc}
}

// Toggle returns the spec after a click on the given column header: the same
// column flips direction, another column starts descending.
func (s SortSpec) Toggle(field SortField) SortSpec {
	if s.Field == field {
		if s.Direction == Desc {
			return SortSpec{Field: field, Direction: Asc}
		}
		return SortSpec{Field: field, Direction: Desc}
	}
	return SortSpec{Field: field, Direction: Desc}
}

// WireField is the sortField query value for this spec under a view.
func (s SortSpec) WireField(v View) string {
	if s.Field == SortByDimension {
		return v.Dimension()
	}
	return string(SortByCount)
}

// Set is an unordered set of dimension values.
type Set map[string]struct{}

// NewSet builds a set from values, ignoring empty strings.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		if v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// FilterState holds the user's filter inputs. A zero MinCount or MaxCount
// means that bound is open.
type FilterState struct {
	SearchTerm        string
	SelectedCountries Set
	SelectedPages     Set
	SelectedDevices   Set
	MinCount          int
	MaxCount          int
}

// SelectedDimensionValues returns the selection set that applies to a view.
func (f FilterState) SelectedDimensionValues(v View) Set {
	switch v {
	case ViewPages:
		return f.SelectedPages
	case ViewDevices:
		return f.SelectedDevices
	default:
		return f.SelectedCountries
	}
}

// WithSelection returns a copy of f whose selection for v is replaced.
func (f FilterState) WithSelection(v View, values Set) FilterState {
	out := f.Clone()
	switch v {
	case ViewPages:
		out.SelectedPages = values
	case ViewDevices:
		out.SelectedDevices = values
	default:
		out.SelectedCountries = values
	}
	return out
}

// Inverted reports a closed range whose upper bound is below its lower bound.
// Such a filter matches nothing.
func (f FilterState) Inverted() bool {
	return f.MinCount > 0 && f.MaxCount > 0 && f.MaxCount < f.MinCount
}

// Clone deep-copies the selection sets.
func (f FilterState) Clone() FilterState {
	out := f
	out.SelectedCountries = f.SelectedCountries.clone()
	out.SelectedPages = f.SelectedPages.clone()
	out.SelectedDevices = f.SelectedDevices.clone()
	return out
}

// PageState is the pagination snapshot exposed to renderers.
type PageState struct {
	CurrentPage int
	TotalPages  int
	PageSize    int
}

// RowSet holds one row slice per view.
type RowSet struct {
	Countries []MetricRow
	Pages     []MetricRow
	Devices   []MetricRow
}

// Get returns the rows for a view, never nil.
func (r RowSet) Get(v View) []MetricRow {
	var rows []MetricRow
	switch v {
	case ViewPages:
		rows = r.Pages
	case ViewDevices:
		rows = r.Devices
	default:
		rows = r.Countries
	}
	if rows == nil {
		return []MetricRow{}
	}
	return rows
}

// With returns a copy of r with the rows for v replaced.
func (r RowSet) With(v View, rows []MetricRow) RowSet {
	switch v {
	case ViewPages:
		r.Pages = rows
	case ViewDevices:
		r.Devices = rows
	default:
		r.Countries = rows
	}
	return r
}
