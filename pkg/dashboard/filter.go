package dashboard

import (
	"fmt"
	"slices"
	"strings"
)

// Labeler returns extra searchable text for a dimension value, such as a
// country's display name for its code.
type Labeler func(v View, value string) string

// ApplyFilter re-applies the filter and ordering to rows already in memory.
// It only ever sees the fetched page, so it complements the server-side
// filtering rather than replacing it. The input slice is not modified.
func ApplyFilter(rows []MetricRow, view View, f FilterState, s SortSpec) []MetricRow {
	return ApplyFilterLabeled(rows, view, f, s, nil)
}

// ApplyFilterLabeled is ApplyFilter with the search also matched against the
// label of each value.
func ApplyFilterLabeled(rows []MetricRow, view View, f FilterState, s SortSpec, label Labeler) []MetricRow {
	term := strings.ToLower(strings.TrimSpace(f.SearchTerm))
	selected := f.SelectedDimensionValues(view)

	out := make([]MetricRow, 0, len(rows))
	for _, row := range rows {
		if term != "" && !matches(row.DimensionValue, view, term, label) {
			continue
		}
		if len(selected) > 0 && !selected.Has(row.DimensionValue) {
			continue
		}
		if f.MinCount > 0 && row.Count < f.MinCount {
			continue
		}
		if f.MaxCount > 0 && row.Count > f.MaxCount {
			continue
		}
		out = append(out, row)
	}

	slices.SortStableFunc(out, comparator(s))
	return out
}

func matches(value string, view View, term string, label Labeler) bool {
	if strings.Contains(strings.ToLower(value), term) {
		return true
	}
	return label != nil && strings.Contains(strings.ToLower(label(view, value)), term)
}

// Derive filters and sorts every view's rows with the same state.
func Derive(rows RowSet, f FilterState, s SortSpec) RowSet {
	return DeriveLabeled(rows, f, s, nil)
}

// DeriveLabeled is Derive with a search labeler.
func DeriveLabeled(rows RowSet, f FilterState, s SortSpec, label Labeler) RowSet {
	return RowSet{
		Countries: ApplyFilterLabeled(rows.Get(ViewCountries), ViewCountries, f, s, label),
		Pages:     ApplyFilterLabeled(rows.Get(ViewPages), ViewPages, f, s, label),
		Devices:   ApplyFilterLabeled(rows.Get(ViewDevices), ViewDevices, f, s, label),
	}
}

func comparator(s SortSpec) func(a, b MetricRow) int {
	polarity := 1
	if s.Direction == Desc {
		polarity = -1
	}
	if s.Field == SortByDimension {
		return func(a, b MetricRow) int {
			return polarity * strings.Compare(strings.ToLower(a.DimensionValue), strings.ToLower(b.DimensionValue))
		}
	}
	return func(a, b MetricRow) int {
		switch {
		case a.Count < b.Count:
			return -polarity
		case a.Count > b.Count:
			return polarity
		}
		return 0
	}
}

// Share returns the row's percentage of the total count across rows. ok is
// false when that total is zero.
func Share(row MetricRow, rows []MetricRow) (pct float64, ok bool) {
	total := 0
	for _, r := range rows {
		total += r.Count
	}
	if total == 0 {
		return 0, false
	}
	return float64(row.Count) / float64(total) * 100, true
}

// FormatShare renders a share with one decimal, or an em dash when there is
// no total to divide by.
func FormatShare(row MetricRow, rows []MetricRow) string {
	pct, ok := Share(row, rows)
	if !ok {
		return "—"
	}
	return fmt.Sprintf("%.1f%%", pct)
}
