package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStale is returned by Refresh when a newer refresh superseded it. The
// stale response is discarded.
var ErrStale = errors.New("refresh superseded by a newer request")

// State is everything a renderer needs for one frame.
type State struct {
	TimeRange       TimeRange
	View            View
	Sort            SortSpec
	Filter          FilterState
	Page            PageState
	Summary         SummaryStats
	Rows            []MetricRow
	Total           int
	Loading         bool
	Empty           bool
	MaxViewsCeiling int
}

// Dashboard coordinates the filter inputs, the pager and the fetched data.
// It is safe for concurrent use.
type Dashboard struct {
	mu      sync.Mutex
	fetcher Fetcher
	logger  *slog.Logger
	labeler Labeler

	timeRange TimeRange
	view      View
	filter    FilterState
	sort      SortSpec
	pager     *Pager

	rows    RowSet
	summary SummaryStats
	total   int
	loading bool

	// maxViewsCeiling is seeded once from the first non-empty fetch.
	maxViewsCeiling int
	ceilingSeeded   bool

	seq    uint64
	cancel context.CancelFunc
}

// Option customises a Dashboard.
type Option func(*Dashboard)

// WithLogger sets the logger used for fetch failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dashboard) { d.logger = l }
}

// WithLabeler makes the local search also match value labels.
func WithLabeler(l Labeler) Option {
	return func(d *Dashboard) { d.labeler = l }
}

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(d *Dashboard) { d.pager = NewPager(n) }
}

// WithTimeRange sets the initial range.
func WithTimeRange(r TimeRange) Option {
	return func(d *Dashboard) { d.timeRange = r }
}

// WithView sets the initial view.
func WithView(v View) Option {
	return func(d *Dashboard) { d.view = v }
}

// NewDashboard creates a dashboard with default state: last 7 days,
// countries, ordered by count descending, page 1.
func NewDashboard(f Fetcher, opts ...Option) *Dashboard {
	d := &Dashboard{
		fetcher:   f,
		logger:    slog.Default(),
		timeRange: Range7Days,
		view:      ViewCountries,
		filter:    FilterState{}.Clone(),
		sort:      DefaultSort(),
		pager:     NewPager(DefaultPageSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetTimeRange changes the reporting window.
func (d *Dashboard) SetTimeRange(r TimeRange) {
	d.mutate(func() { d.timeRange = r })
}

// SetView switches the reported dimension.
func (d *Dashboard) SetView(v View) {
	d.mutate(func() { d.view = v })
}

// SetFilter replaces the whole filter state.
func (d *Dashboard) SetFilter(f FilterState) {
	d.mutate(func() { d.filter = f.Clone() })
}

// SetSearchTerm updates the free-text search.
func (d *Dashboard) SetSearchTerm(term string) {
	d.mutate(func() { d.filter.SearchTerm = term })
}

// SetSelection replaces the selected values for a dimension.
func (d *Dashboard) SetSelection(v View, values ...string) {
	d.mutate(func() { d.filter = d.filter.WithSelection(v, NewSet(values...)) })
}

// ToggleSelection adds or removes one value from a dimension's selection.
func (d *Dashboard) ToggleSelection(v View, value string) {
	d.mutate(func() {
		set := d.filter.SelectedDimensionValues(v).clone()
		if set.Has(value) {
			delete(set, value)
		} else if value != "" {
			set[value] = struct{}{}
		}
		d.filter = d.filter.WithSelection(v, set)
	})
}

// SetCountRange sets the count bounds; 0 leaves a bound open. The bounds are
// stored as given even when max < min.
func (d *Dashboard) SetCountRange(minCount, maxCount int) {
	d.mutate(func() {
		d.filter.MinCount = max(minCount, 0)
		d.filter.MaxCount = max(maxCount, 0)
	})
}

// ToggleSort handles a click on a column header.
func (d *Dashboard) ToggleSort(field SortField) {
	d.mutate(func() { d.sort = d.sort.Toggle(field) })
}

// NextPage moves forward one page.
func (d *Dashboard) NextPage() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pager.Next()
	d.invalidateLocked()
}

// PreviousPage moves back one page.
func (d *Dashboard) PreviousPage() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pager.Previous()
	d.invalidateLocked()
}

// GoToPage jumps to a page, clamped into range.
func (d *Dashboard) GoToPage(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pager.GoTo(n)
	d.invalidateLocked()
}

// mutate applies an upstream change and resets to page 1 before returning.
func (d *Dashboard) mutate(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
	d.pager.Reset()
	d.invalidateLocked()
}

// invalidateLocked cancels any refresh in flight and makes its response
// stale, since it was built from a query that no longer matches the state.
func (d *Dashboard) invalidateLocked() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.cancel = nil
	d.seq++
	d.loading = false
}

// Query returns the query the next refresh will send.
func (d *Dashboard) Query() Query {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queryLocked()
}

func (d *Dashboard) queryLocked() Query {
	return Query{
		TimeRange: d.timeRange,
		View:      d.view,
		Page:      d.pager.Current(),
		PageSize:  d.pager.PageSize(),
		Sort:      d.sort,
		Filter:    d.filter.Clone(),
	}
}

// Refresh fetches the current query and replaces the rows, summary and page
// count in one step. A failed fetch is logged and replaced by an empty
// result; it is not returned. Starting a refresh cancels any refresh still in
// flight. A response that arrives after a newer refresh started, or after
// the query inputs changed, is dropped with ErrStale.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.seq++
	id := d.seq
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	q := d.queryLocked()
	d.loading = true
	d.mu.Unlock()
	defer cancel()

	res, err := d.fetcher.Fetch(ctx, q)

	d.mu.Lock()
	defer d.mu.Unlock()
	if id != d.seq {
		return ErrStale
	}
	d.loading = false
	d.cancel = nil

	if err != nil {
		d.logger.Error("Failed to fetch analytics",
			slog.String("query", q.Encode()),
			slog.Any("error", err))
		res = EmptyResult()
	} else if res == nil {
		res = EmptyResult()
	}
	if res.Rows == nil {
		res.Rows = []MetricRow{}
	}

	d.rows = d.rows.With(q.View, res.Rows)
	d.summary = res.Summary
	d.total = res.Total
	d.pager.SetTotalPages(res.TotalPages)

	if err == nil && !d.ceilingSeeded && len(res.Rows) > 0 {
		for _, row := range res.Rows {
			d.maxViewsCeiling = max(d.maxViewsCeiling, row.Count)
		}
		d.ceilingSeeded = true
	}
	return nil
}

// Rows returns the active view's rows after the local filter and ordering.
func (d *Dashboard) Rows() []MetricRow {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ApplyFilterLabeled(d.rows.Get(d.view), d.view, d.filter, d.sort, d.labeler)
}

// Derived returns all three views' rows after the local filter and ordering.
func (d *Dashboard) Derived() RowSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DeriveLabeled(d.rows, d.filter, d.sort, d.labeler)
}

// Snapshot builds the export for the data currently in memory.
func (d *Dashboard) Snapshot(now time.Time) Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return NewSnapshot(d.timeRange, d.summary, DeriveLabeled(d.rows, d.filter, d.sort, d.labeler), now)
}

// State returns a consistent copy of the dashboard for rendering.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		TimeRange:       d.timeRange,
		View:            d.view,
		Sort:            d.sort,
		Filter:          d.filter.Clone(),
		Page:            d.pager.State(),
		Summary:         d.summary,
		Rows:            ApplyFilterLabeled(d.rows.Get(d.view), d.view, d.filter, d.sort, d.labeler),
		Total:           d.total,
		Loading:         d.loading,
		Empty:           d.pager.Empty(),
		MaxViewsCeiling: d.maxViewsCeiling,
	}
}
