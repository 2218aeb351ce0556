package dashboard

// Pager tracks the current page of a paginated table. Requests outside the
// valid range are clamped rather than rejected.
type Pager struct {
	current    int
	totalPages int
	pageSize   int
}

// NewPager starts on page 1 with no known pages.
func NewPager(pageSize int) *Pager {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Pager{current: 1, pageSize: pageSize}
}

// Current returns the 1-based current page.
func (p *Pager) Current() int { return p.current }

// TotalPages returns the page count reported by the last fetch.
func (p *Pager) TotalPages() int { return p.totalPages }

// PageSize returns the fixed page size.
func (p *Pager) PageSize() int { return p.pageSize }

// Empty reports that there is nothing to paginate.
func (p *Pager) Empty() bool { return p.totalPages == 0 }

// Next advances one page, stopping at the last page.
func (p *Pager) Next() { p.GoTo(p.current + 1) }

// Previous goes back one page, stopping at page 1.
func (p *Pager) Previous() { p.GoTo(p.current - 1) }

// GoTo jumps to page n, clamped to [1, TotalPages].
func (p *Pager) GoTo(n int) {
	p.current = p.clamp(n)
}

// Reset returns to page 1. It is fired whenever the filter, ordering or view
// changes.
func (p *Pager) Reset() {
	p.current = 1
}

// SetTotalPages records the server's page count and re-clamps the current
// page into range.
func (p *Pager) SetTotalPages(n int) {
	if n < 0 {
		n = 0
	}
	p.totalPages = n
	p.current = p.clamp(p.current)
}

// State returns a copy of the pagination state.
func (p *Pager) State() PageState {
	return PageState{CurrentPage: p.current, TotalPages: p.totalPages, PageSize: p.pageSize}
}

func (p *Pager) clamp(n int) int {
	if n > p.totalPages {
		n = p.totalPages
	}
	if n < 1 {
		n = 1
	}
	return n
}
