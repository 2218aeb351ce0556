package dashboard

import (
	"net/url"
	"strconv"
	"strings"
)

// Query is everything the server needs to produce one page of a breakdown.
type Query struct {
	TimeRange TimeRange
	View      View
	Page      int
	PageSize  int
	Sort      SortSpec
	Filter    FilterState
}

// Encode serializes the query. Parameter order is fixed and selection values
// are sorted, so equal queries always produce byte-identical strings.
func (q Query) Encode() string {
	var b strings.Builder
	add := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.PageSize
	if limit < 1 {
		limit = DefaultPageSize
	}
	sortSpec := q.Sort
	if sortSpec.Field == "" {
		sortSpec = DefaultSort()
	}
	if sortSpec.Direction == "" {
		sortSpec.Direction = Desc
	}

	add("range", string(q.TimeRange))
	add("view", string(q.View))
	add("page", strconv.Itoa(page))
	add("limit", strconv.Itoa(limit))
	add("sortField", sortSpec.WireField(q.View))
	add("sortDirection", string(sortSpec.Direction))
	for _, v := range q.Filter.SelectedCountries.Sorted() {
		add("selectedCountries", v)
	}
	for _, v := range q.Filter.SelectedDevices.Sorted() {
		add("selectedDevices", v)
	}
	for _, v := range q.Filter.SelectedPages.Sorted() {
		add("selectedPages", v)
	}
	if term := strings.TrimSpace(q.Filter.SearchTerm); term != "" {
		add("searchTerm", term)
	}
	if q.Filter.MinCount > 0 {
		add("minViews", strconv.Itoa(q.Filter.MinCount))
	}
	if q.Filter.MaxCount > 0 {
		add("maxViews", strconv.Itoa(q.Filter.MaxCount))
	}
	return b.String()
}

// ParseQuery reads a query back from request parameters. Invalid or missing
// values fall back to the defaults a fresh dashboard would send.
func ParseQuery(values url.Values) Query {
	q := Query{
		TimeRange: Range7Days,
		View:      ViewCountries,
		Page:      1,
		PageSize:  DefaultPageSize,
		Sort:      DefaultSort(),
	}

	if r, err := ParseTimeRange(values.Get("range")); err == nil {
		q.TimeRange = r
	}
	if v, err := ParseView(values.Get("view")); err == nil {
		q.View = v
	}
	if n := positiveInt(values.Get("page")); n > 0 {
		q.Page = n
	}
	if n := positiveInt(values.Get("limit")); n > 0 {
		q.PageSize = n
	}

	switch field := values.Get("sortField"); field {
	case string(SortByCount):
		q.Sort.Field = SortByCount
	case q.View.Dimension(), string(SortByDimension):
		q.Sort.Field = SortByDimension
	}
	switch Direction(values.Get("sortDirection")) {
	case Asc:
		q.Sort.Direction = Asc
	case Desc:
		q.Sort.Direction = Desc
	}

	q.Filter = FilterState{
		SearchTerm:        strings.TrimSpace(values.Get("searchTerm")),
		SelectedCountries: NewSet(values["selectedCountries"]...),
		SelectedDevices:   NewSet(values["selectedDevices"]...),
		SelectedPages:     NewSet(values["selectedPages"]...),
		MinCount:          positiveInt(values.Get("minViews")),
		MaxCount:          positiveInt(values.Get("maxViews")),
	}
	return q
}

func positiveInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
