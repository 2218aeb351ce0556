package analytics

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"folio/internal/pkg/countries"
	"folio/internal/timeframe"
	"folio/pkg/dashboard"
)

// BreakdownParams scopes a breakdown to a time frame and a dashboard query.
type BreakdownParams struct {
	TimeFrame *timeframe.TimeFrame
	Query     dashboard.Query
}

// Breakdown is one page of per-dimension counts.
type Breakdown struct {
	Items      []MetricCountResult
	Total      int
	Page       int
	TotalPages int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GetBreakdown returns page views grouped by the query's dimension with the
// search, selection and count bounds applied in SQL. Total counts every
// matching bucket, not just the returned page.
func GetBreakdown(db *gorm.DB, params BreakdownParams) (*Breakdown, error) {
	if params.TimeFrame == nil {
		return nil, fmt.Errorf("breakdown requires a time frame")
	}
	q := params.Query
	page := max(q.Page, 1)
	limit := q.PageSize
	if limit < 1 {
		limit = dashboard.DefaultPageSize
	}

	base, args := breakdownSQL(q, params.TimeFrame)

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS buckets", base)
	if err := db.Raw(countQuery, args...).Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("error counting %s breakdown: %w", q.View, err)
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	// Past the end serves the last page; this also keeps the offset in range.
	page = min(page, max(totalPages, 1))

	var rows []struct {
		Name  string
		Count int64
	}
	pageQuery := fmt.Sprintf("SELECT name, count FROM (%s) AS buckets ORDER BY %s LIMIT ? OFFSET ?",
		base, orderBy(q.Sort))
	pageArgs := append(append([]any{}, args...), limit, (page-1)*limit)
	if err := db.Raw(pageQuery, pageArgs...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error fetching %s breakdown: %w", q.View, err)
	}

	items := make([]MetricCountResult, len(rows))
	for i, r := range rows {
		items[i] = MetricCountResult{Name: r.Name, Count: r.Count}
	}

	return &Breakdown{
		Items:      items,
		Total:      int(total),
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

func breakdownSQL(q dashboard.Query, tf *timeframe.TimeFrame) (string, []any) {
	dim := DimensionFor(q.View)
	col := dim.Column

	var sb strings.Builder
	args := []any{tf.From.UTC(), tf.To.UTC()}

	fmt.Fprintf(&sb, "SELECT %s AS name, SUM(page_views_count) AS count FROM %s WHERE hour BETWEEN ? AND ?", col, dim.Table)

	if term := strings.ToLower(strings.TrimSpace(q.Filter.SearchTerm)); term != "" {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		if codes := countryCodes(q.View, term); len(codes) > 0 {
			fmt.Fprintf(&sb, ` AND (LOWER(%s) LIKE ? ESCAPE '\' OR %s IN ?)`, col, col)
			args = append(args, pattern, codes)
		} else {
			fmt.Fprintf(&sb, ` AND LOWER(%s) LIKE ? ESCAPE '\'`, col)
			args = append(args, pattern)
		}
	}

	if selected := q.Filter.SelectedDimensionValues(q.View); len(selected) > 0 {
		fmt.Fprintf(&sb, " AND %s IN ?", col)
		args = append(args, selected.Sorted())
	}

	fmt.Fprintf(&sb, " GROUP BY %s HAVING count > 0", col)
	if q.Filter.MinCount > 0 {
		sb.WriteString(" AND count >= ?")
		args = append(args, q.Filter.MinCount)
	}
	if q.Filter.MaxCount > 0 {
		sb.WriteString(" AND count <= ?")
		args = append(args, q.Filter.MaxCount)
	}

	return sb.String(), args
}

// countryCodes widens a country search to codes whose name matches, so
// "germ" finds rows stored as "DE".
func countryCodes(v dashboard.View, term string) []string {
	if v != dashboard.ViewCountries {
		return nil
	}
	return countries.MatchCodes(term)
}

func orderBy(s dashboard.SortSpec) string {
	dir := "DESC"
	if s.Direction == dashboard.Asc {
		dir = "ASC"
	}
	if s.Field == dashboard.SortByDimension {
		return fmt.Sprintf("LOWER(name) %s, name %s", dir, dir)
	}
	return fmt.Sprintf("count %s, LOWER(name) ASC", dir)
}
