package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"folio/internal/pkg/countries"
	"folio/pkg/dashboard"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

var titleCaser = cases.Title(language.English)

// displayValue turns a stored dimension value into what the table shows.
func displayValue(v dashboard.View, value string) string {
	switch v {
	case dashboard.ViewCountries:
		return countries.Name(value)
	case dashboard.ViewDevices:
		return titleCaser.String(value)
	default:
		return value
	}
}

func dimensionHeader(v dashboard.View) string {
	switch v {
	case dashboard.ViewPages:
		return "Page"
	case dashboard.ViewDevices:
		return "Device"
	default:
		return "Country"
	}
}

// renderReport writes the summary, the rows of the current page and the
// pager line.
func renderReport(w io.Writer, s dashboard.State, width int) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Views by %s (%s)", s.View.Dimension(), s.TimeRange)))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d views, %d unique visitors, avg %.0fs",
		s.Summary.TotalViews, s.Summary.UniqueVisitors, s.Summary.AvgDurationSeconds)))

	if s.Empty {
		fmt.Fprintln(w, "No analytics data yet")
		return
	}
	if len(s.Rows) == 0 {
		// The server has data but the local search or bounds hide this page.
		fmt.Fprintln(w, "No matching rows")
		renderPager(w, s)
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(dimensionHeader(s.View), "Views", "Share").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col > 0:
				return numberStyle
			default:
				return cellStyle
			}
		})
	if width > 0 {
		t = t.Width(min(width, 100))
	}
	for _, row := range s.Rows {
		t.Row(displayValue(s.View, row.DimensionValue), strconv.Itoa(row.Count), dashboard.FormatShare(row, s.Rows))
	}
	fmt.Fprintln(w, t.String())
	renderPager(w, s)
}

func renderPager(w io.Writer, s dashboard.State) {
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Page %d of %d (%d total)",
		s.Page.CurrentPage, max(s.Page.TotalPages, 1), s.Total)))
}
