package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"folio/internal/config"
	"folio/internal/pkg/countries"
	"folio/pkg/dashboard"
)

// queryFlags are the filter inputs shared by report and export.
type queryFlags struct {
	url         string
	token       string
	promptToken bool
	timeRange   string
	view        string
	search      string
	countries   string
	devices     string
	pages       string
	minViews    int
	maxViews    int
	sortField   string
	sortDir     string
	page        int
	limit       int
}

func (q *queryFlags) register(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&q.url, "url", cfg.DashboardURL, "folio server URL")
	fs.StringVar(&q.token, "token", cfg.APIToken, "API token")
	fs.BoolVar(&q.promptToken, "prompt-token", false, "read the API token from the terminal")
	fs.StringVar(&q.timeRange, "range", string(dashboard.Range7Days), "time range: 24h, 7d, 30d or all")
	fs.StringVar(&q.view, "view", string(dashboard.ViewCountries), "breakdown: countries, pages or devices")
	fs.StringVar(&q.search, "search", "", "case-insensitive search term")
	fs.StringVar(&q.countries, "countries", "", "comma-separated country codes to include")
	fs.StringVar(&q.devices, "devices", "", "comma-separated device types to include")
	fs.StringVar(&q.pages, "pages", "", "comma-separated paths to include")
	fs.IntVar(&q.minViews, "min", 0, "minimum views")
	fs.IntVar(&q.maxViews, "max", 0, "maximum views")
	fs.StringVar(&q.sortField, "sort", string(dashboard.SortByCount), "sort by: count or dimension")
	fs.StringVar(&q.sortDir, "dir", string(dashboard.Desc), "sort direction: asc or desc")
	fs.IntVar(&q.page, "page", 1, "page to show")
	fs.IntVar(&q.limit, "limit", cfg.PageSize, "rows per page")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (q *queryFlags) filter() FilterInput {
	return FilterInput{
		Search:    q.search,
		Countries: splitList(strings.ToUpper(q.countries)),
		Devices:   splitList(strings.ToLower(q.devices)),
		Pages:     splitList(q.pages),
		Min:       q.minViews,
		Max:       q.maxViews,
	}
}

// FilterInput is the user's filter as typed on the command line.
type FilterInput struct {
	Search    string
	Countries []string
	Devices   []string
	Pages     []string
	Min       int
	Max       int
}

// State converts the input to the dashboard's filter state.
func (f FilterInput) State() dashboard.FilterState {
	return dashboard.FilterState{
		SearchTerm:        f.Search,
		SelectedCountries: dashboard.NewSet(f.Countries...),
		SelectedDevices:   dashboard.NewSet(f.Devices...),
		SelectedPages:     dashboard.NewSet(f.Pages...),
		MinCount:          max(f.Min, 0),
		MaxCount:          max(f.Max, 0),
	}
}

func (q *queryFlags) sort() (dashboard.SortSpec, error) {
	spec := dashboard.DefaultSort()
	switch dashboard.SortField(q.sortField) {
	case dashboard.SortByCount, dashboard.SortByDimension:
		spec.Field = dashboard.SortField(q.sortField)
	default:
		return spec, fmt.Errorf("invalid sort field: %q", q.sortField)
	}
	switch dashboard.Direction(q.sortDir) {
	case dashboard.Asc, dashboard.Desc:
		spec.Direction = dashboard.Direction(q.sortDir)
	default:
		return spec, fmt.Errorf("invalid sort direction: %q", q.sortDir)
	}
	return spec, nil
}

// resolveToken returns the configured token, prompting without echo when
// asked to.
func (q *queryFlags) resolveToken() (string, error) {
	if !q.promptToken {
		return q.token, nil
	}
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("cannot prompt for token: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "API token: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (q *queryFlags) client(cfg *config.Config) (*dashboard.Client, error) {
	token, err := q.resolveToken()
	if err != nil {
		return nil, err
	}
	return dashboard.NewClient(q.url,
		dashboard.WithSessionProvider(dashboard.StaticSession(token)),
		dashboard.WithTimeout(cfg.ClientTimeout())), nil
}

// countryLabeler lets a search for a country name match its stored code.
func countryLabeler(v dashboard.View, value string) string {
	if v != dashboard.ViewCountries {
		return ""
	}
	return countries.Label(value)
}

// ReportCommand prints one page of a breakdown as a table
type ReportCommand struct{}

func (c *ReportCommand) Name() string        { return "report" }
func (c *ReportCommand) Description() string { return "Prints a filtered breakdown from a folio server" }

func (c *ReportCommand) Execute(ctx context.Context, env *Env, args []string) error {
	var q queryFlags
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	q.register(fs, env.Config)
	if err := fs.Parse(args); err != nil {
		return err
	}

	timeRange, err := dashboard.ParseTimeRange(q.timeRange)
	if err != nil {
		return err
	}
	view, err := dashboard.ParseView(q.view)
	if err != nil {
		return err
	}
	sortSpec, err := q.sort()
	if err != nil {
		return err
	}
	client, err := q.client(env.Config)
	if err != nil {
		return err
	}

	d := dashboard.NewDashboard(client,
		dashboard.WithLogger(env.Logger),
		dashboard.WithLabeler(countryLabeler),
		dashboard.WithPageSize(q.limit),
		dashboard.WithTimeRange(timeRange),
		dashboard.WithView(view))
	d.SetFilter(q.filter().State())
	// Sorting is driven like header clicks: switch column, then flip.
	if d.State().Sort.Field != sortSpec.Field {
		d.ToggleSort(sortSpec.Field)
	}
	if d.State().Sort.Direction != sortSpec.Direction {
		d.ToggleSort(sortSpec.Field)
	}

	// The first fetch learns the page count; jumping needs a second one.
	if err := d.Refresh(ctx); err != nil {
		return err
	}
	if q.page > 1 {
		d.GoToPage(q.page)
		if err := d.Refresh(ctx); err != nil {
			return err
		}
	}

	renderReport(os.Stdout, d.State(), terminalWidth())
	return nil
}

// ExportCommand writes all three breakdowns to a JSON file
type ExportCommand struct{}

func (c *ExportCommand) Name() string        { return "export" }
func (c *ExportCommand) Description() string { return "Exports all breakdowns to a JSON file" }

func (c *ExportCommand) Execute(ctx context.Context, env *Env, args []string) error {
	var q queryFlags
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	q.register(fs, env.Config)
	dir := fs.String("out", env.Config.ExportDir, "directory to write the export to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	timeRange, err := dashboard.ParseTimeRange(q.timeRange)
	if err != nil {
		return err
	}
	sortSpec, err := q.sort()
	if err != nil {
		return err
	}
	client, err := q.client(env.Config)
	if err != nil {
		return err
	}

	filter := q.filter().State()
	snapshot, err := exportSnapshot(ctx, client, timeRange, filter, sortSpec, time.Now().UTC())
	if err != nil {
		return err
	}
	path, err := snapshot.WriteFile(*dir)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d countries, %d pages and %d devices to %s\n",
		len(snapshot.Countries), len(snapshot.Pages), len(snapshot.Devices), path)
	return nil
}

// exportSnapshot fetches every page of every view concurrently and applies
// the local filter to the combined rows.
func exportSnapshot(ctx context.Context, f dashboard.Fetcher, r dashboard.TimeRange, filter dashboard.FilterState, s dashboard.SortSpec, now time.Time) (dashboard.Snapshot, error) {
	views := []dashboard.View{dashboard.ViewCountries, dashboard.ViewPages, dashboard.ViewDevices}
	results := make([][]dashboard.MetricRow, len(views))
	var summary dashboard.SummaryStats

	g, gctx := errgroup.WithContext(ctx)
	for i, view := range views {
		g.Go(func() error {
			rows, stats, err := fetchAll(gctx, f, dashboard.Query{
				TimeRange: r,
				View:      view,
				PageSize:  exportPageSize,
				Sort:      s,
				Filter:    filter,
			})
			if err != nil {
				return fmt.Errorf("export %s: %w", view, err)
			}
			results[i] = rows
			if i == 0 {
				summary = stats
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dashboard.Snapshot{}, err
	}

	var rows dashboard.RowSet
	for i, view := range views {
		rows = rows.With(view, results[i])
	}
	derived := dashboard.DeriveLabeled(rows, filter, s, countryLabeler)
	return dashboard.NewSnapshot(r, summary, derived, now), nil
}

const exportPageSize = 100

func fetchAll(ctx context.Context, f dashboard.Fetcher, q dashboard.Query) ([]dashboard.MetricRow, dashboard.SummaryStats, error) {
	var rows []dashboard.MetricRow
	var summary dashboard.SummaryStats
	for page := 1; ; page++ {
		q.Page = page
		res, err := f.Fetch(ctx, q)
		if err != nil {
			return nil, summary, err
		}
		rows = append(rows, res.Rows...)
		summary = res.Summary
		if page >= res.TotalPages {
			return rows, summary, nil
		}
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 100
	}
	return width
}
