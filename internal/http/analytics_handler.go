package http

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/analytics"
	"folio/internal/pkg/async"
	"folio/internal/timeframe"
	"folio/pkg/dashboard"
)

// MaxPageSize caps the limit parameter.
const MaxPageSize = 100

// queryValues copies the request query string, keeping repeated keys.
func queryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}

// AnalyticsIndexAction serves GET /api/analytics: one page of the requested
// breakdown plus the summary for the whole range.
func (a *API) AnalyticsIndexAction(ctx *cartridge.Context) error {
	q := dashboard.ParseQuery(queryValues(ctx.Ctx))
	q.PageSize = min(q.PageSize, MaxPageSize)

	tf, err := timeframe.NewTimeFrameParser(a.Clock).ParseRange(string(q.TimeRange))
	if err != nil {
		return errorJSON(ctx, fiber.StatusBadRequest, err.Error())
	}

	db := ctx.DBManager.GetConnection()
	if db == nil {
		return errorJSON(ctx, fiber.StatusServiceUnavailable, "database unavailable")
	}

	tasks := []async.Task{
		{
			Name: "breakdown",
			Execute: func(c context.Context) (any, error) {
				return analytics.GetBreakdown(db.WithContext(c), analytics.BreakdownParams{TimeFrame: tf, Query: q})
			},
		},
		{
			Name: "summary",
			Execute: func(c context.Context) (any, error) {
				return analytics.GetSummary(db.WithContext(c), tf)
			},
		},
	}
	results := async.NewPool(len(tasks)).Execute(ctx.UserContext(), tasks)

	for _, name := range []string{"breakdown", "summary"} {
		if err := results[name].Err; err != nil {
			ctx.Logger.Error("Failed to fetch analytics",
				slog.String("task", name),
				slog.String("query", q.Encode()),
				slog.Any("error", err))
			return errorJSON(ctx, fiber.StatusInternalServerError, "failed to fetch analytics")
		}
	}

	breakdown := results["breakdown"].Data.(*analytics.Breakdown)
	summary := results["summary"].Data.(dashboard.SummaryStats)

	items := make([]dashboard.Item, len(breakdown.Items))
	for i, r := range breakdown.Items {
		items[i] = dashboard.NewItem(q.View, dashboard.MetricRow{DimensionValue: r.Name, Count: int(r.Count)})
	}

	return ctx.JSON(dashboard.Response{
		Items:      items,
		Total:      breakdown.Total,
		Page:       breakdown.Page,
		TotalPages: breakdown.TotalPages,
		Summary:    summary,
	})
}
