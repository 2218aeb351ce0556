package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/events"
)

// TrackRequest is the beacon body for POST /api/track.
type TrackRequest struct {
	Type            string `json:"type"`
	Path            string `json:"path"`
	DurationSeconds int    `json:"durationSeconds"`
}

// TrackCreateAction records a page view or a visit duration.
func (a *API) TrackCreateAction(ctx *cartridge.Context) error {
	var req TrackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errorJSON(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	err := a.Collector.Collect(events.TrackInput{
		IPAddress:       ctx.IP(),
		UserAgent:       ctx.Get(fiber.HeaderUserAgent),
		Type:            events.EventType(req.Type),
		Path:            req.Path,
		DurationSeconds: req.DurationSeconds,
	})
	switch {
	case errors.Is(err, events.ErrInvalidEvent):
		return errorJSON(ctx, fiber.StatusBadRequest, err.Error())
	case err != nil:
		return errorJSON(ctx, fiber.StatusInternalServerError, "failed to record event")
	}

	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "ok"})
}
