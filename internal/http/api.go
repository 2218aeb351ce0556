package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"folio/internal/events"
	"folio/internal/timeframe"
)

// API holds what the /api handlers need beyond the cartridge context.
type API struct {
	Collector *events.Collector
	Clock     timeframe.TimeProvider
}

// errorJSON writes {"error": msg} with the given status.
func errorJSON(ctx *cartridge.Context, status int, msg string) error {
	return ctx.Status(status).JSON(fiber.Map{"error": msg})
}
