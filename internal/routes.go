package internal

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"folio/internal/config"
	"folio/internal/http"
	"folio/internal/http/middleware"
)

// publicCORSConfig is shared by the API endpoints so the dashboard and the
// tracking beacon can call them cross-origin.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// ServerConfig returns cartridge's server defaults adjusted for a JSON API.
// Core dependencies are injected by the caller.
func ServerConfig() *cartridge.ServerConfig {
	serverCfg := cartridge.DefaultServerConfig()
	serverCfg.EnableTemplates = false
	serverCfg.EnableStaticAssets = false
	// Beacons are posted from the tracked site, so cross-site is expected.
	// Requests without the header are still rejected.
	serverCfg.SecFetchSiteAllowedValues = []string{"cross-site", "same-site", "same-origin"}
	return serverCfg
}

// NewServer builds a cartridge server with every route mounted.
func NewServer(cfg *config.Config, logger *slog.Logger, dbManager cartridge.DBManager, api *http.API) (*cartridge.Server, error) {
	serverCfg := ServerConfig()
	serverCfg.Config = cfg
	serverCfg.Logger = logger
	serverCfg.DBManager = dbManager

	srv, err := cartridge.NewServer(serverCfg)
	if err != nil {
		return nil, err
	}
	MountAppRoutes(srv, cfg, api)
	return srv, nil
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server, cfg *config.Config, api *http.API) {
	// 70/min per IP handles legitimate beacons while preventing abuse.
	// Skipped in development and test.
	publicRateLimiter := cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
		cartridgemiddleware.WithEnv(cfg),
	)

	trackConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CORSConfig:       publicCORSConfig,
		WriteConcurrency: true,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
	}

	analyticsConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CORSConfig:       publicCORSConfig,
		CustomMiddleware: []fiber.Handler{middleware.BearerAuth(cfg.APIToken, srv.GetLogger())},
	}

	preflightConfig := &cartridge.RouteConfig{
		EnableCORS: true,
		CORSConfig: publicCORSConfig,
	}
	preflight := func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}

	// Health check endpoint
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === API ROUTES ===
	srv.Get("/api/analytics", api.AnalyticsIndexAction, analyticsConfig)
	srv.Options("/api/analytics", preflight, preflightConfig)
	srv.Post("/api/track", api.TrackCreateAction, trackConfig)
	srv.Options("/api/track", preflight, preflightConfig)
}
