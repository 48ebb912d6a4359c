package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/darsbot-api/internal/config"
	"github.com/noah-isme/darsbot-api/internal/handler"
	"github.com/noah-isme/darsbot-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	LeaderboardHandler *handler.LeaderboardHandler
	ReportHandler      *handler.ReportHandler
	ActivityHandler    *handler.ActivityHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.LeaderboardHandler != nil {
		leaderboard := api.Group("/leaderboard", jwtMiddleware)
		deps.LeaderboardHandler.Register(leaderboard)
	}

	if deps.ReportHandler != nil {
		reports := api.Group("", jwtMiddleware)
		deps.ReportHandler.Register(reports)
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity", jwtMiddleware)
		deps.ActivityHandler.Register(activity)
	}
}
