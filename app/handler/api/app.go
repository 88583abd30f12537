package handler

import (
	"log/slog"
	"storefront/app/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	slogfiber "github.com/samber/slog-fiber"
)

// NewApp builds the fiber app both services share. ready backs /ready; /live
// always answers true while the process serves requests.
func NewApp(webLogger *slog.Logger, ready func(c *fiber.Ctx) bool) *fiber.App {
	app := fiber.New()
	app.Use(healthcheck.New(healthcheck.Config{
		LivenessProbe: func(c *fiber.Ctx) bool {
			return true
		},
		LivenessEndpoint:  "/live",
		ReadinessProbe:    ready,
		ReadinessEndpoint: "/ready",
	}))
	app.Use(slogfiber.New(webLogger))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	app.Use(middleware.RequestIDMiddleware())
	return app
}
