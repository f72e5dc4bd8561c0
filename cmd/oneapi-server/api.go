package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/oneapi/pkg/metrics"
	"github.com/dukex/oneapi/pkg/web"
)

type API struct {
	logger    *slog.Logger
	handlers  *web.APIHandlers
	collector *metrics.Collector
}

func NewAPI(logger *slog.Logger, handlers *web.APIHandlers, collector *metrics.Collector) *API {
	return &API{
		logger:    logger,
		handlers:  handlers,
		collector: collector,
	}
}

func (a *API) App() *fiber.App {
	app := fiber.New(web.AppConfig())
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: a.handlers.Ready,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("OneAPI")
	})

	app.Get("/metrics", adaptor.HTTPHandler(a.collector.Handler()))

	a.handlers.Routes(app)

	return app
}

// Start serves until ctx is cancelled. In-flight executions stop polling
// as soon as shutdown begins.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	stop := context.AfterFunc(ctx, a.handlers.Shutdown)
	defer stop()

	a.logger.InfoContext(ctx, "Starting OneAPI server", "port", port)

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	})
}
