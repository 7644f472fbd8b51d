// Package main provides the simflow API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/you112ef/sim-sub002/pkg/cmd"
	"github.com/you112ef/sim-sub002/pkg/config"
	"github.com/you112ef/sim-sub002/pkg/executor"
	"github.com/you112ef/sim-sub002/pkg/otelhelper"
	"github.com/you112ef/sim-sub002/pkg/registry"
	"github.com/you112ef/sim-sub002/pkg/services"
	"github.com/you112ef/sim-sub002/pkg/web"
)

type API struct {
	logger   *slog.Logger
	executor *executor.Executor
	store    services.ExecutionStore
	registry *registry.Registry
	validate *validator.Validate
}

// NewAPI wires the execution stack from the configuration. The returned
// cleanup closes the store and event bus.
func NewAPI(ctx context.Context, logger *slog.Logger, cfg config.Config, tracing bool) (*API, func(), error) {
	reg := registry.NewDefaultRegistry(logger)

	store, err := cmd.NewExecutionStore(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}

	eventBus, err := cmd.NewEventBus(cfg.EventBus, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	options := executor.Options{SiblingPolicy: executor.SiblingPolicy(cfg.Executor.SiblingPolicy)}

	if tracing {
		tracer, err := otelhelper.NewTracer(ctx, "simflow-api")
		if err != nil {
			_ = store.Close()
			_ = eventBus.Close()

			return nil, nil, err
		}

		options.Tracer = tracer
	}

	session := services.NewEventBusLoggingSession(eventBus, logger)
	exec := executor.New(reg, nil, nil, session, logger, options)

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close execution store", "error", err)
		}

		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}

	return &API{
		logger:   logger,
		executor: exec,
		store:    store,
		registry: reg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, cleanup, nil
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.executor, a.store, a.validate, a.registry, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Simflow API")
	})

	app.Post("/executions", handlers.ExecuteWorkflow)
	app.Get("/executions/:id", handlers.GetExecution)
	app.Post("/workflows/validate", handlers.ValidateWorkflow)
	app.Get("/blocks", handlers.ListBlockTypes)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
