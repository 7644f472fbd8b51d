package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/you112ef/sim-sub002/pkg/config"
	"github.com/you112ef/sim-sub002/pkg/log"
)

func main() {
	logger := log.WithModule("api")

	app := &cli.Command{
		Name:                  "simflow-api",
		Usage:                 "Run the workflow execution API server",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the simflow configuration file",
				Sources: cli.EnvVars("SIMFLOW_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on (overrides config)",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Emit OpenTelemetry spans for block executions",
				Sources: cli.EnvVars("SIMFLOW_TRACING"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := config.Load(command.String("config"))
			if err != nil {
				return err
			}

			if command.IsSet("log-level") {
				cfg.LogLevel = command.String("log-level")
			}

			if command.IsSet("port") {
				cfg.API.Port = command.Int("port")
			}

			log.Setup(cfg.LogLevel)

			logger.InfoContext(ctx, "Initializing simflow API")

			api, cleanup, err := NewAPI(ctx, logger, cfg, command.Bool("tracing"))
			if err != nil {
				return err
			}
			defer cleanup()

			return api.Start(cfg.API.Port)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error("simflow-api failed", "error", err)
		os.Exit(1)
	}
}
