package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/you112ef/sim-sub002/pkg/log"
)

func main() {
	logger := log.WithModule("cli")

	app := &cli.Command{
		Name:                  "simflow",
		Usage:                 "Compile and execute workflow files",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			validateCommand(),
			scheduleCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error("simflow failed", "error", err)
		os.Exit(1)
	}
}
