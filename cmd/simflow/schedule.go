package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/you112ef/sim-sub002/pkg/log"
)

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:    "schedule",
		Aliases: []string{"s"},
		Usage:   "Execute a workflow file on a cron schedule until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflow file (JSON or YAML)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "cron",
				Usage:    "Cron expression, e.g. \"*/5 * * * *\"",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "input",
				Usage: "Initial input as a JSON object",
			},
			&cli.StringSliceFlag{
				Name:  "var",
				Usage: "Workflow variable as key=value (repeatable)",
			},
			&cli.StringFlag{
				Name:  "start-block",
				Usage: "Start execution from this block instead of the entry blocks",
			},
			&cli.StringFlag{
				Name:  "sibling-policy",
				Usage: "Failure policy for in-flight siblings (drain, abort)",
				Value: "drain",
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Emit OpenTelemetry spans for block executions",
				Sources: cli.EnvVars("SIMFLOW_TRACING"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("cli")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scheduler := cron.New()

			_, err := scheduler.AddFunc(command.String("cron"), func() {
				result, err := runWorkflow(ctx, command)
				if err != nil {
					logger.Error("Scheduled execution failed", "error", err)

					return
				}

				logger.Info("Scheduled execution finished",
					"execution_id", result.ExecutionID,
					"success", result.Success,
					"duration", result.Duration)
			})
			if err != nil {
				return err
			}

			logger.Info("Scheduler started", "cron", command.String("cron"), "file", command.String("file"))

			scheduler.Start()
			<-ctx.Done()

			<-scheduler.Stop().Done()

			return nil
		},
	}
}
