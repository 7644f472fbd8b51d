package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/you112ef/sim-sub002/pkg/executor"
	"github.com/you112ef/sim-sub002/pkg/log"
	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/otelhelper"
	"github.com/you112ef/sim-sub002/pkg/registry"
	"github.com/you112ef/sim-sub002/pkg/services"
	"github.com/you112ef/sim-sub002/pkg/workflow"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute a workflow file and print the result",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflow file (JSON or YAML)",
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

			result, err := runWorkflow(ctx, command)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			if err := encoder.Encode(result); err != nil {
				return err
			}

			if !result.Success {
				return fmt.Errorf("execution %s failed: %s", result.ExecutionID, result.Error.Message)
			}

			return nil
		},
	}
}

func runWorkflow(ctx context.Context, command *cli.Command) (*models.ExecutionResult, error) {
	logger := log.WithModule("cli")

	doc, err := workflow.Load(command.String("file"))
	if err != nil {
		return nil, err
	}

	input, err := parseInput(command.String("input"))
	if err != nil {
		return nil, err
	}

	variables, err := parseVariables(command.StringSlice("var"))
	if err != nil {
		return nil, err
	}

	plan, err := workflow.Compile(doc, workflow.CompileInput{Variables: variables}, logger)
	if err != nil {
		return nil, err
	}

	options := executor.Options{SiblingPolicy: executor.SiblingPolicy(command.String("sibling-policy"))}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "simflow")
		if err != nil {
			return nil, err
		}

		options.Tracer = tracer
	}

	exec := executor.New(registry.NewDefaultRegistry(logger), &services.ProcessEnvironment{}, nil, nil, logger, options)

	return exec.Execute(ctx, plan, executor.RunInput{
		WorkflowID:   doc.ID,
		Input:        input,
		Variables:    variables,
		StartBlockID: command.String("start-block"),
	})
}

func parseInput(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("invalid --input JSON: %w", err)
	}

	return input, nil
}

func parseVariables(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	variables := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", pair)
		}

		variables[key] = value
	}

	return variables, nil
}
