package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/you112ef/sim-sub002/pkg/log"
	"github.com/you112ef/sim-sub002/pkg/workflow"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Compile a workflow file without executing it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflow file (JSON or YAML)",
				Required: true,
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			doc, err := workflow.Load(command.String("file"))
			if err != nil {
				return err
			}

			plan, err := workflow.Compile(doc, workflow.CompileInput{}, log.WithModule("cli"))
			if err != nil {
				return err
			}

			fmt.Printf("%s is valid: %d blocks, %d edges, %d containers\n",
				command.String("file"),
				len(plan.Blocks),
				len(plan.Edges),
				len(plan.Loops)+len(plan.Parallels)+len(plan.Whiles))

			return nil
		},
	}
}
