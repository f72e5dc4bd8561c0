// Package main provides a command that converts editor workflow files into
// executable linear graphs using a live engine's node catalog.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/oneapi/pkg/comfy"
	"github.com/dukex/oneapi/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:  "oneapi-convert",
		Usage: "Convert an editor workflow into an executable workflow",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "engine-url",
				Usage:   "Base URL of the job engine serving /api/object_info",
				Value:   comfy.DefaultBaseURL,
				Sources: cli.EnvVars("ENGINE_URL"),
			},
			&cli.StringFlag{
				Name:     "in",
				Aliases:  []string{"i"},
				Usage:    "Editor workflow JSON file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file (stdout when empty)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			return convertFile(ctx, log.WithModule("convert"), command.String("engine-url"), command.String("in"), command.String("out"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
