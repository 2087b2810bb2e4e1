package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/onsell/automation/pkg/log"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("automation-api")

	cmd := &cli.Command{
		Name:                  "automation-api",
		Usage:                 "Manage automations and campaigns",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "task-bus",
				Usage:    "Task bus provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("TASK_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "crm-api-url",
				Usage:    "Base URL of the CRM internal API",
				Required: true,
				Sources:  cli.EnvVars("CRM_API_URL"),
			},
			&cli.StringFlag{
				Name:    "crm-api-key",
				Usage:   "API key for the CRM internal API",
				Sources: cli.EnvVars("CRM_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing automation API")

			return runAPI(ctx, command, logger)
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
