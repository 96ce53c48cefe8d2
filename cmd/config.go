package cmd

import (
	"context"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/config"
)

const redacted = "********"

func ConfigCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the effective configuration after merging defaults, the config file, environment variables and command-line flags. Secrets are redacted.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return runConfig(out, cfg)
		},
	}
}

func runConfig(out io.Writer, cfg *config.Config) error {
	shown := *cfg
	if shown.LLM.APIKey != "" {
		shown.LLM.APIKey = redacted
	}

	return newFormatter(out).JSON(shown)
}
