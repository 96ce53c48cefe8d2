package cmd

import (
	"context"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/assistant"
	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/schemaindex"
)

func ContextCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "context",
		Usage:     "Preview the dictionary entries retrieved for a question",
		ArgsUsage: "<question>",
		Description: `Show the retrieval mode (embedding or keyword) and the top-k data dictionary
entries that would be added to the generator prompt. With --role, entries the
role may not read are left out, exactly as when answering.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Usage: "filter entries by this role's grants"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			question, err := questionArg(cmd)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return runContext(ctx, out, cfg, question, cmd.String("role"))
		},
	}
}

func runContext(ctx context.Context, out io.Writer, cfg *config.Config, question, role string) error {
	app, err := assistant.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	var results []schemaindex.Result
	if role == "" {
		results = app.Index().Search(ctx, question, app.TopK())
	} else {
		results = assistant.New(app).Context(ctx, question, role)
	}

	return newFormatter(out).Context(app.Index().Mode(), results)
}
