package cmd

import (
	"context"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/assistant"
	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/formatter"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/storage"
)

func AskCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question as a role",
		ArgsUsage: "<question>",
		Description: `Generate a read-only SQL statement for the question, authorize it against the
role's grants, run it and print the statement, a summary and the rows.

Refusals and validation failures are printed as the answer message; they do not
make the command fail.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Usage: "role to answer as", Required: true},
			&cli.BoolFlag{Name: "json", Usage: "print the answer as JSON"},
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

			return runAsk(ctx, out, cfg, question, cmd.String("role"), outputFormat(cmd.Bool("json")))
		},
	}
}

func runAsk(ctx context.Context, out io.Writer, cfg *config.Config, question, role string, format formatter.OutputFormat) error {
	app, err := assistant.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.Policy().HasRole(role) {
		logging.Warnf("role %q is not defined in the access policy", role)
	}

	var opts []assistant.Option

	if history := openHistory(ctx, cfg); history != nil {
		defer history.Close()

		opts = append(opts, assistant.WithHistory(history))
	}

	stop := startSpinner(out, format)
	answer := assistant.New(app, opts...).AnswerQuestion(ctx, question, role)
	stop()

	return newFormatter(out).Answer(answer, format)
}

// openHistory returns nil when history is disabled or cannot be opened;
// answering never depends on it
func openHistory(ctx context.Context, cfg *config.Config) *storage.HistoryStore {
	if !cfg.History.Enabled {
		return nil
	}

	store, err := storage.NewHistoryStoreFromConfig(ctx, cfg.History)
	if err != nil {
		logging.Warnf("answer history unavailable: %v", err)
		return nil
	}

	return store
}

func questionArg(cmd *cli.Command) (string, error) {
	question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if question == "" {
		return "", errors.New(errors.ErrTypeValidation, "a question is required").
			WithSuggestion(`quote the question, e.g. askdb ask --role Teller "recent transactions"`)
	}

	return question, nil
}
