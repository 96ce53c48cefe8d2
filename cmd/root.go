package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
)

// Execute runs the command line against os.Args and reports any error on stderr
func Execute() error {
	err := NewRootCommand(os.Stdout).Run(context.Background(), os.Args)
	if err != nil {
		printError(os.Stderr, err)
	}

	return err
}

// NewRootCommand builds the askdb command tree writing results to out
func NewRootCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "askdb",
		Usage: "Ask questions of a SQLite database in plain language, limited to what your role may read",
		Description: `askdb turns a question into a single read-only SQL statement, checks it against
the role's table and column grants, runs it and summarizes the result.

Examples:
  askdb ask --role Teller "show the last ten transactions"
  askdb roles Teller
  askdb context --role Manager "loan amounts by branch"`,
		Flags: globalFlags(),
		Commands: []*cli.Command{
			AskCommand(out),
			RolesCommand(out),
			ContextCommand(out),
			StatusCommand(out),
			HistoryCommand(out),
			ConfigCommand(out),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "db", Usage: "path to the SQLite database"},
		&cli.StringFlag{Name: "dictionary", Usage: "path to the data dictionary (xlsx or csv)"},
		&cli.StringFlag{Name: "policy", Usage: "path to the role access policy (xlsx, csv or yaml)"},
		&cli.StringFlag{Name: "provider", Usage: "SQL generation provider: none, openai, anthropic, ollama, local"},
		&cli.IntFlag{Name: "top-k", Usage: "dictionary entries retrieved per question"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		&cli.BoolFlag{Name: "no-history", Usage: "do not read or record answer history"},
	}
}

// loadConfig merges flag overrides into the layered configuration and
// initializes logging from the result
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	overrides := make(map[string]interface{})

	for _, name := range []string{"db", "dictionary", "policy", "provider", "log-level"} {
		if cmd.IsSet(name) {
			overrides[name] = cmd.String(name)
		}
	}

	if cmd.IsSet("top-k") {
		overrides["top-k"] = cmd.Int("top-k")
	}

	if cmd.Bool("verbose") {
		overrides["verbose"] = true
	}

	if cmd.Bool("no-history") {
		overrides["no-history"] = true
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration").
			WithSuggestion("run 'askdb config' to inspect the effective settings")
	}

	if cfg.Debug.Verbose {
		cfg.Logging.Level = "debug"
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to initialize logging")
	}

	return cfg, nil
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var structured *errors.Error
	if stderrors.As(err, &structured) {
		for _, suggestion := range structured.Suggestions {
			fmt.Fprintf(w, "  hint: %s\n", suggestion)
		}
	}
}
