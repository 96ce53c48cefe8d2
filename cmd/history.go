package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/storage"
)

func HistoryCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "history",
		Usage:       "Show previously answered questions",
		Description: `List recorded answers, newest first. Use --role to show one role's questions and --clear to delete all history.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Usage: "only show this role's questions"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "maximum entries to show", Value: storage.DefaultHistoryLimit},
			&cli.BoolFlag{Name: "clear", Usage: "delete all recorded history"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if !cfg.History.Enabled {
				return errors.New(errors.ErrTypeConfig, "answer history is disabled").
					WithSuggestion("set ASKDB_HISTORY_ENABLED=true")
			}

			store, err := storage.NewHistoryStoreFromConfig(ctx, cfg.History)
			if err != nil {
				return err
			}
			defer store.Close()

			if cmd.Bool("clear") {
				return runHistoryClear(ctx, out, store)
			}

			filter := storage.HistoryFilter{Role: cmd.String("role"), Limit: int(cmd.Int("limit"))}

			return runHistory(ctx, out, store, filter)
		},
	}
}

func runHistory(ctx context.Context, out io.Writer, repo storage.HistoryRepository, filter storage.HistoryFilter) error {
	if filter.Limit <= 0 {
		return errors.New(errors.ErrTypeValidation, "limit must be positive")
	}

	entries, err := repo.List(ctx, filter)
	if err != nil {
		return err
	}

	return newFormatter(out).History(entries)
}

func runHistoryClear(ctx context.Context, out io.Writer, repo storage.HistoryRepository) error {
	count, err := repo.Count(ctx, "")
	if err != nil {
		return err
	}

	if err := repo.Clear(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "Deleted %d history entries.\n", count)

	return nil
}
