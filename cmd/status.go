package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/storage"
)

func StatusCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "status",
		Usage:       "Display database and history statistics",
		Description: `Show every table of the business database with its row count, followed by answer history statistics when history is enabled.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return runStatus(ctx, out, cfg)
		},
	}
}

func runStatus(ctx context.Context, out io.Writer, cfg *config.Config) error {
	db, err := storage.OpenSQLiteFromConfig(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	counts, err := db.TableCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count table rows: %w", err)
	}

	return newFormatter(out).Status(db.Path(), counts, historyStats(ctx, cfg))
}

// historyStats reads stats from an existing history database; it never
// creates one
func historyStats(ctx context.Context, cfg *config.Config) *storage.HistoryStats {
	if !cfg.History.Enabled {
		return nil
	}

	if _, err := os.Stat(config.ExpandPath(cfg.History.Path)); err != nil {
		return nil
	}

	store, err := storage.NewHistoryStoreFromConfig(ctx, cfg.History)
	if err != nil {
		logging.Warnf("answer history unavailable: %v", err)
		return nil
	}
	defer store.Close()

	stats, err := store.GetStats(ctx)
	if err != nil {
		logging.Warnf("failed to read history statistics: %v", err)
		return nil
	}

	return stats
}
