package cmd

import (
	"context"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/policy"
)

func RolesCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "roles",
		Usage:       "List roles with their allowed tables and columns",
		ArgsUsage:   "[role...]",
		Description: `Show the access policy: for each role, the tables it may read and either ALL or the allowed columns.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := policy.Load(config.ExpandPath(cfg.Data.PolicyPath))
			if err != nil {
				return err
			}

			return runRoles(out, store, cmd.Args().Slice())
		},
	}
}

func runRoles(out io.Writer, store *policy.Store, roles []string) error {
	for _, role := range roles {
		if !store.HasRole(role) {
			return errors.Newf(errors.ErrTypeNotFound, "role %q is not defined in the access policy", role).
				WithSuggestion("run 'askdb roles' to list the defined roles")
		}
	}

	return newFormatter(out).Roles(store, roles...)
}
