package main

import (
	"fmt"

	"apply-desk/internal/common/database"
	"apply-desk/internal/remotestore"

	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the remote store tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := database.NewPostgres(c.cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := pg.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("postgres unreachable: %w", err)
			}
			if err := pg.Migrate(cmd.Context(), remotestore.Schema...); err != nil {
				return err
			}
			c.log.Info("schema applied", map[string]interface{}{"statements": len(remotestore.Schema)})
			return nil
		},
	}
}
