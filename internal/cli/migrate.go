package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/esumbrandon/Schnei/internal/db"
	"github.com/esumbrandon/Schnei/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

func init() {
	migrateCmd.AddCommand(
		migrationCommand("up", "Apply all pending migrations", migrate.Up),
		migrationCommand("down", "Roll back the latest migration", migrate.Down),
		migrationCommand("status", "Show applied migrations", migrate.Status),
	)
}

func migrationCommand(use, short string, fn func(context.Context, *sql.DB, *slog.Logger) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			database, err := db.New(ctx, db.FromConfig(cfg.DB))
			if err != nil {
				return err
			}
			defer database.Close()

			if err := fn(ctx, database, log); err != nil {
				return err
			}

			version, err := migrate.Version(ctx, database)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
			return nil
		},
	}
}
