// Package cli wires the schnei commands: serve, worker, migrate and summary.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/esumbrandon/Schnei/internal/config"
	"github.com/esumbrandon/Schnei/internal/logger"
)

var (
	cfg config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "schnei",
	Short: "Schnei tracks recurring subscriptions and their renewals",
	Long: `Schnei keeps a per-user ledger of recurring subscriptions, derives
monthly and annual spend, and reminds users before bills renew.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		log = logger.New(cfg.Log, "schnei-"+cmd.Name(), cfg.App.Env)
		slog.SetDefault(log)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd, summaryCmd)
}
