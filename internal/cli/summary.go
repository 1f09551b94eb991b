package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/esumbrandon/Schnei/internal/dashboard"
	"github.com/esumbrandon/Schnei/internal/format"
)

var summaryUser string

var summaryCmd = &cobra.Command{
	Use:     "summary",
	Short:   "Print the dashboard figures for one user",
	Example: `  schnei summary --user 5b0c7f9e-1d1e-4c55-9a4e-7f3c2c9a1b20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(summaryUser)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}

		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.dashboard.Stats(cmd.Context(), userID)
		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryUser, "user", "", "user id")
	_ = summaryCmd.MarkFlagRequired("user")
}

func printSummary(w io.Writer, stats dashboard.Stats) {
	fmt.Fprintf(w, "\n  Subscription summary (%s)\n", stats.AsOf)
	fmt.Fprintln(w, strings.Repeat("=", 48))
	fmt.Fprintf(w, "  Monthly spend:   %s\n", stats.FormattedMonthly)
	fmt.Fprintf(w, "  Annual spend:    %s\n", stats.FormattedAnnual)
	fmt.Fprintf(w, "  Active:          %d of %d (%d verified)\n",
		stats.ActiveSubscriptions, stats.TotalSubscriptions, stats.VerifiedSubscriptions)
	fmt.Fprintf(w, "  Renewing soon:   %d in the next 7 days\n", stats.UpcomingCount)

	if len(stats.UpcomingRenewals) == 0 {
		return
	}
	fmt.Fprintln(w, strings.Repeat("-", 48))
	for _, r := range stats.UpcomingRenewals {
		fmt.Fprintf(w, "  %-20s %12s  %s\n", format.Truncate(r.ServiceName, 17), r.FormattedPrice, r.RenewalLabel)
	}
}
