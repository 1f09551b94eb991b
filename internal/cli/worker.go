package cli

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/esumbrandon/Schnei/internal/jobs"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the renewal reminder scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		job := jobs.NewReminderJob(a.subRepo, a.notifications, a.tracker, cfg.Reminders.LeadDays, log)
		sched, err := jobs.NewScheduler(job, a.subscriptions, cfg.Reminders.Interval, log)
		if err != nil {
			return err
		}

		health := &http.Server{
			Addr:              cfg.App.HealthAddr,
			Handler:           healthHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				log.Error("stop scheduler", "error", err)
			}
		}()

		return runServer(ctx, health, cfg.App.ShutdownTimeout)
	},
}

func healthHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
