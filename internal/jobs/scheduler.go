package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Clock supplies the reference calendar date.
type Clock interface {
	Today() time.Time
}

// Scheduler runs ReminderJob at a fixed interval, never overlapping runs.
type Scheduler struct {
	scheduler gocron.Scheduler
	job       *ReminderJob
	clock     Clock
	log       *slog.Logger
	cancel    context.CancelFunc
}

func NewScheduler(job *ReminderJob, clock Clock, interval time.Duration, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &Scheduler{
		scheduler: s,
		job:       job,
		clock:     clock,
		log:       log,
		cancel:    cancel,
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sched.runReminders, ctx),
		gocron.WithName("renewal-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return nil, fmt.Errorf("register reminder job: %w", err)
	}

	return sched, nil
}

func (s *Scheduler) Start() {
	s.log.Info("starting reminder scheduler")
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	s.log.Info("stopping reminder scheduler")
	s.cancel()
	return s.scheduler.Shutdown()
}

func (s *Scheduler) runReminders(ctx context.Context) {
	created, err := s.job.Run(ctx, s.clock.Today())
	if err != nil {
		s.log.Error("reminder run failed", "error", err)
		return
	}
	s.log.Debug("reminder run finished", "created", created)
}
