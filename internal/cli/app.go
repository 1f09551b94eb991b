package cli

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/esumbrandon/Schnei/internal/analytics"
	"github.com/esumbrandon/Schnei/internal/cache"
	"github.com/esumbrandon/Schnei/internal/config"
	"github.com/esumbrandon/Schnei/internal/dashboard"
	"github.com/esumbrandon/Schnei/internal/db"
	"github.com/esumbrandon/Schnei/internal/eventbus"
	"github.com/esumbrandon/Schnei/internal/notification"
	"github.com/esumbrandon/Schnei/internal/subscription"
)

// app holds the wired dependencies shared by the serve, worker and summary commands.
type app struct {
	cfg config.Config
	log *slog.Logger

	db            *sql.DB
	redis         *redis.Client
	bus           eventbus.Publisher
	summaries     cache.SummaryCache
	tracker       *analytics.Tracker
	subRepo       *subscription.Repository
	subscriptions subscription.Service
	dashboard     *dashboard.Service
	notifications *notification.Repository
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	database, err := db.New(ctx, db.FromConfig(cfg.DB))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: database}

	if err := a.connectCache(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.connectBus(); err != nil {
		a.Close()
		return nil, err
	}

	loc, err := cfg.App.Location()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.tracker = analytics.NewTracker(analytics.NewPostgresStore(database), a.bus, log)
	a.subRepo = subscription.NewRepository(database)
	a.subscriptions = subscription.NewService(a.subRepo, a.tracker, a.summaries, log, subscription.WithLocation(loc))
	a.dashboard = dashboard.NewService(a.subRepo, a.summaries, a.subscriptions, log)
	a.notifications = notification.NewRepository(database)

	return a, nil
}

// connectCache falls back to no caching outside production when redis is
// not configured or unreachable.
func (a *app) connectCache(ctx context.Context) error {
	a.summaries = cache.NoopCache{}
	if a.cfg.Redis.URL == "" {
		a.log.Info("redis not configured, dashboard cache disabled")
		return nil
	}

	client, err := cache.Connect(ctx, a.cfg.Redis.URL)
	if err != nil {
		if a.cfg.IsProduction() {
			return err
		}
		a.log.Warn("redis unavailable, dashboard cache disabled", "error", err)
		return nil
	}

	a.redis = client
	a.summaries = cache.NewRedisSummaryCache(client, a.cfg.Redis.SummaryTTL)
	return nil
}

func (a *app) connectBus() error {
	var next eventbus.Publisher = eventbus.NewNoopPublisher(a.log)
	if a.cfg.RabbitMQ.URL == "" {
		a.log.Info("rabbitmq not configured, analytics events stay local")
	} else {
		pub, err := eventbus.DialRabbitMQ(a.cfg.RabbitMQ.URL, a.cfg.RabbitMQ.Exchange, a.log)
		switch {
		case err == nil:
			next = pub
		case a.cfg.IsProduction():
			return err
		default:
			a.log.Warn("rabbitmq unavailable, analytics events stay local", "error", err)
		}
	}

	threshold := a.cfg.Breaker.FailureThreshold
	if threshold < 0 {
		threshold = 0
	}
	a.bus = eventbus.NewBreakerPublisher(next, eventbus.BreakerConfig{
		Name:             "analytics-bus",
		FailureThreshold: uint32(threshold),
		OpenTimeout:      a.cfg.Breaker.OpenTimeout,
	}, a.log)
	return nil
}

func (a *app) Close() error {
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
