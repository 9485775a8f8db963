package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/stefanobandi/manovre-portuali-Trieste/config"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/broker/kafka"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/cache/rediscache"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source/registry"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/services/refresher"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/storage/pgmovements"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/store"
)

const defaultTopic = "movements.refreshed"

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo refresher.Repository, closeFn func(), err error)
	newProducer    func(cfg *config.Config) refresher.Producer
	newRateLimiter func(cfg *config.Config) RateLimiter
	newSources     func(cfg *config.Config, loc *time.Location) ([]source.Fetcher, refresher.Normalizer, error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (refresher.Repository, func(), error) {
			st, err := pgmovements.New(cfg.Database.DSN())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) refresher.Producer {
			return kafka.NewProducer([]string{cfg.Kafka.Broker()})
		},
		newRateLimiter: func(cfg *config.Config) RateLimiter {
			return rediscache.NewRateLimiter(cfg.Redis.Addr())
		},
		newSources: func(cfg *config.Config, loc *time.Location) ([]source.Fetcher, refresher.Normalizer, error) {
			fetchers, n, err := registry.Build(cfg.Sources, loc)
			if err != nil {
				return nil, nil, err
			}
			return fetchers, n, nil
		},
	}
}

// RunBerthWorker runs the refresher and the worker HTTP server until ctx is
// cancelled or one of them fails.
func RunBerthWorker(ctx context.Context, cfg *config.Config, swaggerPath string, f workerFactories) error {
	topic := cfg.Kafka.DatasetRefreshedTopicName
	if topic == "" {
		topic = defaultTopic
	}
	interval := time.Duration(cfg.Berth.WorkerRefreshIntervalSeconds) * time.Second

	loc, err := cfg.Berth.Location()
	if err != nil {
		return err
	}

	fetchers, normalizer, err := f.newSources(cfg, loc)
	if err != nil {
		return err
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	r := refresher.New(fetchers, normalizer, store.New(), repo, f.newProducer(cfg), topic).
		WithInterval(interval)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:     cfg.Berth.WorkerHTTPAddr,
			swaggerPath:  swaggerPath,
			refresher:    r,
			rl:           f.newRateLimiter(cfg),
			triggerLimit: int64(cfg.Berth.WorkerTriggerLimitPerMinute),
			cfg:          cfg,
		})
	}()

	if cfg.Berth.WorkerRefreshOnStart {
		r.Trigger()
	}
	slog.Info("berth worker started", "sources", len(fetchers), "interval", interval.String(), "topic", topic)

	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	select {
	case err = <-runErr:
	case err = <-httpErr:
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
