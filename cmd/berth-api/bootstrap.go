package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stefanobandi/manovre-portuali-Trieste/config"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/broker/kafka"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/cache/rediscache"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/services/berthing"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/storage/pgmovements"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/store"
)

type berthAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     berthAPIOpts
	svc      *berthing.Service
	consumer *kafka.Consumer
	closeFns []func()
}

func mustBootstrapBerthAPI() *berthAPIApp {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err.Error())
	}

	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.Berth.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.Berth.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "berth-api"
	}
	topic := cfg.Kafka.DatasetRefreshedTopicName
	if topic == "" {
		topic = "movements.refreshed"
	}
	cacheTTL := time.Duration(cfg.Berth.BoardCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	loc, err := cfg.Berth.Location()
	if err != nil {
		panic(err)
	}

	st := mustOpenPostgresWithRetry(cfg.Database.DSN(), 60*time.Second)
	rc := rediscache.New(cfg.Redis.Addr())

	svc := berthing.New(store.New(), st, rc, cacheTTL, loc)

	consumer := kafka.NewConsumer([]string{cfg.Kafka.Broker()}, topic, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &berthAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: berthAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		svc:      svc,
		consumer: consumer,
		closeFns: []func(){st.Close, func() { _ = rc.Close() }},
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgmovements.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgmovements.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *berthAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	for _, fn := range a.closeFns {
		fn()
	}
}

func (a *berthAPIApp) Run() error {
	return runBerthAPI(a.ctx, a.opts, a.svc, a.consumer)
}
