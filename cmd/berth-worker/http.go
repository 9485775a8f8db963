package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/stefanobandi/manovre-portuali-Trieste/config"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/services/refresher"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

const triggerKey = "worker:trigger"

type workerHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	refresher    *refresher.Refresher
	rl           RateLimiter
	triggerLimit int64
	cfg          *config.Config
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}
	if opts.swaggerPath == "" {
		return fmt.Errorf("worker swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("worker swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.refresher == nil {
			_, _ = w.Write([]byte(`{"error":"refresher not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.refresher.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// Только операционные настройки, без паролей портала.
		sources := make([]map[string]any, 0, len(opts.cfg.Sources))
		for _, s := range opts.cfg.Sources {
			sources = append(sources, map[string]any{"id": s.ID, "kind": s.Kind, "label": s.Label})
		}
		out := map[string]any{
			"refreshIntervalSeconds": opts.cfg.Berth.WorkerRefreshIntervalSeconds,
			"refreshOnStart":         opts.cfg.Berth.WorkerRefreshOnStart,
			"triggerLimitPerMinute":  opts.cfg.Berth.WorkerTriggerLimitPerMinute,
			"timezone":               opts.cfg.Berth.Timezone,
			"datasetRefreshedTopic":  opts.cfg.Kafka.DatasetRefreshedTopicName,
			"sources":                sources,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	// Асинхронный запуск: ответ не ждёт окончания обновления.
	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.refresher == nil {
			_, _ = w.Write([]byte(`{"error":"refresher not wired"}`))
			return
		}
		if opts.rl != nil && opts.triggerLimit > 0 {
			allowed, n, err := opts.rl.Allow(r.Context(), triggerKey, opts.triggerLimit, time.Minute)
			if err != nil {
				slog.Warn("trigger rate limit check failed", "error", err.Error())
			} else if !allowed {
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too many refresh requests","count":` + strconv.FormatInt(n, 10) + `}`))
				return
			}
		}
		opts.refresher.Trigger()
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	// Синхронный вариант для CLI: ждём результат обновления.
	r.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.refresher == nil {
			_, _ = w.Write([]byte(`{"error":"refresher not wired"}`))
			return
		}
		snap, err := opts.refresher.RefreshOnce(r.Context())
		if errors.Is(err, refresher.ErrRefreshInProgress) {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"refreshId":   snap.RefreshID,
			"refreshedAt": snap.RefreshedAt,
			"movements":   len(snap.Movements),
			"sources":     snap.Sources,
		})
	})

	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, opts.swaggerPath)
	})

	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(opts.swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("worker HTTP listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}
