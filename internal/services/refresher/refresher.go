package refresher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/broker/messages"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/merge"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
)

// ErrRefreshInProgress is returned when a refresh is requested while another
// one is still running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

type Normalizer interface {
	Normalize(sourceID string, raw source.RawBatch) (models.Batch, error)
	Empty(sourceID string) models.Batch
	Label(sourceID string) string
}

type Store interface {
	Replace(snap models.Snapshot) bool
}

type Repository interface {
	ReplaceSnapshot(ctx context.Context, snap models.Snapshot) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Refresher struct {
	fetchers   []source.Fetcher
	normalizer Normalizer
	store      Store
	repo       Repository
	producer   Producer

	topic    string
	interval time.Duration
	now      func() time.Time

	publishAttempts int
	publishBackoff  time.Duration

	running   atomic.Bool
	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastRefreshUnixNano atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalRefreshes      atomic.Int64
	totalFailures       atomic.Int64
	totalSkipped        atomic.Int64
	lastMovementsCount  atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
	lastSourcesMu       sync.Mutex
	lastSources         []models.SourceStatus
}

// New wires a refresher. repo and producer are optional: without them a
// refresh only updates the in-process store.
func New(fetchers []source.Fetcher, normalizer Normalizer, st Store, repo Repository, producer Producer, topic string) *Refresher {
	return &Refresher{
		fetchers:          fetchers,
		normalizer:        normalizer,
		store:             st,
		repo:              repo,
		producer:          producer,
		topic:             topic,
		now:               time.Now,
		publishAttempts:   10,
		publishBackoff:    150 * time.Millisecond,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

// WithInterval enables periodic refreshes. Zero or negative keeps the
// refresher trigger-only.
func (r *Refresher) WithInterval(d time.Duration) *Refresher {
	r.interval = d
	return r
}

func (r *Refresher) WithClock(now func() time.Time) *Refresher {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *Refresher) WithPublishRetry(attempts int, backoff time.Duration) *Refresher {
	if attempts > 0 {
		r.publishAttempts = attempts
	}
	if backoff >= 0 {
		r.publishBackoff = backoff
	}
	return r
}

// Trigger asks Run for an immediate refresh (best-effort, non-blocking).
func (r *Refresher) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt       time.Time             `json:"startedAt"`
	LastRefreshAt   *time.Time            `json:"lastRefreshAt,omitempty"`
	LastTriggerAt   *time.Time            `json:"lastTriggerAt,omitempty"`
	Running         bool                  `json:"running"`
	IntervalSeconds int64                 `json:"intervalSeconds"`
	TotalRefreshes  int64                 `json:"totalRefreshes"`
	TotalFailures   int64                 `json:"totalFailures"`
	TotalSkipped    int64                 `json:"totalSkipped"`
	LastMovements   int64                 `json:"lastMovements"`
	LastError       string                `json:"lastError,omitempty"`
	Sources         []models.SourceStatus `json:"sources,omitempty"`
}

func (r *Refresher) Stats() Stats {
	st := Stats{
		StartedAt:       time.Unix(0, r.startedAtUnixNano).UTC(),
		Running:         r.running.Load(),
		IntervalSeconds: int64(r.interval / time.Second),
		TotalRefreshes:  r.totalRefreshes.Load(),
		TotalFailures:   r.totalFailures.Load(),
		TotalSkipped:    r.totalSkipped.Load(),
		LastMovements:   r.lastMovementsCount.Load(),
	}
	if n := r.lastRefreshUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastRefreshAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	r.lastSourcesMu.Lock()
	st.Sources = append([]models.SourceStatus(nil), r.lastSources...)
	r.lastSourcesMu.Unlock()
	return st
}

func (r *Refresher) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context) {
	if _, err := r.RefreshOnce(ctx); err != nil && !errors.Is(err, ErrRefreshInProgress) {
		slog.Error("refresh", "error", err.Error())
	}
}

// RefreshOnce fetches every source, normalizes and merges the batches and
// installs the result as the current snapshot. Unavailable sources contribute
// an empty batch; a schema violation aborts the refresh and keeps the
// previous snapshot.
func (r *Refresher) RefreshOnce(ctx context.Context) (models.Snapshot, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.totalSkipped.Add(1)
		return models.Snapshot{}, ErrRefreshInProgress
	}
	defer r.running.Store(false)

	snap, err := r.refresh(ctx)
	if err != nil {
		r.totalFailures.Add(1)
		r.setLastError(err.Error())
		return models.Snapshot{}, err
	}

	r.totalRefreshes.Add(1)
	r.lastRefreshUnixNano.Store(snap.RefreshedAt.UTC().UnixNano())
	r.lastMovementsCount.Store(int64(len(snap.Movements)))
	r.lastSourcesMu.Lock()
	r.lastSources = snap.Sources
	r.lastSourcesMu.Unlock()
	return snap, nil
}

func (r *Refresher) refresh(ctx context.Context) (models.Snapshot, error) {
	batches := make([]models.Batch, 0, len(r.fetchers))
	statuses := make([]models.SourceStatus, 0, len(r.fetchers))

	// Источники опрашиваются по очереди, как в исходной процедуре.
	for _, f := range r.fetchers {
		id := f.ID()
		st := models.SourceStatus{Source: id, Label: r.normalizer.Label(id)}

		raw, err := f.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return models.Snapshot{}, errors.Wrap(ctx.Err(), "refresh cancelled")
			}
			slog.Warn("source unavailable", "source", id, "error", err.Error())
			st.Error = err.Error()
			batches = append(batches, r.normalizer.Empty(id))
			statuses = append(statuses, st)
			continue
		}

		batch, err := r.normalizer.Normalize(id, raw)
		if err != nil {
			return models.Snapshot{}, errors.Wrapf(err, "normalize %s", id)
		}
		st.Available = true
		st.Rows = len(batch.Rows)
		st.Dropped = batch.Dropped
		st.ParseFailures = batch.ParseFailures
		slog.Info("source fetched", "source", id, "raw_rows", raw.Len(), "rows", st.Rows, "dropped", st.Dropped, "parse_failures", st.ParseFailures)

		batches = append(batches, batch)
		statuses = append(statuses, st)
	}

	ds := merge.Merge(batches...)
	snap := models.Snapshot{
		RefreshID:   uuid.NewString(),
		RefreshedAt: r.now().UTC(),
		Columns:     ds.Columns,
		Movements:   ds.Rows,
		Sources:     statuses,
	}

	if r.repo != nil {
		if err := r.repo.ReplaceSnapshot(ctx, snap); err != nil {
			return models.Snapshot{}, errors.Wrap(err, "persist snapshot")
		}
	}
	r.store.Replace(snap)

	if r.producer != nil {
		if err := r.publish(ctx, snap); err != nil {
			// Снапшот уже сохранён: API подтянет его из базы при следующем чтении.
			slog.Error("publish dataset", "refresh_id", snap.RefreshID, "error", err.Error())
			r.setLastError(err.Error())
		}
	}

	slog.Info("dataset refreshed", "refresh_id", snap.RefreshID, "movements", len(snap.Movements), "sources", len(statuses))
	return snap, nil
}

func (r *Refresher) publish(ctx context.Context, snap models.Snapshot) error {
	b, err := json.Marshal(messages.FromSnapshot(snap))
	if err != nil {
		return errors.Wrap(err, "marshal kafka msg")
	}

	key := []byte(snap.RefreshID)
	// Kafka может быть не готова сразу после старта docker compose.
	var pubErr error
	for i := 0; i < r.publishAttempts; i++ {
		if pubErr = r.producer.Publish(ctx, r.topic, key, b); pubErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		time.Sleep(time.Duration(i+1) * r.publishBackoff)
	}
	return pubErr
}

func (r *Refresher) setLastError(msg string) {
	r.lastErrorMu.Lock()
	r.lastError = msg
	r.lastErrorMu.Unlock()
}
