package berthing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/broker/messages"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/cache"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/movements"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/normalize"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/shift"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/storage/pgmovements"
)

const maxShifts = 14

type Repository interface {
	LoadSnapshot(ctx context.Context) (models.Snapshot, error)
}

type Store interface {
	Get() (models.Snapshot, bool)
	Replace(snap models.Snapshot) bool
}

type Service struct {
	store    Store
	repo     Repository
	cache    cache.BytesCache
	boardTTL time.Duration
	loc      *time.Location
	now      func() time.Time
}

// New builds the read side. repo and c may be nil; loc defaults to UTC.
func New(st Store, repo Repository, c cache.BytesCache, boardTTL time.Duration, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: st, repo: repo, cache: c, boardTTL: boardTTL, loc: loc, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

// Board is the presenter payload for one shift.
type Board struct {
	Window      shift.Window                 `json:"window"`
	Movements   []*models.ClassifiedMovement `json:"movements"`
	RefreshID   string                       `json:"refreshId"`
	RefreshedAt time.Time                    `json:"refreshedAt"`
	Sources     []models.SourceStatus        `json:"sources"`
}

// Reference returns at (or the current instant) on the port's wall clock.
func (s *Service) Reference(at *time.Time) time.Time {
	if at != nil {
		return at.In(s.loc)
	}
	return s.now().In(s.loc)
}

func (s *Service) CurrentShift(at *time.Time) shift.Window {
	return shift.Current(s.Reference(at))
}

func (s *Service) Shifts(at *time.Time, count int) ([]shift.Window, error) {
	if count > maxShifts {
		return nil, errors.Errorf("too many shifts (max %d)", maxShifts)
	}
	return shift.Future(s.Reference(at), count), nil
}

// Board filters the current dataset against the shift selected by view.
func (s *Service) Board(ctx context.Context, view string, at *time.Time) (Board, error) {
	w, err := shift.ByView(s.Reference(at), view)
	if err != nil {
		return Board{}, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return Board{}, err
	}

	useCache := s.cache != nil && s.boardTTL > 0
	key := boardKey(snap.RefreshID, w)
	if useCache {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var cached Board
			if json.Unmarshal(b, &cached) == nil {
				cached.Window = w
				return cached, nil
			}
		}
	}

	board := Board{
		Window:      w,
		Movements:   movements.Filter(snap.Movements, w),
		RefreshID:   snap.RefreshID,
		RefreshedAt: snap.RefreshedAt,
		Sources:     snap.Sources,
	}
	if useCache {
		if b, err := json.Marshal(board); err == nil {
			_ = s.cache.Set(ctx, key, b, s.boardTTL)
		}
	}
	return board, nil
}

// Dataset returns the whole current dataset, optionally narrowed to one
// terminal label.
func (s *Service) Dataset(ctx context.Context, terminal string) (models.Snapshot, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	if terminal != "" {
		snap.Movements = movements.ByTerminal(snap.Movements, terminal)
	}
	return snap, nil
}

// Status returns the snapshot metadata without its movements.
func (s *Service) Status(ctx context.Context) (models.Snapshot, int, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return models.Snapshot{}, 0, err
	}
	n := len(snap.Movements)
	snap.Movements = nil
	return snap, n, nil
}

// ApplyRefreshed installs a dataset published by the worker.
func (s *Service) ApplyRefreshed(ctx context.Context, msg messages.DatasetRefreshed) error {
	if msg.RefreshID == "" {
		return errors.New("refresh_id is required")
	}
	if len(msg.Columns) > 0 {
		if err := normalize.CheckSchema(msg.Columns); err != nil {
			return err
		}
	}
	if msg.RefreshedAt.IsZero() {
		msg.RefreshedAt = s.now().UTC()
	}

	if !s.store.Replace(msg.Snapshot()) {
		slog.Info("stale dataset ignored", "refresh_id", msg.RefreshID, "refreshed_at", msg.RefreshedAt)
		return nil
	}
	slog.Info("dataset applied", "refresh_id", msg.RefreshID, "movements", len(msg.Movements))
	return nil
}

func (s *Service) snapshot(ctx context.Context) (models.Snapshot, error) {
	if snap, ok := s.store.Get(); ok {
		return snap, nil
	}
	if s.repo == nil {
		return models.Snapshot{}, movements.ErrNotRefreshed
	}

	// Процесс только поднялся: берём последний снапшот из базы.
	snap, err := s.repo.LoadSnapshot(ctx)
	if errors.Is(err, pgmovements.ErrNoSnapshot) {
		return models.Snapshot{}, movements.ErrNotRefreshed
	}
	if err != nil {
		return models.Snapshot{}, errors.Wrap(err, "load snapshot")
	}
	s.store.Replace(snap)
	if cur, ok := s.store.Get(); ok {
		return cur, nil
	}
	return snap, nil
}

func boardKey(refreshID string, w shift.Window) string {
	return fmt.Sprintf("board:%s:%d", refreshID, w.Start.Unix())
}
