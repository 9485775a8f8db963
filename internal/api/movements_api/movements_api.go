package movements_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/movements"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/services/berthing"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/shift"
)

const defaultShiftCount = 3

var errBadRequest = errors.New("bad request")

type Service interface {
	Location() *time.Location
	CurrentShift(at *time.Time) shift.Window
	Shifts(at *time.Time, count int) ([]shift.Window, error)
	Board(ctx context.Context, view string, at *time.Time) (berthing.Board, error)
	Dataset(ctx context.Context, terminal string) (models.Snapshot, error)
	Status(ctx context.Context) (models.Snapshot, int, error)
}

type MovementsAPI struct {
	svc Service
}

func New(svc Service) *MovementsAPI {
	return &MovementsAPI{svc: svc}
}

// Routes mounts the read endpoints under /api/v1.
func (a *MovementsAPI) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/movements", a.getMovements)
		r.Get("/shifts", a.listShifts)
		r.Get("/shifts/current", a.getCurrentShift)
		r.Get("/dataset", a.getDataset)
		r.Get("/status", a.getStatus)
	})
}

func (a *MovementsAPI) getMovements(w http.ResponseWriter, r *http.Request) {
	at, err := a.parseAt(r)
	if err != nil {
		writeError(w, err)
		return
	}
	view := r.URL.Query().Get("view")
	if view != "" && view != shift.ViewCurrent && view != shift.ViewNext {
		writeError(w, errors.Wrapf(errBadRequest, "unknown view %q", view))
		return
	}

	b, err := a.svc.Board(r.Context(), view, at)
	if err != nil {
		writeError(w, err)
		return
	}

	out := BoardResponse{
		Shift:       toShift(b.Window),
		Movements:   make([]ClassifiedMovement, 0, len(b.Movements)),
		RefreshID:   b.RefreshID,
		RefreshedAt: b.RefreshedAt,
		Sources:     b.Sources,
	}
	for _, m := range b.Movements {
		out.Movements = append(out.Movements, toClassified(m, a.svc.Location()))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *MovementsAPI) getCurrentShift(w http.ResponseWriter, r *http.Request) {
	at, err := a.parseAt(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShift(a.svc.CurrentShift(at)))
}

func (a *MovementsAPI) listShifts(w http.ResponseWriter, r *http.Request) {
	at, err := a.parseAt(r)
	if err != nil {
		writeError(w, err)
		return
	}
	count := defaultShiftCount
	if v := r.URL.Query().Get("count"); v != "" {
		count, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, errors.Wrap(errBadRequest, "count must be an integer"))
			return
		}
	}

	ws, err := a.svc.Shifts(at, count)
	if err != nil {
		writeError(w, errors.Wrap(errBadRequest, err.Error()))
		return
	}
	out := make([]Shift, 0, len(ws))
	for _, sw := range ws {
		out = append(out, toShift(sw))
	}
	writeJSON(w, http.StatusOK, ShiftsResponse{Shifts: out})
}

func (a *MovementsAPI) getDataset(w http.ResponseWriter, r *http.Request) {
	snap, err := a.svc.Dataset(r.Context(), r.URL.Query().Get("terminal"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := DatasetResponse{
		Columns:     snap.Columns,
		Movements:   make([]Movement, 0, len(snap.Movements)),
		RefreshID:   snap.RefreshID,
		RefreshedAt: snap.RefreshedAt,
	}
	for _, m := range snap.Movements {
		out.Movements = append(out.Movements, toMovement(m, a.svc.Location()))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *MovementsAPI) getStatus(w http.ResponseWriter, r *http.Request) {
	snap, n, err := a.svc.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		RefreshID:   snap.RefreshID,
		RefreshedAt: snap.RefreshedAt,
		Movements:   n,
		Sources:     snap.Sources,
	})
}

// parseAt reads the optional simulated reference time. RFC 3339 is taken
// as-is; a bare "2006-01-02T15:04" is read on the port's wall clock.
func (a *MovementsAPI) parseAt(r *http.Request) (*time.Time, error) {
	v := r.URL.Query().Get("at")
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", v, a.svc.Location())
	if err != nil {
		return nil, errors.Wrapf(errBadRequest, "invalid at %q", v)
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, shift.ErrUnknownView):
		status = http.StatusBadRequest
	case errors.Is(err, movements.ErrNotRefreshed):
		status = http.StatusServiceUnavailable
	default:
		slog.Error("api request", "error", err.Error())
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
