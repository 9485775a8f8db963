package movements_api

import (
	"time"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/shift"
)

type Shift struct {
	Kind  string    `json:"kind"`
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Title string    `json:"title"`
}

type Movement struct {
	Terminal string     `json:"terminal"`
	Vessel   string     `json:"vessel"`
	ETA      *time.Time `json:"eta,omitempty"`
	ETD      *time.Time `json:"etd,omitempty"`
}

type ClassifiedMovement struct {
	Movement
	Action      models.Action `json:"action"`
	ActionLabel string        `json:"actionLabel"`
	SortKey     *time.Time    `json:"sortKey,omitempty"`
}

type BoardResponse struct {
	Shift       Shift                 `json:"shift"`
	Movements   []ClassifiedMovement  `json:"movements"`
	RefreshID   string                `json:"refreshId"`
	RefreshedAt time.Time             `json:"refreshedAt"`
	Sources     []models.SourceStatus `json:"sources"`
}

type ShiftsResponse struct {
	Shifts []Shift `json:"shifts"`
}

type DatasetResponse struct {
	Columns     []string   `json:"columns"`
	Movements   []Movement `json:"movements"`
	RefreshID   string     `json:"refreshId"`
	RefreshedAt time.Time  `json:"refreshedAt"`
}

type StatusResponse struct {
	RefreshID   string                `json:"refreshId"`
	RefreshedAt time.Time             `json:"refreshedAt"`
	Movements   int                   `json:"movements"`
	Sources     []models.SourceStatus `json:"sources"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toShift(w shift.Window) Shift {
	return Shift{
		Kind:  w.Kind.String(),
		Label: w.Label,
		Start: w.Start,
		End:   w.End,
		Title: w.String(),
	}
}

// Instants are rendered on the port's wall clock.
func toMovement(m *models.Movement, loc *time.Location) Movement {
	return Movement{
		Terminal: m.Terminal,
		Vessel:   m.Vessel,
		ETA:      inLoc(m.ETA, loc),
		ETD:      inLoc(m.ETD, loc),
	}
}

func toClassified(m *models.ClassifiedMovement, loc *time.Location) ClassifiedMovement {
	return ClassifiedMovement{
		Movement:    toMovement(&m.Movement, loc),
		Action:      m.Action,
		ActionLabel: m.Action.Label(),
		SortKey:     inLoc(m.SortKey, loc),
	}
}

func inLoc(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	v := t.In(loc)
	return &v
}
