package movements

import (
	"sort"
	"strings"
	"time"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/shift"
)

// Classify tells which of m's instants fall inside w (both ends included) and
// returns the earliest of them as sort key.
func Classify(m *models.Movement, w shift.Window) (models.Action, *time.Time) {
	arrival := m.ETA != nil && w.Contains(*m.ETA)
	departure := m.ETD != nil && w.Contains(*m.ETD)

	switch {
	case arrival && departure:
		key := *m.ETA
		if m.ETD.Before(key) {
			key = *m.ETD
		}
		return models.ActionArrivalAndDeparture, &key
	case arrival:
		key := *m.ETA
		return models.ActionArrival, &key
	case departure:
		key := *m.ETD
		return models.ActionDeparture, &key
	default:
		return models.ActionNone, nil
	}
}

// Filter keeps the movements with an arrival or departure inside w, ordered by
// their in-window instant.
func Filter(dataset []*models.Movement, w shift.Window) []*models.ClassifiedMovement {
	out := make([]*models.ClassifiedMovement, 0)
	for _, m := range dataset {
		if m == nil {
			continue
		}
		action, key := Classify(m, w)
		if action == models.ActionNone {
			continue
		}
		out = append(out, &models.ClassifiedMovement{Movement: *m, Action: action, SortKey: key})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey.Before(*out[j].SortKey)
	})
	return out
}

// Movements strips the classification, so a filtered list can be filtered again.
func Movements(classified []*models.ClassifiedMovement) []*models.Movement {
	out := make([]*models.Movement, 0, len(classified))
	for _, c := range classified {
		m := c.Movement
		out = append(out, &m)
	}
	return out
}

// ByTerminal keeps the movements of one source label ("TMT", "SIOT"),
// whatever their pier, preserving order.
func ByTerminal(dataset []*models.Movement, label string) []*models.Movement {
	if label == "" {
		return dataset
	}
	out := make([]*models.Movement, 0)
	for _, m := range dataset {
		source, _, _ := strings.Cut(m.Terminal, " - ")
		if strings.EqualFold(source, label) {
			out = append(out, m)
		}
	}
	return out
}
