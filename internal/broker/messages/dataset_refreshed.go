package messages

import (
	"time"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
)

// DatasetRefreshed carries a whole snapshot: consumers replace their dataset
// with it, there is no incremental update.
type DatasetRefreshed struct {
	RefreshID   string    `json:"refresh_id"`
	RefreshedAt time.Time `json:"refreshed_at"`

	Columns   []string          `json:"columns"`
	Movements []MovementRecord  `json:"movements"`
	Sources   []SourceRefreshed `json:"sources"`
}

type MovementRecord struct {
	Terminal string     `json:"terminal"`
	Vessel   string     `json:"vessel"`
	ETA      *time.Time `json:"eta,omitempty"`
	ETD      *time.Time `json:"etd,omitempty"`
}

type SourceRefreshed struct {
	Source        string  `json:"source"`
	Label         string  `json:"label"`
	Available     bool    `json:"available"`
	Error         *string `json:"error,omitempty"`
	Rows          int     `json:"rows"`
	Dropped       int     `json:"dropped"`
	ParseFailures int     `json:"parse_failures"`
}

func FromSnapshot(s models.Snapshot) DatasetRefreshed {
	msg := DatasetRefreshed{
		RefreshID:   s.RefreshID,
		RefreshedAt: s.RefreshedAt,
		Columns:     s.Columns,
		Movements:   make([]MovementRecord, 0, len(s.Movements)),
		Sources:     make([]SourceRefreshed, 0, len(s.Sources)),
	}
	for _, m := range s.Movements {
		msg.Movements = append(msg.Movements, MovementRecord{Terminal: m.Terminal, Vessel: m.Vessel, ETA: m.ETA, ETD: m.ETD})
	}
	for _, st := range s.Sources {
		sr := SourceRefreshed{
			Source:        st.Source,
			Label:         st.Label,
			Available:     st.Available,
			Rows:          st.Rows,
			Dropped:       st.Dropped,
			ParseFailures: st.ParseFailures,
		}
		if st.Error != "" {
			e := st.Error
			sr.Error = &e
		}
		msg.Sources = append(msg.Sources, sr)
	}
	return msg
}

func (m DatasetRefreshed) Snapshot() models.Snapshot {
	s := models.Snapshot{
		RefreshID:   m.RefreshID,
		RefreshedAt: m.RefreshedAt,
		Columns:     m.Columns,
		Movements:   make([]*models.Movement, 0, len(m.Movements)),
		Sources:     make([]models.SourceStatus, 0, len(m.Sources)),
	}
	for _, r := range m.Movements {
		s.Movements = append(s.Movements, &models.Movement{Terminal: r.Terminal, Vessel: r.Vessel, ETA: r.ETA, ETD: r.ETD})
	}
	for _, sr := range m.Sources {
		st := models.SourceStatus{
			Source:        sr.Source,
			Label:         sr.Label,
			Available:     sr.Available,
			Rows:          sr.Rows,
			Dropped:       sr.Dropped,
			ParseFailures: sr.ParseFailures,
		}
		if sr.Error != nil {
			st.Error = *sr.Error
		}
		s.Sources = append(s.Sources, st)
	}
	return s
}
