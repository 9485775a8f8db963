package pgmovements

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
)

// ErrNoSnapshot is returned by LoadSnapshot before the first refresh.
var ErrNoSnapshot = errors.New("no snapshot stored")

// historyKeep is how many refresh records survive a replace.
const historyKeep = 200

// ReplaceSnapshot swaps the stored dataset for snap in one transaction.
func (s *Storage) ReplaceSnapshot(ctx context.Context, snap models.Snapshot) error {
	sources, err := json.Marshal(snap.Sources)
	if err != nil {
		return errors.Wrap(err, "marshal sources")
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO refreshes (id, refreshed_at, sources, movements_count)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET refreshed_at = EXCLUDED.refreshed_at, sources = EXCLUDED.sources, movements_count = EXCLUDED.movements_count
`, snap.RefreshID, snap.RefreshedAt.UTC(), sources, len(snap.Movements)); err != nil {
		return errors.Wrap(err, "insert refresh")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM current_movements`); err != nil {
		return errors.Wrap(err, "clear movements")
	}

	rows := make([][]any, 0, len(snap.Movements))
	for i, m := range snap.Movements {
		rows = append(rows, []any{i, snap.RefreshID, m.Terminal, m.Vessel, utcPtr(m.ETA), utcPtr(m.ETD)})
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"current_movements"},
			[]string{"position", "refresh_id", "terminal", "vessel", "eta", "etd"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return errors.Wrap(err, "copy movements")
		}
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO dataset_state (singleton, refresh_id, updated_at)
VALUES (TRUE, $1, now())
ON CONFLICT (singleton) DO UPDATE SET refresh_id = EXCLUDED.refresh_id, updated_at = now()
`, snap.RefreshID); err != nil {
		return errors.Wrap(err, "update dataset state")
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM refreshes
WHERE id NOT IN (SELECT id FROM refreshes ORDER BY refreshed_at DESC LIMIT $1)
  AND id <> $2
`, historyKeep, snap.RefreshID); err != nil {
		return errors.Wrap(err, "trim refreshes")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// LoadSnapshot returns the dataset written by the last ReplaceSnapshot.
func (s *Storage) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	var (
		snap    models.Snapshot
		sources []byte
	)
	err := s.db.QueryRow(ctx, `
SELECT r.id, r.refreshed_at, r.sources
FROM dataset_state d
JOIN refreshes r ON r.id = d.refresh_id
`).Scan(&snap.RefreshID, &snap.RefreshedAt, &sources)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return models.Snapshot{}, errors.Wrap(err, "select refresh")
	}
	if err := json.Unmarshal(sources, &snap.Sources); err != nil {
		return models.Snapshot{}, errors.Wrap(err, "unmarshal sources")
	}

	rows, err := s.db.Query(ctx, `
SELECT terminal, vessel, eta, etd
FROM current_movements
ORDER BY position ASC
`)
	if err != nil {
		return models.Snapshot{}, errors.Wrap(err, "select movements")
	}
	defer rows.Close()

	snap.Columns = models.CanonicalColumns()
	snap.Movements = []*models.Movement{}
	for rows.Next() {
		var m models.Movement
		var eta, etd *time.Time
		if err := rows.Scan(&m.Terminal, &m.Vessel, &eta, &etd); err != nil {
			return models.Snapshot{}, errors.Wrap(err, "scan movement")
		}
		m.ETA, m.ETD = eta, etd
		snap.Movements = append(snap.Movements, &m)
	}
	if rows.Err() != nil {
		return models.Snapshot{}, errors.Wrap(rows.Err(), "rows")
	}
	return snap, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
