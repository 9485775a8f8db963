package pgmovements

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS refreshes (
  id TEXT PRIMARY KEY,
  refreshed_at TIMESTAMPTZ NOT NULL,
  sources JSONB NOT NULL DEFAULT '[]'::jsonb,
  movements_count INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_refreshes_refreshed_at ON refreshes(refreshed_at DESC)`,
		// Текущий датасет: при каждом обновлении переписывается целиком.
		`
CREATE TABLE IF NOT EXISTS current_movements (
  position INT PRIMARY KEY,
  refresh_id TEXT NOT NULL REFERENCES refreshes(id) ON DELETE CASCADE,
  terminal TEXT NOT NULL,
  vessel TEXT NOT NULL,
  eta TIMESTAMPTZ NULL,
  etd TIMESTAMPTZ NULL,
  CHECK (eta IS NOT NULL OR etd IS NOT NULL)
)`,
		`CREATE INDEX IF NOT EXISTS idx_current_movements_eta ON current_movements(eta)`,
		`
CREATE TABLE IF NOT EXISTS dataset_state (
  singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
  refresh_id TEXT NOT NULL REFERENCES refreshes(id),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_current_movements_etd ON current_movements(etd)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
