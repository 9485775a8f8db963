package store

import (
	"sync"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
)

// Store holds the current snapshot. Replace swaps it wholesale; readers never
// observe a partially written snapshot.
type Store struct {
	mu   sync.RWMutex
	snap *models.Snapshot
}

func New() *Store {
	return &Store{}
}

// Get returns the current snapshot, or ok=false if nothing was ever stored.
func (s *Store) Get() (models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return models.Snapshot{}, false
	}
	return *s.snap, true
}

// Replace installs snap as the current snapshot. An older snapshot (by
// RefreshedAt) never replaces a newer one.
func (s *Store) Replace(snap models.Snapshot) bool {
	if snap.Movements == nil {
		snap.Movements = []*models.Movement{}
	}
	if snap.Columns == nil {
		snap.Columns = models.CanonicalColumns()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil && snap.RefreshedAt.Before(s.snap.RefreshedAt) {
		return false
	}
	s.snap = &snap
	return true
}
