package merge

import "github.com/stefanobandi/manovre-portuali-Trieste/internal/models"

// Merge concatenates normalized batches in the given order, keeping row order
// inside each batch. Batches are trusted to share the canonical schema.
func Merge(batches ...models.Batch) models.Dataset {
	n := 0
	for _, b := range batches {
		n += len(b.Rows)
	}
	out := models.Dataset{
		Columns: models.CanonicalColumns(),
		Rows:    make([]*models.Movement, 0, n),
	}
	for _, b := range batches {
		out.Rows = append(out.Rows, b.Rows...)
	}
	return out
}
