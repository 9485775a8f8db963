package source

import (
	"context"

	"github.com/pkg/errors"
)

// ErrSourceUnavailable marks a fetch that failed entirely (network, auth,
// navigation). It is never returned for a real empty table.
var ErrSourceUnavailable = errors.New("source unavailable")

// RawBatch is one table as scraped from an upstream, with source-specific
// headers. Rows are aligned with Columns; duplicate headers are allowed.
type RawBatch struct {
	Source  string
	Columns []string
	Rows    [][]string
}

func (b RawBatch) Len() int { return len(b.Rows) }

type Fetcher interface {
	ID() string
	Fetch(ctx context.Context) (RawBatch, error)
}

// Unavailable wraps err so that errors.Is(err, ErrSourceUnavailable) holds.
func Unavailable(sourceID string, err error) error {
	if err == nil {
		return nil
	}
	return &unavailableError{source: sourceID, err: err}
}

type unavailableError struct {
	source string
	err    error
}

func (e *unavailableError) Error() string {
	return e.source + ": " + ErrSourceUnavailable.Error() + ": " + e.err.Error()
}

func (e *unavailableError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.err}
}
