package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRawBatch_Len(t *testing.T) {
	require.Equal(t, 0, RawBatch{Columns: []string{"Vessel"}}.Len())
	b := RawBatch{
		Columns: []string{"Vessel", "ETB", "Vessel"},
		Rows:    [][]string{{"ALPHA", "14-03-2024 08:30:00", "BETA"}, {"GAMMA"}},
	}
	require.Equal(t, 2, b.Len())
}

func TestUnavailable(t *testing.T) {
	require.NoError(t, Unavailable("tmt", nil))

	err := Unavailable("tmt", context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrSourceUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "tmt")
	require.False(t, errors.Is(errors.New("other"), ErrSourceUnavailable))
}
