package messages

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDatasetRefreshed_CarriesSourceErrors(t *testing.T) {
	eta := time.Date(2024, 3, 14, 8, 30, 0, 0, time.UTC)
	snap := models.Snapshot{
		RefreshID:   "r1",
		RefreshedAt: eta,
		Columns:     models.CanonicalColumns(),
		Movements:   []*models.Movement{{Terminal: "TMT", Vessel: "ALPHA", ETA: &eta}},
		Sources: []models.SourceStatus{
			{Source: "tmt", Label: "TMT", Available: true, Rows: 1},
			{Source: "siot", Label: "SIOT", Available: false, Error: "login failed"},
		},
	}

	b, err := json.Marshal(FromSnapshot(snap))
	require.NoError(t, err)
	require.Contains(t, string(b), `"error":"login failed"`)
	require.NotContains(t, string(b), `"etd"`)

	var back DatasetRefreshed
	require.NoError(t, json.Unmarshal(b, &back))
	got := back.Snapshot()
	require.Equal(t, "login failed", got.Sources[1].Error)
	require.Empty(t, got.Sources[0].Error)
	require.Nil(t, got.Movements[0].ETD)
	require.True(t, eta.Equal(*got.Movements[0].ETA))
}
