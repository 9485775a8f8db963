package pgmovements

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "manovre_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/manovre_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGMovements_SnapshotFlow(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	_, err := st.LoadSnapshot(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	eta := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	etd := time.Date(2024, 3, 14, 18, 15, 0, 0, time.UTC)
	first := models.Snapshot{
		RefreshID:   "11111111-1111-1111-1111-111111111111",
		RefreshedAt: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC),
		Columns:     models.CanonicalColumns(),
		Movements: []*models.Movement{
			{Terminal: "TMT", Vessel: "MSC ALPHA", ETA: &eta},
			{Terminal: "SIOT - 2", Vessel: "TANKER B", ETA: &eta, ETD: &etd},
		},
		Sources: []models.SourceStatus{
			{Source: "tmt", Label: "TMT", Available: true, Rows: 1},
			{Source: "siot", Label: "SIOT", Available: true, Rows: 1},
		},
	}
	require.NoError(t, st.ReplaceSnapshot(ctx, first))

	got, err := st.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, first.RefreshID, got.RefreshID)
	require.WithinDuration(t, first.RefreshedAt, got.RefreshedAt, time.Second)
	require.Equal(t, models.CanonicalColumns(), got.Columns)
	require.Len(t, got.Movements, 2)
	// порядок строк сохраняется
	require.Equal(t, "MSC ALPHA", got.Movements[0].Vessel)
	require.Nil(t, got.Movements[0].ETD)
	require.Equal(t, "SIOT - 2", got.Movements[1].Terminal)
	require.True(t, etd.Equal(*got.Movements[1].ETD))
	require.Len(t, got.Sources, 2)

	// Пустой датасет тоже валидный снапшот.
	second := models.Snapshot{
		RefreshID:   "22222222-2222-2222-2222-222222222222",
		RefreshedAt: first.RefreshedAt.Add(15 * time.Minute),
		Columns:     models.CanonicalColumns(),
		Sources: []models.SourceStatus{
			{Source: "tmt", Label: "TMT", Error: "source unavailable"},
		},
	}
	require.NoError(t, st.ReplaceSnapshot(ctx, second))

	got, err = st.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, second.RefreshID, got.RefreshID)
	require.NotNil(t, got.Movements)
	require.Empty(t, got.Movements)
	require.False(t, got.Sources[0].Available)
}
