package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
)

const siotExport = "\ufeffTanker Name;Pier;POB;TLB\n" +
	"SEA STAR;1;14.03. 09:00;14.03. 18:45\n" +
	"NORDIC AURORA;2;14.03. 21:00;\n" +
	";;;\n" +
	"GHOST;3;tbc;tba\n"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"berthctl"}, args...))
	return out.String(), err
}

func writeExport(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "siot.csv")
	require.NoError(t, os.WriteFile(p, []byte(siotExport), 0o600))
	return p
}

func TestShifts(t *testing.T) {
	out, err := run(t, "shifts", "--tz", "UTC", "--at", "2024-03-14T21:30", "--count", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "Notturno (20-08)")
	require.Contains(t, lines[1], "14/03 20:00")
	require.Contains(t, lines[2], "Diurno (08-20)")
	require.Contains(t, lines[2], "15/03 08:00")
}

func TestShifts_StartsWithCurrent(t *testing.T) {
	out, err := run(t, "shifts", "--tz", "UTC", "--at", "2024-03-14T08:00", "--count", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "Diurno (08-20)")
	require.Contains(t, lines[1], "14/03 08:00")

	out, err = run(t, "shifts", "--tz", "UTC", "--at", "2024-03-14T08:00", "--count", "0")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
}

func TestShifts_BadAt(t *testing.T) {
	_, err := run(t, "shifts", "--tz", "UTC", "--at", "yesterday")
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	out, err := run(t, "normalize", "--tz", "UTC", "--file", writeExport(t))
	require.NoError(t, err)

	var batch models.Batch
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	require.Equal(t, models.CanonicalColumns(), batch.Columns)
	require.Len(t, batch.Rows, 2)
	require.Equal(t, "SIOT - 1", batch.Rows[0].Terminal)
	require.Equal(t, "SEA STAR", batch.Rows[0].Vessel)
	// TLB 18:45 минус 30 минут
	require.Equal(t, 18, batch.Rows[0].ETD.Hour())
	require.Equal(t, 15, batch.Rows[0].ETD.Minute())
	require.Nil(t, batch.Rows[1].ETD)
	require.Equal(t, 1, batch.Dropped)
}

func TestBoard(t *testing.T) {
	out, err := run(t, "board", "--tz", "UTC", "--at", "2024-03-14T10:00", "--file", writeExport(t))
	require.NoError(t, err)
	require.Contains(t, out, "Diurno (08-20)")
	require.Contains(t, out, "ARRIVO + PARTENZA")
	require.Contains(t, out, "SEA STAR")
	require.NotContains(t, out, "NORDIC AURORA")

	out, err = run(t, "board", "--tz", "UTC", "--at", "2024-03-14T10:00", "--view", "next", "--file", writeExport(t))
	require.NoError(t, err)
	require.Contains(t, out, "NORDIC AURORA")
	require.Contains(t, out, "ARRIVO")
}

func TestNormalize_MissingFile(t *testing.T) {
	_, err := run(t, "normalize", "--file", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestRefresh_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/refresh", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"refreshId":"r1","movements":3}`))
	}))
	defer srv.Close()

	out, err := run(t, "refresh", "--worker", srv.URL+"/")
	require.NoError(t, err)
	require.Contains(t, out, `"refreshId":"r1"`)
}

func TestRefresh_RemoteConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"refresh already in progress"}`))
	}))
	defer srv.Close()

	_, err := run(t, "refresh", "--worker", srv.URL)
	require.ErrorContains(t, err, "409")
}

func TestRefresh_LocalWithEmulatedSources(t *testing.T) {
	out, err := run(t, "refresh", "--local", "--config", "")
	require.NoError(t, err)
	require.Contains(t, out, "TMT")
	require.Contains(t, out, "SIOT")
	require.Contains(t, out, "movimenti")
}
