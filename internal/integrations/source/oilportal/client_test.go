package oilportal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source"
)

const export = "\ufeffTanker Name;Pier;POB;TLB\n" +
	"SEA STAR;2;13.03. 22:00;18:45\n" +
	"\n" +
	"OCEAN \"BLUE\";1;14.03.;\n"

func portal(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != "ops" || r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "ok", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/export.csv", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err != nil || c.Value != "ok" {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>login</html>"))
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(export))
	})
	return httptest.NewServer(mux)
}

func TestClient_Fetch_OK(t *testing.T) {
	srv := portal(t)
	defer srv.Close()

	c := New(Config{
		ID:        "siot",
		LoginURL:  srv.URL + "/login",
		ExportURL: srv.URL + "/export.csv",
		Username:  "ops",
		Password:  "secret",
	})
	require.Equal(t, "siot", c.ID())

	b, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "siot", b.Source)
	require.Equal(t, []string{"Tanker Name", "Pier", "POB", "TLB"}, b.Columns)
	require.Len(t, b.Rows, 2)
	require.Equal(t, "18:45", b.Rows[0][3])
	require.Equal(t, "14.03.", b.Rows[1][2])
}

func TestClient_Fetch_BadCredentials(t *testing.T) {
	srv := portal(t)
	defer srv.Close()

	c := New(Config{ID: "siot", LoginURL: srv.URL + "/login", ExportURL: srv.URL + "/export.csv", Username: "ops", Password: "nope"})
	_, err := c.Fetch(context.Background())
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
}

func TestClient_Fetch_SessionMissing(t *testing.T) {
	srv := portal(t)
	defer srv.Close()

	c := New(Config{ID: "siot", ExportURL: srv.URL + "/export.csv"})
	_, err := c.Fetch(context.Background())
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
	require.Contains(t, err.Error(), "html")
}

func TestReadExport_CommaDelimited(t *testing.T) {
	b, err := ReadExport(strings.NewReader("Tanker Name,TLB\nA,10:00\nB\n"), ',')
	require.NoError(t, err)
	require.Equal(t, []string{"Tanker Name", "TLB"}, b.Columns)
	require.Equal(t, [][]string{{"A", "10:00"}, {"B"}}, b.Rows)
}

func TestReadExport_Empty(t *testing.T) {
	b, err := ReadExport(strings.NewReader(""), ';')
	require.NoError(t, err)
	require.Nil(t, b.Columns)
	require.Empty(t, b.Rows)
}
