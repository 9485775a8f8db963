package oilportal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source"
)

type Config struct {
	ID        string
	LoginURL  string
	ExportURL string
	Username  string
	Password  string
	// Form field names of the login page.
	UsernameField string
	PasswordField string
	Delimiter     rune
	Timeout       time.Duration
}

// Client logs into the oil terminal portal and downloads the berthing
// schedule export. Every Fetch opens a fresh session.
type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.UsernameField == "" {
		cfg.UsernameField = "username"
	}
	if cfg.PasswordField == "" {
		cfg.PasswordField = "password"
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ';'
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg}
}

func (c *Client) ID() string { return c.cfg.ID }

func (c *Client) Fetch(ctx context.Context) (source.RawBatch, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return source.RawBatch{}, source.Unavailable(c.cfg.ID, errors.Wrap(err, "cookie jar"))
	}
	httpc := &http.Client{Jar: jar, Timeout: c.cfg.Timeout}

	if c.cfg.LoginURL != "" {
		if err := c.login(ctx, httpc); err != nil {
			return source.RawBatch{}, source.Unavailable(c.cfg.ID, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ExportURL, nil)
	if err != nil {
		return source.RawBatch{}, source.Unavailable(c.cfg.ID, errors.Wrap(err, "new export request"))
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return source.RawBatch{}, source.Unavailable(c.cfg.ID, errors.Wrap(err, "download export"))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return source.RawBatch{}, source.Unavailable(c.cfg.ID, fmt.Errorf("portal session rejected (%d)", resp.StatusCode))
	}
	if resp.StatusCode/100 != 2 {
		return source.RawBatch{}, source.Unavailable(c.cfg.ID, fmt.Errorf("portal export http %d", resp.StatusCode))
	}
	// Портал при протухшей сессии отдаёт 200 со страницей логина.
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return source.RawBatch{}, source.Unavailable(c.cfg.ID, errors.New("portal returned html instead of export"))
	}

	batch, err := ReadExport(resp.Body, c.cfg.Delimiter)
	if err != nil {
		return source.RawBatch{}, source.Unavailable(c.cfg.ID, err)
	}
	batch.Source = c.cfg.ID
	return batch, nil
}

func (c *Client) login(ctx context.Context, httpc *http.Client) error {
	form := url.Values{}
	form.Set(c.cfg.UsernameField, c.cfg.Username)
	form.Set(c.cfg.PasswordField, c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "new login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "login")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("portal login http %d", resp.StatusCode)
	}
	return nil
}

// ReadExport parses a delimited export. The first non-empty record is the
// header; blank lines are skipped.
func ReadExport(r io.Reader, delimiter rune) (source.RawBatch, error) {
	reader := gocsv.LazyCSVReader(r)
	if cr, ok := reader.(*csv.Reader); ok {
		cr.Comma = delimiter
		cr.FieldsPerRecord = -1
	}
	records, err := reader.ReadAll()
	if err != nil {
		return source.RawBatch{}, errors.Wrap(err, "read export")
	}

	out := source.RawBatch{Rows: [][]string{}}
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		if out.Columns == nil {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			out.Columns = rec
			continue
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
