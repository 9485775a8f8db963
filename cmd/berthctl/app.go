package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/stefanobandi/manovre-portuali-Trieste/config"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source/oilportal"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source/registry"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/movements"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/normalize"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/services/refresher"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/shift"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/store"
)

const displayLayout = "02/01 15:04"

func newApp(out io.Writer) *cli.App {
	tzFlag := &cli.StringFlag{
		Name:  "tz",
		Value: "Europe/Rome",
		Usage: "timezone of the port wall clock",
	}
	atFlag := &cli.StringFlag{
		Name:  "at",
		Usage: "simulated reference time, RFC 3339 or 2006-01-02T15:04 on the port clock",
	}

	return &cli.App{
		Name:      "berthctl",
		Usage:     "inspect Trieste berthing schedules and shifts",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			{
				Name:  "shifts",
				Usage: "list the current and upcoming shifts",
				Flags: []cli.Flag{
					tzFlag,
					atFlag,
					&cli.IntFlag{Name: "count", Value: 3, Usage: "number of shifts to list"},
				},
				Action: func(c *cli.Context) error {
					ref, err := reference(c)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "TURNO\tINIZIO\tFINE")
					for _, w := range upcoming(ref, c.Int("count")) {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", w.Label, w.Start.Format(displayLayout), w.End.Format(displayLayout))
					}
					return tw.Flush()
				},
			},
			{
				Name:  "normalize",
				Usage: "normalize a delimited export file of one source",
				Flags: []cli.Flag{
					tzFlag,
					atFlag,
					&cli.StringFlag{Name: "source", Value: normalize.SourceSIOT, Usage: "source id (tmt or siot)"},
					&cli.StringFlag{Name: "file", Required: true, Usage: "path of the export file"},
					&cli.StringFlag{Name: "delimiter", Value: ";", Usage: "field delimiter"},
				},
				Action: func(c *cli.Context) error {
					batch, err := normalizeFile(c)
					if err != nil {
						return err
					}
					enc := json.NewEncoder(c.App.Writer)
					enc.SetIndent("", "  ")
					return enc.Encode(batch)
				},
			},
			{
				Name:  "board",
				Usage: "show the movements of a shift from an export file",
				Flags: []cli.Flag{
					tzFlag,
					atFlag,
					&cli.StringFlag{Name: "source", Value: normalize.SourceSIOT, Usage: "source id (tmt or siot)"},
					&cli.StringFlag{Name: "file", Required: true, Usage: "path of the export file"},
					&cli.StringFlag{Name: "delimiter", Value: ";", Usage: "field delimiter"},
					&cli.StringFlag{Name: "view", Value: shift.ViewCurrent, Usage: "current or next"},
				},
				Action: func(c *cli.Context) error {
					batch, err := normalizeFile(c)
					if err != nil {
						return err
					}
					ref, err := reference(c)
					if err != nil {
						return err
					}
					w, err := shift.ByView(ref, c.String("view"))
					if err != nil {
						return err
					}
					return printBoard(c.App.Writer, w, movements.Filter(batch.Rows, w))
				},
			},
			{
				Name:  "refresh",
				Usage: "refresh the dataset through a worker, or locally with --local",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "worker", Value: "http://localhost:8082", Usage: "worker base URL"},
					&cli.BoolFlag{Name: "local", Usage: "fetch the configured sources in-process"},
					&cli.StringFlag{Name: "config", EnvVars: []string{"configPath"}, Usage: "config file for --local"},
					&cli.DurationFlag{Name: "timeout", Value: 2 * time.Minute},
				},
				Action: func(c *cli.Context) error {
					ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
					defer cancel()
					if c.Bool("local") {
						return refreshLocal(ctx, c)
					}
					return refreshRemote(ctx, c.App.Writer, c.String("worker"))
				},
			},
		},
	}
}

func location(c *cli.Context) (*time.Location, error) {
	loc, err := time.LoadLocation(c.String("tz"))
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %s", c.String("tz"))
	}
	return loc, nil
}

func reference(c *cli.Context) (time.Time, error) {
	loc, err := location(c)
	if err != nil {
		return time.Time{}, err
	}
	v := c.String("at")
	if v == "" {
		return time.Now().In(loc), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", v, loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid --at %q", v)
	}
	return t, nil
}

func normalizeFile(c *cli.Context) (models.Batch, error) {
	loc, err := location(c)
	if err != nil {
		return models.Batch{}, err
	}
	delim := []rune(c.String("delimiter"))
	if len(delim) != 1 {
		return models.Batch{}, errors.New("delimiter must be a single character")
	}

	f, err := os.Open(c.String("file"))
	if err != nil {
		return models.Batch{}, errors.Wrap(err, "open export")
	}
	defer f.Close()

	raw, err := oilportal.ReadExport(f, delim[0])
	if err != nil {
		return models.Batch{}, err
	}
	raw.Source = c.String("source")

	// Год и дата для неполных значений берутся от опорного времени.
	ref, err := reference(c)
	if err != nil {
		return models.Batch{}, err
	}
	n, err := normalize.New(normalize.DefaultRules(), loc)
	if err != nil {
		return models.Batch{}, err
	}
	return n.WithClock(func() time.Time { return ref }).Normalize(raw.Source, raw)
}

func printBoard(out io.Writer, w shift.Window, rows []*models.ClassifiedMovement) error {
	fmt.Fprintln(out, w.String())
	if len(rows) == 0 {
		fmt.Fprintln(out, "Nessuna manovra prevista.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORA\tAZIONE\tNAVE\tTERMINAL")
	for _, m := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.SortKey.In(w.Start.Location()).Format(displayLayout), m.Action.Label(), m.Vessel, m.Terminal)
	}
	return tw.Flush()
}

func refreshRemote(ctx context.Context, out io.Writer, worker string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(worker, "/")+"/refresh", nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "call worker")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("worker returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, err = out.Write(body)
	return err
}

func refreshLocal(ctx context.Context, c *cli.Context) error {
	sources := registry.DefaultSources()
	loc := time.UTC
	if p := c.String("config"); p != "" {
		cfg, err := config.LoadConfig(p)
		if err != nil {
			return err
		}
		if len(cfg.Sources) > 0 {
			sources = cfg.Sources
		}
		if loc, err = cfg.Berth.Location(); err != nil {
			return err
		}
	}

	fetchers, n, err := registry.Build(sources, loc)
	if err != nil {
		return err
	}
	snap, err := refresher.New(fetchers, n, store.New(), nil, nil, "").RefreshOnce(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FONTE\tSTATO\tRIGHE\tSCARTATE\tERRORI DATA")
	for _, st := range snap.Sources {
		state := "ok"
		if !st.Available {
			state = st.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", st.Label, state, st.Rows, st.Dropped, st.ParseFailures)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d movimenti, refresh %s\n", len(snap.Movements), snap.RefreshID)
	return nil
}

// upcoming lists count shifts starting with the one containing ref.
func upcoming(ref time.Time, count int) []shift.Window {
	if count <= 0 {
		return nil
	}
	return append([]shift.Window{shift.Current(ref)}, shift.Future(ref, count-1)...)
}
