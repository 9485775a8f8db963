package fake

import (
	"bytes"
	"context"
	"hash/fnv"
	"time"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source/oilportal"
)

// Client is a stand-in upstream for local runs and demos. It produces a
// deterministic table shaped like the real source, relative to its clock.
type Client struct {
	id  string
	now func() time.Time
	err error
}

func New(id string) *Client {
	return &Client{id: id, now: time.Now}
}

func (f *Client) WithClock(now func() time.Time) *Client {
	f.now = now
	return f
}

// WithError makes every Fetch fail as an unavailable source.
func (f *Client) WithError(err error) *Client {
	f.err = err
	return f
}

func (f *Client) ID() string { return f.id }

func (f *Client) Fetch(ctx context.Context) (source.RawBatch, error) {
	if err := ctx.Err(); err != nil {
		return source.RawBatch{}, source.Unavailable(f.id, err)
	}
	if f.err != nil {
		return source.RawBatch{}, source.Unavailable(f.id, f.err)
	}

	base := f.now().Truncate(time.Hour)
	if f.id == "siot" {
		b, err := f.oilTable(base)
		if err != nil {
			return source.RawBatch{}, source.Unavailable(f.id, err)
		}
		return b, nil
	}
	return f.containerTable(base), nil
}

var vessels = []string{"MSC ALINA", "MAERSK KOWLOON", "ZIM CHICAGO", "EVER GIVEN", "CMA CGM TAGE", "YM WISDOM"}

var tankers = []string{"SEA STAR", "NORDIC AURORA", "AEGEAN PEARL", "TORM MARIE"}

// offset spreads vessels over the next day or so; it depends only on the name.
func offset(name string, spread int) time.Duration {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return time.Duration(int(h.Sum32()%uint32(spread))-6) * time.Hour
}

func (f *Client) containerTable(base time.Time) source.RawBatch {
	b := source.RawBatch{
		Source:  f.id,
		Columns: []string{"Vessel", "Agent", "ETB", "ETD", "Viaggio"},
		Rows:    [][]string{},
	}
	for i, v := range vessels {
		etb := base.Add(offset(v, 30))
		etd := etb.Add(time.Duration(14+i%3*6) * time.Hour)
		b.Rows = append(b.Rows, []string{
			v, "Agenzia Marittima", etb.Format("02-01-2006 15:04:05"), etd.Format("02-01-2006 15:04:05"), "V" + etb.Format("0102"),
		})
	}
	return b
}

// oilTable goes through the portal export codec, like the real download.
func (f *Client) oilTable(base time.Time) (source.RawBatch, error) {
	rows := make([]oilportal.ExportRow, 0, len(tankers))
	for i, v := range tankers {
		pob := base.Add(offset(v, 24))
		tlb := pob.Add(time.Duration(20+i*4) * time.Hour)
		rows = append(rows, oilportal.ExportRow{
			TankerName: v,
			Pier:       string(rune('1' + i%4)),
			POB:        pob.Format("02.01. 15:04"),
			TLB:        tlb.Format("02.01. 15:04"),
		})
	}
	data, err := oilportal.EncodeExport(rows, ';')
	if err != nil {
		return source.RawBatch{}, err
	}
	b, err := oilportal.ReadExport(bytes.NewReader(data), ';')
	if err != nil {
		return source.RawBatch{}, err
	}
	b.Source = f.id
	return b, nil
}
