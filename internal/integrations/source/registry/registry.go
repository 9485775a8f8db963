package registry

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/stefanobandi/manovre-portuali-Trieste/config"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source/fake"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source/oilportal"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source/tmthtml"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/normalize"
)

// DefaultSources is used when the config lists no sources: both upstreams
// are emulated locally.
func DefaultSources() []config.SourceConfig {
	return []config.SourceConfig{
		{ID: normalize.SourceTMT, Kind: config.SourceKindFake},
		{ID: normalize.SourceSIOT, Kind: config.SourceKindFake},
	}
}

// Rules merges the built-in rule sets with the per-source overrides of the
// config. Sources without built-in rules must declare their columns.
func Rules(sources []config.SourceConfig) ([]normalize.SourceRules, error) {
	builtin := make(map[string]normalize.SourceRules)
	for _, r := range normalize.DefaultRules() {
		builtin[r.ID] = r
	}

	out := make([]normalize.SourceRules, 0, len(sources))
	for _, sc := range sources {
		r, ok := builtin[sc.ID]
		if !ok {
			if len(sc.Columns) == 0 {
				return nil, errors.Errorf("source %s: columns are required for a custom source", sc.ID)
			}
			r = normalize.SourceRules{ID: sc.ID, Label: strings.ToUpper(sc.ID)}
		}
		if sc.Label != "" {
			r.Label = sc.Label
		}
		if len(sc.Columns) > 0 {
			r.Columns = make([]normalize.ColumnRule, 0, len(sc.Columns))
			for _, c := range sc.Columns {
				r.Columns = append(r.Columns, normalize.ColumnRule{Raw: c.Raw, Field: c.Field, AdjustMinutes: c.AdjustMinutes})
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// Fetchers builds one fetcher per configured source, in config order.
func Fetchers(sources []config.SourceConfig, now func() time.Time) ([]source.Fetcher, error) {
	out := make([]source.Fetcher, 0, len(sources))
	for _, sc := range sources {
		switch sc.Kind {
		case config.SourceKindHTML:
			out = append(out, tmthtml.New(sc.ID, sc.URL, sc.Timeout()))
		case config.SourceKindPortal:
			var delim rune
			if sc.Delimiter != "" {
				delim = []rune(sc.Delimiter)[0]
			}
			out = append(out, oilportal.New(oilportal.Config{
				ID:        sc.ID,
				LoginURL:  sc.LoginURL,
				ExportURL: sc.ExportURL,
				Username:  sc.Username,
				Password:  sc.Password,
				Delimiter: delim,
				Timeout:   sc.Timeout(),
			}))
		case config.SourceKindFake:
			out = append(out, fake.New(sc.ID).WithClock(now))
		default:
			return nil, errors.Errorf("source %s: unknown kind %q", sc.ID, sc.Kind)
		}
	}
	return out, nil
}

// Build returns the fetchers and a normalizer that knows every one of them.
func Build(sources []config.SourceConfig, loc *time.Location) ([]source.Fetcher, *normalize.Normalizer, error) {
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	rules, err := Rules(sources)
	if err != nil {
		return nil, nil, err
	}
	n, err := normalize.New(rules, loc)
	if err != nil {
		return nil, nil, err
	}
	fetchers, err := Fetchers(sources, time.Now)
	if err != nil {
		return nil, nil, err
	}
	return fetchers, n, nil
}
