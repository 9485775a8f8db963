package normalize

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	SourceTMT  = "tmt"
	SourceSIOT = "siot"
)

// ColumnRule maps one raw header onto a canonical field. AdjustMinutes is
// added to ETA/ETD instants parsed from this column.
type ColumnRule struct {
	Raw           string `yaml:"raw"`
	Field         string `yaml:"field"`
	AdjustMinutes int    `yaml:"adjust_minutes"`
}

// SourceRules is the normalization recipe of one upstream.
type SourceRules struct {
	ID      string
	Label   string
	Columns []ColumnRule

	// Day-first layouts with a full date.
	DateLayouts []string
	// Layouts without a year; the year of the normalization instant is assumed.
	YearlessLayouts []string
	// Time-of-day layouts; the date of the normalization instant is assumed.
	ClockLayouts []string
}

var (
	defaultDateLayouts = []string{
		"02-01-2006 15:04:05",
		"02-01-2006 15:04",
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
		"02.01.2006 15:04",
		"02.01.2006",
		"02-01-2006",
		"02/01/2006",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	defaultYearlessLayouts = []string{
		"02.01. 15:04",
		"02.01 15:04",
		"02.01.",
		"02/01 15:04",
	}
	defaultClockLayouts = []string{
		"15:04",
		"15.04",
		"15:04:05",
	}
)

// DefaultRules returns the rule sets of the two Trieste upstreams.
func DefaultRules() []SourceRules {
	return []SourceRules{
		{
			ID:    SourceTMT,
			Label: "TMT",
			Columns: []ColumnRule{
				{Raw: "Vessel", Field: "Vessel"},
				{Raw: "Nave", Field: "Vessel"},
				{Raw: "ETB", Field: "ETA"},
				{Raw: "ETA", Field: "ETA"},
				{Raw: "ETD", Field: "ETD"},
				{Raw: "Berth", Field: "Terminal"},
			},
			DateLayouts: defaultDateLayouts,
		},
		{
			ID:    SourceSIOT,
			Label: "SIOT",
			Columns: []ColumnRule{
				{Raw: "Tanker Name", Field: "Vessel"},
				{Raw: "Tanker", Field: "Vessel"},
				{Raw: "Pier", Field: "Terminal"},
				{Raw: "Pontile", Field: "Terminal"},
				{Raw: "POB", Field: "ETA"},
				{Raw: "ETB", Field: "ETA"},
				// TLB на портале идёт с запасом: вычитаем 30 минут, чтобы совпадало с ETD у TMT.
				{Raw: "TLB", Field: "ETD", AdjustMinutes: -30},
			},
			DateLayouts:     defaultDateLayouts,
			YearlessLayouts: defaultYearlessLayouts,
			ClockLayouts:    defaultClockLayouts,
		},
	}
}

var canonicalFields = map[string]string{
	"terminal": "Terminal",
	"vessel":   "Vessel",
	"eta":      "ETA",
	"etd":      "ETD",
}

func (r SourceRules) validate() error {
	if r.ID == "" {
		return errors.New("source id is required")
	}
	if r.Label == "" {
		return errors.Errorf("source %s: label is required", r.ID)
	}
	for _, c := range r.Columns {
		if CleanLabel(c.Raw) == "" {
			return errors.Errorf("source %s: empty raw column in rules", r.ID)
		}
		if _, ok := canonicalFields[strings.ToLower(c.Field)]; !ok {
			return errors.Errorf("source %s: unknown canonical field %q", r.ID, c.Field)
		}
	}
	return nil
}

func (r SourceRules) withDefaults() SourceRules {
	out := r
	out.Columns = make([]ColumnRule, 0, len(r.Columns))
	for _, c := range r.Columns {
		c.Field = canonicalFields[strings.ToLower(c.Field)]
		out.Columns = append(out.Columns, c)
	}
	if len(out.DateLayouts) == 0 {
		out.DateLayouts = defaultDateLayouts
	}
	return out
}

// lookup finds the first rule matching a cleaned header.
func (r SourceRules) lookup(label string) (ColumnRule, bool) {
	for _, c := range r.Columns {
		if strings.EqualFold(CleanLabel(c.Raw), label) {
			return c, true
		}
	}
	return ColumnRule{}, false
}

func (c ColumnRule) adjust() time.Duration {
	return time.Duration(c.AdjustMinutes) * time.Minute
}
