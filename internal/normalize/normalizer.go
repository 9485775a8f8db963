package normalize

import (
	"strings"
	"time"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/integrations/source"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
	"github.com/pkg/errors"
)

var (
	ErrUnknownSource   = errors.New("unknown source")
	ErrSchemaViolation = errors.New("schema violation")
)

const labelNoise = " \t\r\n.:;,*#\"'"

// CleanLabel strips whitespace and stray punctuation from a raw header.
func CleanLabel(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Trim(s, labelNoise)
	return strings.Join(strings.Fields(s), " ")
}

type Normalizer struct {
	rules map[string]SourceRules
	loc   *time.Location
	now   func() time.Time
}

// New builds a normalizer for the given rule sets. Instants are parsed in loc
// (UTC when nil).
func New(rules []SourceRules, loc *time.Location) (*Normalizer, error) {
	if loc == nil {
		loc = time.UTC
	}
	n := &Normalizer{
		rules: make(map[string]SourceRules, len(rules)),
		loc:   loc,
		now:   time.Now,
	}
	for _, r := range rules {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, ok := n.rules[r.ID]; ok {
			return nil, errors.Errorf("duplicate rules for source %s", r.ID)
		}
		n.rules[r.ID] = r.withDefaults()
	}
	return n, nil
}

// WithClock overrides the instant used to infer missing years and dates.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	if now != nil {
		n.now = now
	}
	return n
}

func (n *Normalizer) Label(sourceID string) string {
	if r, ok := n.rules[sourceID]; ok {
		return r.Label
	}
	return sourceID
}

// Empty returns a valid empty batch for a source whose fetch failed.
func (n *Normalizer) Empty(sourceID string) models.Batch {
	return models.Batch{
		Source:  sourceID,
		Columns: models.CanonicalColumns(),
		Rows:    []*models.Movement{},
	}
}

type projection struct {
	index map[string]int
	rule  map[string]ColumnRule
}

func (n *Normalizer) project(rules SourceRules, columns []string) projection {
	p := projection{index: map[string]int{}, rule: map[string]ColumnRule{}}
	for i, c := range columns {
		r, ok := rules.lookup(CleanLabel(c))
		if !ok {
			continue
		}
		if _, taken := p.index[r.Field]; taken {
			continue
		}
		p.index[r.Field] = i
		p.rule[r.Field] = r
	}
	return p
}

func (p projection) value(row []string, field string) (string, ColumnRule, bool) {
	i, ok := p.index[field]
	if !ok || i >= len(row) {
		return "", p.rule[field], ok
	}
	return row[i], p.rule[field], true
}

func (n *Normalizer) Normalize(sourceID string, raw source.RawBatch) (models.Batch, error) {
	rules, ok := n.rules[sourceID]
	if !ok {
		return models.Batch{}, errors.Wrap(ErrUnknownSource, sourceID)
	}
	out := n.Empty(sourceID)
	if len(raw.Columns) == 0 || raw.Len() == 0 {
		return out, nil
	}

	p := n.project(rules, raw.Columns)
	dp := newDateParser(rules, n.loc, n.now())

	for _, row := range raw.Rows {
		m := &models.Movement{Terminal: rules.Label, Vessel: models.UnknownVessel}

		if v, _, ok := p.value(row, models.ColumnTerminal); ok {
			if v = cleanValue(v); v != "" {
				m.Terminal = rules.Label + " - " + v
			}
		}
		if v, _, ok := p.value(row, models.ColumnVessel); ok {
			if v = cleanValue(v); v != "" {
				m.Vessel = v
			}
		}

		failed := false
		m.ETA, failed = n.instant(dp, p, row, models.ColumnETA, failed)
		m.ETD, failed = n.instant(dp, p, row, models.ColumnETD, failed)
		if failed {
			out.ParseFailures++
		}

		if m.ETA == nil && m.ETD == nil {
			out.Dropped++
			continue
		}
		out.Rows = append(out.Rows, m)
	}

	if err := CheckSchema(out.Columns); err != nil {
		return models.Batch{}, errors.Wrap(err, sourceID)
	}
	return out, nil
}

func (n *Normalizer) instant(dp DateParser, p projection, row []string, field string, failed bool) (*time.Time, bool) {
	v, rule, ok := p.value(row, field)
	if !ok || cleanValue(v) == "" {
		return nil, failed
	}
	t, ok := dp.Parse(v)
	if !ok {
		return nil, true
	}
	t = t.Add(rule.adjust())
	return &t, failed
}

// CheckSchema verifies that columns are exactly the canonical schema.
func CheckSchema(columns []string) error {
	want := models.CanonicalColumns()
	if len(columns) != len(want) {
		return errors.Wrapf(ErrSchemaViolation, "got %d columns, want %d", len(columns), len(want))
	}
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if _, dup := seen[c]; dup {
			return errors.Wrapf(ErrSchemaViolation, "duplicate column %q", c)
		}
		seen[c] = struct{}{}
		if c != want[i] {
			return errors.Wrapf(ErrSchemaViolation, "column %d is %q, want %q", i, c, want[i])
		}
	}
	return nil
}
