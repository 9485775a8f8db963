package normalize

import (
	"strings"
	"time"
)

// DateParser turns upstream date text into instants. It never fails the
// batch: an unparsable value yields ok=false.
type DateParser struct {
	rules SourceRules
	loc   *time.Location
	now   time.Time
}

func newDateParser(rules SourceRules, loc *time.Location, now time.Time) DateParser {
	return DateParser{rules: rules, loc: loc, now: now.In(loc)}
}

func (p DateParser) Parse(raw string) (time.Time, bool) {
	s := cleanValue(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range p.rules.DateLayouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, true
		}
	}

	// Год не указан: берём текущий. На стыке декабря и января это неверно.
	for _, layout := range p.rules.YearlessLayouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return time.Date(p.now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, p.loc), true
		}
	}

	for _, layout := range p.rules.ClockLayouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			y, m, d := p.now.Date()
			return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, p.loc), true
		}
	}
	return time.Time{}, false
}

func cleanValue(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	switch strings.ToLower(s) {
	case "-", "--", "n/a", "nan", "nat", "none", "tbc", "tba":
		return ""
	}
	return s
}
