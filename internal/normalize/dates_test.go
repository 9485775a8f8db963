package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateParser(t *testing.T) {
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	rules := DefaultRules()[1].withDefaults()
	p := newDateParser(rules, time.UTC, now)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"14-03-2024 08:30:00", time.Date(2024, 3, 14, 8, 30, 0, 0, time.UTC)},
		{"05/04/2024 21:15", time.Date(2024, 4, 5, 21, 15, 0, 0, time.UTC)},
		{"05.04.2024", time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)},
		{"05.04.", time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)},
		{" 05.04.  06:45 ", time.Date(2024, 4, 5, 6, 45, 0, 0, time.UTC)},
		{"18:45", time.Date(2024, 3, 14, 18, 45, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, ok := p.Parse(c.in)
		require.True(t, ok, c.in)
		require.Equal(t, c.want, got, c.in)
	}

	for _, bad := range []string{"", "-", "NaT", "tomorrow", "32-13-2024 10:00"} {
		_, ok := p.Parse(bad)
		require.False(t, ok, bad)
	}
}

func TestDateParser_DayFirst(t *testing.T) {
	p := newDateParser(DefaultRules()[0].withDefaults(), time.UTC, time.Now())
	got, ok := p.Parse("03-04-2024 12:00:00")
	require.True(t, ok)
	require.Equal(t, time.April, got.Month())
	require.Equal(t, 3, got.Day())
}

func TestDateParser_TMTIgnoresClockOnlyValues(t *testing.T) {
	p := newDateParser(DefaultRules()[0].withDefaults(), time.UTC, time.Now())
	_, ok := p.Parse("18:45")
	require.False(t, ok)
}

func TestDateParser_Location(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	p := newDateParser(DefaultRules()[0].withDefaults(), loc, time.Now())
	got, ok := p.Parse("14-03-2024 08:30:00")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 14, 7, 30, 0, 0, time.UTC), got.UTC())
}
