package shift

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var ErrUnknownView = errors.New("unknown shift view")

const (
	DayStartHour   = 8
	NightStartHour = 20

	Length = 12 * time.Hour

	DayLabel   = "Diurno (08-20)"
	NightLabel = "Notturno (20-08)"
)

type Kind int

const (
	Day Kind = iota
	Night
)

func (k Kind) String() string {
	if k == Night {
		return "NIGHT"
	}
	return "DAY"
}

func (k Kind) Label() string {
	if k == Night {
		return NightLabel
	}
	return DayLabel
}

// Window is one 12-hour operational shift. Start is inclusive; End is the
// Start of the following shift.
type Window struct {
	Start time.Time
	End   time.Time
	Kind  Kind
	Label string
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s - %s", w.Label, w.Start.Format("02/01 15:04"), w.End.Format("02/01 15:04"))
}

// Contains reports whether t lies in [Start, End], both ends included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Current returns the shift in progress at ref.
func Current(ref time.Time) Window {
	y, m, d := ref.Date()
	loc := ref.Location()
	dayStart := time.Date(y, m, d, DayStartHour, 0, 0, 0, loc)
	nightStart := time.Date(y, m, d, NightStartHour, 0, 0, 0, loc)

	switch {
	case !ref.Before(dayStart) && ref.Before(nightStart):
		return window(dayStart)
	case !ref.Before(nightStart):
		return window(nightStart)
	default:
		// Хвост ночной смены, начавшейся вчера в 20:00.
		return window(time.Date(y, m, d-1, NightStartHour, 0, 0, 0, loc))
	}
}

// Future returns count consecutive shifts following the current one.
func Future(ref time.Time, count int) []Window {
	if count <= 0 {
		return []Window{}
	}
	out := make([]Window, 0, count)
	w := Current(ref)
	for i := 0; i < count; i++ {
		w = window(w.End)
		out = append(out, w)
	}
	return out
}

// Next returns the shift immediately after the current one.
func Next(ref time.Time) Window {
	return Future(ref, 1)[0]
}

const (
	ViewCurrent = "current"
	ViewNext    = "next"
)

// ByView resolves a named view ("current" or "next") relative to ref.
func ByView(ref time.Time, view string) (Window, error) {
	switch view {
	case "", ViewCurrent:
		return Current(ref), nil
	case ViewNext:
		return Next(ref), nil
	default:
		return Window{}, errors.Wrapf(ErrUnknownView, "%q", view)
	}
}

// window builds the shift starting at start, which must sit on an 08:00 or
// 20:00 wall-clock boundary. End is computed on the wall clock so boundaries
// stay on 08/20 across DST changes.
func window(start time.Time) Window {
	y, m, d := start.Date()
	end := time.Date(y, m, d, start.Hour()+int(Length/time.Hour), 0, 0, 0, start.Location())
	k := Day
	if start.Hour() == NightStartHour {
		k = Night
	}
	return Window{Start: start, End: end, Kind: k, Label: k.Label()}
}
