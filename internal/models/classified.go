package models

import "time"

type Action int

const (
	ActionNone Action = iota
	ActionArrival
	ActionDeparture
	ActionArrivalAndDeparture
)

func (a Action) String() string {
	switch a {
	case ActionArrival:
		return "ARRIVAL"
	case ActionDeparture:
		return "DEPARTURE"
	case ActionArrivalAndDeparture:
		return "ARRIVAL_AND_DEPARTURE"
	default:
		return "NONE"
	}
}

// Label is the operator-facing text shown next to each manoeuvre.
func (a Action) Label() string {
	switch a {
	case ActionArrival:
		return "ARRIVO"
	case ActionDeparture:
		return "PARTENZA"
	case ActionArrivalAndDeparture:
		return "ARRIVO + PARTENZA"
	default:
		return "-"
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ARRIVAL":
		*a = ActionArrival
	case "DEPARTURE":
		*a = ActionDeparture
	case "ARRIVAL_AND_DEPARTURE":
		*a = ActionArrivalAndDeparture
	default:
		*a = ActionNone
	}
	return nil
}

type ClassifiedMovement struct {
	Movement
	Action  Action     `json:"action"`
	SortKey *time.Time `json:"sortKey,omitempty"`
}
