package models

import "time"

// Canonical column names. Every normalized batch carries exactly these, in this order.
const (
	ColumnTerminal = "Terminal"
	ColumnVessel   = "Vessel"
	ColumnETA      = "ETA"
	ColumnETD      = "ETD"
)

// UnknownVessel is used when a source row carries no vessel identification.
const UnknownVessel = "UNKNOWN"

// CanonicalColumns returns a fresh copy of the canonical schema.
func CanonicalColumns() []string {
	return []string{ColumnTerminal, ColumnVessel, ColumnETA, ColumnETD}
}

type Movement struct {
	Terminal string     `json:"terminal"`
	Vessel   string     `json:"vessel"`
	ETA      *time.Time `json:"eta,omitempty"`
	ETD      *time.Time `json:"etd,omitempty"`
}

// Batch is the output of one normalization pass over one source.
type Batch struct {
	Source        string
	Columns       []string
	Rows          []*Movement
	Dropped       int
	ParseFailures int
}

// Dataset is the unified, merged view of all sources.
type Dataset struct {
	Columns []string
	Rows    []*Movement
}

type SourceStatus struct {
	Source        string `json:"source"`
	Label         string `json:"label"`
	Available     bool   `json:"available"`
	Error         string `json:"error,omitempty"`
	Rows          int    `json:"rows"`
	Dropped       int    `json:"dropped"`
	ParseFailures int    `json:"parseFailures"`
}

// Snapshot is the current dataset together with the refresh that produced it.
type Snapshot struct {
	RefreshID   string         `json:"refreshId"`
	RefreshedAt time.Time      `json:"refreshedAt"`
	Columns     []string       `json:"columns"`
	Movements   []*Movement    `json:"movements"`
	Sources     []SourceStatus `json:"sources"`
}
