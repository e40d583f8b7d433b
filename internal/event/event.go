// Package event defines the normalized event record produced by every
// source connector, together with the pure text heuristics (date parsing,
// category inference) the connectors share.
package event

import (
	"fmt"
	"time"
)

// DefaultCity is assumed when a source provides no city of its own.
const DefaultCity = "İstanbul"

// Event is the canonical record a connector extracts from an upstream
// source. Source plus SourceID identify the record across one ingestion
// run; free-text fields default to empty strings, never null.
type Event struct {
	Source      string     `json:"source"`
	SourceID    string     `json:"source_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Venue       string     `json:"venue"`
	City        string     `json:"city"`
	Lat         *float64   `json:"lat,omitempty"`
	Lon         *float64   `json:"lon,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	URL         string     `json:"url"`
	Category    string     `json:"category"`
	Capacity    *int       `json:"capacity,omitempty"`
}

// DedupKey identifies the event across one ingestion run.
func (e Event) DedupKey() string {
	return e.Source + ":" + e.SourceID
}

// Validate enforces the required fields. Everything else is optional; an
// absent StartAt marks the event as undated, which is valid inside the
// pipeline but filtered out before the storage sink.
func (e Event) Validate() error {
	if e.Source == "" {
		return fmt.Errorf("event missing source")
	}
	if e.SourceID == "" {
		return fmt.Errorf("event %s missing source id", e.Source)
	}
	if e.Title == "" {
		return fmt.Errorf("event %s missing title", e.DedupKey())
	}
	return nil
}
