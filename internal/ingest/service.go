// Package ingest orchestrates the event connectors: it runs every enabled
// connector in priority order, de-duplicates the combined result and tracks
// per-source health for the current run.
package ingest

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"trafikalert/internal/connectors"
	"trafikalert/internal/event"
	"trafikalert/internal/httpx"
	"trafikalert/internal/metrics"
)

// SourceHealth is the per-connector outcome of the latest run.
type SourceHealth struct {
	Fetched        int `json:"fetched"`
	UniqueAdded    int `json:"unique_added"`
	Errors         int `json:"errors"`
	MissingStartAt int `json:"missing_start_at"`
}

// Service runs the connector set and aggregates their events.
type Service struct {
	connectors []connectors.Connector
	logger     *zap.Logger

	mu         sync.Mutex
	lastHealth map[string]*SourceHealth
}

// New builds the orchestrator over the given connectors. The slice order is
// the de-duplication priority: when two sources report the same event the
// earlier connector wins.
func New(conns []connectors.Connector, logger *zap.Logger) *Service {
	return &Service{
		connectors: conns,
		logger:     logger.Named("ingest"),
		lastHealth: make(map[string]*SourceHealth),
	}
}

// Filter returns the connectors that survive the enabled/disabled sets.
// The enabled set restricts only when it is non-empty and not the "*"
// wildcard; an empty set keeps the full list. Matching is
// case-insensitive and the input order is preserved.
func Filter(conns []connectors.Connector, enabled, disabled map[string]struct{}) []connectors.Connector {
	_, wildcard := enabled["*"]
	restrict := len(enabled) > 0 && !wildcard
	var kept []connectors.Connector
	for _, c := range conns {
		name := strings.ToLower(c.Name())
		if _, off := disabled[name]; off {
			continue
		}
		if restrict {
			if _, on := enabled[name]; !on {
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept
}

// GetEvents runs every connector sequentially and returns the de-duplicated
// event list. A connector failure never aborts the run; it is recorded in
// that source's health and the remaining connectors still execute.
func (s *Service) GetEvents(ctx context.Context) ([]event.Event, error) {
	started := time.Now()
	health := make(map[string]*SourceHealth, len(s.connectors))
	seen := make(map[string]struct{})
	var merged []event.Event

	for _, conn := range s.connectors {
		name := conn.Name()
		h := &SourceHealth{}
		health[name] = h

		events, err := conn.FetchEvents(ctx)
		if err != nil {
			h.Errors = 1
			metrics.ObserveConnectorError(name)
			if httpx.IsCircuitOpen(err) {
				s.logger.Warn("connector skipped, circuit open",
					zap.String("source", name), zap.Error(err))
			} else {
				s.logger.Error("connector failed",
					zap.String("source", name), zap.Error(err))
			}
			continue
		}

		h.Fetched = len(events)
		for _, ev := range events {
			key := ev.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, ev)
			h.UniqueAdded++
		}

		metrics.ObserveEventsFetched(name, h.Fetched)
		metrics.ObserveEventsUnique(name, h.UniqueAdded)
		s.logger.Info("connector finished",
			zap.String("source", name),
			zap.Int("fetched", h.Fetched),
			zap.Int("unique_added", h.UniqueAdded))
	}

	s.mu.Lock()
	s.lastHealth = health
	s.mu.Unlock()

	metrics.ObserveIngestRun(time.Since(started))
	s.logger.Info("ingest run complete",
		zap.Int("sources", len(s.connectors)),
		zap.Int("events", len(merged)),
		zap.Duration("elapsed", time.Since(started)))
	return merged, nil
}

// LastSourceHealth returns a copy of the per-source health from the most
// recent GetEvents run.
func (s *Service) LastSourceHealth() map[string]SourceHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]SourceHealth, len(s.lastHealth))
	for name, h := range s.lastHealth {
		out[name] = *h
	}
	return out
}

// noteMissingStartAt bumps the missing_start_at counter for source. The
// storage stage calls this for events it drops for lacking a start time.
func (s *Service) noteMissingStartAt(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.lastHealth[source]
	if !ok {
		h = &SourceHealth{}
		s.lastHealth[source] = h
	}
	h.MissingStartAt++
}
