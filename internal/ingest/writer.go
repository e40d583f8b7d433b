package ingest

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"trafikalert/internal/event"
)

const (
	maxFieldRunes    = 255
	placeholderTitle = "Untitled Event"
	placeholderVenue = "Unknown"
	topVenuesPerSrc  = 3
)

// EventStore is the persistence boundary the writer needs.
type EventStore interface {
	UpsertEvent(ctx context.Context, ev event.Event) error
}

// Writer is the storage stage of the ingest pipeline. It sanitizes events,
// drops the undated ones, upserts the rest and records the run's health.
type Writer struct {
	store    EventStore
	service  *Service
	recorder *HealthRecorder
	logger   *zap.Logger
}

// NewWriter builds the storage stage.
func NewWriter(store EventStore, service *Service, recorder *HealthRecorder, logger *zap.Logger) *Writer {
	return &Writer{
		store:    store,
		service:  service,
		recorder: recorder,
		logger:   logger.Named("writer"),
	}
}

// Run executes a full ingest cycle: fetch, sanitize, upsert, record.
// It returns the number of events written.
func (w *Writer) Run(ctx context.Context) (int, error) {
	events, err := w.service.GetEvents(ctx)
	if err != nil {
		return 0, err
	}
	return w.StoreEvents(ctx, events)
}

// StoreEvents sanitizes and upserts the given events and records the run's
// health. Events without a start time are dropped and counted against their
// source. It returns the number of events written.
func (w *Writer) StoreEvents(ctx context.Context, events []event.Event) (int, error) {
	upserted := 0
	venueCounts := make(map[string]map[string]int)
	for _, ev := range events {
		if ev.StartAt == nil {
			w.service.noteMissingStartAt(ev.Source)
			continue
		}
		sanitize(&ev)
		if err := w.store.UpsertEvent(ctx, ev); err != nil {
			w.logger.Error("upsert failed",
				zap.String("source", ev.Source),
				zap.String("source_id", ev.SourceID),
				zap.Error(err))
			continue
		}
		upserted++
		if venueCounts[ev.Source] == nil {
			venueCounts[ev.Source] = make(map[string]int)
		}
		venueCounts[ev.Source][ev.Venue]++
	}

	w.recorder.Record(ctx, RunRecord{
		TotalEvents:     len(events),
		UpsertedEvents:  upserted,
		Sources:         w.service.LastSourceHealth(),
		TopSourceVenues: topVenues(venueCounts),
	})
	return upserted, nil
}

// sanitize enforces the storage field limits. Titles and venues are capped
// at 255 runes with an ellipsis and empty ones get a placeholder so that a
// row never violates the schema.
func sanitize(ev *event.Event) {
	ev.Title = clampField(ev.Title, placeholderTitle)
	ev.Venue = clampField(ev.Venue, placeholderVenue)
	if ev.City == "" {
		ev.City = event.DefaultCity
	}
}

func clampField(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	runes := []rune(value)
	if len(runes) <= maxFieldRunes {
		return value
	}
	return string(runes[:maxFieldRunes-1]) + "…"
}

// topVenues reduces the per-source venue counts to the few busiest venues
// each, most frequent first with ties broken alphabetically.
func topVenues(counts map[string]map[string]int) map[string][]string {
	if len(counts) == 0 {
		return nil
	}
	out := make(map[string][]string, len(counts))
	for source, venues := range counts {
		names := make([]string, 0, len(venues))
		for name := range venues {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if venues[names[i]] != venues[names[j]] {
				return venues[names[i]] > venues[names[j]]
			}
			return names[i] < names[j]
		})
		if len(names) > topVenuesPerSrc {
			names = names[:topVenuesPerSrc]
		}
		out[source] = names
	}
	return out
}
