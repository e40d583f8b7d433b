package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trafikalert/internal/cache"
)

const (
	healthKeyPrefix = "source_health:"
	healthRecordTTL = 7 * 24 * time.Hour
	maxHealthRuns   = 200
)

// RunRecord is one ingest run as persisted in the daily health key.
type RunRecord struct {
	RunID           string                  `json:"run_id"`
	Timestamp       time.Time               `json:"timestamp"`
	TotalEvents     int                     `json:"total_events"`
	UpsertedEvents  int                     `json:"upserted_events"`
	Sources         map[string]SourceHealth `json:"sources"`
	TopSourceVenues map[string][]string     `json:"top_source_venues,omitempty"`
}

// HealthRecorder persists per-run source health under a daily key so that
// operators can see how each connector behaved over the last week.
type HealthRecorder struct {
	store  cache.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewHealthRecorder builds a recorder on top of the shared cache store.
func NewHealthRecorder(store cache.Store, logger *zap.Logger) *HealthRecorder {
	return &HealthRecorder{
		store:  store,
		logger: logger.Named("health"),
		now:    time.Now,
	}
}

func healthKey(t time.Time) string {
	return healthKeyPrefix + t.UTC().Format("2006-01-02")
}

// Record appends a run entry to today's health key, keeping at most the
// latest 200 runs. An empty source map is a no-op: a run that executed no
// connectors leaves no trace. Store failures are logged, never returned,
// since telemetry must not fail the ingest run.
func (r *HealthRecorder) Record(ctx context.Context, record RunRecord) {
	if len(record.Sources) == 0 {
		return
	}
	now := r.now()
	if record.RunID == "" {
		record.RunID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = now.UTC()
	}

	key := healthKey(now)
	var runs []RunRecord
	if _, err := r.store.Get(ctx, key, &runs); err != nil {
		r.logger.Warn("reading health record failed", zap.String("key", key), zap.Error(err))
		runs = nil
	}
	runs = append(runs, record)
	if len(runs) > maxHealthRuns {
		runs = runs[len(runs)-maxHealthRuns:]
	}
	if err := r.store.Set(ctx, key, runs, healthRecordTTL); err != nil {
		r.logger.Warn("writing health record failed", zap.String("key", key), zap.Error(err))
	}

	r.logger.Info("run recorded",
		zap.String("run_id", record.RunID),
		zap.String("summary", summarize(record.Sources)))
}

// Recent returns the recorded runs for the given UTC day, newest last.
func (r *HealthRecorder) Recent(ctx context.Context, day time.Time) ([]RunRecord, error) {
	var runs []RunRecord
	ok, err := r.store.Get(ctx, healthKey(day), &runs)
	if err != nil {
		return nil, fmt.Errorf("read health record: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return runs, nil
}

// summarize renders the per-source counters as a single stable line, e.g.
// "akm=fetched:12,unique:9,errors:0 seatgeek=fetched:4,unique:4,errors:0".
func summarize(sources map[string]SourceHealth) string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		h := sources[name]
		parts = append(parts, fmt.Sprintf("%s=fetched:%d,unique:%d,errors:%d",
			name, h.Fetched, h.UniqueAdded, h.Errors))
	}
	return strings.Join(parts, " ")
}
