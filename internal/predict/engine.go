// Package predict generates congestion forecasts with a transparent rule
// engine. Every applied rule lands in the factor map so a score is always
// explainable.
package predict

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trafikalert/internal/store"
)

// Score applies the congestion rules to one zone at one target time.
// Rules, in order: base score from the zone level, rush hour (07-09 and
// 17-19) +25, Friday or Saturday +15, nearby event over 5000 capacity +20
// with another +15 over 20000, rain +10. The total is clamped to 0-100.
func Score(zone store.Zone, targetTime time.Time, nearby *store.NearbyEvent, isRaining bool) (int, float64, map[string]float64) {
	factors := make(map[string]float64)
	score := zone.BaseCongestionLevel * 100
	factors["base_score"] = score
	confidence := 0.8

	if isRushHour(targetTime.Hour()) {
		score += 25
		factors["rush_hour"] = 25
	}
	if wd := targetTime.Weekday(); wd == time.Friday || wd == time.Saturday {
		score += 15
		factors["weekend_start"] = 15
	}
	if nearby != nil {
		score += 20
		factors["event_nearby"] = 20
		if nearby.Capacity > 20000 {
			score += 15
			factors["large_event"] = 15
		}
	}
	if isRaining {
		score += 10
		factors["rain"] = 10
		confidence = 0.7
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	factors["total_score"] = score
	return int(score), confidence, factors
}

func isRushHour(hour int) bool {
	return (hour >= 7 && hour < 9) || (hour >= 17 && hour < 19)
}

// Backend is the persistence surface the engine needs.
type Backend interface {
	ListZones(ctx context.Context) ([]store.Zone, error)
	FindNearbyEvent(ctx context.Context, zoneID uuid.UUID, targetTime time.Time) (*store.NearbyEvent, error)
	InsertPredictions(ctx context.Context, preds []store.Prediction) error
}

// Engine generates and persists forecasts for every zone.
type Engine struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine builds the engine over the given backend.
func NewEngine(backend Backend, logger *zap.Logger) *Engine {
	return &Engine{
		backend: backend,
		logger:  logger.Named("predict"),
		now:     time.Now,
	}
}

// GenerateAll scores every zone for each of the next 24 hours and persists
// the batch. It returns the number of predictions written.
func (e *Engine) GenerateAll(ctx context.Context) (int, error) {
	zones, err := e.backend.ListZones(ctx)
	if err != nil {
		return 0, fmt.Errorf("load zones: %w", err)
	}
	now := e.now().UTC()

	var preds []store.Prediction
	for _, zone := range zones {
		for hour := 1; hour <= 24; hour++ {
			targetTime := now.Add(time.Duration(hour) * time.Hour)
			nearby, err := e.backend.FindNearbyEvent(ctx, zone.ID, targetTime)
			if err != nil {
				return 0, fmt.Errorf("zone %s nearby events: %w", zone.Name, err)
			}
			score, confidence, factors := Score(zone, targetTime, nearby, false)
			pred := store.Prediction{
				ZoneID:          zone.ID,
				PredictedAt:     now,
				TargetTime:      targetTime,
				CongestionScore: score,
				Confidence:      confidence,
				Factors:         factors,
			}
			if nearby != nil {
				id := nearby.ID
				pred.EventID = &id
			}
			preds = append(preds, pred)
		}
	}

	if err := e.backend.InsertPredictions(ctx, preds); err != nil {
		return 0, fmt.Errorf("store predictions: %w", err)
	}
	e.logger.Info("predictions generated",
		zap.Int("zones", len(zones)),
		zap.Int("predictions", len(preds)))
	return len(preds), nil
}
