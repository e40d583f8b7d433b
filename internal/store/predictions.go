package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Zone is a traffic analysis zone row.
type Zone struct {
	ID                  uuid.UUID
	Name                string
	BaseCongestionLevel float64
	RushHourMultiplier  float64
}

// Prediction is one congestion forecast for a zone at a target time.
type Prediction struct {
	ZoneID          uuid.UUID
	EventID         *uuid.UUID
	PredictedAt     time.Time
	TargetTime      time.Time
	CongestionScore int
	Confidence      float64
	Factors         map[string]float64
}

// PredictionRow is a stored prediction joined with its zone geometry, as
// served by the API.
type PredictionRow struct {
	ID              uuid.UUID
	ZoneID          uuid.UUID
	EventID         *uuid.UUID
	TargetTime      time.Time
	CongestionScore int
	Confidence      float64
	Factors         map[string]float64
	GeometryJSON    string
}

// NearbyEvent is the largest-capacity event close to a zone around a
// target time, as consumed by the rule engine.
type NearbyEvent struct {
	ID       uuid.UUID
	Capacity int
}

// ListZones returns every traffic zone, name order.
func (s *Store) ListZones(ctx context.Context) ([]Zone, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, name, base_congestion_level, rush_hour_multiplier
FROM traffic_zones
ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		var z Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.BaseCongestionLevel, &z.RushHourMultiplier); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	return zones, nil
}

const predictionChunkSize = 100

// InsertPredictions writes the predictions in multi-row chunks. All
// predictions for one ingest cycle land together; a chunk failure aborts
// the remainder.
func (s *Store) InsertPredictions(ctx context.Context, preds []Prediction) error {
	for start := 0; start < len(preds); start += predictionChunkSize {
		end := start + predictionChunkSize
		if end > len(preds) {
			end = len(preds)
		}
		if err := s.insertPredictionChunk(ctx, preds[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertPredictionChunk(ctx context.Context, preds []Prediction) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO predictions (zone_id, event_id, predicted_at, target_time, congestion_score, confidence, factors) VALUES `)
	args := make([]any, 0, len(preds)*7)
	for i, p := range preds {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		factors, err := json.Marshal(p.Factors)
		if err != nil {
			return fmt.Errorf("marshal factors: %w", err)
		}
		args = append(args, p.ZoneID, p.EventID, p.PredictedAt, p.TargetTime,
			p.CongestionScore, p.Confidence, factors)
	}
	if _, err := s.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert predictions: %w", err)
	}
	return nil
}

const findPredictionsSQL = `
SELECT p.id, p.zone_id, p.event_id, p.target_time, p.congestion_score,
       p.confidence, p.factors, ST_AsGeoJSON(z.polygon)
FROM predictions p
JOIN traffic_zones z ON z.id = p.zone_id
WHERE ST_DWithin(z.polygon::geography, ST_SetSRID(ST_MakePoint($1,$2),4326)::geography, $3)
  AND p.target_time = $4
ORDER BY p.congestion_score DESC`

// FindPredictions returns stored predictions for zones within radiusKm of
// the given point whose target time matches exactly.
func (s *Store) FindPredictions(ctx context.Context, lat, lon float64, targetTime time.Time, radiusKm float64) ([]PredictionRow, error) {
	rows, err := s.pool.Query(ctx, findPredictionsSQL, lon, lat, radiusKm*1000, targetTime)
	if err != nil {
		return nil, fmt.Errorf("find predictions: %w", err)
	}
	defer rows.Close()
	return scanPredictionRows(rows)
}

const zonePredictionsSQL = `
SELECT p.id, p.zone_id, p.event_id, p.target_time, p.congestion_score,
       p.confidence, p.factors, ST_AsGeoJSON(z.polygon)
FROM predictions p
JOIN traffic_zones z ON z.id = p.zone_id
WHERE p.zone_id = $1 AND p.target_time >= $2 AND p.target_time <= $3
ORDER BY p.target_time ASC`

// ZonePredictions returns the forward timeseries for one zone up to
// hoursAhead from now.
func (s *Store) ZonePredictions(ctx context.Context, zoneID uuid.UUID, now time.Time, hoursAhead int) ([]PredictionRow, error) {
	rows, err := s.pool.Query(ctx, zonePredictionsSQL, zoneID, now, now.Add(time.Duration(hoursAhead)*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("zone predictions: %w", err)
	}
	defer rows.Close()
	return scanPredictionRows(rows)
}

func scanPredictionRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]PredictionRow, error) {
	var out []PredictionRow
	for rows.Next() {
		var (
			row     PredictionRow
			factors []byte
		)
		if err := rows.Scan(&row.ID, &row.ZoneID, &row.EventID, &row.TargetTime,
			&row.CongestionScore, &row.Confidence, &factors, &row.GeometryJSON); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if len(factors) > 0 {
			if err := json.Unmarshal(factors, &row.Factors); err != nil {
				return nil, fmt.Errorf("decode factors: %w", err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read predictions: %w", err)
	}
	return out, nil
}

const findNearbyEventSQL = `
SELECT e.id, e.capacity
FROM events e, traffic_zones z
WHERE z.id = $1
  AND ST_DWithin(z.polygon::geography, e.location::geography, 2000)
  AND e.capacity > 5000
  AND e.start_time - interval '2 hours' <= $2
  AND (
        (e.end_time IS NOT NULL AND e.end_time + interval '1 hour' >= $2)
     OR (e.end_time IS NULL AND e.start_time + interval '4 hours' >= $2)
  )
ORDER BY e.capacity DESC
LIMIT 1`

// FindNearbyEvent returns the largest event within 2 km of the zone whose
// window covers targetTime, or nil when there is none. Events without an
// end time are assumed to last four hours.
func (s *Store) FindNearbyEvent(ctx context.Context, zoneID uuid.UUID, targetTime time.Time) (*NearbyEvent, error) {
	var ev NearbyEvent
	err := s.pool.QueryRow(ctx, findNearbyEventSQL, zoneID, targetTime).Scan(&ev.ID, &ev.Capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find nearby event: %w", err)
	}
	return &ev, nil
}
