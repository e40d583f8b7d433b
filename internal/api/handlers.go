package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"trafikalert/internal/ingest"
	"trafikalert/internal/store"
)

const (
	defaultRadiusKM   = 5.0
	defaultHoursAhead = 24
	maxHoursAhead     = 168
)

// PredictionReader is the query surface the prediction endpoints need.
type PredictionReader interface {
	FindPredictions(ctx context.Context, lat, lon float64, targetTime time.Time, radiusKm float64) ([]store.PredictionRow, error)
	ZonePredictions(ctx context.Context, zoneID uuid.UUID, now time.Time, hoursAhead int) ([]store.PredictionRow, error)
}

// HealthReader serves the recorded ingest runs.
type HealthReader interface {
	Recent(ctx context.Context, day time.Time) ([]ingest.RunRecord, error)
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// getPredictions handles GET /api/v1/predictions?lat=&lon=&target_time=&radius_km=.
// The response is a GeoJSON FeatureCollection, one feature per zone.
func (s *Server) getPredictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		s.writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	targetTime, err := time.Parse(time.RFC3339, q.Get("target_time"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "target_time must be RFC 3339")
		return
	}
	radiusKM := defaultRadiusKM
	if raw := q.Get("radius_km"); raw != "" {
		radiusKM, err = strconv.ParseFloat(raw, 64)
		if err != nil || radiusKM <= 0 {
			s.writeError(w, http.StatusBadRequest, "radius_km must be a positive number")
			return
		}
	}

	rows, err := s.predictions.FindPredictions(r.Context(), lat, lon, targetTime, radiusKM)
	if err != nil {
		s.logger.Error("find predictions failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}

	fc := featureCollection{Type: "FeatureCollection", Features: []feature{}}
	for _, row := range rows {
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: json.RawMessage(row.GeometryJSON),
			Properties: map[string]any{
				"prediction_id":    row.ID.String(),
				"zone_id":          row.ZoneID.String(),
				"event_id":         uuidOrNil(row.EventID),
				"target_time":      row.TargetTime.Format(time.RFC3339),
				"congestion_score": row.CongestionScore,
				"confidence":       row.Confidence,
				"factors":          row.Factors,
			},
		})
	}
	s.writeJSON(w, http.StatusOK, fc)
}

// getZonePredictions handles GET /api/v1/predictions/zones/{zone_id}. It
// returns the forward timeseries for one zone as a single feature.
func (s *Server) getZonePredictions(w http.ResponseWriter, r *http.Request) {
	zoneID, err := uuid.Parse(chi.URLParam(r, "zone_id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid zone id")
		return
	}
	hoursAhead := defaultHoursAhead
	if raw := r.URL.Query().Get("hours_ahead"); raw != "" {
		hoursAhead, err = strconv.Atoi(raw)
		if err != nil || hoursAhead < 1 || hoursAhead > maxHoursAhead {
			s.writeError(w, http.StatusBadRequest, "hours_ahead must be between 1 and 168")
			return
		}
	}

	rows, err := s.predictions.ZonePredictions(r.Context(), zoneID, s.now().UTC(), hoursAhead)
	if err != nil {
		s.logger.Error("zone predictions failed",
			zap.String("zone_id", zoneID.String()), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}

	fc := featureCollection{Type: "FeatureCollection", Features: []feature{}}
	if len(rows) > 0 {
		timeseries := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			timeseries = append(timeseries, map[string]any{
				"prediction_id":    row.ID.String(),
				"target_time":      row.TargetTime.Format(time.RFC3339),
				"congestion_score": row.CongestionScore,
				"confidence":       row.Confidence,
				"factors":          row.Factors,
			})
		}
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: json.RawMessage(rows[0].GeometryJSON),
			Properties: map[string]any{
				"zone_id":     zoneID.String(),
				"predictions": timeseries,
			},
		})
	}
	s.writeJSON(w, http.StatusOK, fc)
}

// getSourceHealth handles GET /api/v1/health/sources, returning today's
// recorded ingest runs.
func (s *Server) getSourceHealth(w http.ResponseWriter, r *http.Request) {
	runs, err := s.health.Recent(r.Context(), s.now().UTC())
	if err != nil {
		s.logger.Error("source health lookup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load source health")
		return
	}
	if runs == nil {
		runs = []ingest.RunRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"date": s.now().UTC().Format("2006-01-02"),
		"runs": runs,
	})
}

func uuidOrNil(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
