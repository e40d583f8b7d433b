package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trafikalert/internal/ingest"
	"trafikalert/internal/store"
)

type stubPredictions struct {
	rows []store.PredictionRow
	err  error

	gotLat, gotLon, gotRadius float64
	gotTarget                 time.Time
	gotZone                   uuid.UUID
	gotHours                  int
}

func (s *stubPredictions) FindPredictions(_ context.Context, lat, lon float64, targetTime time.Time, radiusKm float64) ([]store.PredictionRow, error) {
	s.gotLat, s.gotLon, s.gotTarget, s.gotRadius = lat, lon, targetTime, radiusKm
	return s.rows, s.err
}

func (s *stubPredictions) ZonePredictions(_ context.Context, zoneID uuid.UUID, _ time.Time, hoursAhead int) ([]store.PredictionRow, error) {
	s.gotZone, s.gotHours = zoneID, hoursAhead
	return s.rows, s.err
}

type stubHealth struct {
	runs []ingest.RunRecord
	err  error
}

func (s *stubHealth) Recent(context.Context, time.Time) ([]ingest.RunRecord, error) {
	return s.runs, s.err
}

func newTestServer(predictions *stubPredictions, health *stubHealth) *Server {
	if predictions == nil {
		predictions = &stubPredictions{}
	}
	if health == nil {
		health = &stubHealth{}
	}
	srv := NewServer(predictions, health, zap.NewNop())
	srv.now = func() time.Time { return time.Date(2026, time.April, 17, 12, 0, 0, 0, time.UTC) }
	return srv
}

func doRequest(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func sampleRow() store.PredictionRow {
	return store.PredictionRow{
		ID:              uuid.New(),
		ZoneID:          uuid.New(),
		TargetTime:      time.Date(2026, time.April, 17, 18, 0, 0, 0, time.UTC),
		CongestionScore: 85,
		Confidence:      0.8,
		Factors:         map[string]float64{"base_score": 60, "rush_hour": 25},
		GeometryJSON:    `{"type":"Polygon","coordinates":[[[28.98,41.0],[29.0,41.0],[29.0,41.1],[28.98,41.0]]]}`,
	}
}

func TestGetPredictions(t *testing.T) {
	predictions := &stubPredictions{rows: []store.PredictionRow{sampleRow()}}
	srv := newTestServer(predictions, nil)

	rec := doRequest(t, srv,
		"/api/v1/predictions?lat=41.0082&lon=28.9784&target_time=2026-04-17T18:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	assert.Equal(t, 41.0082, predictions.gotLat)
	assert.Equal(t, 28.9784, predictions.gotLon)
	assert.Equal(t, defaultRadiusKM, predictions.gotRadius)

	var fc featureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)

	props := fc.Features[0].Properties
	assert.Equal(t, float64(85), props["congestion_score"])
	assert.Equal(t, "2026-04-17T18:00:00Z", props["target_time"])
	assert.Nil(t, props["event_id"])
	assert.JSONEq(t, sampleRow().GeometryJSON, string(fc.Features[0].Geometry))
}

func TestGetPredictionsEmptyCollection(t *testing.T) {
	srv := newTestServer(nil, nil)

	rec := doRequest(t, srv,
		"/api/v1/predictions?lat=41&lon=29&target_time=2026-04-17T18:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, rec.Body.String())
}

func TestGetPredictionsValidation(t *testing.T) {
	srv := newTestServer(nil, nil)

	cases := map[string]string{
		"missing coordinates": "/api/v1/predictions?target_time=2026-04-17T18:00:00Z",
		"bad target time":     "/api/v1/predictions?lat=41&lon=29&target_time=tomorrow",
		"negative radius":     "/api/v1/predictions?lat=41&lon=29&target_time=2026-04-17T18:00:00Z&radius_km=-2",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, srv, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetZonePredictions(t *testing.T) {
	row := sampleRow()
	predictions := &stubPredictions{rows: []store.PredictionRow{row}}
	srv := newTestServer(predictions, nil)

	rec := doRequest(t, srv, "/api/v1/predictions/zones/"+row.ZoneID.String()+"?hours_ahead=48")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, row.ZoneID, predictions.gotZone)
	assert.Equal(t, 48, predictions.gotHours)

	var fc featureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	require.Len(t, fc.Features, 1)
	series, ok := fc.Features[0].Properties["predictions"].([]any)
	require.True(t, ok)
	require.Len(t, series, 1)
}

func TestGetZonePredictionsValidation(t *testing.T) {
	srv := newTestServer(nil, nil)

	rec := doRequest(t, srv, "/api/v1/predictions/zones/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	zoneID := uuid.NewString()
	rec = doRequest(t, srv, "/api/v1/predictions/zones/"+zoneID+"?hours_ahead=900")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSourceHealth(t *testing.T) {
	health := &stubHealth{runs: []ingest.RunRecord{{
		RunID:          "run-1",
		TotalEvents:    12,
		UpsertedEvents: 9,
		Sources:        map[string]ingest.SourceHealth{"akm": {Fetched: 12, UniqueAdded: 9}},
	}}}
	srv := newTestServer(nil, health)

	rec := doRequest(t, srv, "/api/v1/health/sources")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Date string             `json:"date"`
		Runs []ingest.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "2026-04-17", payload.Date)
	require.Len(t, payload.Runs, 1)
	assert.Equal(t, 9, payload.Runs[0].Sources["akm"].UniqueAdded)
}

func TestGetSourceHealthEmptyDay(t *testing.T) {
	srv := newTestServer(nil, &stubHealth{})

	rec := doRequest(t, srv, "/api/v1/health/sources")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"runs":[]`)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(nil, nil)

	rec := doRequest(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReaderFailureIsAnInternalError(t *testing.T) {
	srv := newTestServer(&stubPredictions{err: assert.AnError}, nil)

	rec := doRequest(t, srv,
		"/api/v1/predictions?lat=41&lon=29&target_time=2026-04-17T18:00:00Z")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to load predictions")
}
