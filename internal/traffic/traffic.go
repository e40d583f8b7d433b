// Package traffic reads live congestion data from the IBB open-data portal
// (CKAN datastore_search API).
package traffic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"trafikalert/internal/cache"
	"trafikalert/internal/httpx"
)

const (
	// DefaultResourceID selects the traffic density dataset. The real id
	// comes from the IBB portal and is configurable.
	DefaultResourceID = "traffic_density"

	trafficBase  = "https://data.ibb.gov.tr"
	searchPath   = "/api/3/action/datastore_search"
	trafficTTL   = 5 * time.Minute
	defaultLimit = 100
)

// ZoneDensity is one normalized traffic density record.
type ZoneDensity struct {
	ZoneID    string   `json:"zone_id"`
	RoadName  string   `json:"road_name"`
	Direction string   `json:"direction"`
	SpeedKMH  float64  `json:"speed_kmh"`
	Vehicles  int      `json:"vehicles"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Timestamp string   `json:"timestamp"`
}

type fetcher interface {
	Get(ctx context.Context, target string, opts ...httpx.RequestOption) ([]byte, error)
}

// Service fetches and caches traffic density records.
type Service struct {
	client fetcher
	store  cache.Store
	logger *zap.Logger
}

// New builds the traffic service with its own resilient client.
func New(store cache.Store, cfg httpx.Config, logger *zap.Logger) *Service {
	return &Service{
		client: httpx.New("ibb_traffic", trafficBase, cfg, logger),
		store:  store,
		logger: logger.Named("traffic"),
	}
}

// NewWithClient injects the HTTP client, for tests.
func NewWithClient(client fetcher, store cache.Store, logger *zap.Logger) *Service {
	return &Service{client: client, store: store, logger: logger.Named("traffic")}
}

// GetZoneDensities returns up to limit records for the given dataset. The
// raw record list is cached for five minutes; records that do not parse
// are skipped, never fatal.
func (s *Service) GetZoneDensities(ctx context.Context, resourceID string, limit int) ([]ZoneDensity, error) {
	if resourceID == "" {
		resourceID = DefaultResourceID
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	key := fmt.Sprintf("ibb:traffic:%s:%d", resourceID, limit)

	records, err := cache.GetOrSet(ctx, s.store, key, trafficTTL,
		func(ctx context.Context) (*[]json.RawMessage, error) {
			body, err := s.client.Get(ctx, searchPath, httpx.WithQuery(url.Values{
				"resource_id": {resourceID},
				"limit":       {strconv.Itoa(limit)},
			}))
			if err != nil {
				return nil, fmt.Errorf("fetch traffic data: %w", err)
			}
			var payload struct {
				Result struct {
					Records []json.RawMessage `json:"records"`
				} `json:"result"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return nil, fmt.Errorf("decode traffic data: %w", err)
			}
			s.logger.Info("traffic records fetched",
				zap.Int("count", len(payload.Result.Records)))
			return &payload.Result.Records, nil
		})
	if err != nil {
		return nil, err
	}
	if records == nil {
		return nil, nil
	}

	zones := make([]ZoneDensity, 0, len(*records))
	for _, raw := range *records {
		zone, ok := parseRecord(raw)
		if !ok {
			s.logger.Debug("skipping unparsable traffic record",
				zap.ByteString("record", raw))
			continue
		}
		zones = append(zones, zone)
	}
	return zones, nil
}

// parseRecord maps one upstream record onto ZoneDensity. The portal's
// field names are uppercase and numbers sometimes arrive as strings.
func parseRecord(raw json.RawMessage) (ZoneDensity, bool) {
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ZoneDensity{}, false
	}
	zone := ZoneDensity{
		ZoneID:    stringField(rec, "GEOHASH"),
		RoadName:  stringField(rec, "ROAD_NAME"),
		Direction: stringField(rec, "YOLYON"),
		Timestamp: stringField(rec, "DATE_TIME"),
	}
	if v, ok := floatField(rec, "MINIMUM_SPEED"); ok {
		zone.SpeedKMH = v
	}
	if v, ok := floatField(rec, "NUMBER_OF_VEHICLES"); ok {
		zone.Vehicles = int(v)
	}
	if v, ok := floatField(rec, "LATITUDE"); ok {
		zone.Lat = &v
	}
	if v, ok := floatField(rec, "LONGITUDE"); ok {
		zone.Lon = &v
	}
	return zone, zone.ZoneID != "" || zone.RoadName != ""
}

func stringField(rec map[string]any, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

func floatField(rec map[string]any, key string) (float64, bool) {
	switch v := rec[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
