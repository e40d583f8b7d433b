// Package geo resolves venue names to coordinates. Nominatim is the
// primary resolver, throttled to its one-request-per-second policy; the
// Google Geocoding API is the fallback when an API key is configured.
package geo

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trafikalert/internal/cache"
	"trafikalert/internal/httpx"
)

const (
	nominatimBase = "https://nominatim.openstreetmap.org"
	googleBase    = "https://maps.googleapis.com"
	geocodeTTL    = 30 * 24 * time.Hour
	userAgent     = "trafikalert/1.0"
)

// Coordinates is a resolved point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type fetcher interface {
	Get(ctx context.Context, target string, opts ...httpx.RequestOption) ([]byte, error)
}

// Service performs cached, rate-limited geocoding.
type Service struct {
	nominatim fetcher
	google    fetcher
	store     cache.Store
	logger    *zap.Logger
	limiter   *rate.Limiter
	apiKey    string
}

// New builds the geocoder. An empty apiKey disables the Google fallback.
func New(store cache.Store, cfg httpx.Config, apiKey string, logger *zap.Logger) *Service {
	cfg.Headers = map[string]string{"User-Agent": userAgent}
	return &Service{
		nominatim: httpx.New("nominatim", nominatimBase, cfg, logger),
		google:    httpx.New("google_geocoding", googleBase, cfg, logger),
		store:     store,
		logger:    logger.Named("geo"),
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		apiKey:    apiKey,
	}
}

// NewWithClients injects the upstream clients, for tests.
func NewWithClients(nominatim, google fetcher, store cache.Store, apiKey string, logger *zap.Logger) *Service {
	return &Service{
		nominatim: nominatim,
		google:    google,
		store:     store,
		logger:    logger.Named("geo"),
		limiter:   rate.NewLimiter(rate.Inf, 1),
		apiKey:    apiKey,
	}
}

// Geocode resolves an address to coordinates or nil when neither provider
// finds it. Results, including from the fallback, are cached for 30 days.
func (s *Service) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	key := "geocode:" + strings.ToLower(address)

	return cache.GetOrSet(ctx, s.store, key, geocodeTTL,
		func(ctx context.Context) (*Coordinates, error) {
			if coords := s.fromNominatim(ctx, address); coords != nil {
				return coords, nil
			}
			if coords := s.fromGoogle(ctx, address); coords != nil {
				return coords, nil
			}
			return nil, nil
		})
}

func (s *Service) fromNominatim(ctx context.Context, address string) *Coordinates {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil
	}
	body, err := s.nominatim.Get(ctx, "/search", httpx.WithQuery(url.Values{
		"q":            {address},
		"format":       {"json"},
		"limit":        {"1"},
		"countrycodes": {"tr"},
	}))
	if err != nil {
		s.logger.Warn("nominatim lookup failed", zap.String("address", address), zap.Error(err))
		return nil
	}
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &results); err != nil || len(results) == 0 {
		return nil
	}
	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return nil
	}
	s.logger.Info("nominatim geocode",
		zap.String("address", address),
		zap.Float64("lat", lat), zap.Float64("lon", lon))
	return &Coordinates{Lat: lat, Lon: lon}
}

func (s *Service) fromGoogle(ctx context.Context, address string) *Coordinates {
	if s.apiKey == "" {
		s.logger.Debug("google geocoding api key not set, skipping")
		return nil
	}
	body, err := s.google.Get(ctx, "/maps/api/geocode/json", httpx.WithQuery(url.Values{
		"address": {address},
		"key":     {s.apiKey},
		"region":  {"tr"},
	}))
	if err != nil {
		s.logger.Warn("google geocoding failed", zap.String("address", address), zap.Error(err))
		return nil
	}
	var payload struct {
		Status  string `json:"status"`
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	if payload.Status != "OK" || len(payload.Results) == 0 {
		return nil
	}
	loc := payload.Results[0].Geometry.Location
	s.logger.Info("google geocode",
		zap.String("address", address),
		zap.Float64("lat", loc.Lat), zap.Float64("lon", loc.Lng))
	return &Coordinates{Lat: loc.Lat, Lon: loc.Lng}
}
