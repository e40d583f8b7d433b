package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"trafikalert/internal/cache"
	"trafikalert/internal/event"
	"trafikalert/internal/httpx"
)

const (
	seatGeekBase     = "https://api.seatgeek.com"
	seatGeekEndpoint = "/2/events"
)

// SeatGeek pulls Istanbul events from the public SeatGeek API.
type SeatGeek struct {
	client Fetcher
	store  cache.Store
	logger *zap.Logger
}

// NewSeatGeek builds the seatgeek connector.
func NewSeatGeek(client Fetcher, store cache.Store, logger *zap.Logger) *SeatGeek {
	return &SeatGeek{
		client: client,
		store:  store,
		logger: logger.Named("seatgeek"),
	}
}

// Name implements Connector.
func (c *SeatGeek) Name() string { return "seatgeek" }

type seatGeekEvent struct {
	ID            json.Number `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Type          string      `json:"type"`
	URL           string      `json:"url"`
	DatetimeLocal string      `json:"datetime_local"`
	Venue         struct {
		Name     string `json:"name"`
		City     string `json:"city"`
		Location struct {
			Lat *float64 `json:"lat"`
			Lon *float64 `json:"lon"`
		} `json:"location"`
	} `json:"venue"`
}

// FetchEvents queries the API for Istanbul events, through the cache.
func (c *SeatGeek) FetchEvents(ctx context.Context) ([]event.Event, error) {
	raw, err := cache.GetOrSet(ctx, c.store, "events:seatgeek:istanbul", eventListTTL,
		func(ctx context.Context) (*[]seatGeekEvent, error) {
			body, err := c.client.Get(ctx, seatGeekEndpoint, httpx.WithQuery(url.Values{
				"venue.city": {"Istanbul"},
				"per_page":   {"50"},
				"sort":       {"datetime_local.asc"},
			}))
			if err != nil {
				return nil, fmt.Errorf("fetch seatgeek events: %w", err)
			}
			var envelope struct {
				Events []seatGeekEvent `json:"events"`
			}
			if err := json.Unmarshal(body, &envelope); err != nil {
				return nil, fmt.Errorf("decode seatgeek events: %w", err)
			}
			return &envelope.Events, nil
		})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	events := make([]event.Event, 0, len(*raw))
	for _, item := range *raw {
		ev, err := c.parseItem(item)
		if err != nil {
			c.logger.Debug("skipping item", zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *SeatGeek) parseItem(item seatGeekEvent) (event.Event, error) {
	city := item.Venue.City
	if city == "" {
		city = event.DefaultCity
	}
	category := event.CategoryFromLabel(item.Type)
	if category == "" {
		category = event.InferCategory(item.Title)
	}

	ev := event.Event{
		Source:      c.Name(),
		SourceID:    item.ID.String(),
		Title:       item.Title,
		Description: item.Description,
		Venue:       item.Venue.Name,
		City:        city,
		Lat:         item.Venue.Location.Lat,
		Lon:         item.Venue.Location.Lon,
		StartAt:     event.ParseTime(item.DatetimeLocal),
		URL:         item.URL,
		Category:    category,
	}
	if ev.SourceID == "" || ev.SourceID == "0" {
		return event.Event{}, fmt.Errorf("item missing id")
	}
	if err := ev.Validate(); err != nil {
		return event.Event{}, err
	}
	return ev, nil
}
