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
	ibbKulturBase     = "https://kultursanat.ibb.istanbul"
	ibbKulturEndpoint = "/api/event/geteventlist"
)

// IBBKultur pulls the municipal culture portal's structured event API.
type IBBKultur struct {
	client Fetcher
	store  cache.Store
	logger *zap.Logger
}

// NewIBBKultur builds the ibb_kultur connector.
func NewIBBKultur(client Fetcher, store cache.Store, logger *zap.Logger) *IBBKultur {
	return &IBBKultur{
		client: client,
		store:  store,
		logger: logger.Named("ibb_kultur"),
	}
}

// Name implements Connector.
func (c *IBBKultur) Name() string { return "ibb_kultur" }

// FetchEvents fetches the event list API (through the cache) and validates
// each item, skipping any that fail shape validation.
func (c *IBBKultur) FetchEvents(ctx context.Context) ([]event.Event, error) {
	raw, err := cache.GetOrSet(ctx, c.store, "events:ibb_kultur", eventListTTL,
		func(ctx context.Context) (*[]map[string]any, error) {
			body, err := c.client.Get(ctx, ibbKulturEndpoint,
				httpx.WithQuery(url.Values{"pageSize": {"50"}, "pageIndex": {"0"}}))
			if err != nil {
				return nil, fmt.Errorf("fetch ibb kultur events: %w", err)
			}
			items, err := decodeEventList(body)
			if err != nil {
				return nil, err
			}
			return &items, nil
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

func (c *IBBKultur) parseItem(item map[string]any) (event.Event, error) {
	id := firstString(item, "id", "Id", "ID")
	if id == "" {
		return event.Event{}, fmt.Errorf("item missing id")
	}

	// The portal aliases venueName for the concrete hall and place for the
	// umbrella institution; prefer the specific one.
	venue := firstString(item, "venueName", "VenueName")
	if venue == "" {
		venue = firstString(item, "place", "Place")
	}
	venue = normalizeVenue(venue)

	category := event.CategoryFromLabel(firstString(item, "category", "Category"))
	title := firstString(item, "name", "Name")
	if category == "" {
		category = event.InferCategory(title)
	}

	ev := event.Event{
		Source:      c.Name(),
		SourceID:    id,
		Title:       title,
		Description: firstString(item, "description", "Description"),
		Venue:       venue,
		City:        event.DefaultCity,
		StartAt:     event.ParseTime(firstString(item, "startDate", "StartDate")),
		EndAt:       event.ParseTime(firstString(item, "endDate", "EndDate")),
		URL:         firstString(item, "url", "Url"),
		Category:    category,
	}
	if err := ev.Validate(); err != nil {
		return event.Event{}, err
	}
	return ev, nil
}

// decodeEventList accepts either a bare JSON array or a {"data": [...]}
// envelope, both observed in the wild.
func decodeEventList(body []byte) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode event list: %w", err)
	}
	return envelope.Data, nil
}
