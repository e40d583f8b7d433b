package connectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafikalert/internal/event"
)

const seatGeekResponse = `{"events":[
{
	"id": 640001,
	"title": "Bosphorus Jazz Night",
	"type": "concert",
	"url": "https://seatgeek.com/e/640001",
	"datetime_local": "2026-04-17T21:00:00",
	"venue": {
		"name": "Volkswagen Arena",
		"city": "Istanbul",
		"location": {"lat": 41.1076, "lon": 29.0166}
	}
},
{
	"id": 0,
	"title": "Ghost Listing",
	"venue": {"name": "", "city": ""}
}
]}`

func TestSeatGeekEvents(t *testing.T) {
	store, logger := newTestDeps()
	fetcher := &stubFetcher{responses: map[string]string{
		seatGeekEndpoint: seatGeekResponse,
	}}
	c := NewSeatGeek(fetcher, store, logger)

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1, "zero ids are rejected")

	ev := events[0]
	assert.Equal(t, "seatgeek", ev.Source)
	assert.Equal(t, "640001", ev.SourceID)
	assert.Equal(t, "Bosphorus Jazz Night", ev.Title)
	assert.Equal(t, "Volkswagen Arena", ev.Venue)
	assert.Equal(t, "Istanbul", ev.City)
	require.NotNil(t, ev.Lat)
	assert.InDelta(t, 41.1076, *ev.Lat, 0.0001, "venue geo passes through untouched")
	require.NotNil(t, ev.StartAt)
	assert.Equal(t, time.Date(2026, time.April, 17, 21, 0, 0, 0, time.UTC), *ev.StartAt)
	assert.Equal(t, "concert", ev.Category, "unknown source labels pass through lowercased")
}

func TestSeatGeekDefaultsCityWhenVenueHasNone(t *testing.T) {
	store, logger := newTestDeps()
	fetcher := &stubFetcher{responses: map[string]string{
		seatGeekEndpoint: `{"events":[{"id":7,"title":"Stadyum Konseri","type":"","venue":{"name":"Olimpiyat Stadı","city":""}}]}`,
	}}
	c := NewSeatGeek(fetcher, store, logger)

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.DefaultCity, events[0].City)
	assert.Equal(t, event.CategoryMusic, events[0].Category, "empty label falls back to title keywords")
	assert.Nil(t, events[0].StartAt)
}
