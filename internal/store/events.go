package store

import (
	"context"
	"fmt"

	"trafikalert/internal/event"
)

// Istanbul city center, used when a source provides no coordinates so the
// location column never goes null.
const (
	defaultLat = 41.0082
	defaultLon = 28.9784
)

const upsertEventSQL = `
INSERT INTO events (
	source,
	source_id,
	name,
	description,
	venue_name,
	location,
	start_time,
	end_time,
	capacity,
	category,
	url
) VALUES (
	$1,$2,$3,$4,$5,ST_SetSRID(ST_MakePoint($6,$7),4326),$8,$9,$10,$11,$12
)
ON CONFLICT (source, source_id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	venue_name = EXCLUDED.venue_name,
	location = EXCLUDED.location,
	start_time = EXCLUDED.start_time,
	end_time = EXCLUDED.end_time,
	capacity = EXCLUDED.capacity,
	category = EXCLUDED.category,
	url = EXCLUDED.url,
	updated_at = now()`

// UpsertEvent inserts the event or refreshes the existing row keyed by
// (source, source_id).
func (s *Store) UpsertEvent(ctx context.Context, ev event.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	lat, lon := defaultLat, defaultLon
	if ev.Lat != nil && ev.Lon != nil {
		lat, lon = *ev.Lat, *ev.Lon
	}
	args := []any{
		ev.Source,
		ev.SourceID,
		ev.Title,
		ev.Description,
		ev.Venue,
		lon,
		lat,
		ev.StartAt,
		ev.EndAt,
		ev.Capacity,
		ev.Category,
		ev.URL,
	}
	if _, err := s.pool.Exec(ctx, upsertEventSQL, args...); err != nil {
		return fmt.Errorf("upsert event %s: %w", ev.DedupKey(), err)
	}
	return nil
}
