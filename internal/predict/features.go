package predict

import (
	"time"

	"trafikalert/internal/store"
)

// EventInfo is the slice of an event a feature vector needs.
type EventInfo struct {
	Capacity int
	StartAt  time.Time
}

// Features is the flat input vector a future learned model would consume.
// The rule engine does not use it; it exists so recorded predictions can be
// replayed against a trained model later.
type Features struct {
	ZoneID             string  `json:"zone_id"`
	TargetTime         string  `json:"target_time"`
	HourOfDay          int     `json:"hour_of_day"`
	DayOfWeek          int     `json:"day_of_week"`
	IsWeekend          int     `json:"is_weekend"`
	IsRushHour         int     `json:"is_rush_hour"`
	NearbyEventCount   int     `json:"nearby_event_count"`
	MaxEventCapacity   int     `json:"max_event_capacity"`
	TotalEventCapacity int     `json:"total_event_capacity"`
	ZoneBaseLevel      float64 `json:"zone_base_level"`
	DaysUntilEvent     int     `json:"days_until_event"`
}

// ExtractFeatures derives the feature vector for one zone and target time.
// With no events days_until_event is 999, matching the training encoding.
func ExtractFeatures(zone store.Zone, targetTime time.Time, events []EventInfo) Features {
	f := Features{
		ZoneID:         zone.ID.String(),
		TargetTime:     targetTime.Format(time.RFC3339),
		HourOfDay:      targetTime.Hour(),
		DayOfWeek:      isoWeekday(targetTime),
		ZoneBaseLevel:  zone.BaseCongestionLevel,
		DaysUntilEvent: 999,
	}
	if f.DayOfWeek >= 5 {
		f.IsWeekend = 1
	}
	if isRushHour(f.HourOfDay) {
		f.IsRushHour = 1
	}

	f.NearbyEventCount = len(events)
	for _, ev := range events {
		if ev.Capacity > f.MaxEventCapacity {
			f.MaxEventCapacity = ev.Capacity
		}
		f.TotalEventCapacity += ev.Capacity
		days := int(ev.StartAt.Sub(targetTime).Hours() / 24)
		if days < f.DaysUntilEvent {
			f.DaysUntilEvent = days
		}
	}
	return f
}

// isoWeekday maps Go's Sunday-first weekday onto the Monday=0 encoding the
// feature schema uses.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
