// Package connectors implements one adapter per upstream event source.
// Each connector fetches raw content through its own resilient HTTP
// client (via the response cache) and extracts zero or more normalized
// events with source-specific heuristics. Extraction is best effort: a
// record that fails validation is skipped and logged, never aborting the
// whole batch.
package connectors

import (
	"context"
	"time"

	"trafikalert/internal/cache"
	"trafikalert/internal/event"
	"trafikalert/internal/httpx"

	"go.uber.org/zap"
)

// Event listings refresh slowly; one fetch per half hour is plenty.
const eventListTTL = 30 * time.Minute

// Connector is the capability every source adapter implements.
type Connector interface {
	// Name is the stable lowercase source identifier.
	Name() string
	// FetchEvents fetches and extracts the source's current event list.
	FetchEvents(ctx context.Context) ([]event.Event, error)
}

// Fetcher is the slice of the HTTP client connectors depend on. Tests
// substitute a stub; production wiring passes *httpx.Client.
type Fetcher interface {
	Get(ctx context.Context, url string, opts ...httpx.RequestOption) ([]byte, error)
}

// Deps carries the shared collaborators injected into every connector.
type Deps struct {
	Store  cache.Store
	Logger *zap.Logger
	HTTP   httpx.Config
}

// BuildAll constructs the full connector list. Order matters: it is the
// cross-source dedup priority used by the ingestion orchestrator.
func BuildAll(deps Deps) []Connector {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	client := func(source, base string) *httpx.Client {
		return httpx.New(source, base, deps.HTTP, deps.Logger)
	}
	return []Connector{
		NewIBBKultur(client("ibb_kultur", ibbKulturBase), deps.Store, deps.Logger),
		NewIBBEventsPortal(client("ibb_events_portal", ibbPortalBase), deps.Store, deps.Logger),
		NewAKM(client("akm", akmBase), deps.Store, deps.Logger),
		NewTFF(client("tff_football_super-lig", tffBase), deps.Store, deps.Logger, 198, "super-lig", "football"),
		NewTFF(client("tff_football_1-lig", tffBase), deps.Store, deps.Logger, 142, "1-lig", "football"),
		NewBiletinial(client("biletinial", biletinialBase), deps.Store, deps.Logger),
		NewClubSites(client("club_sites", ""), deps.Store, deps.Logger),
		NewIBBDuyuru(client("ibb_duyuru", ibbPortalBase), deps.Store, deps.Logger),
		NewSeatGeek(client("seatgeek", seatGeekBase), deps.Store, deps.Logger),
	}
}
