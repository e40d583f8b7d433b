package connectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ibbPortalAnchorsPage = `<html><body>
<div>
  <a href="/gundem/etkinlikler/bogazici-festivali">Boğaziçi Festivali</a>
  <span>21 Temmuz 2026</span>
</div>
<div>
  <a href="/gundem/etkinlikler/kitap-fuari">Kitap Fuarı</a>
</div>
<a href="/gundem/haberler/baska-sayfa">Haber</a>
</body></html>`

func TestIBBEventsPortalAnchors(t *testing.T) {
	store, logger := newTestDeps()
	fetcher := &stubFetcher{responses: map[string]string{
		ibbPortalEventsPath: ibbPortalAnchorsPage,
	}}
	c := NewIBBEventsPortal(fetcher, store, logger)
	c.now = func() time.Time {
		return time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	}

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2, "non-event links are ignored")

	festival := events[0]
	assert.Equal(t, "ibb_events_portal", festival.Source)
	assert.Equal(t, "bogazici-festivali", festival.SourceID)
	assert.Equal(t, "Boğaziçi Festivali", festival.Title)
	assert.Equal(t, "culture", festival.Category)
	require.NotNil(t, festival.StartAt)
	assert.Equal(t, time.July, festival.StartAt.Month())

	assert.Nil(t, events[1].StartAt, "undated listings stay undated")
}

const ibbPortalShellPage = `<html><body>
<div id="__nuxt"></div>
<script src="/_nuxt/static/1700000000/gundem/etkinlikler/payload.js" defer></script>
</body></html>`

const ibbPortalPayloadJS = `__NUXT_JSONP__("/gundem/etkinlikler", {data:[
{link:"/gundem/etkinlikler/yaz-konserleri"},
{link:"/gundem/etkinlikler/yaz-konserleri"},
{link:"/gundem/etkinlikler/maraton-istanbul"}
]});`

func TestIBBEventsPortalPayloadFallback(t *testing.T) {
	store, logger := newTestDeps()
	payloadURL := ibbPortalBase + "/_nuxt/static/1700000000/gundem/etkinlikler/payload.js"
	fetcher := &stubFetcher{responses: map[string]string{
		ibbPortalEventsPath: ibbPortalShellPage,
		payloadURL:          ibbPortalPayloadJS,
	}}
	c := NewIBBEventsPortal(fetcher, store, logger)

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "yaz-konserleri", events[0].SourceID)
	assert.Equal(t, "Yaz Konserleri", events[0].Title, "title reconstructed from the slug")
	assert.Equal(t, "music", events[0].Category)
	assert.Equal(t, "maraton-istanbul", events[1].SourceID)
}

func TestIBBEventsPortalPayloadFetchFailure(t *testing.T) {
	store, logger := newTestDeps()
	fetcher := &stubFetcher{
		responses: map[string]string{ibbPortalEventsPath: ibbPortalShellPage},
		errs: map[string]error{
			ibbPortalBase + "/_nuxt/static/1700000000/gundem/etkinlikler/payload.js": assert.AnError,
		},
	}
	c := NewIBBEventsPortal(fetcher, store, logger)

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err, "payload fetch failure degrades to an empty batch")
	assert.Empty(t, events)
}
