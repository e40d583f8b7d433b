package connectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const akmCardsPage = `<html><body>
<div class="card">
  <a href="/tr/etkinlik/don-giovanni">AKM Opera - Don Giovanni</a>
  <span>17 Nisan 2026</span>
  <span>Opera</span>
</div>
<div class="card">
  <a href="/tr/etkinlik/don-giovanni">AKM Opera - Don Giovanni</a>
</div>
<div class="card">
  <a href="/tr/etkinlik/caz-gecesi">Caz Gecesi</a>
  <span>05 Mart</span>
</div>
</body></html>`

func TestAKMCards(t *testing.T) {
	store, logger := newTestDeps()
	fetcher := &stubFetcher{responses: map[string]string{
		akmEventsPath: akmCardsPage,
	}}
	c := NewAKM(fetcher, store, logger)
	c.now = func() time.Time {
		return time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	}

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2, "duplicate slugs collapse to one event")

	opera := events[0]
	assert.Equal(t, "akm", opera.Source)
	assert.Equal(t, "don-giovanni", opera.SourceID)
	assert.Equal(t, "Don Giovanni", opera.Title, "site prefix is stripped")
	assert.Equal(t, "Atatürk Kültür Merkezi", opera.Venue)
	assert.Equal(t, "opera", opera.Category)
	require.NotNil(t, opera.StartAt)
	assert.Equal(t, time.Date(2026, time.April, 17, 0, 0, 0, 0, time.UTC), *opera.StartAt)
	assert.Equal(t, akmBase+"/tr/etkinlik/don-giovanni", opera.URL)

	caz := events[1]
	assert.Equal(t, "caz-gecesi", caz.SourceID)
	assert.Equal(t, "music", caz.Category, "category inferred from the title")
	require.NotNil(t, caz.StartAt)
	assert.Equal(t, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC), *caz.StartAt,
		"missing year defaults to the current one")
}

const akmNextDataPage = `<html><body>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"events":[
  {"slug":"carmen","title":"Carmen Operası","date":"12 Haziran 2026"},
  {"slug":"carmen","title":"Carmen Operası"},
  {"slug":"","title":"Adsız"},
  {"title":"Yarım Kayıt"}
]}}}
</script>
</body></html>`

func TestAKMNextDataFallback(t *testing.T) {
	store, logger := newTestDeps()
	fetcher := &stubFetcher{responses: map[string]string{
		akmEventsPath: akmNextDataPage,
	}}
	c := NewAKM(fetcher, store, logger)
	c.now = func() time.Time {
		return time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	}

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "carmen", ev.SourceID)
	assert.Equal(t, "Carmen Operası", ev.Title)
	assert.Equal(t, "opera", ev.Category)
	require.NotNil(t, ev.StartAt)
	assert.Equal(t, time.June, ev.StartAt.Month())
	assert.Equal(t, akmBase+akmSlugPrefix+"carmen", ev.URL)
}

func TestAKMEmptyPageYieldsNoEvents(t *testing.T) {
	store, logger := newTestDeps()
	fetcher := &stubFetcher{responses: map[string]string{
		akmEventsPath: `<html><body><p>Bakım çalışması</p></body></html>`,
	}}
	c := NewAKM(fetcher, store, logger)

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}
