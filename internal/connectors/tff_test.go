package connectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tffFixturePage = `<html><body><table>
<tr>
  <td>27.02.2026 20:00</td>
  <td><a href="/Default.aspx?pageID=29&kulupID=3610">GALATASARAY A.Ş.</a></td>
  <td><a href="/Default.aspx?pageID=29&macId=12345">0 - 0</a></td>
  <td><a href="/Default.aspx?pageID=29&kulupID=3582">TRABZONSPOR A.Ş.</a></td>
</tr>
<tr>
  <td>28.02.2026 17:00</td>
  <td><a href="/Default.aspx?pageID=29&kulupID=100">SİVASSPOR</a></td>
  <td><a href="/Default.aspx?pageID=29&macId=22222">0 - 0</a></td>
  <td><a href="/Default.aspx?pageID=29&kulupID=101">ALANYASPOR</a></td>
</tr>
<tr>
  <td>14.02.2026 19:00 SAMSUNSPOR 1 - 2 FENERBAHÇE <a href="/mac?macId=777">detay</a></td>
</tr>
</table></body></html>`

func newTestTFF(fetcher Fetcher) *TFF {
	store, logger := newTestDeps()
	c := NewTFF(fetcher, store, logger, 198, "super-lig", "football")
	c.now = func() time.Time {
		return time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	}
	return c
}

func TestTFFName(t *testing.T) {
	c := newTestTFF(&stubFetcher{})
	assert.Equal(t, "tff_football_super-lig", c.Name())
}

func TestTFFFixtures(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]string{
		"/Default.aspx": tffFixturePage,
	}}
	c := newTestTFF(fetcher)

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2, "fixtures without an Istanbul club are dropped")

	derby := events[0]
	assert.Equal(t, "tff_football_super-lig", derby.Source)
	assert.Equal(t, "12345", derby.SourceID, "match id comes from the macId anchor")
	assert.Equal(t, "GALATASARAY A.Ş. vs TRABZONSPOR A.Ş.", derby.Title)
	assert.Equal(t, "RAMS Park", derby.Venue)
	assert.Equal(t, "sport", derby.Category)
	require.NotNil(t, derby.StartAt)
	assert.Equal(t, time.Date(2026, time.February, 27, 20, 0, 0, 0, time.UTC), *derby.StartAt)

	away := events[1]
	assert.Equal(t, "777", away.SourceID)
	assert.Equal(t, "SAMSUNSPOR vs FENERBAHÇE", away.Title,
		"scoreline fallback splits plain-text rows")
	assert.Equal(t, "Ülker Stadyumu", away.Venue,
		"venue resolves from the Istanbul side even away rows")
	require.NotNil(t, away.StartAt)
	assert.Equal(t, 19, away.StartAt.Hour())
}

func TestTFFRowsWithoutMatchIDAreSkipped(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]string{
		"/Default.aspx": `<table><tr><td>01.03.2026 15:00 GALATASARAY - KONYASPOR</td></tr></table>`,
	}}
	c := newTestTFF(fetcher)

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}
