package connectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ibbDuyuruPage = `<html><body>
<div>
  <a href="/duyurular/avrasya-tuneli-bakim">Avrasya Tüneli bakım çalışması</a>
  <span>02.03.2026 22:00</span>
</div>
<div>
  <a href="/gundem/duyuru/yilbasi-konseri">Yılbaşı konseri biletleri</a>
</div>
<a href="/gundem/haberler/baska">Haber</a>
</body></html>`

func TestIBBDuyuruAnchors(t *testing.T) {
	store, logger := newTestDeps()
	fetcher := &stubFetcher{responses: map[string]string{
		ibbDuyuruPath: ibbDuyuruPage,
	}}
	c := NewIBBDuyuru(fetcher, store, logger)
	c.now = func() time.Time {
		return time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	}

	events, err := c.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	tunnel := events[0]
	assert.Equal(t, "ibb_duyuru", tunnel.Source)
	assert.Equal(t, "avrasya-tuneli-bakim", tunnel.SourceID)
	assert.Equal(t, "announcement", tunnel.Category,
		"announcements without stronger keywords default to announcement")
	require.NotNil(t, tunnel.StartAt)
	assert.Equal(t, time.Date(2026, time.March, 2, 22, 0, 0, 0, time.UTC), *tunnel.StartAt)

	concert := events[1]
	assert.Equal(t, "yilbasi-konseri", concert.SourceID)
	assert.Equal(t, "music", concert.Category,
		"keyword categories win over the announcement default")
}
