package connectors

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"trafikalert/internal/cache"
	"trafikalert/internal/event"
)

// Fixture pages of the big Istanbul clubs. Scraped best effort: one site
// going down must not take the others with it.
var clubSitePages = []struct {
	Club    string
	Slug    string
	Stadium string
	URL     string
}{
	{"Galatasaray", "galatasaray", "RAMS Park", "https://www.galatasaray.org/futbol/fikstur"},
	{"Fenerbahçe", "fenerbahce", "Ülker Stadyumu", "https://www.fenerbahce.org/futbol/fikstur"},
	{"Beşiktaş", "besiktas", "Tüpraş Stadyumu", "https://bjk.com.tr/tr/fikstur"},
}

// Anchor href fragments that mark fixture or ticket links on club sites.
var clubLinkTokens = []string{"bilet", "fikstur", "mac-detay", "match"}

// ClubSites scrapes the Istanbul clubs' own fixture pages for home games
// the federation feed has not published yet.
type ClubSites struct {
	client Fetcher
	store  cache.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewClubSites builds the club_sites connector.
func NewClubSites(client Fetcher, store cache.Store, logger *zap.Logger) *ClubSites {
	return &ClubSites{
		client: client,
		store:  store,
		logger: logger.Named("club_sites"),
		now:    time.Now,
	}
}

// Name implements Connector.
func (c *ClubSites) Name() string { return "club_sites" }

// FetchEvents scrapes each club page in turn. A page failing to fetch is
// logged and skipped; the connector only errors when every page failed.
func (c *ClubSites) FetchEvents(ctx context.Context) ([]event.Event, error) {
	var events []event.Event
	var firstErr error
	failures := 0

	for _, site := range clubSitePages {
		page, err := cache.GetOrSet(ctx, c.store, "events:club_sites:"+site.Slug, eventListTTL,
			func(ctx context.Context) (*string, error) {
				body, err := c.client.Get(ctx, site.URL)
				if err != nil {
					return nil, fmt.Errorf("fetch %s fixtures: %w", site.Slug, err)
				}
				html := string(body)
				return &html, nil
			})
		if err != nil {
			c.logger.Warn("club page failed", zap.String("club", site.Slug), zap.Error(err))
			failures++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if page == nil {
			continue
		}
		events = append(events, c.extractSite(site.Slug, site.Stadium, site.URL, *page)...)
	}

	if len(events) == 0 && failures == len(clubSitePages) && firstErr != nil {
		return nil, firstErr
	}
	return events, nil
}

func (c *ClubSites) extractSite(slug, stadium, baseURL, html string) []event.Event {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		c.logger.Debug("unparsable club page", zap.String("club", slug), zap.Error(err))
		return nil
	}

	var events []event.Event
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !matchesClubLink(href) {
			return
		}
		id := slug + "-" + lastPathSegment(href)
		if _, dup := seen[id]; dup {
			return
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			return
		}

		ev := event.Event{
			Source:   c.Name(),
			SourceID: id,
			Title:    title,
			Venue:    stadium,
			City:     event.DefaultCity,
			StartAt:  event.ParseTurkishDate(strings.TrimSpace(sel.Parent().Text()), c.now()),
			URL:      absoluteURL(baseURL, href),
			Category: event.CategorySport,
		}
		if err := ev.Validate(); err != nil {
			c.logger.Debug("skipping club link", zap.String("club", slug), zap.Error(err))
			return
		}
		seen[id] = struct{}{}
		events = append(events, ev)
	})

	if lat, lon, ok := venueCoords(stadium); ok {
		for i := range events {
			events[i].Lat, events[i].Lon = lat, lon
		}
	}
	return events
}

func matchesClubLink(href string) bool {
	normalized := lowerTR(href)
	for _, token := range clubLinkTokens {
		if strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}
