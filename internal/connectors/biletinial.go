package connectors

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"trafikalert/internal/cache"
	"trafikalert/internal/event"
)

const (
	biletinialBase       = "https://biletinial.com"
	biletinialListPath   = "/tr-tr/muzik"
	biletinialVenueToken = "/tr-tr/mekan/"
)

var (
	biletinialRouteRe = regexp.MustCompile(`/tr-tr/([a-z0-9çğıöşü-]+)/([a-z0-9çğıöşü-]+)`)
	multiVenueMarker  = "birden fazla mekan"
)

// Biletinial scrapes the national ticketing site and keeps only events
// that are relevant to Istanbul: either the listing row mentions the city
// or a district, or the event's detail page resolves to an Istanbul venue.
type Biletinial struct {
	client Fetcher
	store  cache.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewBiletinial builds the biletinial connector.
func NewBiletinial(client Fetcher, store cache.Store, logger *zap.Logger) *Biletinial {
	return &Biletinial{
		client: client,
		store:  store,
		logger: logger.Named("biletinial"),
		now:    time.Now,
	}
}

// Name implements Connector.
func (c *Biletinial) Name() string { return "biletinial" }

// FetchEvents fetches the listing page through the cache, extracts event
// anchors, and falls back to mining script-embedded routes when the page
// renders without anchors.
func (c *Biletinial) FetchEvents(ctx context.Context) ([]event.Event, error) {
	page, err := cache.GetOrSet(ctx, c.store, "events:biletinial", eventListTTL,
		func(ctx context.Context) (*string, error) {
			body, err := c.client.Get(ctx, biletinialListPath)
			if err != nil {
				return nil, fmt.Errorf("fetch biletinial listing: %w", err)
			}
			html := string(body)
			return &html, nil
		})
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(*page)))
	if err != nil {
		return nil, fmt.Errorf("parse biletinial listing: %w", err)
	}

	events := c.extractAnchors(ctx, doc)
	if len(events) == 0 {
		events = c.extractRoutes(doc)
	}
	return events, nil
}

func (c *Biletinial) extractAnchors(ctx context.Context, doc *goquery.Document) []event.Event {
	var events []event.Event
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		match := biletinialRouteRe.FindStringSubmatch(href)
		if match == nil || match[1] == "mekan" {
			return
		}
		slug := match[2]
		if _, dup := seen[slug]; dup {
			return
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title, _ = sel.Attr("title")
			title = strings.TrimSpace(title)
		}
		if title == "" {
			title = titleFromSlug(slug)
		}

		// The listing row's full text carries the city, venue and date.
		contextText := strings.TrimSpace(sel.Parent().Text())
		if contextText == "" {
			contextText = title
		}

		ev := event.Event{
			Source:   c.Name(),
			SourceID: slug,
			Title:    title,
			City:     event.DefaultCity,
			StartAt:  event.ParseTurkishDate(contextText, c.now()),
			URL:      absoluteURL(biletinialBase, match[0]),
			Category: event.CategoryFromPath(match[1]),
		}
		if ev.Category == "" {
			ev.Category = event.InferCategory(title)
		}

		relevant := mentionsIstanbul(contextText) || mentionsIstanbul(title)

		// Events staged at several venues hide the venue behind the
		// detail page; resolve it with a second fetch.
		if strings.Contains(lowerTR(contextText), multiVenueMarker) {
			venue, resolved := c.resolveDetailVenue(ctx, match[0])
			if resolved {
				ev.Venue = normalizeVenue(venue)
				if lat, lon, ok := venueCoords(venue); ok {
					ev.Lat, ev.Lon = lat, lon
				}
				if mentionsIstanbul(venue) {
					relevant = true
				}
			}
		}

		if !relevant {
			return
		}

		if ev.Venue == "" {
			if name, ok := venueNameInText(contextText); ok {
				ev.Venue = name
				if lat, lon, found := venueCoords(name); found {
					ev.Lat, ev.Lon = lat, lon
				}
			}
		}

		if err := ev.Validate(); err != nil {
			c.logger.Debug("skipping listing row", zap.Error(err))
			return
		}
		seen[slug] = struct{}{}
		events = append(events, ev)
	})
	return events
}

// resolveDetailVenue fetches the event's detail page and picks a venue
// from its /tr-tr/mekan/ anchors, preferring one whose name mentions
// Istanbul.
func (c *Biletinial) resolveDetailVenue(ctx context.Context, path string) (string, bool) {
	body, err := c.client.Get(ctx, path)
	if err != nil {
		c.logger.Warn("detail page fetch failed", zap.String("path", path), zap.Error(err))
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var first, istanbul string
	doc.Find("a[href*='" + biletinialVenueToken + "']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		name, _ := sel.Attr("title")
		if name == "" {
			name = strings.TrimSpace(sel.Text())
		}
		if name == "" {
			return true
		}
		if first == "" {
			first = name
		}
		if mentionsIstanbul(name) {
			istanbul = name
			return false
		}
		return true
	})

	switch {
	case istanbul != "":
		return istanbul, true
	case first != "":
		return first, true
	default:
		return "", false
	}
}

// extractRoutes mines /tr-tr/<category>/<slug> routes out of embedded
// script payloads when the listing renders no anchors at all.
func (c *Biletinial) extractRoutes(doc *goquery.Document) []event.Event {
	var events []event.Event
	seen := make(map[string]struct{})

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		for _, match := range biletinialRouteRe.FindAllStringSubmatch(sel.Text(), -1) {
			if match[1] == "mekan" {
				continue
			}
			slug := match[2]
			if _, dup := seen[slug]; dup {
				continue
			}
			seen[slug] = struct{}{}

			title := titleFromSlug(slug)
			category := event.CategoryFromPath(match[1])
			if category == "" {
				category = event.InferCategory(title)
			}
			events = append(events, event.Event{
				Source:   c.Name(),
				SourceID: slug,
				Title:    title,
				City:     event.DefaultCity,
				URL:      absoluteURL(biletinialBase, match[0]),
				Category: category,
			})
		}
	})
	return events
}
