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
	ibbPortalBase       = "https://www.ibb.istanbul"
	ibbPortalEventsPath = "/gundem/etkinlikler"
	ibbPortalSlugPrefix = "/gundem/etkinlikler/"
)

var nuxtEventLinkRe = regexp.MustCompile(`/gundem/etkinlikler/([a-z0-9çğıöşü-]+)`)

// IBBEventsPortal scrapes the municipality's news portal event listing.
// The portal is a Nuxt application; when the initial HTML carries no event
// anchors the connector locates the static payload.js bundle, fetches it
// and mines event links out of the script text.
type IBBEventsPortal struct {
	client Fetcher
	store  cache.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewIBBEventsPortal builds the ibb_events_portal connector.
func NewIBBEventsPortal(client Fetcher, store cache.Store, logger *zap.Logger) *IBBEventsPortal {
	return &IBBEventsPortal{
		client: client,
		store:  store,
		logger: logger.Named("ibb_events_portal"),
		now:    time.Now,
	}
}

// Name implements Connector.
func (c *IBBEventsPortal) Name() string { return "ibb_events_portal" }

// FetchEvents fetches the listing page through the cache and extracts
// event links, with the payload.js fallback when anchors are absent.
func (c *IBBEventsPortal) FetchEvents(ctx context.Context) ([]event.Event, error) {
	page, err := cache.GetOrSet(ctx, c.store, "events:ibb_events_portal", eventListTTL,
		func(ctx context.Context) (*string, error) {
			body, err := c.client.Get(ctx, ibbPortalEventsPath)
			if err != nil {
				return nil, fmt.Errorf("fetch ibb events portal: %w", err)
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
		return nil, fmt.Errorf("parse ibb events portal: %w", err)
	}

	events := c.extractAnchors(doc)
	if len(events) == 0 {
		events = c.extractPayload(ctx, doc)
	}
	return events, nil
}

func (c *IBBEventsPortal) extractAnchors(doc *goquery.Document) []event.Event {
	var events []event.Event
	seen := make(map[string]struct{})

	doc.Find("a[href*='" + ibbPortalSlugPrefix + "']").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		slug := lastPathSegment(href)
		if slug == "" {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = titleFromSlug(slug)
		}

		ev := event.Event{
			Source:   c.Name(),
			SourceID: slug,
			Title:    title,
			Venue:    event.DefaultCity,
			City:     event.DefaultCity,
			StartAt:  event.ParseTurkishDate(strings.TrimSpace(sel.Parent().Text()), c.now()),
			URL:      absoluteURL(ibbPortalBase, href),
			Category: event.InferCategory(title),
		}
		if err := ev.Validate(); err != nil {
			c.logger.Debug("skipping anchor", zap.Error(err))
			return
		}
		seen[slug] = struct{}{}
		events = append(events, ev)
	})
	return events
}

// extractPayload fetches the Nuxt payload.js bundle referenced by the page
// and regexes event links out of it. Payload fetches bypass the cache: the
// bundle URL already changes with each deploy.
func (c *IBBEventsPortal) extractPayload(ctx context.Context, doc *goquery.Document) []event.Event {
	src := ""
	doc.Find("script[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		candidate, _ := sel.Attr("src")
		if strings.Contains(candidate, "payload.js") {
			src = candidate
			return false
		}
		return true
	})
	if src == "" {
		return nil
	}

	body, err := c.client.Get(ctx, absoluteURL(ibbPortalBase, src))
	if err != nil {
		c.logger.Warn("payload.js fetch failed", zap.String("src", src), zap.Error(err))
		return nil
	}

	var events []event.Event
	seen := make(map[string]struct{})
	for _, match := range nuxtEventLinkRe.FindAllStringSubmatch(string(body), -1) {
		slug := match[1]
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		title := titleFromSlug(slug)
		events = append(events, event.Event{
			Source:   c.Name(),
			SourceID: slug,
			Title:    title,
			Venue:    event.DefaultCity,
			City:     event.DefaultCity,
			URL:      absoluteURL(ibbPortalBase, ibbPortalSlugPrefix+slug),
			Category: event.InferCategory(title),
		})
	}
	return events
}
