package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"trafikalert/internal/cache"
	"trafikalert/internal/event"
)

const (
	akmBase       = "https://www.akmistanbul.gov.tr"
	akmEventsPath = "/tr/etkinlikler"
	akmSlugPrefix = "/tr/etkinlik/"
)

// AKM scrapes the Atatürk Cultural Center event listing. Primary
// extraction scans event-card anchors; when the server renders an empty
// shell the connector falls back to mining the embedded __NEXT_DATA__
// payload.
type AKM struct {
	client Fetcher
	store  cache.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewAKM builds the akm connector.
func NewAKM(client Fetcher, store cache.Store, logger *zap.Logger) *AKM {
	return &AKM{
		client: client,
		store:  store,
		logger: logger.Named("akm"),
		now:    time.Now,
	}
}

// Name implements Connector.
func (c *AKM) Name() string { return "akm" }

// FetchEvents fetches the listing page (through the cache) and extracts
// whatever the page yields.
func (c *AKM) FetchEvents(ctx context.Context) ([]event.Event, error) {
	page, err := cache.GetOrSet(ctx, c.store, "events:akm", eventListTTL,
		func(ctx context.Context) (*string, error) {
			body, err := c.client.Get(ctx, akmEventsPath)
			if err != nil {
				return nil, fmt.Errorf("fetch akm events page: %w", err)
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
		return nil, fmt.Errorf("parse akm page: %w", err)
	}

	events := c.extractCards(doc)
	if len(events) == 0 {
		events = c.extractNextData(doc)
	}
	return events, nil
}

func (c *AKM) extractCards(doc *goquery.Document) []event.Event {
	var events []event.Event
	seen := make(map[string]struct{})

	doc.Find("a[href*='" + akmSlugPrefix + "']").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		slug := lastPathSegment(href)
		if slug == "" {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}

		title := cleanAKMTitle(strings.TrimSpace(sel.Text()))
		if title == "" {
			title = titleFromSlug(slug)
		}

		var startAt *time.Time
		category := ""
		sel.Parent().Find("span").Each(func(_ int, span *goquery.Selection) {
			text := strings.TrimSpace(span.Text())
			if text == "" {
				return
			}
			if t := event.ParseTurkishDate(text, c.now()); t != nil {
				startAt = t
				return
			}
			if category == "" {
				category = event.CategoryFromLabel(text)
			}
		})
		if category == "" {
			category = event.InferCategory(title)
		}

		ev := event.Event{
			Source:   c.Name(),
			SourceID: slug,
			Title:    title,
			Venue:    "Atatürk Kültür Merkezi",
			City:     event.DefaultCity,
			StartAt:  startAt,
			URL:      absoluteURL(akmBase, href),
			Category: category,
		}
		if err := ev.Validate(); err != nil {
			c.logger.Debug("skipping card", zap.Error(err))
			return
		}
		seen[slug] = struct{}{}
		events = append(events, ev)
	})
	return events
}

// extractNextData mines the Next.js data island for slug/title/date
// triplets via a recursive structural walk.
func (c *AKM) extractNextData(doc *goquery.Document) []event.Event {
	payload := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(payload) == "" {
		return nil
	}

	var data any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		c.logger.Debug("unparsable __NEXT_DATA__ payload", zap.Error(err))
		return nil
	}

	var events []event.Event
	seen := make(map[string]struct{})
	walkPayload(data, func(item map[string]any) {
		slug := firstString(item, "slug")
		title := firstString(item, "title", "name")
		if slug == "" || title == "" {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}

		ev := event.Event{
			Source:   c.Name(),
			SourceID: slug,
			Title:    title,
			Venue:    "Atatürk Kültür Merkezi",
			City:     event.DefaultCity,
			StartAt:  event.ParseTurkishDate(firstString(item, "date", "startDate"), c.now()),
			URL:      absoluteURL(akmBase, akmSlugPrefix+slug),
			Category: event.InferCategory(title),
		}
		if err := ev.Validate(); err != nil {
			return
		}
		seen[slug] = struct{}{}
		events = append(events, ev)
	})
	return events
}

// cleanAKMTitle strips the site's own branding prefix from card titles,
// e.g. "AKM Etkinlik - Don Giovanni" becomes "Don Giovanni".
func cleanAKMTitle(title string) string {
	if i := strings.Index(title, " - "); i >= 0 && strings.Contains(lowerTR(title[:i]), "akm") {
		return strings.TrimSpace(title[i+3:])
	}
	return title
}

// walkPayload visits every JSON object in a decoded payload tree.
func walkPayload(node any, visit func(map[string]any)) {
	switch value := node.(type) {
	case map[string]any:
		visit(value)
		for _, child := range value {
			walkPayload(child, visit)
		}
	case []any:
		for _, child := range value {
			walkPayload(child, visit)
		}
	}
}
