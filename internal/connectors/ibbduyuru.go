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

const ibbDuyuruPath = "/duyurular"

var duyuruLinkRe = regexp.MustCompile(`/(?:gundem/)?duyuru(?:lar)?/([a-z0-9çğıöşü-]+)`)

// IBBDuyuru scrapes the municipality's announcement feed. Road closures,
// demonstrations and public ceremonies show up here before anywhere else;
// most entries carry no date and stay undated inside the pipeline.
type IBBDuyuru struct {
	client Fetcher
	store  cache.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewIBBDuyuru builds the ibb_duyuru connector.
func NewIBBDuyuru(client Fetcher, store cache.Store, logger *zap.Logger) *IBBDuyuru {
	return &IBBDuyuru{
		client: client,
		store:  store,
		logger: logger.Named("ibb_duyuru"),
		now:    time.Now,
	}
}

// Name implements Connector.
func (c *IBBDuyuru) Name() string { return "ibb_duyuru" }

// FetchEvents fetches the announcement listing through the cache and
// extracts announcement links.
func (c *IBBDuyuru) FetchEvents(ctx context.Context) ([]event.Event, error) {
	page, err := cache.GetOrSet(ctx, c.store, "events:ibb_duyuru", eventListTTL,
		func(ctx context.Context) (*string, error) {
			body, err := c.client.Get(ctx, ibbDuyuruPath)
			if err != nil {
				return nil, fmt.Errorf("fetch ibb announcements: %w", err)
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
		return nil, fmt.Errorf("parse ibb announcements: %w", err)
	}

	var events []event.Event
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		match := duyuruLinkRe.FindStringSubmatch(href)
		if match == nil {
			return
		}
		slug := match[1]
		if _, dup := seen[slug]; dup {
			return
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = titleFromSlug(slug)
		}

		category := event.InferCategory(title)
		if category == event.CategoryOther {
			category = event.CategoryAnnouncement
		}

		ev := event.Event{
			Source:   c.Name(),
			SourceID: slug,
			Title:    title,
			Venue:    event.DefaultCity,
			City:     event.DefaultCity,
			StartAt:  event.ParseTurkishDate(strings.TrimSpace(sel.Parent().Text()), c.now()),
			URL:      absoluteURL(ibbPortalBase, href),
			Category: category,
		}
		if err := ev.Validate(); err != nil {
			c.logger.Debug("skipping announcement", zap.Error(err))
			return
		}
		seen[slug] = struct{}{}
		events = append(events, ev)
	})
	return events, nil
}
