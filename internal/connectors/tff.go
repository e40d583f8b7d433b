package connectors

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"trafikalert/internal/cache"
	"trafikalert/internal/event"
	"trafikalert/internal/httpx"
)

const tffBase = "https://www.tff.org"

var (
	tffMatchIDRe   = regexp.MustCompile(`[?&]macId=(\d+)`)
	tffScorelineRe = regexp.MustCompile(`^(.*\S)\s+\d+\s*-\s*\d+\s+(\S.*)$`)
)

// Istanbul clubs and their home grounds. A fixture is kept only when at
// least one side is on this list.
var istanbulClubs = []struct {
	Key     string
	Stadium string
}{
	{"galatasaray", "RAMS Park"},
	{"fenerbahçe", "Ülker Stadyumu"},
	{"beşiktaş", "Tüpraş Stadyumu"},
	{"başakşehir", "Başakşehir Fatih Terim Stadyumu"},
	{"kasımpaşa", "Recep Tayyip Erdoğan Stadyumu"},
	{"istanbulspor", "Necmi Kadıoğlu Stadyumu"},
	{"karagümrük", "Atatürk Olimpiyat Stadyumu"},
	{"eyüpspor", "Pendik Stadyumu"},
	{"sarıyer", "Yusuf Ziya Öniş Stadyumu"},
	{"ümraniyespor", "Ümraniye Şehir Stadyumu"},
	{"pendikspor", "Pendik Stadyumu"},
}

// TFF scrapes a Turkish Football Federation fixture page. One connector
// instance per branch/league pair; the source name embeds both so each
// league gets its own health record.
type TFF struct {
	client Fetcher
	store  cache.Store
	logger *zap.Logger
	now    func() time.Time

	pageID int
	league string
	branch string
}

// NewTFF builds a fixture connector for one league page.
func NewTFF(client Fetcher, store cache.Store, logger *zap.Logger, pageID int, league, branch string) *TFF {
	name := fmt.Sprintf("tff_%s_%s", branch, league)
	return &TFF{
		client: client,
		store:  store,
		logger: logger.Named(name),
		now:    time.Now,
		pageID: pageID,
		league: league,
		branch: branch,
	}
}

// Name implements Connector.
func (c *TFF) Name() string {
	return fmt.Sprintf("tff_%s_%s", c.branch, c.league)
}

// FetchEvents fetches the fixture page through the cache and extracts
// fixtures involving an Istanbul club.
func (c *TFF) FetchEvents(ctx context.Context) ([]event.Event, error) {
	cacheKey := fmt.Sprintf("events:tff:%s:%s", c.branch, c.league)
	page, err := cache.GetOrSet(ctx, c.store, cacheKey, eventListTTL,
		func(ctx context.Context) (*string, error) {
			body, err := c.client.Get(ctx, "/Default.aspx",
				httpx.WithQuery(url.Values{"pageID": {fmt.Sprint(c.pageID)}}))
			if err != nil {
				return nil, fmt.Errorf("fetch tff fixtures: %w", err)
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
		return nil, fmt.Errorf("parse tff fixtures: %w", err)
	}

	var events []event.Event
	seen := make(map[string]struct{})

	doc.Find("div, tr").Each(func(_ int, row *goquery.Selection) {
		ev, ok := c.parseRow(row)
		if !ok {
			return
		}
		if _, dup := seen[ev.SourceID]; dup {
			return
		}
		seen[ev.SourceID] = struct{}{}
		events = append(events, ev)
	})
	return events, nil
}

func (c *TFF) parseRow(row *goquery.Selection) (event.Event, bool) {
	text := strings.TrimSpace(row.Text())
	kickoff := event.ParseTurkishDate(text, c.now())
	if kickoff == nil {
		return event.Event{}, false
	}

	matchID, matchHref := "", ""
	row.Find("a[href*='macId=']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m := tffMatchIDRe.FindStringSubmatch(href); m != nil {
			matchID = m[1]
			matchHref = href
			return false
		}
		return true
	})
	if matchID == "" {
		return event.Event{}, false
	}

	home, away := c.extractTeams(row)
	if home == "" || away == "" {
		c.logger.Debug("fixture row without two teams", zap.String("match_id", matchID))
		return event.Event{}, false
	}

	stadium, local := c.istanbulStadium(home, away)
	if !local {
		return event.Event{}, false
	}

	return event.Event{
		Source:   c.Name(),
		SourceID: matchID,
		Title:    home + " vs " + away,
		Venue:    stadium,
		City:     event.DefaultCity,
		StartAt:  kickoff,
		URL:      absoluteURL(tffBase, matchHref),
		Category: event.CategorySport,
	}, true
}

// extractTeams reads the two club anchors of a fixture row, falling back
// to a scoreline regex over the row text when the page renders club names
// as plain text.
func (c *TFF) extractTeams(row *goquery.Selection) (home, away string) {
	var clubs []string
	row.Find("a[href*='kulupID=']").Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		if name != "" {
			clubs = append(clubs, name)
		}
	})
	if len(clubs) >= 2 {
		return clubs[0], clubs[1]
	}

	// Drop anchor texts (score links), collapse whitespace, strip the
	// kickoff timestamp, then split around the remaining scoreline.
	clone := row.Clone()
	clone.Find("a").Remove()
	plain := whitespaceRe.ReplaceAllString(clone.Text(), " ")
	stripped := strings.TrimSpace(numericDateTimeRe.ReplaceAllString(plain, ""))
	if m := tffScorelineRe.FindStringSubmatch(stripped); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return "", ""
}

// istanbulStadium reports whether either side is an Istanbul club and, if
// so, which stadium hosts home games for the first local side found.
func (c *TFF) istanbulStadium(home, away string) (string, bool) {
	for _, side := range []string{home, away} {
		normalized := lowerTR(side)
		for _, club := range istanbulClubs {
			if strings.Contains(normalized, club.Key) {
				return club.Stadium, true
			}
		}
	}
	return "", false
}

var (
	numericDateTimeRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}(?:\s+\d{1,2}:\d{2})?`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
)
