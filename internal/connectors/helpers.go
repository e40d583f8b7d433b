package connectors

import (
	"strconv"
	"strings"
)

// Venue names that describe a whole city-wide institution rather than a
// place you can geocode; normalized to the bare city name.
var genericVenues = map[string]struct{}{
	"istanbul şehir tiyatroları":     {},
	"istanbul büyükşehir belediyesi": {},
	"istanbul":                       {},
	"çeşitli mekanlar":               {},
	"birden fazla mekan":             {},
}

// Istanbul districts and markers used by the relevance filter.
var istanbulMarkers = []string{
	"istanbul",
	"beşiktaş",
	"kadıköy",
	"harbiye",
	"beyoğlu",
	"şişli",
	"üsküdar",
	"maltepe",
	"ataşehir",
	"bakırköy",
	"sarıyer",
	"zeytinburnu",
	"eyüp",
	"fatih",
	"taksim",
}

// lowerTR lowercases with Turkish dotted/dotless i handled.
func lowerTR(s string) string {
	s = strings.ReplaceAll(s, "İ", "i")
	s = strings.ReplaceAll(s, "I", "ı")
	return strings.ToLower(s)
}

// normalizeVenue collapses generic city-wide venue names to "İstanbul".
func normalizeVenue(venue string) string {
	trimmed := strings.TrimSpace(venue)
	if _, generic := genericVenues[lowerTR(trimmed)]; generic {
		return "İstanbul"
	}
	return trimmed
}

// mentionsIstanbul reports whether the text references the city or one of
// its districts.
func mentionsIstanbul(text string) bool {
	normalized := lowerTR(text)
	for _, marker := range istanbulMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// lastPathSegment returns the trailing segment of a URL path, the usual
// slug position on the scraped portals.
func lastPathSegment(path string) string {
	trimmed := strings.TrimRight(path, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// absoluteURL joins a base with a possibly relative href.
func absoluteURL(base, href string) string {
	if href == "" {
		return base
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return strings.TrimRight(base, "/") + href
}

// titleFromSlug turns "muze-gecesi-istanbul" into "Muze Gecesi Istanbul"
// for payload-mined records that carry no display title.
func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// firstString returns the first non-empty string value among the given
// keys of a loosely typed JSON object. The scraped APIs alias field names
// between camelCase and PascalCase from one deploy to the next.
func firstString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := item[key]; ok {
			switch value := v.(type) {
			case string:
				if value != "" {
					return value
				}
			case float64:
				// Numeric ids arrive as JSON numbers.
				return strconv.FormatFloat(value, 'f', -1, 64)
			}
		}
	}
	return ""
}
