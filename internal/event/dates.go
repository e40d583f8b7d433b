package event

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Turkish month names as they appear on the scraped portals.
var turkishMonths = map[string]time.Month{
	"ocak":    time.January,
	"şubat":   time.February,
	"subat":   time.February,
	"mart":    time.March,
	"nisan":   time.April,
	"mayıs":   time.May,
	"mayis":   time.May,
	"haziran": time.June,
	"temmuz":  time.July,
	"ağustos": time.August,
	"agustos": time.August,
	"eylül":   time.September,
	"eylul":   time.September,
	"ekim":    time.October,
	"kasım":   time.November,
	"kasim":   time.November,
	"aralık":  time.December,
	"aralik":  time.December,
}

var (
	turkishDateRe = regexp.MustCompile(`(?i)(\d{1,2})\s+([\p{L}]+)(?:\s+(\d{4}))?(?:\s+(\d{1,2}):(\d{2}))?`)
	numericDateRe = regexp.MustCompile(`(\d{2})\.(\d{2})\.(\d{4})(?:\s+(\d{1,2}):(\d{2}))?`)
)

// ParseTime parses an ISO-8601 timestamp as emitted by the JSON sources.
// Returns nil for empty or unparsable input.
func ParseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// ParseTurkishDate extracts a date from free text as found on the scraped
// portals: "05 Mart", "17 Nisan 2026", "27.02.2026 20:00". A missing year
// defaults to the year of now; unparsable text yields nil rather than an
// error, keeping per-item failures local.
func ParseTurkishDate(text string, now time.Time) *time.Time {
	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		hour, minute := 0, 0
		if m[4] != "" {
			hour, _ = strconv.Atoi(m[4])
			minute, _ = strconv.Atoi(m[5])
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return nil
		}
		t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
		return &t
	}

	for _, m := range turkishDateRe.FindAllStringSubmatch(text, -1) {
		month, ok := turkishMonths[lowerTurkish(m[2])]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		if day < 1 || day > 31 {
			continue
		}
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		hour, minute := 0, 0
		if m[4] != "" {
			hour, _ = strconv.Atoi(m[4])
			minute, _ = strconv.Atoi(m[5])
		}
		t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
		return &t
	}
	return nil
}

// lowerTurkish lowercases with the dotted/dotless i pairs handled the way
// the month table expects.
func lowerTurkish(s string) string {
	s = strings.ReplaceAll(s, "İ", "i")
	s = strings.ReplaceAll(s, "I", "ı")
	return strings.ToLower(s)
}
