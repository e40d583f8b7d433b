package event

import "strings"

// Coarse category tags used across the pipeline.
const (
	CategoryMusic        = "music"
	CategorySport        = "sport"
	CategoryTheatre      = "theatre"
	CategoryOpera        = "opera"
	CategoryCulture      = "culture"
	CategoryAnnouncement = "announcement"
	CategoryOther        = "other"
)

// Turkish URL path segments to category tags (biletinial-style routes).
var pathCategories = map[string]string{
	"muzik":   CategoryMusic,
	"konser":  CategoryMusic,
	"tiyatro": CategoryTheatre,
	"opera":   CategoryOpera,
	"bale":    CategoryOpera,
	"futbol":  CategorySport,
	"spor":    CategorySport,
	"sinema":  CategoryCulture,
	"sergi":   CategoryCulture,
}

// Keyword fragments to category tags, checked in order against free text.
var keywordCategories = []struct {
	keyword  string
	category string
}{
	{"opera", CategoryOpera},
	{"bale", CategoryOpera},
	{"konser", CategoryMusic},
	{"senfoni", CategoryMusic},
	{"orkestra", CategoryMusic},
	{"caz", CategoryMusic},
	{"müzik", CategoryMusic},
	{"muzik", CategoryMusic},
	{"tiyatro", CategoryTheatre},
	{"maç", CategorySport},
	{"mac", CategorySport},
	{"derbi", CategorySport},
	{"futbol", CategorySport},
	{"sergi", CategoryCulture},
	{"müze", CategoryCulture},
	{"festival", CategoryCulture},
	{"duyuru", CategoryAnnouncement},
}

// CategoryFromPath maps a URL path segment ("muzik", "futbol") onto a
// category tag. Unknown segments yield empty, letting callers fall back to
// text heuristics.
func CategoryFromPath(segment string) string {
	return pathCategories[lowerTurkish(strings.TrimSpace(segment))]
}

// CategoryFromLabel normalizes a source-provided label ("Opera", "Konser")
// into a category tag. Unknown labels pass through lowercased so the
// source's own taxonomy is preserved.
func CategoryFromLabel(label string) string {
	normalized := lowerTurkish(strings.TrimSpace(label))
	if normalized == "" {
		return ""
	}
	for _, kc := range keywordCategories {
		if strings.Contains(normalized, kc.keyword) {
			return kc.category
		}
	}
	return normalized
}

// InferCategory scans free text for category keywords. Returns "other"
// when nothing matches.
func InferCategory(text string) string {
	normalized := lowerTurkish(text)
	for _, kc := range keywordCategories {
		if strings.Contains(normalized, kc.keyword) {
			return kc.category
		}
	}
	return CategoryOther
}
