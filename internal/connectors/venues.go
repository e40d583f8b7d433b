package connectors

import "strings"

// Venues that appear repeatedly across the ticketing sources, with
// coordinates. Sources rarely publish geolocation, so a lookup table
// beats geocoding every run.
var knownVenues = []struct {
	Name     string
	Lat, Lon float64
}{
	{"Volkswagen Arena", 41.1076, 29.0166},
	{"Blind İstanbul", 40.9901, 29.0303},
	{"Dorock XL Kadıköy", 40.9897, 29.0290},
	{"Zorlu PSM", 41.0663, 29.0172},
	{"Harbiye Cemil Topuzlu Açıkhava Tiyatrosu", 41.0460, 28.9884},
	{"Atatürk Kültür Merkezi", 41.0369, 28.9850},
	{"Vodafone Park", 41.0392, 28.9946},
	{"Ülker Stadyumu", 40.9876, 29.0368},
	{"RAMS Park", 41.1036, 28.9910},
	{"Tüpraş Stadyumu", 41.0392, 28.9946},
	{"Atatürk Olimpiyat Stadyumu", 41.0745, 28.7654},
	{"Başakşehir Fatih Terim Stadyumu", 41.1057, 28.8088},
	{"Recep Tayyip Erdoğan Stadyumu", 41.0443, 28.9498},
	{"Necmi Kadıoğlu Stadyumu", 41.0226, 28.6767},
}

// venueCoords resolves a venue name to coordinates when known.
func venueCoords(name string) (lat, lon *float64, ok bool) {
	normalized := lowerTR(strings.TrimSpace(name))
	for _, venue := range knownVenues {
		if lowerTR(venue.Name) == normalized {
			la, lo := venue.Lat, venue.Lon
			return &la, &lo, true
		}
	}
	return nil, nil, false
}

// venueNameInText scans free text for a known venue name and returns its
// canonical spelling.
func venueNameInText(text string) (string, bool) {
	normalized := lowerTR(text)
	for _, venue := range knownVenues {
		if strings.Contains(normalized, lowerTR(venue.Name)) {
			return venue.Name, true
		}
	}
	return "", false
}
