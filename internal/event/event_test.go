package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	ev := Event{Source: "akm", SourceID: "opera-gala", Title: "Opera Gala"}
	require.NoError(t, ev.Validate())

	assert.Error(t, Event{SourceID: "x", Title: "y"}.Validate())
	assert.Error(t, Event{Source: "akm", Title: "y"}.Validate())
	assert.Error(t, Event{Source: "akm", SourceID: "x"}.Validate())
}

func TestDedupKey(t *testing.T) {
	ev := Event{Source: "tff", SourceID: "12345"}
	assert.Equal(t, "tff:12345", ev.DedupKey())
}

func TestParseTime(t *testing.T) {
	got := ParseTime("2026-04-17T20:00:00")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, time.April, 17, 20, 0, 0, 0, time.UTC), *got)

	got = ParseTime("2026-04-17")
	require.NotNil(t, got)
	assert.Equal(t, 17, got.Day())

	assert.Nil(t, ParseTime(""))
	assert.Nil(t, ParseTime("yakında"))
}

func TestParseTurkishDate(t *testing.T) {
	now := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	t.Run("day month without year", func(t *testing.T) {
		got := ParseTurkishDate("05 Mart", now)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("day month year", func(t *testing.T) {
		got := ParseTurkishDate("17 Nisan 2026", now)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, time.April, 17, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("numeric with time", func(t *testing.T) {
		got := ParseTurkishDate("27.02.2026 20:00", now)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, time.February, 27, 20, 0, 0, 0, time.UTC), *got)
	})

	t.Run("buried in text", func(t *testing.T) {
		got := ParseTurkishDate("Galatasaray - Fenerbahçe 14 Şubat 2026 19:00 Bilet al", now)
		require.NotNil(t, got)
		assert.Equal(t, time.February, got.Month())
		assert.Equal(t, 14, got.Day())
		assert.Equal(t, 19, got.Hour())
	})

	t.Run("dotless capital I month", func(t *testing.T) {
		got := ParseTurkishDate("3 EYLÜL", now)
		require.NotNil(t, got)
		assert.Equal(t, time.September, got.Month())
	})

	t.Run("unparsable", func(t *testing.T) {
		assert.Nil(t, ParseTurkishDate("Çok yakında sahnede", now))
		assert.Nil(t, ParseTurkishDate("", now))
	})
}

func TestCategoryFromPath(t *testing.T) {
	assert.Equal(t, CategoryMusic, CategoryFromPath("muzik"))
	assert.Equal(t, CategorySport, CategoryFromPath("futbol"))
	assert.Equal(t, CategoryOpera, CategoryFromPath("opera"))
	assert.Equal(t, "", CategoryFromPath("bilinmeyen"))
}

func TestCategoryFromLabel(t *testing.T) {
	assert.Equal(t, CategoryOpera, CategoryFromLabel("Opera"))
	assert.Equal(t, CategoryMusic, CategoryFromLabel("Senfoni Konseri"))
	assert.Equal(t, CategoryTheatre, CategoryFromLabel("Tiyatro"))
	// Unknown labels keep the source taxonomy, lowercased.
	assert.Equal(t, "atölye", CategoryFromLabel(" Atölye "))
	assert.Equal(t, "", CategoryFromLabel("  "))
}

func TestInferCategory(t *testing.T) {
	assert.Equal(t, CategorySport, InferCategory("Derbi heyecanı başlıyor"))
	assert.Equal(t, CategoryMusic, InferCategory("Açık hava caz gecesi"))
	assert.Equal(t, CategoryAnnouncement, InferCategory("Yol kapatma duyurusu"))
	assert.Equal(t, CategoryOther, InferCategory("Bilinmeyen içerik"))
}
