package gdelt

import (
	"testing"
	"time"

	"github.com/RRaffay/nuntium-em/internal/globaltime"
)

func TestCache_RoundTripAndExpiry(t *testing.T) {
	base := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(base)
	defer globaltime.ResetTime()

	cache := NewCache(t.TempDir(), 24*time.Hour)
	records := []RawRecord{
		{GlobalEventID: 1, SourceURL: "https://example.com/a", GoldsteinScale: -2.5},
		{GlobalEventID: 2, SourceURL: "https://example.com/b", NumMentions: 12},
	}

	if err := cache.Put("IN", 48, records); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok := cache.Get("IN", 48)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0].GlobalEventID != 1 || got[1].NumMentions != 12 {
		t.Fatalf("unexpected cached records: %+v", got)
	}

	// A different key misses.
	if _, ok := cache.Get("IN", 24); ok {
		t.Fatal("expected miss for different window")
	}

	// Inside the expiry window it still hits.
	globaltime.SetMockTime(base.Add(23 * time.Hour))
	if _, ok := cache.Get("IN", 48); !ok {
		t.Fatal("expected hit inside expiry window")
	}

	// Past the expiry window it misses.
	globaltime.SetMockTime(base.Add(25 * time.Hour))
	if _, ok := cache.Get("IN", 48); ok {
		t.Fatal("expected miss past expiry window")
	}
}

func TestCountryName(t *testing.T) {
	t.Parallel()

	if got := CountryName("in"); got != "India" {
		t.Fatalf("expected India, got %s", got)
	}
	if got := CountryName("ZZ"); got != "ZZ" {
		t.Fatalf("expected code fallback, got %s", got)
	}
	if !ValidCountry("BR") || ValidCountry("ZZ") {
		t.Fatal("country validity checks failed")
	}
}
