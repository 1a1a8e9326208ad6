package gdelt

import (
	"testing"
	"time"
)

func TestDedupeBySourceURL_KeepsFirstSeen(t *testing.T) {
	t.Parallel()

	records := []RawRecord{
		{GlobalEventID: 1, SourceURL: "https://example.com/a"},
		{GlobalEventID: 2, SourceURL: "https://example.com/b"},
		{GlobalEventID: 3, SourceURL: "https://example.com/a"},
		{GlobalEventID: 4, SourceURL: ""},
		{GlobalEventID: 5, SourceURL: "https://example.com/b"},
	}

	kept, removed := DedupeBySourceURL(records)
	if removed != 2 {
		t.Fatalf("expected 2 duplicates removed, got %d", removed)
	}
	if len(kept) != 3 {
		t.Fatalf("expected 3 kept records, got %d", len(kept))
	}

	seen := make(map[string]bool)
	for _, rec := range kept {
		if rec.SourceURL == "" {
			continue
		}
		if seen[rec.SourceURL] {
			t.Fatalf("duplicate source URL survived: %s", rec.SourceURL)
		}
		seen[rec.SourceURL] = true
	}

	if kept[0].GlobalEventID != 1 || kept[1].GlobalEventID != 2 {
		t.Fatalf("first occurrence not preserved: %+v", kept)
	}
}

func TestTimestampIntRoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.March, 7, 14, 5, 9, 0, time.UTC)
	stamp := timestampInt(at)
	if stamp != 20260307140509 {
		t.Fatalf("unexpected stamp %d", stamp)
	}
	if got := parseTimestampInt(stamp); !got.Equal(at) {
		t.Fatalf("round trip mismatch: %v != %v", got, at)
	}
}

func TestParseDateInt(t *testing.T) {
	t.Parallel()

	got := parseDateInt(20251231)
	want := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !parseDateInt(0).IsZero() {
		t.Fatal("expected zero time for zero input")
	}
}
