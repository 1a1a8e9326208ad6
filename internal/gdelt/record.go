// Package gdelt fetches merged event and knowledge-graph records for a
// country window from the event store.
package gdelt

import "time"

// RawRecord is one event row joined with its knowledge-graph mentions. GKG
// fields are empty strings when no matching graph row existed.
type RawRecord struct {
	GlobalEventID int64     `json:"global_event_id"`
	DateAdded     time.Time `json:"date_added"`
	SQLDate       time.Time `json:"sql_date"`

	Actor1Name  string `json:"actor1_name"`
	Actor2Name  string `json:"actor2_name"`
	IsRootEvent bool   `json:"is_root_event"`

	EventCode      string  `json:"event_code"`
	EventBaseCode  string  `json:"event_base_code"`
	EventRootCode  string  `json:"event_root_code"`
	QuadClass      int     `json:"quad_class"`
	GoldsteinScale float64 `json:"goldstein_scale"`
	NumMentions    int     `json:"num_mentions"`
	NumSources     int     `json:"num_sources"`
	NumArticles    int     `json:"num_articles"`
	AvgTone        float64 `json:"avg_tone"`

	Actor1CountryCode string `json:"actor1_country_code"`
	Actor2CountryCode string `json:"actor2_country_code"`
	ActionCountryCode string `json:"action_country_code"`

	SourceURL string `json:"source_url"`

	GKGRecordID      string `json:"gkg_record_id"`
	SourceCommonName string `json:"source_common_name"`
	V2Themes         string `json:"v2_themes"`
	V2Locations      string `json:"v2_locations"`
	V2Persons        string `json:"v2_persons"`
	V2Organizations  string `json:"v2_organizations"`
	V2Tone           string `json:"v2_tone"`
}

// DedupeBySourceURL keeps the first record seen for each source URL,
// preserving input order. Records with an empty URL are kept as-is.
func DedupeBySourceURL(records []RawRecord) (kept []RawRecord, removed int) {
	seen := make(map[string]struct{}, len(records))
	kept = make([]RawRecord, 0, len(records))
	for _, rec := range records {
		if rec.SourceURL != "" {
			if _, dup := seen[rec.SourceURL]; dup {
				removed++
				continue
			}
			seen[rec.SourceURL] = struct{}{}
		}
		kept = append(kept, rec)
	}
	return kept, removed
}
