package gdelt

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/RRaffay/nuntium-em/internal/db"
	"github.com/RRaffay/nuntium-em/internal/globaltime"
)

// DataSourceError wraps failures while querying the event store.
type DataSourceError struct {
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// Client fetches merged event and knowledge-graph records.
type Client struct {
	pool  *db.Pool
	cache *Cache
	log   zerolog.Logger
}

func NewClient(pool *db.Pool, cache *Cache, log zerolog.Logger) *Client {
	return &Client{
		pool:  pool,
		cache: cache,
		log:   log.With().Str("component", "gdelt").Logger(),
	}
}

// The events CTE filters on both the ingest timestamp and the DATEADDED
// stamp. The ingest filter gets a 24 hour pad so events added near the
// window boundary are not lost to partition skew; DATEADDED is the
// authoritative cutoff.
const fetchQuery = `
WITH events AS (
	SELECT
		global_event_id, dateadded, sqldate,
		actor1_name, actor2_name, is_root_event,
		event_code, event_base_code, event_root_code,
		quad_class, goldstein_scale,
		num_mentions, num_sources, num_articles, avg_tone,
		actor1_geo_country_code, actor2_geo_country_code, action_geo_country_code,
		source_url
	FROM gdelt.events
	WHERE ingested_at >= ?
	  AND dateadded >= ?
	  AND (actor1_geo_country_code = ? OR actor2_geo_country_code = ? OR action_geo_country_code = ?)
),
gkg AS (
	SELECT
		gkg_record_id, document_identifier, source_common_name,
		v2_themes, v2_locations, v2_persons, v2_organizations, v2_tone
	FROM gdelt.gkg
	WHERE ingested_at >= ?
	  AND date >= ?
)
SELECT
	e.global_event_id, e.dateadded, e.sqldate,
	e.actor1_name, e.actor2_name, e.is_root_event,
	e.event_code, e.event_base_code, e.event_root_code,
	e.quad_class, e.goldstein_scale,
	e.num_mentions, e.num_sources, e.num_articles, e.avg_tone,
	e.actor1_geo_country_code, e.actor2_geo_country_code, e.action_geo_country_code,
	e.source_url,
	g.gkg_record_id, g.source_common_name,
	g.v2_themes, g.v2_locations, g.v2_persons, g.v2_organizations, g.v2_tone
FROM events e
LEFT JOIN gkg g ON e.source_url = g.document_identifier`

// Fetch returns deduplicated records for the country over the trailing window.
// An empty window is not an error: it returns an empty slice.
func (c *Client) Fetch(ctx context.Context, country string, hours int) ([]RawRecord, error) {
	if hours < 1 {
		return nil, &DataSourceError{Source: "gdelt", Err: fmt.Errorf("hours must be >= 1, got %d", hours)}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(country, hours); ok {
			c.log.Info().Str("country", country).Int("hours", hours).
				Int("records", len(cached)).Msg("using cached records")
			return cached, nil
		}
	}

	now := globaltime.UTC()
	cutoff := now.Add(-time.Duration(hours) * time.Hour)
	ingestPad := now.Add(-time.Duration(hours+24) * time.Hour)
	cutoffStamp := timestampInt(cutoff)

	rows, err := c.pool.Query(ctx, fetchQuery,
		ingestPad, cutoffStamp, country, country, country,
		ingestPad, cutoffStamp,
	)
	if err != nil {
		return nil, &DataSourceError{Source: "gdelt", Err: fmt.Errorf("query events: %w", err)}
	}
	defer rows.Close()

	var records []RawRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &DataSourceError{Source: "gdelt", Err: fmt.Errorf("scan event row: %w", err)}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataSourceError{Source: "gdelt", Err: fmt.Errorf("iterate event rows: %w", err)}
	}

	fetched := len(records)
	records, removed := DedupeBySourceURL(records)
	c.log.Info().Str("country", country).Int("hours", hours).
		Int("fetched", fetched).Int("duplicates_removed", removed).
		Int("records", len(records)).Msg("fetched records")

	if len(records) == 0 {
		c.log.Warn().Str("country", country).Int("hours", hours).
			Msg("no records in window")
		return []RawRecord{}, nil
	}

	if c.cache != nil {
		if err := c.cache.Put(country, hours, records); err != nil {
			c.log.Warn().Err(err).Msg("failed to write record cache")
		}
	}
	return records, nil
}

func scanRecord(rows *db.Rows) (RawRecord, error) {
	var (
		rec       RawRecord
		dateAdded int64
		sqlDate   int64
		isRoot    int

		gkgID, sourceName             sql.NullString
		themes, locations             sql.NullString
		persons, organizations, tone  sql.NullString
		actor1Geo, actor2Geo, actGeo  sql.NullString
		actor1Name, actor2Name        sql.NullString
	)

	err := rows.Scan(
		&rec.GlobalEventID, &dateAdded, &sqlDate,
		&actor1Name, &actor2Name, &isRoot,
		&rec.EventCode, &rec.EventBaseCode, &rec.EventRootCode,
		&rec.QuadClass, &rec.GoldsteinScale,
		&rec.NumMentions, &rec.NumSources, &rec.NumArticles, &rec.AvgTone,
		&actor1Geo, &actor2Geo, &actGeo,
		&rec.SourceURL,
		&gkgID, &sourceName,
		&themes, &locations, &persons, &organizations, &tone,
	)
	if err != nil {
		return RawRecord{}, err
	}

	rec.DateAdded = parseTimestampInt(dateAdded)
	rec.SQLDate = parseDateInt(sqlDate)
	rec.IsRootEvent = isRoot != 0
	rec.Actor1Name = actor1Name.String
	rec.Actor2Name = actor2Name.String
	rec.Actor1CountryCode = actor1Geo.String
	rec.Actor2CountryCode = actor2Geo.String
	rec.ActionCountryCode = actGeo.String
	rec.GKGRecordID = gkgID.String
	rec.SourceCommonName = sourceName.String
	rec.V2Themes = themes.String
	rec.V2Locations = locations.String
	rec.V2Persons = persons.String
	rec.V2Organizations = organizations.String
	rec.V2Tone = tone.String
	return rec, nil
}

// timestampInt renders t as the store's yyyymmddHHMMSS integer stamp.
func timestampInt(t time.Time) int64 {
	t = t.UTC()
	return int64(t.Year())*1e10 +
		int64(t.Month())*1e8 +
		int64(t.Day())*1e6 +
		int64(t.Hour())*1e4 +
		int64(t.Minute())*1e2 +
		int64(t.Second())
}

func parseTimestampInt(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	sec := int(v % 100)
	v /= 100
	min := int(v % 100)
	v /= 100
	hour := int(v % 100)
	v /= 100
	day := int(v % 100)
	v /= 100
	month := time.Month(v % 100)
	year := int(v / 100)
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}

func parseDateInt(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	day := int(v % 100)
	v /= 100
	month := time.Month(v % 100)
	year := int(v / 100)
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
