package db

import (
	"context"
	"fmt"
	"time"
)

// ArtifactRecord carries the per-run row inserted after export.
type ArtifactRecord struct {
	RunID           string
	CountryCode     string
	CountryName     string
	Query           string
	HoursWindow     int
	RecordsFetched  int
	RecordsSampled  int
	ClustersFound   int
	ClustersMatched int
	EventsRelevant  int
	Payload         []byte
	StartedAt       time.Time
	FinishedAt      time.Time
}

// InsertRunArtifact records a completed run. Re-running with the same run id
// replaces the previous payload.
func (p *Pool) InsertRunArtifact(ctx context.Context, rec ArtifactRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if len(rec.Payload) == 0 {
		return fmt.Errorf("payload is required")
	}

	const q = `
INSERT INTO analysis.run_artifacts (
	run_id, country_code, country_name, query, hours_window,
	records_fetched, records_sampled, clusters_found, clusters_matched,
	events_relevant, payload, started_at, finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?::jsonb, ?, ?)
ON CONFLICT (run_id) DO UPDATE SET
	payload = EXCLUDED.payload,
	records_fetched = EXCLUDED.records_fetched,
	records_sampled = EXCLUDED.records_sampled,
	clusters_found = EXCLUDED.clusters_found,
	clusters_matched = EXCLUDED.clusters_matched,
	events_relevant = EXCLUDED.events_relevant,
	finished_at = EXCLUDED.finished_at`

	_, err := p.Exec(ctx, q,
		rec.RunID, rec.CountryCode, rec.CountryName, rec.Query, rec.HoursWindow,
		rec.RecordsFetched, rec.RecordsSampled, rec.ClustersFound, rec.ClustersMatched,
		rec.EventsRelevant, string(rec.Payload), rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run artifact: %w", err)
	}
	return nil
}

// LatestRunArtifact returns the most recent artifact for a country, if any.
func (p *Pool) LatestRunArtifact(ctx context.Context, countryCode string) (*RunArtifact, error) {
	const q = `
SELECT
	artifact_id, artifact_uuid::text, run_id, country_code, country_name,
	query, hours_window, records_fetched, records_sampled, clusters_found,
	clusters_matched, events_relevant, payload, started_at, finished_at, created_at
FROM analysis.run_artifacts
WHERE country_code = ?
ORDER BY finished_at DESC
LIMIT 1`

	row := p.QueryRow(ctx, q, countryCode)
	var a RunArtifact
	err := row.Scan(
		&a.ArtifactID, &a.ArtifactUUID, &a.RunID, &a.CountryCode, &a.CountryName,
		&a.Query, &a.HoursWindow, &a.RecordsFetched, &a.RecordsSampled, &a.ClustersFound,
		&a.ClustersMatched, &a.EventsRelevant, &a.Payload, &a.StartedAt, &a.FinishedAt, &a.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest run artifact: %w", err)
	}
	return &a, nil
}
