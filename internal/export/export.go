// Package export persists a finished run as a CSV of sampled documents, a
// schema-validated JSON artifact, and a document-store row.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/RRaffay/nuntium-em/internal/cluster"
	"github.com/RRaffay/nuntium-em/internal/db"
	"github.com/RRaffay/nuntium-em/internal/globaltime"
	"github.com/RRaffay/nuntium-em/internal/summarize"
	artifactschema "github.com/RRaffay/nuntium-em/schema"
)

// RunInfo identifies one pipeline run.
type RunInfo struct {
	RunID       string    `json:"run_id"`
	Country     string    `json:"country"`
	CountryName string    `json:"country_name"`
	Query       string    `json:"query"`
	Hours       int       `json:"hours"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// ClusteringInfo records the winning hyperparameters and their scores.
type ClusteringInfo struct {
	Params    string           `json:"params"`
	Scores    cluster.ScoreSet `json:"scores"`
	Composite float64          `json:"composite"`
	Clusters  int              `json:"clusters"`
	Noise     int              `json:"noise"`
}

// Metadata carries run-level counts.
type Metadata struct {
	RecordsFetched            int             `json:"records_fetched"`
	RecordsSampled            int             `json:"records_sampled"`
	ClustersFound             int             `json:"clusters_found"`
	ClustersMatched           int             `json:"clusters_matched"`
	EventsSummarized          int             `json:"events_summarized"`
	FinanciallyRelevantEvents int             `json:"financially_relevant_events"`
	Clustering                *ClusteringInfo `json:"clustering,omitempty"`
}

// Artifact is the exported JSON document for one run.
type Artifact struct {
	ArtifactVersion string                    `json:"artifact_version"`
	Run             RunInfo                   `json:"run"`
	Metadata        Metadata                  `json:"metadata"`
	Events          []summarize.ClusterReport `json:"events"`
}

// DocumentRow is one sampled document flattened for the CSV export.
type DocumentRow struct {
	SourceURL      string
	EventCode      string
	GoldsteinScale float64
	AvgTone        float64
	NumMentions    int
	Cluster        int
	ClusterRank    int
	Matched        bool
	Description    string
}

// ArtifactStore is the document-store sink for run artifacts.
type ArtifactStore interface {
	InsertRunArtifact(ctx context.Context, rec db.ArtifactRecord) error
}

// Exporter writes run outputs to disk and the document store.
type Exporter struct {
	dir   string
	store ArtifactStore
	log   zerolog.Logger
}

// NewExporter builds an Exporter. store may be nil, in which case the
// document-store write is skipped.
func NewExporter(dir string, store ArtifactStore, log zerolog.Logger) *Exporter {
	return &Exporter{
		dir:   dir,
		store: store,
		log:   log.With().Str("component", "export").Logger(),
	}
}

// Export validates the artifact, writes the CSV and JSON files, and records
// the run in the document store. A store failure is logged but does not fail
// the export: the files on disk are the primary output.
func (e *Exporter) Export(ctx context.Context, artifact Artifact, rows []DocumentRow) (csvPath, jsonPath string, err error) {
	if artifact.ArtifactVersion == "" {
		artifact.ArtifactVersion = "v1"
	}
	if artifact.Events == nil {
		artifact.Events = []summarize.ClusterReport{}
	}

	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal artifact: %w", err)
	}
	if err := artifactschema.ValidateRunArtifact(payload); err != nil {
		return "", "", fmt.Errorf("artifact rejected: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create export dir: %w", err)
	}

	stamp := globaltime.UTC().Format("20060102_150405")
	csvPath = filepath.Join(e.dir, fmt.Sprintf("gdelt_data_%s_%dh_%s.csv", artifact.Run.Country, artifact.Run.Hours, stamp))
	jsonPath = filepath.Join(e.dir, fmt.Sprintf("summaries_%s_%dh_%s.json", artifact.Run.Country, artifact.Run.Hours, stamp))

	if err := writeCSV(csvPath, rows); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(jsonPath, payload, 0o644); err != nil {
		return "", "", fmt.Errorf("write artifact file: %w", err)
	}

	if e.store != nil {
		rec := db.ArtifactRecord{
			RunID:           artifact.Run.RunID,
			CountryCode:     artifact.Run.Country,
			CountryName:     artifact.Run.CountryName,
			Query:           artifact.Run.Query,
			HoursWindow:     artifact.Run.Hours,
			RecordsFetched:  artifact.Metadata.RecordsFetched,
			RecordsSampled:  artifact.Metadata.RecordsSampled,
			ClustersFound:   artifact.Metadata.ClustersFound,
			ClustersMatched: artifact.Metadata.ClustersMatched,
			EventsRelevant:  artifact.Metadata.FinanciallyRelevantEvents,
			Payload:         payload,
			StartedAt:       artifact.Run.StartedAt,
			FinishedAt:      artifact.Run.FinishedAt,
		}
		if storeErr := e.store.InsertRunArtifact(ctx, rec); storeErr != nil {
			e.log.Warn().Err(storeErr).Str("run_id", artifact.Run.RunID).
				Msg("failed to record run artifact in document store")
		}
	}

	e.log.Info().Str("csv", csvPath).Str("json", jsonPath).
		Int("documents", len(rows)).Int("events", len(artifact.Events)).
		Msg("exported run")
	return csvPath, jsonPath, nil
}

var csvHeader = []string{
	"source_url", "event_code", "goldstein_scale", "avg_tone",
	"num_mentions", "cluster", "cluster_rank", "matched_cluster", "description",
}

func writeCSV(path string, rows []DocumentRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.SourceURL,
			row.EventCode,
			strconv.FormatFloat(row.GoldsteinScale, 'g', -1, 64),
			strconv.FormatFloat(row.AvgTone, 'g', -1, 64),
			strconv.Itoa(row.NumMentions),
			strconv.Itoa(row.Cluster),
			strconv.Itoa(row.ClusterRank),
			strconv.FormatBool(row.Matched),
			row.Description,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
