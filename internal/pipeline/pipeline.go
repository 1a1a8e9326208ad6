// Package pipeline orchestrates the full analysis run: fetch, preprocess,
// sample, embed, cluster, match, summarize, export.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/RRaffay/nuntium-em/internal/cluster"
	"github.com/RRaffay/nuntium-em/internal/config"
	"github.com/RRaffay/nuntium-em/internal/export"
	"github.com/RRaffay/nuntium-em/internal/gdelt"
	"github.com/RRaffay/nuntium-em/internal/globaltime"
	"github.com/RRaffay/nuntium-em/internal/match"
	"github.com/RRaffay/nuntium-em/internal/preprocess"
	"github.com/RRaffay/nuntium-em/internal/sample"
	"github.com/RRaffay/nuntium-em/internal/summarize"
)

// RecordFetcher supplies raw event records.
type RecordFetcher interface {
	Fetch(ctx context.Context, country string, hours int) ([]gdelt.RawRecord, error)
}

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedTexts(ctx context.Context, texts []string) (*mat.Dense, []int, error)
}

// Summarizer produces event summaries for matched clusters.
type Summarizer interface {
	Run(ctx context.Context, tasks []summarize.ClusterTask, objectives summarize.Objectives) (*summarize.Report, error)
}

// ArtifactWriter persists the run outputs.
type ArtifactWriter interface {
	Export(ctx context.Context, artifact export.Artifact, rows []export.DocumentRow) (csvPath, jsonPath string, err error)
}

// Request describes one analysis run.
type Request struct {
	Country          string
	Hours            int
	Query            string
	ArticleObjective string
	ClusterObjective string
	SampleSize       int
	ProcessAll       bool
}

// Summary is the outcome handed back to the CLI and HTTP surfaces.
type Summary struct {
	RunID               string `json:"run_id"`
	Country             string `json:"country"`
	CountryName         string `json:"country_name"`
	Hours               int    `json:"hours"`
	RecordsFetched      int    `json:"records_fetched"`
	RecordsSampled      int    `json:"records_sampled"`
	ClustersFound       int    `json:"clusters_found"`
	ClustersMatched     int    `json:"clusters_matched"`
	EventsSummarized    int    `json:"events_summarized"`
	FinanciallyRelevant int    `json:"financially_relevant_events"`
	CSVPath             string `json:"csv_path,omitempty"`
	JSONPath            string `json:"json_path,omitempty"`
	Empty               bool   `json:"empty"`
}

// Runner wires the pipeline stages.
type Runner struct {
	cfg       *config.Config
	fetcher   RecordFetcher
	embedder  Embedder
	optimizer *cluster.Optimizer
	summarize Summarizer
	exporter  ArtifactWriter
	log       zerolog.Logger
}

func NewRunner(cfg *config.Config, fetcher RecordFetcher, embedder Embedder, optimizer *cluster.Optimizer, summarizer Summarizer, exporter ArtifactWriter, log zerolog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		fetcher:   fetcher,
		embedder:  embedder,
		optimizer: optimizer,
		summarize: summarizer,
		exporter:  exporter,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

func (r *Runner) validate(req *Request) error {
	req.Country = strings.ToUpper(strings.TrimSpace(req.Country))
	if !gdelt.ValidCountry(req.Country) {
		return fmt.Errorf("unknown country code %q", req.Country)
	}
	if req.Hours < 1 {
		return fmt.Errorf("hours must be >= 1, got %d", req.Hours)
	}
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query must not be empty")
	}
	if req.ArticleObjective == "" {
		req.ArticleObjective = req.Query
	}
	if req.ClusterObjective == "" {
		req.ClusterObjective = req.Query
	}
	if req.SampleSize < 1 {
		req.SampleSize = r.cfg.SampleSize
	}
	return nil
}

// Run executes the pipeline. A quiet news window is a successful run with
// Empty set, not an error.
func (r *Runner) Run(ctx context.Context, req Request) (*Summary, error) {
	if err := r.validate(&req); err != nil {
		return nil, err
	}

	started := globaltime.UTC()
	runID := fmt.Sprintf("%s_%dh_%s", req.Country, req.Hours, started.Format("20060102150405"))
	log := r.log.With().Str("run_id", runID).Logger()

	summary := &Summary{
		RunID:       runID,
		Country:     req.Country,
		CountryName: gdelt.CountryName(req.Country),
		Hours:       req.Hours,
	}

	records, err := r.fetcher.Fetch(ctx, req.Country, req.Hours)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	summary.RecordsFetched = len(records)
	if len(records) == 0 {
		log.Warn().Msg("no records fetched; finishing empty run")
		summary.Empty = true
		return r.export(ctx, req, summary, started, nil, nil, nil, nil)
	}

	docs, err := preprocess.Run(records, preprocess.Caps{
		Persons:       r.cfg.MaxPersons,
		Organizations: r.cfg.MaxOrganizations,
		Locations:     r.cfg.MaxLocations,
		Themes:        r.cfg.MaxThemes,
	})
	if err != nil {
		return nil, fmt.Errorf("preprocess records: %w", err)
	}

	if !req.ProcessAll && req.SampleSize < len(docs) {
		goldstein := make([]float64, len(docs))
		mentions := make([]int, len(docs))
		for i, d := range docs {
			goldstein[i] = d.Record.GoldsteinScale
			mentions[i] = d.Record.NumMentions
		}
		keep := sample.TopBySignificance(goldstein, mentions, req.SampleSize)
		sampled := make([]preprocess.Document, len(keep))
		for i, idx := range keep {
			sampled[i] = docs[idx]
		}
		docs = sampled
	}
	summary.RecordsSampled = len(docs)
	log.Info().Int("fetched", summary.RecordsFetched).Int("sampled", len(docs)).Msg("preprocessed records")

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Description
	}
	embeddings, valid, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed descriptions: %w", err)
	}
	// Keep documents aligned with the embedding rows.
	aligned := make([]preprocess.Document, len(valid))
	for i, idx := range valid {
		aligned[i] = docs[idx]
	}
	docs = aligned

	queryEmbedding, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	clustering, err := r.optimizer.Optimize(ctx, embeddings, queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("cluster embeddings: %w", err)
	}
	summary.ClustersFound = clustering.Clusters

	matches := match.Clusters(queryEmbedding, embeddings, clustering.Labels, match.Options{
		TopN:                r.cfg.TopNClusters,
		SimilarityThreshold: r.cfg.SimilarityThreshold,
		DiversityWeight:     r.cfg.DiversityWeight,
	})
	summary.ClustersMatched = len(matches)
	log.Info().Int("clusters", clustering.Clusters).Int("matched", len(matches)).Msg("matched clusters")

	tasks := r.buildTasks(docs, embeddings, clustering.Labels, matches)
	report, err := r.summarize.Run(ctx, tasks, summarize.Objectives{
		Article: req.ArticleObjective,
		Cluster: req.ClusterObjective,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize clusters: %w", err)
	}
	summary.EventsSummarized = len(report.Clusters)
	summary.FinanciallyRelevant = report.FinanciallyRelevant

	return r.export(ctx, req, summary, started, docs, clustering, matches, report)
}

// buildTasks picks the representative documents of each matched cluster.
func (r *Runner) buildTasks(docs []preprocess.Document, embeddings *mat.Dense, labels []int, matches []match.Match) []summarize.ClusterTask {
	tasks := make([]summarize.ClusterTask, 0, len(matches))
	for _, m := range matches {
		var candidates []sample.DocumentCandidate
		for i, label := range labels {
			if label != m.ClusterID {
				continue
			}
			rec := docs[i].Record
			candidates = append(candidates, sample.DocumentCandidate{
				URL:            rec.SourceURL,
				Embedding:      embeddings.RawRowView(i),
				NumMentions:    rec.NumMentions,
				GoldsteinScale: rec.GoldsteinScale,
				AvgTone:        rec.AvgTone,
			})
		}
		tasks = append(tasks, summarize.ClusterTask{
			ClusterID:  m.ClusterID,
			Rank:       m.Rank,
			Similarity: m.Similarity,
			URLs:       sample.Documents(candidates, r.cfg.MaxDocsPerCluster, r.cfg.MMRLambda),
		})
	}
	return tasks
}

func (r *Runner) export(ctx context.Context, req Request, summary *Summary, started time.Time, docs []preprocess.Document, clustering *cluster.Result, matches []match.Match, report *summarize.Report) (*Summary, error) {
	finished := globaltime.UTC()

	metadata := export.Metadata{
		RecordsFetched:   summary.RecordsFetched,
		RecordsSampled:   summary.RecordsSampled,
		ClustersFound:    summary.ClustersFound,
		ClustersMatched:  summary.ClustersMatched,
		EventsSummarized: summary.EventsSummarized,
	}
	if clustering != nil {
		metadata.Clustering = &export.ClusteringInfo{
			Params:    clustering.Params.String(),
			Scores:    clustering.Scores,
			Composite: clustering.Composite,
			Clusters:  clustering.Clusters,
			Noise:     clustering.Noise,
		}
	}

	var events []summarize.ClusterReport
	if report != nil {
		events = report.Clusters
		metadata.FinanciallyRelevantEvents = report.FinanciallyRelevant
	}

	artifact := export.Artifact{
		ArtifactVersion: "v1",
		Run: export.RunInfo{
			RunID:       summary.RunID,
			Country:     req.Country,
			CountryName: summary.CountryName,
			Query:       req.Query,
			Hours:       req.Hours,
			StartedAt:   started,
			FinishedAt:  finished,
		},
		Metadata: metadata,
		Events:   events,
	}

	rows := buildRows(docs, clustering, matches)
	csvPath, jsonPath, err := r.exporter.Export(ctx, artifact, rows)
	if err != nil {
		return nil, fmt.Errorf("export run: %w", err)
	}
	summary.CSVPath = csvPath
	summary.JSONPath = jsonPath
	return summary, nil
}

func buildRows(docs []preprocess.Document, clustering *cluster.Result, matches []match.Match) []export.DocumentRow {
	if len(docs) == 0 {
		return nil
	}

	ranks := make(map[int]int, len(matches))
	for _, m := range matches {
		ranks[m.ClusterID] = m.Rank
	}

	rows := make([]export.DocumentRow, len(docs))
	for i, d := range docs {
		label := cluster.Noise
		if clustering != nil {
			label = clustering.Labels[i]
		}
		rank, matched := ranks[label]
		if !matched {
			rank = -1
		}
		rows[i] = export.DocumentRow{
			SourceURL:      d.Record.SourceURL,
			EventCode:      d.Record.EventCode,
			GoldsteinScale: d.Record.GoldsteinScale,
			AvgTone:        d.Record.AvgTone,
			NumMentions:    d.Record.NumMentions,
			Cluster:        label,
			ClusterRank:    rank,
			Matched:        matched,
			Description:    d.Description,
		}
	}
	return rows
}
