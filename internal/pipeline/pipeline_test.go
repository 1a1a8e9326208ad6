package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/RRaffay/nuntium-em/internal/cluster"
	"github.com/RRaffay/nuntium-em/internal/config"
	"github.com/RRaffay/nuntium-em/internal/export"
	"github.com/RRaffay/nuntium-em/internal/gdelt"
	"github.com/RRaffay/nuntium-em/internal/summarize"
)

type stubFetcher struct {
	records []gdelt.RawRecord
	err     error
}

func (s *stubFetcher) Fetch(_ context.Context, _ string, _ int) ([]gdelt.RawRecord, error) {
	return s.records, s.err
}

// stubEmbedder maps descriptions onto two separated directions based on the
// themes they mention, so clustering and matching behave predictably.
type stubEmbedder struct{}

func (stubEmbedder) vector(text string) []float64 {
	switch {
	case strings.Contains(text, "ECON"):
		return []float64{1, 0, 0}
	case strings.Contains(text, "PROTEST"):
		return []float64{0, 1, 0}
	default:
		return []float64{0.95, 0.05, 0}
	}
}

func (s stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	return s.vector(text), nil
}

func (s stubEmbedder) EmbedTexts(_ context.Context, texts []string) (*mat.Dense, []int, error) {
	if len(texts) == 0 {
		return nil, nil, fmt.Errorf("no texts to embed")
	}
	out := mat.NewDense(len(texts), 3, nil)
	valid := make([]int, len(texts))
	for i, t := range texts {
		out.SetRow(i, s.vector(t))
		valid[i] = i
	}
	return out, valid, nil
}

type stubSummarizer struct {
	tasks []summarize.ClusterTask
}

func (s *stubSummarizer) Run(_ context.Context, tasks []summarize.ClusterTask, _ summarize.Objectives) (*summarize.Report, error) {
	s.tasks = tasks
	report := &summarize.Report{}
	for _, task := range tasks {
		report.Clusters = append(report.Clusters, summarize.ClusterReport{
			ClusterID:        task.ClusterID,
			Rank:             task.Rank,
			Similarity:       task.Similarity,
			Event:            summarize.EventSummary{Title: "Event", Summary: "Summary", RelevanceScore: 4},
			ArticleSummaries: []string{"summary"},
			ArticleURLs:      task.URLs,
		})
		report.FinanciallyRelevant++
	}
	return report, nil
}

type stubExporter struct {
	artifact export.Artifact
	rows     []export.DocumentRow
	calls    int
}

func (s *stubExporter) Export(_ context.Context, artifact export.Artifact, rows []export.DocumentRow) (string, string, error) {
	s.calls++
	s.artifact = artifact
	s.rows = rows
	return "out.csv", "out.json", nil
}

func testConfig() *config.Config {
	return &config.Config{
		SampleSize:          1500,
		MaxPersons:          10,
		MaxOrganizations:    10,
		MaxLocations:        10,
		MaxThemes:           4,
		TopNClusters:        5,
		SimilarityThreshold: 0.3,
		DiversityWeight:     0.3,
		MaxDocsPerCluster:   3,
		MMRLambda:           0.9,
	}
}

func testRecords() []gdelt.RawRecord {
	var records []gdelt.RawRecord
	for i := 0; i < 10; i++ {
		records = append(records, gdelt.RawRecord{
			GlobalEventID:   int64(i),
			SourceURL:       fmt.Sprintf("https://example.com/econ/%d", i),
			EventCode:       "042",
			GoldsteinScale:  2,
			NumMentions:     10 + i,
			V2Persons:       "Finance Minister,10",
			V2Organizations: "Central Bank,5",
			V2Locations:     "1#India#India#IN#0#20.0#77.0#1",
			V2Themes:        "ECON_INFLATION,10",
		})
	}
	for i := 0; i < 10; i++ {
		records = append(records, gdelt.RawRecord{
			GlobalEventID:   int64(100 + i),
			SourceURL:       fmt.Sprintf("https://example.com/protest/%d", i),
			EventCode:       "140",
			GoldsteinScale:  -5,
			NumMentions:     5 + i,
			V2Persons:       "Union Leader,10",
			V2Organizations: "Labor Union,5",
			V2Locations:     "1#India#India#IN#0#20.0#77.0#1",
			V2Themes:        "PROTEST,10",
		})
	}
	return records
}

func testRunner(fetcher RecordFetcher, summarizer Summarizer, exporter ArtifactWriter) *Runner {
	grid := cluster.Grid{
		Reduce:          []bool{false},
		MinClusterSizes: []int{5},
		MinSamples:      []int{3},
		Epsilons:        []float64{0.5},
	}
	weights := cluster.Weights{Silhouette: 0.4, Compactness: 0.2, Membership: 0.2, Relevance: 0.2}
	optimizer := cluster.NewOptimizer(grid, weights, 2, zerolog.Nop())
	return NewRunner(testConfig(), fetcher, stubEmbedder{}, optimizer, summarizer, exporter, zerolog.Nop())
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	summarizer := &stubSummarizer{}
	exporter := &stubExporter{}
	runner := testRunner(&stubFetcher{records: testRecords()}, summarizer, exporter)

	summary, err := runner.Run(context.Background(), Request{
		Country: "IN",
		Hours:   48,
		Query:   "Impact of inflation on sovereign bond yields",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Empty {
		t.Fatal("run should not be empty")
	}
	if summary.RecordsFetched != 20 || summary.RecordsSampled != 20 {
		t.Fatalf("unexpected record counts: %+v", summary)
	}
	if summary.ClustersFound != 2 {
		t.Fatalf("expected 2 clusters, got %d", summary.ClustersFound)
	}
	if summary.ClustersMatched < 1 {
		t.Fatal("expected at least one matched cluster")
	}
	if summary.CSVPath != "out.csv" || summary.JSONPath != "out.json" {
		t.Fatalf("export paths not propagated: %+v", summary)
	}

	// The economics cluster must rank first for an economics query.
	if len(summarizer.tasks) == 0 {
		t.Fatal("no summarization tasks built")
	}
	first := summarizer.tasks[0]
	if first.Rank != 1 {
		t.Fatalf("first task should be rank 1, got %d", first.Rank)
	}
	if len(first.URLs) == 0 || len(first.URLs) > 3 {
		t.Fatalf("expected 1-3 representative urls, got %v", first.URLs)
	}
	for _, u := range first.URLs {
		if !strings.Contains(u, "/econ/") {
			t.Fatalf("economics query matched non-economics documents: %v", first.URLs)
		}
	}

	if exporter.calls != 1 {
		t.Fatalf("expected one export, got %d", exporter.calls)
	}
	if exporter.artifact.Metadata.FinanciallyRelevantEvents != summary.FinanciallyRelevant {
		t.Fatal("financially relevant count mismatch between artifact and summary")
	}
	if len(exporter.rows) != 20 {
		t.Fatalf("expected 20 document rows, got %d", len(exporter.rows))
	}
	for _, row := range exporter.rows {
		if row.Matched && row.ClusterRank < 1 {
			t.Fatalf("matched row without rank: %+v", row)
		}
		if !row.Matched && row.ClusterRank != -1 {
			t.Fatalf("unmatched row with rank: %+v", row)
		}
	}
}

func TestRun_EmptyWindowIsSuccess(t *testing.T) {
	t.Parallel()

	exporter := &stubExporter{}
	runner := testRunner(&stubFetcher{records: nil}, &stubSummarizer{}, exporter)

	summary, err := runner.Run(context.Background(), Request{
		Country: "BR",
		Hours:   24,
		Query:   "commodity exports",
	})
	if err != nil {
		t.Fatalf("empty window must not fail: %v", err)
	}
	if !summary.Empty {
		t.Fatal("summary should be marked empty")
	}
	if summary.RecordsFetched != 0 || summary.ClustersFound != 0 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if exporter.calls != 1 {
		t.Fatal("empty run should still export an artifact")
	}
	if len(exporter.artifact.Events) != 0 {
		t.Fatalf("empty run exported events: %+v", exporter.artifact.Events)
	}
}

func TestRun_ValidatesRequest(t *testing.T) {
	t.Parallel()

	runner := testRunner(&stubFetcher{}, &stubSummarizer{}, &stubExporter{})

	cases := []Request{
		{Country: "ZZ", Hours: 24, Query: "q"},
		{Country: "IN", Hours: 0, Query: "q"},
		{Country: "IN", Hours: 24, Query: "  "},
	}
	for i, req := range cases {
		if _, err := runner.Run(context.Background(), req); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestRun_FetchErrorPropagates(t *testing.T) {
	t.Parallel()

	fetchErr := &gdelt.DataSourceError{Source: "gdelt", Err: fmt.Errorf("connection reset")}
	runner := testRunner(&stubFetcher{err: fetchErr}, &stubSummarizer{}, &stubExporter{})

	_, err := runner.Run(context.Background(), Request{Country: "IN", Hours: 24, Query: "q"})
	if err == nil || !strings.Contains(err.Error(), "fetch records") {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func TestRun_SignificanceSamplingBounds(t *testing.T) {
	t.Parallel()

	exporter := &stubExporter{}
	runner := testRunner(&stubFetcher{records: testRecords()}, &stubSummarizer{}, exporter)

	summary, err := runner.Run(context.Background(), Request{
		Country:    "IN",
		Hours:      48,
		Query:      "inflation",
		SampleSize: 15,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RecordsSampled != 15 {
		t.Fatalf("expected 15 sampled records, got %d", summary.RecordsSampled)
	}
}
