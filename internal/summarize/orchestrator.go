package summarize

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RRaffay/nuntium-em/internal/langdetect"
	"github.com/RRaffay/nuntium-em/internal/retry"
	"github.com/RRaffay/nuntium-em/internal/workpool"
)

// ClusterTask is one matched cluster queued for summarization, with its
// representative document URLs already chosen.
type ClusterTask struct {
	ClusterID  int
	Rank       int
	Similarity float64
	URLs       []string
}

// Objectives steer the two summarization prompts.
type Objectives struct {
	Article string
	Cluster string
}

// Report is the outcome of summarizing every matched cluster.
type Report struct {
	Clusters            []ClusterReport
	FinanciallyRelevant int
	Skipped             int
}

// Orchestrator drives document fetching and summarization over a worker pool.
type Orchestrator struct {
	fetcher  *DocumentFetcher
	articles ArticleSummarizer
	clusters ClusterSummarizer
	workers  int
	policy   retry.Policy
	log      zerolog.Logger
}

func NewOrchestrator(fetcher *DocumentFetcher, articles ArticleSummarizer, clusters ClusterSummarizer, workers int, policy retry.Policy, log zerolog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		fetcher:  fetcher,
		articles: articles,
		clusters: clusters,
		workers:  workers,
		policy:   policy,
		log:      log.With().Str("component", "summarize").Logger(),
	}
}

// Run summarizes the tasks concurrently. Clusters whose documents all turn
// out inaccessible or irrelevant are skipped, not failed; report order
// follows task order.
func (o *Orchestrator) Run(ctx context.Context, tasks []ClusterTask, objectives Objectives) (*Report, error) {
	if len(tasks) == 0 {
		return &Report{}, nil
	}

	results := workpool.Map(ctx, o.workers, tasks, func(ctx context.Context, task ClusterTask) (*ClusterReport, error) {
		return o.processCluster(ctx, task, objectives)
	})

	report := &Report{}
	for i, r := range results {
		if r.Err != nil {
			o.log.Error().Err(r.Err).Int("cluster", tasks[i].ClusterID).Msg("cluster summarization failed")
			report.Skipped++
			continue
		}
		if r.Value == nil {
			report.Skipped++
			continue
		}
		report.Clusters = append(report.Clusters, *r.Value)
		if r.Value.Event.FinanciallyRelevant() {
			report.FinanciallyRelevant++
		}
	}
	return report, nil
}

// processCluster returns nil when the cluster has nothing summarizable.
func (o *Orchestrator) processCluster(ctx context.Context, task ClusterTask, objectives Objectives) (*ClusterReport, error) {
	if len(task.URLs) == 0 {
		o.log.Info().Int("cluster", task.ClusterID).Msg("skipping cluster with no documents")
		return nil, nil
	}

	var summaries []string
	var usedURLs []string
	for _, url := range task.URLs {
		summary := o.summarizeDocument(ctx, url, objectives.Article)
		if IsSentinel(summary) {
			o.log.Debug().Int("cluster", task.ClusterID).Str("url", url).
				Str("sentinel", summary).Msg("dropping document")
			continue
		}
		summaries = append(summaries, summary)
		usedURLs = append(usedURLs, url)
	}

	if len(summaries) == 0 {
		o.log.Info().Int("cluster", task.ClusterID).Msg("skipping cluster with no usable documents")
		return nil, nil
	}

	var event EventSummary
	err := o.policy.Do(ctx, func(ctx context.Context) error {
		var sumErr error
		event, sumErr = o.clusters.SummarizeCluster(ctx, summaries, objectives.Cluster)
		return sumErr
	})
	if err != nil {
		return nil, fmt.Errorf("cluster %d: %w", task.ClusterID, err)
	}

	return &ClusterReport{
		ClusterID:        task.ClusterID,
		Rank:             task.Rank,
		Similarity:       task.Similarity,
		Event:            event,
		ArticleSummaries: summaries,
		ArticleURLs:      usedURLs,
	}, nil
}

// summarizeDocument fetches one document and summarizes it. Fetch failures
// degrade to the inaccessible sentinel so one dead link cannot sink a
// cluster.
func (o *Orchestrator) summarizeDocument(ctx context.Context, url, objective string) string {
	text, err := o.fetcher.FetchText(ctx, url)
	if err != nil {
		o.log.Debug().Err(err).Str("url", url).Msg("document fetch failed")
		return SentinelInaccessible
	}

	if code := langdetect.DetectISO6391(text); code != "" && code != "en" {
		objective = fmt.Sprintf("%s (source language appears to be %q; summarize in English)", objective, code)
	}

	var summary string
	err = o.policy.Do(ctx, func(ctx context.Context) error {
		var sumErr error
		summary, sumErr = o.articles.SummarizeArticle(ctx, text, objective)
		return sumErr
	})
	if err != nil {
		o.log.Warn().Err(err).Str("url", url).Msg("article summarization failed")
		return SentinelInaccessible
	}
	return summary
}
