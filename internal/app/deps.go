package app

import (
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"github.com/RRaffay/nuntium-em/internal/cluster"
	"github.com/RRaffay/nuntium-em/internal/config"
	"github.com/RRaffay/nuntium-em/internal/db"
	"github.com/RRaffay/nuntium-em/internal/embed"
	"github.com/RRaffay/nuntium-em/internal/export"
	"github.com/RRaffay/nuntium-em/internal/gdelt"
	"github.com/RRaffay/nuntium-em/internal/pipeline"
	"github.com/RRaffay/nuntium-em/internal/retry"
	"github.com/RRaffay/nuntium-em/internal/summarize"
)

// buildRunner assembles the full pipeline from configuration. The pool is
// shared between the record fetcher and the artifact store.
func buildRunner(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) *pipeline.Runner {
	var cache *gdelt.Cache
	if cfg.UseCache {
		cache = gdelt.NewCache(cfg.CacheDir, cfg.CacheTTL())
	}
	fetcher := gdelt.NewClient(pool, cache, logger)

	oa := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
	policy := retry.Policy{
		Attempts:       cfg.RetryAttempts,
		InitialBackoff: cfg.RetryBackoff(),
		MaxBackoff:     8 * time.Second,
	}

	embedder := embed.NewService(&oa, cfg.EmbeddingModel, cfg.EmbedWorkers, policy, logger)

	optimizer := cluster.NewOptimizer(
		cluster.Grid{
			Reduce:          cfg.GridReduce,
			Components:      cfg.GridComponents,
			MinClusterSizes: cfg.GridMinClusterSizes,
			MinSamples:      cfg.GridMinSamples,
			Epsilons:        cfg.GridEpsilons,
		},
		cluster.Weights{
			Silhouette:  cfg.WeightSilhouette,
			Compactness: cfg.WeightCompactness,
			Membership:  cfg.WeightMembership,
			Relevance:   cfg.WeightRelevance,
		},
		cfg.GridWorkers,
		logger,
	)

	llm := summarize.NewOpenAISummarizer(&oa, cfg.SummaryModel)
	docs := summarize.NewDocumentFetcher(summarize.FetcherOptions{
		Timeout:  cfg.DocTimeout(),
		MaxWords: cfg.DocMaxWords,
	})
	orchestrator := summarize.NewOrchestrator(docs, llm, llm, cfg.SummaryWorkers, policy, logger)

	exporter := export.NewExporter(cfg.ExportDir, pool, logger)

	return pipeline.NewRunner(cfg, fetcher, embedder, optimizer, orchestrator, exporter, logger)
}
