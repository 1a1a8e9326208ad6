package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable for a pipeline run. There are no package-level
// singletons: the loaded Config is passed by reference into each component.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"EM_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"EM_DB_MAX_CONNS" default:"8"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY" required:"true"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	SummaryModel   string `envconfig:"SUMMARY_MODEL" default:"gpt-4o-mini"`

	// Event-store fetch cache.
	UseCache     bool   `envconfig:"GDELT_USE_CACHE" default:"true"`
	CacheDir     string `envconfig:"GDELT_CACHE_DIR" default:"gdelt_cache"`
	CacheExpiry  int    `envconfig:"GDELT_CACHE_EXPIRY_HOURS" default:"24"`
	FetchTimeout int    `envconfig:"GDELT_FETCH_TIMEOUT_SECONDS" default:"120"`

	// Entity caps applied by the preprocessor.
	MaxPersons       int `envconfig:"MAX_PERSONS" default:"10"`
	MaxOrganizations int `envconfig:"MAX_ORGANIZATIONS" default:"10"`
	MaxLocations     int `envconfig:"MAX_LOCATIONS" default:"10"`
	MaxThemes        int `envconfig:"MAX_THEMES" default:"4"`

	// Pre-cluster sampling cap.
	SampleSize int `envconfig:"SAMPLE_SIZE" default:"1500"`

	// Clustering hyperparameter grid. Epsilons are Euclidean neighborhood
	// radii in the clustering space.
	GridReduce          []bool    `envconfig:"GRID_REDUCE" default:"true,false"`
	GridComponents      []int     `envconfig:"GRID_COMPONENTS" default:"20,50"`
	GridMinClusterSizes []int     `envconfig:"GRID_MIN_CLUSTER_SIZES" default:"5,10"`
	GridMinSamples      []int     `envconfig:"GRID_MIN_SAMPLES" default:"3,5"`
	GridEpsilons        []float64 `envconfig:"GRID_EPSILONS" default:"0.3,0.5"`

	// Composite clustering score weights. Fixed tunables, not derived per run.
	WeightSilhouette  float64 `envconfig:"WEIGHT_SILHOUETTE" default:"0.4"`
	WeightCompactness float64 `envconfig:"WEIGHT_COMPACTNESS" default:"0.2"`
	WeightMembership  float64 `envconfig:"WEIGHT_MEMBERSHIP" default:"0.2"`
	WeightRelevance   float64 `envconfig:"WEIGHT_RELEVANCE" default:"0.2"`

	// Cluster matching.
	TopNClusters        int     `envconfig:"TOP_N_CLUSTERS" default:"20"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.3"`
	DiversityWeight     float64 `envconfig:"DIVERSITY_WEIGHT" default:"0.3"`

	// Per-cluster document sampling.
	MaxDocsPerCluster int     `envconfig:"MAX_DOCS_PER_CLUSTER" default:"3"`
	MMRLambda         float64 `envconfig:"MMR_LAMBDA" default:"0.9"`

	// Worker-pool widths. Small defaults to respect external rate limits.
	EmbedWorkers   int `envconfig:"EMBED_WORKERS" default:"3"`
	GridWorkers    int `envconfig:"GRID_WORKERS" default:"4"`
	SummaryWorkers int `envconfig:"SUMMARY_WORKERS" default:"3"`

	// Retry policy for external calls.
	RetryAttempts  int `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryBackoffMS int `envconfig:"RETRY_BACKOFF_MS" default:"500"`

	// Document fetch limits.
	DocFetchTimeout int `envconfig:"DOC_FETCH_TIMEOUT_SECONDS" default:"12"`
	DocMaxWords     int `envconfig:"DOC_MAX_WORDS" default:"50000"`

	// Export targets.
	ExportDir string `envconfig:"EXPORT_DIR" default:"exported_data"`

	// HTTP surface.
	HTTPHost string `envconfig:"HTTP_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8002"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("EM_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("EM_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("EM_DB_MIN_CONNS (%d) cannot exceed EM_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.SampleSize < 1 {
		return fmt.Errorf("SAMPLE_SIZE must be >= 1")
	}
	if len(c.GridMinClusterSizes) == 0 || len(c.GridMinSamples) == 0 || len(c.GridEpsilons) == 0 {
		return fmt.Errorf("clustering grid must not be empty")
	}
	if c.MMRLambda < 0 || c.MMRLambda > 1 {
		return fmt.Errorf("MMR_LAMBDA must be in [0,1]")
	}
	if c.DiversityWeight < 0 || c.DiversityWeight > 1 {
		return fmt.Errorf("DIVERSITY_WEIGHT must be in [0,1]")
	}
	if c.TopNClusters < 1 {
		return fmt.Errorf("TOP_N_CLUSTERS must be >= 1")
	}
	if c.MaxDocsPerCluster < 1 {
		return fmt.Errorf("MAX_DOCS_PER_CLUSTER must be >= 1")
	}
	for name, width := range map[string]int{
		"EMBED_WORKERS":   c.EmbedWorkers,
		"GRID_WORKERS":    c.GridWorkers,
		"SUMMARY_WORKERS": c.SummaryWorkers,
	} {
		if width < 1 {
			return fmt.Errorf("%s must be >= 1", name)
		}
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be >= 1")
	}
	return nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheExpiry) * time.Hour
}

func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

func (c *Config) DocTimeout() time.Duration {
	return time.Duration(c.DocFetchTimeout) * time.Second
}
