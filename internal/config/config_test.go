package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		DatabaseURL:         "postgres://localhost/em",
		OpenAIAPIKey:        "sk-test",
		DBMinConns:          1,
		DBMaxConns:          8,
		SampleSize:          1500,
		GridMinClusterSizes: []int{5},
		GridMinSamples:      []int{3},
		GridEpsilons:        []float64{0.5},
		MMRLambda:           0.9,
		DiversityWeight:     0.3,
		TopNClusters:        20,
		MaxDocsPerCluster:   3,
		EmbedWorkers:        3,
		GridWorkers:         4,
		SummaryWorkers:      3,
		RetryAttempts:       3,
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.DatabaseURL = "  "
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}

	cfg = validConfig()
	cfg.OpenAIAPIKey = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected OPENAI_API_KEY error, got %v", err)
	}
}

func TestValidate_Bounds(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.MMRLambda = 1.5
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "MMR_LAMBDA") {
		t.Fatalf("expected MMR_LAMBDA error, got %v", err)
	}

	cfg = validConfig()
	cfg.GridEpsilons = nil
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "grid") {
		t.Fatalf("expected grid error, got %v", err)
	}

	cfg = validConfig()
	cfg.EmbedWorkers = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "EMBED_WORKERS") {
		t.Fatalf("expected EMBED_WORKERS error, got %v", err)
	}
}
