package artifactschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func validArtifactJSON() map[string]any {
	return map[string]any{
		"artifact_version": "v1",
		"run": map[string]any{
			"run_id":       "run-1",
			"country":      "IN",
			"country_name": "India",
			"query":        "bond yields",
			"hours":        48,
			"started_at":   "2026-02-01T10:00:00Z",
			"finished_at":  "2026-02-01T10:05:00Z",
		},
		"metadata": map[string]any{
			"records_fetched":             10,
			"records_sampled":             10,
			"clusters_found":              2,
			"clusters_matched":            1,
			"events_summarized":           1,
			"financially_relevant_events": 0,
		},
		"events": []any{},
	}
}

func eventJSON(score int) map[string]any {
	return map[string]any{
		"cluster_id": 0,
		"rank":       1,
		"similarity": 0.9,
		"event": map[string]any{
			"title":               "Title",
			"summary":             "Summary",
			"relevance_rationale": "Direct monetary policy impact.",
			"relevance_score":     score,
		},
		"article_summaries": []any{"s"},
		"article_urls":      []any{"https://example.com"},
	}
}

func marshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestValidateRunArtifact_Valid(t *testing.T) {
	t.Parallel()

	if err := ValidateRunArtifact(marshal(t, validArtifactJSON())); err != nil {
		t.Fatalf("expected valid artifact, got %v", err)
	}
}

func TestValidateRunArtifact_MissingRequired(t *testing.T) {
	t.Parallel()

	art := validArtifactJSON()
	delete(art, "run")
	if err := ValidateRunArtifact(marshal(t, art)); err == nil {
		t.Fatal("expected error for missing run block")
	}
}

func TestValidateRunArtifact_WrongVersion(t *testing.T) {
	t.Parallel()

	art := validArtifactJSON()
	art["artifact_version"] = "v2"
	if err := ValidateRunArtifact(marshal(t, art)); err == nil {
		t.Fatal("expected error for unknown artifact version")
	}
}

func TestValidateRunArtifact_RelevanceScoreBounds(t *testing.T) {
	t.Parallel()

	art := validArtifactJSON()
	art["events"] = []any{eventJSON(6)}
	err := ValidateRunArtifact(marshal(t, art))
	if err == nil || !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected relevance score rejection, got %v", err)
	}
}

func TestValidateRunArtifact_RationaleRequired(t *testing.T) {
	t.Parallel()

	art := validArtifactJSON()
	art["events"] = []any{eventJSON(4)}
	if err := ValidateRunArtifact(marshal(t, art)); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	event := eventJSON(4)
	delete(event["event"].(map[string]any), "relevance_rationale")
	art["events"] = []any{event}
	if err := ValidateRunArtifact(marshal(t, art)); err == nil {
		t.Fatal("expected error for missing relevance rationale")
	}
}

func TestValidateRunArtifact_MalformedJSON(t *testing.T) {
	t.Parallel()

	if err := ValidateRunArtifact([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if err := ValidateRunArtifact([]byte("{} trailing")); err == nil {
		t.Fatal("expected error for trailing content")
	}
}
