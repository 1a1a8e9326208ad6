// Package summarize turns matched clusters into titled event summaries
// through an LLM boundary.
package summarize

import "strings"

// Sentinel values an article summarizer may return instead of a summary.
// Documents carrying either are dropped before cluster summarization.
const (
	SentinelInaccessible = "INACCESSIBLE"
	SentinelNotRelevant  = "NOT_RELEVANT"
)

// IsSentinel reports whether a summary is one of the sentinel markers.
func IsSentinel(summary string) bool {
	trimmed := strings.TrimSpace(summary)
	return trimmed == SentinelInaccessible || trimmed == SentinelNotRelevant
}

// EventSummary is the structured result for one cluster. RelevanceScore
// grades financial relevance from 0 (none) to 5 (critical), and
// RelevanceRationale explains the grade.
type EventSummary struct {
	Title              string `json:"title" jsonschema_description:"Title of the event in 5-10 words"`
	Summary            string `json:"summary" jsonschema_description:"Summary of the event's main points"`
	RelevanceRationale string `json:"relevance_rationale" jsonschema_description:"One or two sentences explaining the relevance score"`
	RelevanceScore     int    `json:"relevance_score" jsonschema:"minimum=0,maximum=5" jsonschema_description:"Financial relevance from 0 (none) to 5 (critical)"`
}

// FinanciallyRelevant reports whether the event clears the relevance bar.
func (e EventSummary) FinanciallyRelevant() bool {
	return e.RelevanceScore > 2
}

// ClusterReport collects everything produced for one matched cluster.
type ClusterReport struct {
	ClusterID        int          `json:"cluster_id"`
	Rank             int          `json:"rank"`
	Similarity       float64      `json:"similarity"`
	Event            EventSummary `json:"event"`
	ArticleSummaries []string     `json:"article_summaries"`
	ArticleURLs      []string     `json:"article_urls"`
}
