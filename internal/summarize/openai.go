package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"

	"github.com/RRaffay/nuntium-em/internal/globaltime"
)

// ArticleSummarizer produces a prose summary for one article.
type ArticleSummarizer interface {
	SummarizeArticle(ctx context.Context, content, objective string) (string, error)
}

// ClusterSummarizer folds article summaries into one structured event.
type ClusterSummarizer interface {
	SummarizeCluster(ctx context.Context, summaries []string, objective string) (EventSummary, error)
}

// OpenAISummarizer implements both summarizer interfaces against the chat
// completions API.
type OpenAISummarizer struct {
	client *openai.Client
	model  string
}

func NewOpenAISummarizer(client *openai.Client, model string) *OpenAISummarizer {
	return &OpenAISummarizer{client: client, model: model}
}

func (s *OpenAISummarizer) SummarizeArticle(ctx context.Context, content, objective string) (string, error) {
	systemPrompt := fmt.Sprintf(
		"You are an experienced hedge fund investment analyst. You will be given article content "+
			"and your job is to summarize it with the objective of %s. The current date is %s. "+
			"If the article content is inaccessible or empty, return exactly %q. If the article has "+
			"no bearing on the objective, return exactly %q. The summary must be in English.",
		objective, globaltime.UTC().Format("2006-01-02"),
		SentinelInaccessible, SentinelNotRelevant,
	)
	userPrompt := fmt.Sprintf(
		"Below is the article content. Return the summary of the article in English.\n\n<article>\n\n%s\n\n</article>",
		content,
	)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       s.model,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("summarize article: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarize article: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *OpenAISummarizer) SummarizeCluster(ctx context.Context, summaries []string, objective string) (EventSummary, error) {
	schema, err := eventSummarySchema()
	if err != nil {
		return EventSummary{}, err
	}

	systemPrompt := "You are a world class news analyst. You will be given article summaries about " +
		"an event. Summarize the event's main points, generate a title, and grade its relevance for " +
		"financial analysis on a 0-5 scale where 0 means no relevance and 5 means critical. " +
		"Justify the grade in one or two sentences as the relevance rationale."
	userPrompt := fmt.Sprintf("%s\n\n%s", objective, strings.Join(summaries, "\n\n"))

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       s.model,
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "event_summary",
					Description: openai.String("Titled event summary with a financial relevance score"),
					Schema:      schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return EventSummary{}, fmt.Errorf("summarize cluster: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return EventSummary{}, fmt.Errorf("summarize cluster: empty response")
	}

	var event EventSummary
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &event); err != nil {
		return EventSummary{}, fmt.Errorf("parse event summary: %w", err)
	}
	return event, nil
}

func eventSummarySchema() (any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaObj := reflector.Reflect(&EventSummary{})
	if schemaObj.Type == "" {
		schemaObj.Type = "object"
	}

	raw, err := json.Marshal(schemaObj)
	if err != nil {
		return nil, fmt.Errorf("marshal event schema: %w", err)
	}
	var schema any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal event schema: %w", err)
	}
	return schema, nil
}
