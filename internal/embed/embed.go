// Package embed turns event descriptions into dense vectors through the
// OpenAI embeddings API.
package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/RRaffay/nuntium-em/internal/retry"
	"github.com/RRaffay/nuntium-em/internal/workpool"
)

// Func produces one embedding vector for one text.
type Func func(ctx context.Context, text string) ([]float64, error)

// Service embeds batches of texts concurrently with per-text retries.
type Service struct {
	embed   Func
	workers int
	policy  retry.Policy
	log     zerolog.Logger
}

// NewService builds a Service backed by the OpenAI embeddings endpoint.
func NewService(client *openai.Client, model string, workers int, policy retry.Policy, log zerolog.Logger) *Service {
	fn := func(ctx context.Context, text string) ([]float64, error) {
		resp, err := client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input:          openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
			Model:          model,
			EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
		})
		if err != nil {
			return nil, fmt.Errorf("create embedding: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("embedding response is empty")
		}
		return resp.Data[0].Embedding, nil
	}
	return NewServiceWithFunc(fn, workers, policy, log)
}

// NewServiceWithFunc builds a Service around any embedding function.
func NewServiceWithFunc(fn Func, workers int, policy retry.Policy, log zerolog.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		embed:   fn,
		workers: workers,
		policy:  policy,
		log:     log.With().Str("component", "embed").Logger(),
	}
}

// Embed returns the vector for a single text. Newlines are flattened to
// spaces before the call.
func (s *Service) Embed(ctx context.Context, text string) ([]float64, error) {
	flattened := strings.ReplaceAll(text, "\n", " ")
	var vec []float64
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = s.embed(ctx, flattened)
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	return vec, nil
}

// EmbedTexts embeds all texts and returns a row-per-text matrix of the
// vectors that succeeded plus the original indices of those rows, in input
// order. Individual failures are logged and skipped; the batch only fails
// when every text fails.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) (*mat.Dense, []int, error) {
	if len(texts) == 0 {
		return nil, nil, fmt.Errorf("no texts to embed")
	}

	results := workpool.Map(ctx, s.workers, texts, func(ctx context.Context, text string) ([]float64, error) {
		return s.Embed(ctx, text)
	})

	var (
		vectors [][]float64
		valid   []int
		dim     int
	)
	for _, r := range results {
		if r.Err != nil {
			s.log.Warn().Err(r.Err).Int("index", r.Index).Msg("embedding failed, skipping text")
			continue
		}
		if dim == 0 {
			dim = len(r.Value)
		}
		if len(r.Value) != dim {
			s.log.Warn().Int("index", r.Index).Int("got", len(r.Value)).Int("want", dim).
				Msg("embedding dimension mismatch, skipping text")
			continue
		}
		vectors = append(vectors, r.Value)
		valid = append(valid, r.Index)
	}

	if len(vectors) == 0 {
		return nil, nil, fmt.Errorf("all %d embeddings failed", len(texts))
	}

	matrix := mat.NewDense(len(vectors), dim, nil)
	for i, vec := range vectors {
		matrix.SetRow(i, vec)
	}

	s.log.Info().Int("requested", len(texts)).Int("embedded", len(valid)).Msg("embedded texts")
	return matrix, valid, nil
}
