package cluster

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/RRaffay/nuntium-em/internal/workpool"
)

// FailedError reports that no hyperparameter combination produced a usable
// clustering.
type FailedError struct {
	Combinations int
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("no valid clustering across %d hyperparameter combinations", e.Combinations)
}

// Result is the winning clustering.
type Result struct {
	Labels    []int
	Params    Params
	Scores    ScoreSet
	Composite float64
	Clusters  int
	Noise     int
}

// Optimizer evaluates a hyperparameter grid in parallel and keeps the
// combination with the best composite score.
type Optimizer struct {
	grid    Grid
	weights Weights
	workers int
	log     zerolog.Logger
}

func NewOptimizer(grid Grid, weights Weights, workers int, log zerolog.Logger) *Optimizer {
	if workers < 1 {
		workers = 1
	}
	return &Optimizer{
		grid:    grid,
		weights: weights,
		workers: workers,
		log:     log.With().Str("component", "cluster").Logger(),
	}
}

type evaluation struct {
	labels    []int
	scores    ScoreSet
	composite float64
	valid     bool
}

// Optimize clusters the rows of emb under every grid combination and returns
// the best result. Degenerate clusterings (fewer than two clusters) score
// negative infinity. Query relevance is always measured in the original
// embedding space so that reduced and unreduced candidates are comparable.
// Ties keep the earliest combination in grid order, which makes the search
// deterministic for a fixed input.
func (o *Optimizer) Optimize(ctx context.Context, emb *mat.Dense, query []float64) (*Result, error) {
	n, _ := emb.Dims()
	if n == 0 {
		return nil, fmt.Errorf("no embeddings to cluster")
	}

	candidates := o.grid.Candidates()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("hyperparameter grid is empty")
	}

	results := workpool.Map(ctx, o.workers, candidates, func(_ context.Context, p Params) (evaluation, error) {
		return o.evaluate(emb, query, p), nil
	})

	best := -1
	bestScore := math.Inf(-1)
	for i, r := range results {
		if r.Err != nil || !r.Value.valid {
			continue
		}
		if r.Value.composite > bestScore {
			best = i
			bestScore = r.Value.composite
		}
	}
	if best < 0 {
		return nil, &FailedError{Combinations: len(candidates)}
	}

	won := results[best].Value
	res := &Result{
		Labels:    won.labels,
		Params:    candidates[best],
		Scores:    won.scores,
		Composite: won.composite,
		Clusters:  NumClusters(won.labels),
		Noise:     NumNoise(won.labels),
	}
	o.log.Info().
		Str("params", res.Params.String()).
		Float64("composite", res.Composite).
		Int("clusters", res.Clusters).
		Int("noise", res.Noise).
		Msg("selected clustering")
	return res, nil
}

func (o *Optimizer) evaluate(emb *mat.Dense, query []float64, p Params) evaluation {
	space := emb
	if p.Reduce {
		projector, err := FitPCA(emb, p.Components)
		if err != nil {
			o.log.Debug().Err(err).Str("params", p.String()).Msg("reduction failed")
			return evaluation{composite: math.Inf(-1)}
		}
		space = projector.Transform(emb)
	}

	labels := DensityCluster(space, p.Epsilon, p.MinSamples, p.MinClusterSize)
	if NumClusters(labels) < 2 {
		o.log.Debug().Str("params", p.String()).Msg("degenerate clustering")
		return evaluation{composite: math.Inf(-1)}
	}

	db := DaviesBouldin(space, labels)
	scores := ScoreSet{
		Silhouette:  Silhouette(space, labels),
		Compactness: Compactness(db),
		Membership:  Membership(space, labels),
		Relevance:   QueryRelevance(emb, labels, query),
	}
	return evaluation{
		labels:    labels,
		scores:    scores,
		composite: o.weights.Composite(scores),
		valid:     true,
	}
}
