// Package sample bounds pipeline input with significance-based sampling and
// selects representative cluster documents with maximal marginal relevance.
package sample

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Significance ranks a record by how strongly and widely it registered:
// |GoldsteinScale| * NumMentions.
func Significance(goldstein float64, numMentions int) float64 {
	if goldstein < 0 {
		goldstein = -goldstein
	}
	return goldstein * float64(numMentions)
}

// TopBySignificance returns the indices of the top n records by significance.
// Ties keep input order, so the selection is deterministic. When n covers the
// whole input, every index is returned in input order.
func TopBySignificance(goldstein []float64, numMentions []int, n int) []int {
	count := len(goldstein)
	indices := make([]int, count)
	for i := range indices {
		indices[i] = i
	}
	if n >= count {
		return indices
	}

	scores := make([]float64, count)
	for i := range scores {
		scores[i] = Significance(goldstein[i], numMentions[i])
	}

	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	top := indices[:n]
	sort.Ints(top)
	return top
}

// DocumentCandidate is one cluster member considered for summarization.
type DocumentCandidate struct {
	URL            string
	Embedding      []float64
	NumMentions    int
	GoldsteinScale float64
	AvgTone        float64
}

// Documents picks up to maxDocs candidates by maximal marginal relevance.
// Each candidate scores lambda*relevance + (1-lambda)*quality, where
// relevance is min-max normalized cosine similarity to the cluster centroid
// and quality is the normalized sum of mentions, Goldstein scale and tone.
// Already-selected candidates repel similar ones through a lambda-weighted
// penalty on the maximum similarity to the selected set. Selected URLs are
// unique because candidates leave the pool once picked.
func Documents(candidates []DocumentCandidate, maxDocs int, lambda float64) []string {
	if len(candidates) == 0 || maxDocs < 1 {
		return nil
	}

	centroid := centroidOf(candidates)

	relevance := make([]float64, len(candidates))
	quality := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = cosineSimilarity(c.Embedding, centroid)
		quality[i] = float64(c.NumMentions) + c.GoldsteinScale + c.AvgTone
	}
	normalize(relevance)
	normalize(quality)

	combined := make([]float64, len(candidates))
	for i := range combined {
		combined[i] = lambda*relevance[i] + (1-lambda)*quality[i]
	}

	var selected []int
	remaining := make([]int, len(candidates))
	for i := range remaining {
		remaining[i] = i
	}

	limit := maxDocs
	if limit > len(candidates) {
		limit = len(candidates)
	}
	for len(selected) < limit {
		bestPos := -1
		bestScore := 0.0
		for pos, idx := range remaining {
			penalty := 0.0
			for _, sel := range selected {
				if sim := cosineSimilarity(candidates[idx].Embedding, candidates[sel].Embedding); sim > penalty {
					penalty = sim
				}
			}
			score := combined[idx] - lambda*penalty
			if bestPos < 0 || score > bestScore {
				bestPos = pos
				bestScore = score
			}
		}
		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	urls := make([]string, len(selected))
	for i, idx := range selected {
		urls[i] = candidates[idx].URL
	}
	return urls
}

func centroidOf(candidates []DocumentCandidate) []float64 {
	dim := len(candidates[0].Embedding)
	centroid := make([]float64, dim)
	for _, c := range candidates {
		floats.Add(centroid, c.Embedding)
	}
	floats.Scale(1/float64(len(candidates)), centroid)
	return centroid
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	dot := floats.Dot(a, b)
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// normalize rescales values to [0,1] in place. The epsilon keeps a constant
// slice from dividing by zero.
func normalize(values []float64) {
	if len(values) == 0 {
		return
	}
	lo := floats.Min(values)
	hi := floats.Max(values)
	span := hi - lo + 1e-10
	for i := range values {
		values[i] = (values[i] - lo) / span
	}
}
