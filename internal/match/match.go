// Package match ranks clusters against the user's interest query.
package match

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/RRaffay/nuntium-em/internal/cluster"
)

// Options tunes cluster matching.
type Options struct {
	TopN                int
	SimilarityThreshold float64
	DiversityWeight     float64
}

// Match is one cluster selected for the query. Rank is 1-based selection
// order; Similarity is the mean cosine similarity between the query and the
// cluster's member embeddings.
type Match struct {
	ClusterID  int     `json:"cluster_id"`
	Rank       int     `json:"rank"`
	Similarity float64 `json:"similarity"`
}

// Clusters selects up to TopN clusters relevant to the query. A cluster
// qualifies only when its mean member similarity is strictly above the
// threshold; noise points never qualify. After the most similar cluster is
// taken, subsequent picks trade similarity against distance from the already
// selected clusters so near-duplicate clusters do not crowd the result.
func Clusters(query []float64, emb *mat.Dense, labels []int, opts Options) []Match {
	k := cluster.NumClusters(labels)
	if k == 0 || len(query) == 0 || opts.TopN < 1 {
		return nil
	}

	// Mean similarity of the query to each cluster's members.
	sums := make([]float64, k)
	counts := make([]int, k)
	for i, label := range labels {
		if label == cluster.Noise {
			continue
		}
		sums[label] += cosine(query, emb.RawRowView(i))
		counts[label]++
	}

	type scored struct {
		id         int
		similarity float64
	}
	var qualified []scored
	for id := 0; id < k; id++ {
		if counts[id] == 0 {
			continue
		}
		sim := sums[id] / float64(counts[id])
		if sim > opts.SimilarityThreshold {
			qualified = append(qualified, scored{id: id, similarity: sim})
		}
	}
	if len(qualified) == 0 {
		return nil
	}

	sort.SliceStable(qualified, func(a, b int) bool {
		return qualified[a].similarity > qualified[b].similarity
	})

	centroids := cluster.Centroids(emb, labels)

	limit := opts.TopN
	if limit > len(qualified) {
		limit = len(qualified)
	}

	var matches []Match
	selected := make(map[int]bool)
	for len(matches) < limit {
		bestPos := -1
		bestScore := 0.0
		for pos, cand := range qualified {
			if selected[cand.id] {
				continue
			}
			var score float64
			if len(matches) == 0 {
				score = cand.similarity
			} else {
				// Penalize closeness to the nearest already-selected
				// cluster, not the average, so one distant pick cannot
				// mask a near-duplicate.
				maxSim := 0.0
				for id := range selected {
					if sim := cosine(centroids[cand.id], centroids[id]); sim > maxSim {
						maxSim = sim
					}
				}
				score = opts.DiversityWeight*(1-maxSim) + (1-opts.DiversityWeight)*cand.similarity
			}
			if bestPos < 0 || score > bestScore {
				bestPos = pos
				bestScore = score
			}
		}
		if bestPos < 0 {
			break
		}
		pick := qualified[bestPos]
		selected[pick.id] = true
		matches = append(matches, Match{
			ClusterID:  pick.id,
			Rank:       len(matches) + 1,
			Similarity: pick.similarity,
		})
	}
	return matches
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
