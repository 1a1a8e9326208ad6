package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ScoreSet holds the four quality signals for one clustering. All four are
// oriented so that larger is better.
type ScoreSet struct {
	Silhouette  float64 `json:"silhouette"`
	Compactness float64 `json:"compactness"`
	Membership  float64 `json:"membership"`
	Relevance   float64 `json:"relevance"`
}

// Weights blends a ScoreSet into a single composite score.
type Weights struct {
	Silhouette  float64
	Compactness float64
	Membership  float64
	Relevance   float64
}

func (w Weights) Composite(s ScoreSet) float64 {
	return w.Silhouette*s.Silhouette +
		w.Compactness*s.Compactness +
		w.Membership*s.Membership +
		w.Relevance*s.Relevance
}

// Silhouette computes the mean silhouette over clustered points using cosine
// distance. Noise points are excluded.
func Silhouette(x *mat.Dense, labels []int) float64 {
	if NumClusters(labels) < 2 {
		return 0
	}

	members := clusterMembers(labels)
	total := 0.0
	count := 0
	for i, label := range labels {
		if label == Noise {
			continue
		}

		a := 0.0
		same := 0
		for _, j := range members[label] {
			if j == i {
				continue
			}
			a += cosineDistance(x.RawRowView(i), x.RawRowView(j))
			same++
		}
		if same > 0 {
			a /= float64(same)
		}

		b := math.Inf(1)
		for other, idxs := range members {
			if other == label {
				continue
			}
			avg := 0.0
			for _, j := range idxs {
				avg += cosineDistance(x.RawRowView(i), x.RawRowView(j))
			}
			avg /= float64(len(idxs))
			if avg < b {
				b = avg
			}
		}

		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// DaviesBouldin computes the Davies-Bouldin index with cosine distance.
// Lower is better; Compactness inverts it for the composite.
func DaviesBouldin(x *mat.Dense, labels []int) float64 {
	k := NumClusters(labels)
	if k < 2 {
		return 0
	}

	members := clusterMembers(labels)
	cents := Centroids(x, labels)

	intra := make([]float64, k)
	for c := 0; c < k; c++ {
		idxs := members[c]
		if len(idxs) <= 1 {
			continue
		}
		total := 0.0
		count := 0
		for _, i := range idxs {
			for _, j := range idxs {
				if i == j {
					continue
				}
				total += cosineDistance(x.RawRowView(i), x.RawRowView(j))
				count++
			}
		}
		intra[c] = total / float64(count)
	}

	index := 0.0
	for i := 0; i < k; i++ {
		maxRatio := 0.0
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			sep := cosineDistance(cents[i], cents[j])
			if sep > 0 {
				if ratio := (intra[i] + intra[j]) / sep; ratio > maxRatio {
					maxRatio = ratio
				}
			}
		}
		index += maxRatio
	}
	return index / float64(k)
}

// Compactness folds the Davies-Bouldin index into (0,1], larger is better.
func Compactness(db float64) float64 {
	return 1 / (1 + db)
}

// Membership scores how tightly clustered points sit around their own
// centroid: the mean cosine similarity, with negatives clamped to zero.
func Membership(x *mat.Dense, labels []int) float64 {
	cents := Centroids(x, labels)
	if len(cents) == 0 {
		return 0
	}

	total := 0.0
	count := 0
	for i, label := range labels {
		if label == Noise {
			continue
		}
		sim := cosine(x.RawRowView(i), cents[label])
		if sim < 0 {
			sim = 0
		}
		total += sim
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// QueryRelevance is the maximum cosine similarity between the query vector
// and any cluster centroid. The best-matching cluster carries the score so a
// clustering is not penalized for also finding events unrelated to the query.
func QueryRelevance(x *mat.Dense, labels []int, query []float64) float64 {
	cents := Centroids(x, labels)
	if len(cents) == 0 || len(query) == 0 {
		return 0
	}
	best := math.Inf(-1)
	for _, c := range cents {
		if sim := cosine(query, c); sim > best {
			best = sim
		}
	}
	return best
}

// Centroids returns the mean vector of each cluster, indexed by cluster id.
func Centroids(x *mat.Dense, labels []int) [][]float64 {
	k := NumClusters(labels)
	if k == 0 {
		return nil
	}
	_, d := x.Dims()
	cents := make([][]float64, k)
	counts := make([]int, k)
	for c := range cents {
		cents[c] = make([]float64, d)
	}
	for i, label := range labels {
		if label == Noise {
			continue
		}
		floats.Add(cents[label], x.RawRowView(i))
		counts[label]++
	}
	for c := range cents {
		if counts[c] > 0 {
			floats.Scale(1/float64(counts[c]), cents[c])
		}
	}
	return cents
}

func clusterMembers(labels []int) map[int][]int {
	members := make(map[int][]int)
	for i, label := range labels {
		if label != Noise {
			members[label] = append(members[label], i)
		}
	}
	return members
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

func cosineDistance(a, b []float64) float64 {
	return 1 - cosine(a, b)
}
