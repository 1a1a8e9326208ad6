package cluster

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Noise marks a point no cluster claimed.
const Noise = -1

// DensityCluster labels the rows of x with DBSCAN over Euclidean distance,
// then demotes clusters smaller than minClusterSize back to noise. Cluster
// ids are renumbered by first appearance so identical inputs always get
// identical labels.
func DensityCluster(x *mat.Dense, eps float64, minSamples, minClusterSize int) []int {
	n, _ := x.Dims()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n == 0 {
		return labels
	}
	if minSamples < 1 {
		minSamples = 1
	}

	visited := make([]bool, n)
	next := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := neighborsOf(x, i, eps)
		if len(neighbors) < minSamples {
			continue
		}

		expand(x, i, neighbors, next, eps, minSamples, visited, labels)
		next++
	}

	enforceMinClusterSize(labels, minClusterSize)
	renumber(labels)
	return labels
}

// neighborsOf returns the indices within eps of point i, excluding i itself.
func neighborsOf(x *mat.Dense, i int, eps float64) []int {
	n, _ := x.Dims()
	point := x.RawRowView(i)
	var out []int
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		if floats.Distance(point, x.RawRowView(j), 2) <= eps {
			out = append(out, j)
		}
	}
	return out
}

func expand(x *mat.Dense, i int, neighbors []int, clusterID int, eps float64, minSamples int, visited []bool, labels []int) {
	labels[i] = clusterID

	inQueue := make(map[int]struct{}, len(neighbors))
	for _, idx := range neighbors {
		inQueue[idx] = struct{}{}
	}

	for pos := 0; pos < len(neighbors); pos++ {
		idx := neighbors[pos]
		if !visited[idx] {
			visited[idx] = true
			more := neighborsOf(x, idx, eps)
			if len(more) >= minSamples {
				for _, m := range more {
					if _, queued := inQueue[m]; !queued {
						inQueue[m] = struct{}{}
						neighbors = append(neighbors, m)
					}
				}
			}
		}
		if labels[idx] == Noise {
			labels[idx] = clusterID
		}
	}
}

func enforceMinClusterSize(labels []int, minClusterSize int) {
	if minClusterSize < 2 {
		return
	}
	sizes := make(map[int]int)
	for _, l := range labels {
		if l != Noise {
			sizes[l]++
		}
	}
	for i, l := range labels {
		if l != Noise && sizes[l] < minClusterSize {
			labels[i] = Noise
		}
	}
}

func renumber(labels []int) {
	remap := make(map[int]int)
	next := 0
	for i, l := range labels {
		if l == Noise {
			continue
		}
		id, ok := remap[l]
		if !ok {
			id = next
			remap[l] = id
			next++
		}
		labels[i] = id
	}
}

// NumClusters counts distinct non-noise labels.
func NumClusters(labels []int) int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		if l != Noise {
			seen[l] = struct{}{}
		}
	}
	return len(seen)
}

// NumNoise counts points labelled as noise.
func NumNoise(labels []int) int {
	count := 0
	for _, l := range labels {
		if l == Noise {
			count++
		}
	}
	return count
}
