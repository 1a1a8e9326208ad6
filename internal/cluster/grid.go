// Package cluster groups event embeddings with density clustering and picks
// the best hyperparameters by a weighted quality score.
package cluster

import "fmt"

// Params is one hyperparameter combination.
type Params struct {
	Reduce         bool
	Components     int
	MinClusterSize int
	MinSamples     int
	Epsilon        float64
}

func (p Params) String() string {
	return fmt.Sprintf("reduce=%t components=%d min_cluster_size=%d min_samples=%d epsilon=%g",
		p.Reduce, p.Components, p.MinClusterSize, p.MinSamples, p.Epsilon)
}

// Grid is the search space. Every axis must be non-empty.
type Grid struct {
	Reduce          []bool
	Components      []int
	MinClusterSizes []int
	MinSamples      []int
	Epsilons        []float64
}

// Candidates enumerates unique combinations in a fixed first-seen order.
// Component counts only matter when reduction is on; with reduction off the
// component axis collapses so the same clustering is not evaluated twice.
func (g Grid) Candidates() []Params {
	reduce := g.Reduce
	if len(reduce) == 0 {
		reduce = []bool{false}
	}
	components := g.Components
	if len(components) == 0 {
		components = []int{0}
	}

	seen := make(map[Params]struct{})
	var out []Params
	for _, r := range reduce {
		comps := components
		if !r {
			comps = []int{0}
		}
		for _, nc := range comps {
			for _, mcs := range g.MinClusterSizes {
				for _, ms := range g.MinSamples {
					for _, eps := range g.Epsilons {
						p := Params{
							Reduce:         r,
							Components:     nc,
							MinClusterSize: mcs,
							MinSamples:     ms,
							Epsilon:        eps,
						}
						if _, dup := seen[p]; dup {
							continue
						}
						seen[p] = struct{}{}
						out = append(out, p)
					}
				}
			}
		}
	}
	return out
}
