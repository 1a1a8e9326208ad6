package cluster

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Projector reduces vectors onto the leading principal components of the
// matrix it was fitted on. Queries must be projected with the same transform
// as the data or similarities in the reduced space are meaningless.
type Projector struct {
	mean       []float64
	components *mat.Dense // d x k
}

// FitPCA fits a projector onto the top k components of x. k is clamped to
// the number of components the decomposition can produce.
func FitPCA(x *mat.Dense, k int) (*Projector, error) {
	n, d := x.Dims()
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 rows to fit PCA, got %d", n)
	}
	if k < 1 {
		return nil, fmt.Errorf("component count must be >= 1, got %d", k)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, available := vecs.Dims()
	if k > available {
		k = available
	}
	if k > d {
		k = d
	}

	components := mat.DenseCopyOf(vecs.Slice(0, d, 0, k))

	mean := make([]float64, d)
	for j := 0; j < d; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += x.At(i, j)
		}
		mean[j] = sum / float64(n)
	}

	return &Projector{mean: mean, components: components}, nil
}

// Components reports the dimensionality of the reduced space.
func (p *Projector) Components() int {
	_, k := p.components.Dims()
	return k
}

// Transform projects every row of x into the reduced space.
func (p *Projector) Transform(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	centered := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		for j := 0; j < d; j++ {
			centered.Set(i, j, row[j]-p.mean[j])
		}
	}
	_, k := p.components.Dims()
	out := mat.NewDense(n, k, nil)
	out.Mul(centered, p.components)
	return out
}

// TransformVec projects a single vector into the reduced space.
func (p *Projector) TransformVec(v []float64) []float64 {
	d := len(p.mean)
	centered := mat.NewDense(1, d, nil)
	for j := 0; j < d; j++ {
		centered.Set(0, j, v[j]-p.mean[j])
	}
	_, k := p.components.Dims()
	out := mat.NewDense(1, k, nil)
	out.Mul(centered, p.components)
	return out.RawRowView(0)
}
