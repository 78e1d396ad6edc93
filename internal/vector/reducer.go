package vector

import (
	"math"
	"math/rand"
)

// ReducerKind selects one of the three dimension-reduction methods
// selectable at configuration.
type ReducerKind string

const (
	ReducerNone             ReducerKind = "none"
	ReducerPCA              ReducerKind = "pca"
	ReducerRandomProjection ReducerKind = "random-projection"
	ReducerTruncation       ReducerKind = "truncation"
)

// Reducer maps a full-dimensional embedding down to ReducedDims()
// components. Reduction happens before insertion into the ANN index; the
// original vector is always kept alongside it.
type Reducer interface {
	Reduce(vector []float32) []float32
	ReducedDims() int
}

// TruncationReducer keeps the first k components of the input vector as a
// cheap, parameter-free baseline reducer.
type TruncationReducer struct {
	k int
}

// NewTruncationReducer returns a reducer that keeps the first k components.
func NewTruncationReducer(k int) *TruncationReducer { return &TruncationReducer{k: k} }

func (r *TruncationReducer) ReducedDims() int { return r.k }

func (r *TruncationReducer) Reduce(vector []float32) []float32 {
	n := r.k
	if n > len(vector) {
		n = len(vector)
	}
	out := make([]float32, n)
	copy(out, vector[:n])
	return out
}

// RandomProjectionReducer projects vectors through a fixed, seeded
// Gaussian matrix (Johnson-Lindenstrauss style), giving an unsupervised
// reducer that needs no fitting pass.
type RandomProjectionReducer struct {
	matrix [][]float32 // k x inputDims
	k      int
}

// NewRandomProjectionReducer builds a reducer from inputDims to k using a
// deterministic seed, so the same configuration always yields the same
// projection across restarts.
func NewRandomProjectionReducer(inputDims, k int, seed int64) *RandomProjectionReducer {
	rng := rand.New(rand.NewSource(seed))
	matrix := make([][]float32, k)
	scale := float32(1.0 / math.Sqrt(float64(k)))
	for i := range matrix {
		row := make([]float32, inputDims)
		for j := range row {
			row[j] = float32(rng.NormFloat64()) * scale
		}
		matrix[i] = row
	}
	return &RandomProjectionReducer{matrix: matrix, k: k}
}

func (r *RandomProjectionReducer) ReducedDims() int { return r.k }

func (r *RandomProjectionReducer) Reduce(vector []float32) []float32 {
	out := make([]float32, r.k)
	for i, row := range r.matrix {
		var sum float32
		n := len(row)
		if len(vector) < n {
			n = len(vector)
		}
		for j := 0; j < n; j++ {
			sum += row[j] * vector[j]
		}
		out[i] = sum
	}
	return out
}

// PCAReducer projects vectors onto the top-k principal components fitted
// from a sample, found via power iteration with deflation since no
// third-party linear-algebra library is part of the dependency surface.
type PCAReducer struct {
	mean       []float32
	components [][]float32 // k x inputDims, orthonormal
	k          int
}

// FitPCA fits a PCAReducer from sample vectors, extracting the top k
// principal components via repeated power iteration with deflation.
// iterations bounds the power-iteration steps per component; 100 is a
// reasonable default for embedding-sized vectors.
func FitPCA(samples [][]float32, k, iterations int) *PCAReducer {
	dims := len(samples[0])
	mean := make([]float64, dims)
	for _, v := range samples {
		for i, x := range v {
			mean[i] += float64(x)
		}
	}
	for i := range mean {
		mean[i] /= float64(len(samples))
	}

	centered := make([][]float64, len(samples))
	for i, v := range samples {
		row := make([]float64, dims)
		for j, x := range v {
			row[j] = float64(x) - mean[j]
		}
		centered[i] = row
	}

	if iterations <= 0 {
		iterations = 100
	}

	components := make([][]float64, 0, k)
	for c := 0; c < k; c++ {
		vec := powerIterateTopComponent(centered, iterations, c)
		components = append(components, vec)
		deflate(centered, vec)
	}

	meanF := make([]float32, dims)
	for i, m := range mean {
		meanF[i] = float32(m)
	}
	compsF := make([][]float32, len(components))
	for i, c := range components {
		row := make([]float32, len(c))
		for j, x := range c {
			row[j] = float32(x)
		}
		compsF[i] = row
	}

	return &PCAReducer{mean: meanF, components: compsF, k: k}
}

func (r *PCAReducer) ReducedDims() int { return r.k }

func (r *PCAReducer) Reduce(vector []float32) []float32 {
	out := make([]float32, len(r.components))
	for i, comp := range r.components {
		var sum float32
		n := len(comp)
		if len(vector) < n {
			n = len(vector)
		}
		for j := 0; j < n; j++ {
			sum += comp[j] * (vector[j] - r.mean[j])
		}
		out[i] = sum
	}
	return out
}

// powerIterateTopComponent finds the dominant eigenvector of the
// (implicit) covariance matrix of rows via the power method: repeatedly
// multiply by X^T X and renormalize. seed varies the starting vector
// across successive components so deflation doesn't collapse to the same
// direction by coincidence.
func powerIterateTopComponent(rows [][]float64, iterations, seed int) []float64 {
	dims := len(rows[0])
	v := make([]float64, dims)
	rng := rand.New(rand.NewSource(int64(seed) + 1))
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	normalizeInPlace(v)

	for iter := 0; iter < iterations; iter++ {
		// w = X^T (X v)
		Xv := make([]float64, len(rows))
		for i, row := range rows {
			var dot float64
			for j, x := range row {
				dot += x * v[j]
			}
			Xv[i] = dot
		}
		w := make([]float64, dims)
		for i, row := range rows {
			coef := Xv[i]
			for j, x := range row {
				w[j] += coef * x
			}
		}
		if normSq(w) == 0 {
			break
		}
		normalizeInPlace(w)
		v = w
	}
	return v
}

// deflate removes the projection of every row onto component from rows
// in place, so the next power iteration finds an orthogonal direction.
func deflate(rows [][]float64, component []float64) {
	for _, row := range rows {
		var dot float64
		for j, x := range row {
			dot += x * component[j]
		}
		for j := range row {
			row[j] -= dot * component[j]
		}
	}
}

func normSq(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return sum
}

func normalizeInPlace(v []float64) {
	n := math.Sqrt(normSq(v))
	if n == 0 {
		return
	}
	for i := range v {
		v[i] /= n
	}
}
