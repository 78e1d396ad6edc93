package vector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncationReducer(t *testing.T) {
	r := NewTruncationReducer(3)
	out := r.Reduce([]float32{1, 2, 3, 4, 5})
	assert.Equal(t, []float32{1, 2, 3}, out)
	assert.Equal(t, 3, r.ReducedDims())
}

func TestTruncationReducer_KLargerThanInputClamps(t *testing.T) {
	r := NewTruncationReducer(10)
	out := r.Reduce([]float32{1, 2, 3})
	assert.Equal(t, []float32{1, 2, 3}, out)
}

func TestRandomProjectionReducer_IsDeterministicForSameSeed(t *testing.T) {
	r1 := NewRandomProjectionReducer(16, 4, 42)
	r2 := NewRandomProjectionReducer(16, 4, 42)

	rng := rand.New(rand.NewSource(1))
	v := make([]float32, 16)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}

	assert.Equal(t, r1.Reduce(v), r2.Reduce(v))
	assert.Equal(t, 4, r1.ReducedDims())
}

func TestRandomProjectionReducer_DifferentSeedsDiffer(t *testing.T) {
	r1 := NewRandomProjectionReducer(16, 4, 1)
	r2 := NewRandomProjectionReducer(16, 4, 2)

	v := make([]float32, 16)
	for i := range v {
		v[i] = 1
	}
	assert.NotEqual(t, r1.Reduce(v), r2.Reduce(v))
}

func TestPCAReducer_ReducesAlongDominantVariance(t *testing.T) {
	// Samples vary heavily along dim 0, negligibly along dim 1.
	rng := rand.New(rand.NewSource(21))
	samples := make([][]float32, 200)
	for i := range samples {
		samples[i] = []float32{float32(rng.NormFloat64() * 10), float32(rng.NormFloat64() * 0.01)}
	}

	reducer := FitPCA(samples, 1, 50)
	assert.Equal(t, 1, reducer.ReducedDims())

	out := reducer.Reduce([]float32{10, 0})
	assert.NotZero(t, out[0])
}

func TestPCAReducer_OutputLengthMatchesK(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	samples := make([][]float32, 50)
	for i := range samples {
		v := make([]float32, 8)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		samples[i] = v
	}

	reducer := FitPCA(samples, 3, 30)
	out := reducer.Reduce(samples[0])
	assert.Len(t, out, 3)
}
