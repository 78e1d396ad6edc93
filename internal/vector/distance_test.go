package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineDistance_IdenticalVectorsAreZero(t *testing.T) {
	v := []float32{1, 2, 3}
	assert.InDelta(t, 0, CosineDistance(v, v), 1e-6)
}

func TestCosineDistance_OrthogonalVectorsAreOne(t *testing.T) {
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-6)
}

func TestCosineDistance_OppositeVectorsAreTwo(t *testing.T) {
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)
}

func TestCosineDistance_MismatchedLengthsAreMaxDistance(t *testing.T) {
	assert.Equal(t, float32(2), CosineDistance([]float32{1, 2}, []float32{1}))
}

func TestCosineDistance_ZeroVectorIsMaxDistance(t *testing.T) {
	assert.Equal(t, float32(2), CosineDistance([]float32{0, 0}, []float32{1, 1}))
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 5, EuclideanDistance([]float32{0, 0}, []float32{3, 4}), 1e-6)
}

func TestCosineSimilarity_InvertsDistance(t *testing.T) {
	d := CosineDistance([]float32{1, 0}, []float32{1, 0})
	assert.InDelta(t, 1, CosineSimilarity(d), 1e-6)
}
