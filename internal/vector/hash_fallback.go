package vector

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strconv"
)

// DeterministicEmbed derives a stable, L2-normalized float32 vector of
// length dims from text, used when the remote embedding provider is
// unreachable so that operations remain functional under partition.
// The same (text, dims) pair always yields the same vector.
func DeterministicEmbed(text string, dims int) []float32 {
	out := make([]float32, dims)
	seed := []byte(text)

	block := 0
	var digest [32]byte
	for i := 0; i < dims; i++ {
		if i%4 == 0 {
			digest = nextBlock(seed, block)
			block++
		}
		offset := (i % 4) * 8
		bits := binary.LittleEndian.Uint64(digest[offset : offset+8])
		// Map the uint64 to a float in [-1, 1].
		out[i] = float32(int64(bits)) / float32(math.MaxInt64)
	}
	return l2Normalize(out)
}

// nextBlock hashes seed concatenated with a block counter, giving an
// arbitrarily long deterministic byte stream from a fixed-size digest.
func nextBlock(seed []byte, counter int) [32]byte {
	h := sha256.New()
	h.Write(seed)
	h.Write([]byte(strconv.Itoa(counter)))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
