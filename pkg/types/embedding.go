package types

import "time"

// EmbeddingModel identifies a supported embedding model and its declared
// dimensionality and instruction-prefix requirement.
type EmbeddingModel struct {
	Name              string
	Dimensions        int
	Normalized        bool
	RequiresPrefix    bool
}

// Recognized embedding models.
var (
	ModelE5MultilingualLargeInstruct = EmbeddingModel{Name: "E5-multilingual-large-instruct", Dimensions: 1024, Normalized: true, RequiresPrefix: true}
	ModelGTEModernBERTBase           = EmbeddingModel{Name: "GTE-modernbert-base", Dimensions: 768, Normalized: true, RequiresPrefix: false}
	ModelJinaV3                      = EmbeddingModel{Name: "Jina-v3", Dimensions: 768, Normalized: true, RequiresPrefix: true}
)

// CustomModel builds a Custom(name, dims) model descriptor.
func CustomModel(name string, dims int) EmbeddingModel {
	return EmbeddingModel{Name: name, Dimensions: dims, Normalized: false, RequiresPrefix: false}
}

// KnownModels returns the built-in non-custom model registry keyed by name.
func KnownModels() map[string]EmbeddingModel {
	return map[string]EmbeddingModel{
		ModelE5MultilingualLargeInstruct.Name: ModelE5MultilingualLargeInstruct,
		ModelGTEModernBERTBase.Name:           ModelGTEModernBERTBase,
		ModelJinaV3.Name:                      ModelJinaV3,
	}
}

// EmbeddingRecord is the persisted vector for one engram.
type EmbeddingRecord struct {
	EngramID  string    `json:"id"`
	Vector    []float32 `json:"vector"`
	Reduced   []float32 `json:"reduced,omitempty"`
	Model     string    `json:"model"`
	Dims      int       `json:"dims"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks that the vector length matches the declared dimensions.
func (r *EmbeddingRecord) Validate() error {
	if r.EngramID == "" {
		return InvalidInput("id", "must not be empty")
	}
	if len(r.Vector) != r.Dims {
		return InvalidInput("vector", "length must equal dims")
	}
	return nil
}

// ActiveVector returns the reduced vector if present, otherwise the
// original. This is the vector that should be indexed in the ANN graph:
// reduction is applied before insertion into the ANN index if configured,
// and the original vector is always kept.
func (r *EmbeddingRecord) ActiveVector() []float32 {
	if len(r.Reduced) > 0 {
		return r.Reduced
	}
	return r.Vector
}
