// Package config loads and validates EngramAI Lite's configuration: a
// YAML file overlaid with ENGRAM_-prefixed environment variable
// overrides, normalized and validated before the engine opens.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/engramai/engramlite/pkg/types"
)

// Config holds every setting the engine needs to open and run.
type Config struct {
	DBPath    string          `yaml:"db_path"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	ANN       ANNConfig       `yaml:"ann"`
	Memory    MemoryConfig    `yaml:"memory"`
}

// EmbeddingConfig selects and bounds the embedding provider.
type EmbeddingConfig struct {
	Model           string `yaml:"model"`
	Endpoint        string `yaml:"endpoint"`
	APIKeyEnv       string `yaml:"api_key_env"`
	TimeoutMS       int    `yaml:"timeout_ms"`
	CacheSize       int    `yaml:"cache_size"`
	CustomModelName string `yaml:"custom_model_name"`
	CustomDims      int    `yaml:"custom_dims"`
}

// VectorConfig configures dimensionality reduction ahead of ANN indexing.
type VectorConfig struct {
	Reducer     string `yaml:"reducer"`
	ReducedDims int    `yaml:"reduced_dims"`
}

// ANNConfig configures the HNSW approximate nearest-neighbor index.
type ANNConfig struct {
	M              int    `yaml:"m"`
	EfConstruction int    `yaml:"ef_construction"`
	EfSearch       int    `yaml:"ef_search"`
	Distance       string `yaml:"distance"`
}

// MemoryConfig configures importance decay and access-count flushing.
type MemoryConfig struct {
	HalfLifeSeconds float64 `yaml:"half_life_seconds"`
	FlushIntervalMS int     `yaml:"flush_interval_ms"`
	FlushBatchSize  int     `yaml:"flush_batch_size"`
}

// CustomModelKeyword is the embedding.model value that pairs with
// CustomModelName/CustomDims instead of naming a registered
// types.EmbeddingModel.
const CustomModelKeyword = "Custom"

// Recognized vector.reducer values.
const (
	ReducerNone             = "none"
	ReducerPCA              = "pca"
	ReducerRandomProjection = "random-projection"
	ReducerTruncation       = "truncation"
)

// Recognized ann.distance values.
const (
	DistanceCosine   = "cosine"
	DistanceEuclidean = "euclidean"
)

// Default builds a Config populated entirely with defaults, used as the
// base that a YAML file and environment overrides are layered on top of.
func Default() *Config {
	return &Config{
		DBPath: "./engram_db",
		Embedding: EmbeddingConfig{
			Model:     types.ModelGTEModernBERTBase.Name,
			TimeoutMS: 5000,
			CacheSize: 10000,
		},
		Vector: VectorConfig{
			Reducer: ReducerNone,
		},
		ANN: ANNConfig{
			M:              16,
			EfConstruction: 200,
			EfSearch:       64,
			Distance:       DistanceCosine,
		},
		Memory: MemoryConfig{
			HalfLifeSeconds: 30 * 24 * 3600,
			FlushIntervalMS: 5000,
			FlushBatchSize:  100,
		},
	}
}

// Load builds a Config from defaults, a YAML file at path (if path is
// non-empty and exists), and ENGRAM_-prefixed environment overrides, then
// validates the result. A missing path is not an error: callers that
// want file-free configuration pass an empty path.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, types.StorageBackend("failed to read config file", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, types.SerializationError("failed to parse config file", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize fills in any zero-valued field of c using the same defaults
// Default() uses. Load does not call this itself — it builds on top of
// Default() already, so an explicit (even invalid) override always
// reaches Validate unmodified; Normalize is a convenience for callers
// that construct a Config by hand, e.g. in tests.
func (c *Config) Normalize() {
	d := Default()
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = d.Embedding.Model
	}
	if c.Embedding.TimeoutMS <= 0 {
		c.Embedding.TimeoutMS = d.Embedding.TimeoutMS
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = d.Embedding.CacheSize
	}
	if c.Vector.Reducer == "" {
		c.Vector.Reducer = d.Vector.Reducer
	}
	if c.ANN.M <= 0 {
		c.ANN.M = d.ANN.M
	}
	if c.ANN.EfConstruction <= 0 {
		c.ANN.EfConstruction = d.ANN.EfConstruction
	}
	if c.ANN.EfSearch <= 0 {
		c.ANN.EfSearch = d.ANN.EfSearch
	}
	if c.ANN.Distance == "" {
		c.ANN.Distance = d.ANN.Distance
	}
	if c.Memory.HalfLifeSeconds <= 0 {
		c.Memory.HalfLifeSeconds = d.Memory.HalfLifeSeconds
	}
	if c.Memory.FlushIntervalMS <= 0 {
		c.Memory.FlushIntervalMS = d.Memory.FlushIntervalMS
	}
	if c.Memory.FlushBatchSize <= 0 {
		c.Memory.FlushBatchSize = d.Memory.FlushBatchSize
	}
}

// Validate checks that every enumerated field holds a recognized value
// and that numeric fields are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return types.InvalidInput("db_path", "must not be empty")
	}

	if c.Embedding.Model == CustomModelKeyword {
		if c.Embedding.CustomModelName == "" {
			return types.InvalidInput("embedding.custom_model_name", "required when embedding.model is Custom")
		}
		if c.Embedding.CustomDims <= 0 {
			return types.InvalidInput("embedding.custom_dims", "must be positive when embedding.model is Custom")
		}
	} else if _, ok := types.KnownModels()[c.Embedding.Model]; !ok {
		return types.InvalidInput("embedding.model", fmt.Sprintf("unrecognized model %q", c.Embedding.Model))
	}
	if c.Embedding.TimeoutMS <= 0 {
		return types.InvalidInput("embedding.timeout_ms", "must be positive")
	}
	if c.Embedding.CacheSize <= 0 {
		return types.InvalidInput("embedding.cache_size", "must be positive")
	}

	switch c.Vector.Reducer {
	case ReducerNone, ReducerPCA, ReducerRandomProjection, ReducerTruncation:
	default:
		return types.InvalidInput("vector.reducer", fmt.Sprintf("unrecognized reducer %q", c.Vector.Reducer))
	}
	if c.Vector.Reducer != ReducerNone && c.Vector.ReducedDims <= 0 {
		return types.InvalidInput("vector.reduced_dims", "must be positive when a reducer is configured")
	}

	if c.ANN.M <= 0 {
		return types.InvalidInput("ann.m", "must be positive")
	}
	if c.ANN.EfConstruction <= 0 {
		return types.InvalidInput("ann.ef_construction", "must be positive")
	}
	if c.ANN.EfSearch <= 0 {
		return types.InvalidInput("ann.ef_search", "must be positive")
	}
	switch c.ANN.Distance {
	case DistanceCosine, DistanceEuclidean:
	default:
		return types.InvalidInput("ann.distance", fmt.Sprintf("unrecognized distance %q", c.ANN.Distance))
	}

	if c.Memory.HalfLifeSeconds <= 0 {
		return types.InvalidInput("memory.half_life_seconds", "must be positive")
	}
	if c.Memory.FlushIntervalMS <= 0 {
		return types.InvalidInput("memory.flush_interval_ms", "must be positive")
	}
	if c.Memory.FlushBatchSize <= 0 {
		return types.InvalidInput("memory.flush_batch_size", "must be positive")
	}

	return nil
}

// applyEnvOverrides layers ENGRAM_-prefixed environment variables on top
// of whatever defaults/YAML values are already set.
func (c *Config) applyEnvOverrides() {
	c.DBPath = getEnv("ENGRAM_DB_PATH", c.DBPath)

	c.Embedding.Model = getEnv("ENGRAM_EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.Endpoint = getEnv("ENGRAM_EMBEDDING_ENDPOINT", c.Embedding.Endpoint)
	c.Embedding.APIKeyEnv = getEnv("ENGRAM_EMBEDDING_API_KEY_ENV", c.Embedding.APIKeyEnv)
	c.Embedding.TimeoutMS = getEnvInt("ENGRAM_EMBEDDING_TIMEOUT_MS", c.Embedding.TimeoutMS)
	c.Embedding.CacheSize = getEnvInt("ENGRAM_EMBEDDING_CACHE_SIZE", c.Embedding.CacheSize)
	c.Embedding.CustomModelName = getEnv("ENGRAM_EMBEDDING_CUSTOM_MODEL_NAME", c.Embedding.CustomModelName)
	c.Embedding.CustomDims = getEnvInt("ENGRAM_EMBEDDING_CUSTOM_DIMS", c.Embedding.CustomDims)

	c.Vector.Reducer = getEnv("ENGRAM_VECTOR_REDUCER", c.Vector.Reducer)
	c.Vector.ReducedDims = getEnvInt("ENGRAM_VECTOR_REDUCED_DIMS", c.Vector.ReducedDims)

	c.ANN.M = getEnvInt("ENGRAM_ANN_M", c.ANN.M)
	c.ANN.EfConstruction = getEnvInt("ENGRAM_ANN_EF_CONSTRUCTION", c.ANN.EfConstruction)
	c.ANN.EfSearch = getEnvInt("ENGRAM_ANN_EF_SEARCH", c.ANN.EfSearch)
	c.ANN.Distance = getEnv("ENGRAM_ANN_DISTANCE", c.ANN.Distance)

	c.Memory.HalfLifeSeconds = getEnvFloat("ENGRAM_MEMORY_HALF_LIFE_SECONDS", c.Memory.HalfLifeSeconds)
	c.Memory.FlushIntervalMS = getEnvInt("ENGRAM_MEMORY_FLUSH_INTERVAL_MS", c.Memory.FlushIntervalMS)
	c.Memory.FlushBatchSize = getEnvInt("ENGRAM_MEMORY_FLUSH_BATCH_SIZE", c.Memory.FlushBatchSize)
}

// getEnv retrieves a string environment variable or returns fallback.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable or returns
// fallback. A value that fails to parse is treated as absent.
func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable or returns
// fallback. A value that fails to parse is treated as absent.
func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
