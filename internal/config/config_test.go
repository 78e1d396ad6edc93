package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramai/engramlite/internal/config"
)

func unsetEngramEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENGRAM_DB_PATH", "ENGRAM_EMBEDDING_MODEL", "ENGRAM_EMBEDDING_ENDPOINT",
		"ENGRAM_EMBEDDING_API_KEY_ENV", "ENGRAM_EMBEDDING_TIMEOUT_MS", "ENGRAM_EMBEDDING_CACHE_SIZE",
		"ENGRAM_EMBEDDING_CUSTOM_MODEL_NAME", "ENGRAM_EMBEDDING_CUSTOM_DIMS",
		"ENGRAM_VECTOR_REDUCER", "ENGRAM_VECTOR_REDUCED_DIMS",
		"ENGRAM_ANN_M", "ENGRAM_ANN_EF_CONSTRUCTION", "ENGRAM_ANN_EF_SEARCH", "ENGRAM_ANN_DISTANCE",
		"ENGRAM_MEMORY_HALF_LIFE_SECONDS", "ENGRAM_MEMORY_FLUSH_INTERVAL_MS", "ENGRAM_MEMORY_FLUSH_BATCH_SIZE",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestLoad_DefaultsWhenNoFileOrEnv(t *testing.T) {
	unsetEngramEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "./engram_db", cfg.DBPath)
	assert.Equal(t, "GTE-modernbert-base", cfg.Embedding.Model)
	assert.Equal(t, config.ReducerNone, cfg.Vector.Reducer)
	assert.Equal(t, config.DistanceCosine, cfg.ANN.Distance)
	assert.Equal(t, 16, cfg.ANN.M)
	assert.Equal(t, float64(30*24*3600), cfg.Memory.HalfLifeSeconds)
}

func TestLoad_MissingFilePathIsNotAnError(t *testing.T) {
	unsetEngramEnv(t)
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "./engram_db", cfg.DBPath)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	unsetEngramEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := "db_path: /var/lib/engram\nembedding:\n  model: Jina-v3\nann:\n  distance: euclidean\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/engram", cfg.DBPath)
	assert.Equal(t, "Jina-v3", cfg.Embedding.Model)
	assert.Equal(t, config.DistanceEuclidean, cfg.ANN.Distance)
	// fields not present in the file keep their defaults
	assert.Equal(t, 16, cfg.ANN.M)
}

func TestLoad_EnvOverridesFileAndDefaults(t *testing.T) {
	unsetEngramEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: /from/file\n"), 0o644))

	t.Setenv("ENGRAM_DB_PATH", "/from/env")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DBPath)
}

func TestLoad_CustomModelRequiresNameAndDims(t *testing.T) {
	unsetEngramEnv(t)
	t.Setenv("ENGRAM_EMBEDDING_MODEL", "Custom")
	_, err := config.Load("")
	require.Error(t, err)
}

func TestLoad_CustomModelWithNameAndDimsSucceeds(t *testing.T) {
	unsetEngramEnv(t)
	t.Setenv("ENGRAM_EMBEDDING_MODEL", "Custom")
	t.Setenv("ENGRAM_EMBEDDING_CUSTOM_MODEL_NAME", "my-model")
	t.Setenv("ENGRAM_EMBEDDING_CUSTOM_DIMS", "384")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "my-model", cfg.Embedding.CustomModelName)
	assert.Equal(t, 384, cfg.Embedding.CustomDims)
}

func TestLoad_RejectsUnrecognizedReducer(t *testing.T) {
	unsetEngramEnv(t)
	t.Setenv("ENGRAM_VECTOR_REDUCER", "bogus")
	_, err := config.Load("")
	require.Error(t, err)
}

func TestLoad_ReducerOtherThanNoneRequiresReducedDims(t *testing.T) {
	unsetEngramEnv(t)
	t.Setenv("ENGRAM_VECTOR_REDUCER", "pca")
	_, err := config.Load("")
	require.Error(t, err)

	t.Setenv("ENGRAM_VECTOR_REDUCED_DIMS", "128")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Vector.ReducedDims)
}

func TestLoad_RejectsUnrecognizedDistance(t *testing.T) {
	unsetEngramEnv(t)
	t.Setenv("ENGRAM_ANN_DISTANCE", "manhattan")
	_, err := config.Load("")
	require.Error(t, err)
}

func TestLoad_RejectsNonPositiveHalfLife(t *testing.T) {
	unsetEngramEnv(t)
	t.Setenv("ENGRAM_MEMORY_HALF_LIFE_SECONDS", "-1")
	_, err := config.Load("")
	require.Error(t, err)
}

func TestNormalize_FillsZeroValuedFieldsFromDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Normalize()
	assert.Equal(t, "./engram_db", cfg.DBPath)
	assert.Equal(t, 16, cfg.ANN.M)
	assert.Equal(t, config.ReducerNone, cfg.Vector.Reducer)
}
