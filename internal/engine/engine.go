// Package engine is the composition root: it owns the exclusive
// reader-writer lock that serializes every mutation across the
// authoritative store, the in-memory graph mirror, the secondary indexes,
// and the ANN index, and exposes the operations the rest of the module
// (including cmd/engramlite) drives. Modeled on the teacher's
// internal/engine/memory_engine.go: a single façade struct holding every
// subsystem, built by a constructor that wires them together, guarded by
// one mutex rather than the teacher's separate started/shuttingDown
// booleans (this engine has no background worker pool to coordinate).
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/engramai/engramlite/internal/config"
	"github.com/engramai/engramlite/internal/decay"
	"github.com/engramai/engramlite/internal/graph"
	"github.com/engramai/engramlite/internal/index"
	"github.com/engramai/engramlite/internal/storage"
	"github.com/engramai/engramlite/internal/vector"
	"github.com/engramai/engramlite/pkg/types"
)

const (
	typEngram     = "engram"
	typConnection = "connection"
	typCollection = "collection"
	typAgent      = "agent"
	typContext    = "context"
	typEmbedding  = "embedding"
)

// Engine is the exclusive-lock-guarded façade over every subsystem.
type Engine struct {
	mu sync.RWMutex

	cfg   *config.Config
	store *storage.Store
	graph *graph.Graph

	sourceIdx       *index.SourceIndex
	confidenceIdx   *index.BucketIndex
	metadataIdx     *index.MetadataIndex
	textIdx         *index.TextIndex
	temporalIdx     *index.TemporalIndex
	importanceIdx   *index.ImportanceAccessIndex
	relationshipIdx *index.RelationshipIndex

	ann       *vector.HNSW
	reducer   vector.Reducer
	embedding *vector.Service

	batcher *decay.AccessBatcher
}

// Open opens the backing store at cfg.DBPath (or an in-memory store when
// inMemory is true, used by tests), rebuilds the graph and every index by
// scanning it, and rehydrates the ANN index from stored vectors.
func Open(cfg *config.Config, inMemory bool) (*Engine, error) {
	store, err := storage.Open(storage.Options{Path: cfg.DBPath, InMemory: inMemory})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:             cfg,
		store:           store,
		graph:           graph.New(),
		sourceIdx:       index.NewSourceIndex(),
		confidenceIdx:   index.NewBucketIndex(),
		metadataIdx:     index.NewMetadataIndex(),
		textIdx:         index.NewTextIndex(),
		temporalIdx:     index.NewTemporalIndex(),
		importanceIdx:   index.NewImportanceAccessIndex(),
		relationshipIdx: index.NewRelationshipIndex(),
	}

	e.ann = vector.NewHNSW(vector.HNSWConfig{
		Dim:            embeddingDim(cfg),
		M:              cfg.ANN.M,
		EfConstruction: cfg.ANN.EfConstruction,
		EfSearch:       cfg.ANN.EfSearch,
		Distance:       vector.DistanceKind(cfg.ANN.Distance),
	})
	reducer, err := buildReducer(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	e.reducer = reducer

	svc, err := vector.NewService(nil, vector.ServiceConfig{
		Model:     embeddingModel(cfg),
		Timeout:   time.Duration(cfg.Embedding.TimeoutMS) * time.Millisecond,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	e.embedding = svc

	e.batcher = decay.NewAccessBatcher(
		time.Duration(cfg.Memory.FlushIntervalMS)*time.Millisecond,
		cfg.Memory.FlushBatchSize,
		e.flushAccessUpdates,
	)

	if err := e.warmFromStore(); err != nil {
		_ = store.Close()
		return nil, err
	}

	return e, nil
}

// embeddingModel resolves cfg.Embedding.Model to a types.EmbeddingModel,
// building a Custom descriptor when configured.
func embeddingModel(cfg *config.Config) types.EmbeddingModel {
	if cfg.Embedding.Model == config.CustomModelKeyword {
		return types.CustomModel(cfg.Embedding.CustomModelName, cfg.Embedding.CustomDims)
	}
	if m, ok := types.KnownModels()[cfg.Embedding.Model]; ok {
		return m
	}
	return types.ModelGTEModernBERTBase
}

// embeddingDim is the dimension the ANN index is built for: the reduced
// dimension when a reducer is configured, otherwise the model's native
// dimension.
func embeddingDim(cfg *config.Config) int {
	if cfg.Vector.Reducer != config.ReducerNone && cfg.Vector.ReducedDims > 0 {
		return cfg.Vector.ReducedDims
	}
	return embeddingModel(cfg).Dimensions
}

// buildReducer constructs the configured dimension reducer. PCA needs a
// fitted sample of vectors that does not exist at Open time and this
// engine has no background fit-on-first-N-vectors pass yet, so selecting
// it is rejected outright rather than silently substituting a different
// reducer.
func buildReducer(cfg *config.Config) (vector.Reducer, error) {
	switch cfg.Vector.Reducer {
	case config.ReducerTruncation:
		return vector.NewTruncationReducer(cfg.Vector.ReducedDims), nil
	case config.ReducerRandomProjection:
		return vector.NewRandomProjectionReducer(embeddingModel(cfg).Dimensions, cfg.Vector.ReducedDims, 42), nil
	case config.ReducerPCA:
		return nil, types.InvalidInput("vector.reducer", "pca is not yet supported: it requires a fitted sample of vectors with no fit-on-startup path implemented")
	default:
		return nil, nil
	}
}

// Close flushes the pending access-count batch, then closes the store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batcher.MaybeFlush(time.Now(), true)
	return e.store.Close()
}

// Compact issues a best-effort per-family compaction and rebuilds the ANN
// index to reclaim tombstoned vectors.
func (e *Engine) Compact() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ann.Rebuild()
	return e.store.Compact()
}

// Stats returns per-family record counts and approximate sizes.
func (e *Engine) Stats() ([]storage.FamilyStats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Stats()
}

func logf(format string, args ...interface{}) {
	log.Printf("engine: "+format, args...)
}
