package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/engramai/engramlite/internal/graph"
	"github.com/engramai/engramlite/internal/storage"
	"github.com/engramai/engramlite/internal/vector"
	"github.com/engramai/engramlite/pkg/types"
)

// PutEngram validates and stores eng, embeds its content, indexes it in
// every secondary index and the graph, and rehydrates the ANN index. An
// engram with an ID already present is replaced in place.
func (e *Engine) PutEngram(ctx context.Context, eng *types.Engram) error {
	eng.Clamp()
	if err := eng.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.embedAndReduce(ctx, eng.ID, eng.Content)
	if err != nil {
		return err
	}

	encoded, err := eng.CanonicalJSON()
	if err != nil {
		return err
	}
	embeddingEncoded, err := json.Marshal(rec)
	if err != nil {
		return types.SerializationError("embedding marshal failed", err)
	}

	batch := e.store.BeginBatch()
	batch.PutRecord(storage.FamilyEngrams, typEngram, eng.ID, encoded)
	batch.PutRecord(storage.FamilyEmbeddings, typEmbedding, eng.ID, embeddingEncoded)
	if err := batch.Commit(); err != nil {
		return err
	}

	if err := e.ann.Add(eng.ID, rec.ActiveVector()); err != nil {
		logf("ann add failed for %s: %v", eng.ID, err)
	}
	e.indexEngram(eng)
	return nil
}

// embedAndReduce resolves eng's embedding vector (real provider or
// deterministic fallback, via e.embedding), applying the configured
// reducer to produce the vector actually stored in the ANN index.
func (e *Engine) embedAndReduce(ctx context.Context, engramID, content string) (*types.EmbeddingRecord, error) {
	model := e.embedding.Model()
	vec := e.embedding.Embed(ctx, content, vector.PurposeIndex)

	rec := &types.EmbeddingRecord{
		EngramID:  engramID,
		Vector:    vec,
		Model:     model.Name,
		Dims:      len(vec),
		CreatedAt: time.Now().UTC(),
	}
	if e.reducer != nil {
		rec.Reduced = e.reducer.Reduce(vec)
	}
	return rec, nil
}

// GetEngram looks up id, returning types.NotFound if absent. A successful
// lookup is recorded against the access batcher under the same write lock
// so the returned AccessCount reflects recordings already flushed, not the
// one this call just queued.
func (e *Engine) GetEngram(id string) (*types.Engram, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	eng, err := e.getEngramLocked(id)
	if err != nil {
		return nil, err
	}
	e.batcher.Record(id, time.Now().UTC(), eng.AccessCount)
	return eng, nil
}

func (e *Engine) getEngramLocked(id string) (*types.Engram, error) {
	raw, err := e.store.Get(storage.FamilyEngrams, typEngram, id)
	if err != nil {
		return nil, err
	}
	var eng types.Engram
	if err := json.Unmarshal(raw, &eng); err != nil {
		return nil, types.SerializationError("engram unmarshal failed", err)
	}
	return &eng, nil
}

// DeleteEngram removes eng and cascades: every connection incident on it,
// every collection/context membership referencing it, and its embedding.
// It returns the number of additional records removed by the cascade (not
// counting eng itself).
func (e *Engine) DeleteEngram(id string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.getEngramLocked(id); err != nil {
		return 0, err
	}

	removedConns := e.relationshipIdx.RemoveByEngram(id)

	batch := e.store.BeginBatch()
	batch.DeleteRecord(storage.FamilyEngrams, typEngram, id)
	batch.DeleteRecord(storage.FamilyEmbeddings, typEmbedding, id)
	for _, conn := range removedConns {
		batch.DeleteRecord(storage.FamilyConnections, typConnection, conn.ConnID)
		batch.DeleteRelationshipRow("out", conn.SourceID, conn.ConnID)
		batch.DeleteRelationshipRow("in", conn.TargetID, conn.ConnID)
		batch.DeleteRelationshipRow("type", conn.RelType, conn.ConnID)
	}

	cascadeCount := len(removedConns)
	for _, containerID := range e.graph.Neighbors(id, graph.EdgeContains, graph.Incoming) {
		switch {
		case e.graph.HasNode(graph.NodeCollection, containerID):
			if err := e.removeEngramFromCollectionLocked(batch, containerID, id); err != nil {
				return 0, err
			}
		case e.graph.HasNode(graph.NodeContext, containerID):
			if err := e.removeEngramFromContextLocked(batch, containerID, id); err != nil {
				return 0, err
			}
		default:
			continue
		}
		cascadeCount++
	}

	if err := batch.Commit(); err != nil {
		return 0, err
	}

	e.ann.Remove(id)
	e.unindexEngram(id)
	return cascadeCount, nil
}

// AddConnection validates conn, checks both endpoints resolve to live
// engrams, and persists the connection record plus its three relationship
// index rows atomically, then updates the in-memory relationship index and
// graph.
func (e *Engine) AddConnection(conn *types.Connection) error {
	conn.Clamp()
	if err := conn.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.HasNode(graph.NodeEngram, conn.SourceID) {
		return types.IntegrityViolation("connection references non-existent source engram " + conn.SourceID)
	}
	if !e.graph.HasNode(graph.NodeEngram, conn.TargetID) {
		return types.IntegrityViolation("connection references non-existent target engram " + conn.TargetID)
	}

	encoded, err := json.Marshal(conn)
	if err != nil {
		return types.SerializationError("connection marshal failed", err)
	}

	batch := e.store.BeginBatch()
	batch.PutRecord(storage.FamilyConnections, typConnection, conn.ID, encoded)
	batch.PutRelationshipRow("out", conn.SourceID, conn.ID)
	batch.PutRelationshipRow("in", conn.TargetID, conn.ID)
	batch.PutRelationshipRow("type", conn.RelationshipType, conn.ID)
	if err := batch.Commit(); err != nil {
		return err
	}

	e.relationshipIdx.Add(conn.ID, conn.SourceID, conn.TargetID, conn.RelationshipType)
	e.graph.AddEdge(graph.Edge{
		ID: conn.ID, Kind: graph.EdgeConnection,
		From: conn.SourceID, To: conn.TargetID,
		Weight: conn.Weight, RelationshipType: conn.RelationshipType,
	})
	return nil
}

// CreateCollection persists a new, empty collection.
func (e *Engine) CreateCollection(col *types.Collection) error {
	if err := col.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.putCollectionLocked(col)
}

func (e *Engine) putCollectionLocked(col *types.Collection) error {
	encoded, err := json.Marshal(col)
	if err != nil {
		return types.SerializationError("collection marshal failed", err)
	}
	if err := e.store.Put(storage.FamilyCollections, typCollection, col.ID, encoded); err != nil {
		return err
	}
	e.graph.AddNode(graph.NodeCollection, col.ID)
	return nil
}

// AddToCollection adds engramID to collectionID's membership, persisting
// the updated collection record and adding the Contains edge using the
// same edge-ID scheme warmFromStore reproduces on restart.
func (e *Engine) AddToCollection(engramID, collectionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.HasNode(graph.NodeEngram, engramID) {
		return types.NotFound("engram", engramID)
	}
	col, err := e.getCollectionLocked(collectionID)
	if err != nil {
		return err
	}
	col.AddEngram(engramID)
	if err := e.putCollectionLocked(col); err != nil {
		return err
	}
	e.graph.AddEdge(graph.Edge{ID: collectionID + ":contains:" + engramID, Kind: graph.EdgeContains, From: collectionID, To: engramID})
	return nil
}

func (e *Engine) getCollectionLocked(id string) (*types.Collection, error) {
	raw, err := e.store.Get(storage.FamilyCollections, typCollection, id)
	if err != nil {
		return nil, err
	}
	var col types.Collection
	if err := json.Unmarshal(raw, &col); err != nil {
		return nil, types.SerializationError("collection unmarshal failed", err)
	}
	return &col, nil
}

// removeEngramFromCollectionLocked removes engramID from collectionID's
// membership, queuing the updated record into batch and dropping the
// in-memory Contains edge. Called only while e.mu is already held.
func (e *Engine) removeEngramFromCollectionLocked(batch *storage.Batch, collectionID, engramID string) error {
	col, err := e.getCollectionLocked(collectionID)
	if err != nil {
		return err
	}
	col.RemoveEngram(engramID)
	encoded, err := json.Marshal(col)
	if err != nil {
		return types.SerializationError("collection marshal failed", err)
	}
	batch.PutRecord(storage.FamilyCollections, typCollection, col.ID, encoded)
	e.graph.RemoveEdge(collectionID + ":contains:" + engramID)
	return nil
}

// CreateAgent persists a new agent with no accessible collections yet.
func (e *Engine) CreateAgent(agent *types.Agent) error {
	if err := agent.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.putAgentLocked(agent)
}

func (e *Engine) putAgentLocked(agent *types.Agent) error {
	encoded, err := json.Marshal(agent)
	if err != nil {
		return types.SerializationError("agent marshal failed", err)
	}
	if err := e.store.Put(storage.FamilyAgents, typAgent, agent.ID, encoded); err != nil {
		return err
	}
	e.graph.AddNode(graph.NodeAgent, agent.ID)
	return nil
}

func (e *Engine) getAgentLocked(id string) (*types.Agent, error) {
	raw, err := e.store.Get(storage.FamilyAgents, typAgent, id)
	if err != nil {
		return nil, err
	}
	var agent types.Agent
	if err := json.Unmarshal(raw, &agent); err != nil {
		return nil, types.SerializationError("agent unmarshal failed", err)
	}
	return &agent, nil
}

// GrantAccess adds collectionID to agentID's advisory access set,
// persisting the updated agent record and adding a HasAccess edge using
// the same edge-ID scheme warmFromStore reproduces on restart.
func (e *Engine) GrantAccess(agentID, collectionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.HasNode(graph.NodeCollection, collectionID) {
		return types.NotFound("collection", collectionID)
	}
	agent, err := e.getAgentLocked(agentID)
	if err != nil {
		return err
	}
	agent.GrantAccess(collectionID)
	if err := e.putAgentLocked(agent); err != nil {
		return err
	}
	e.graph.AddEdge(graph.Edge{ID: agentID + ":has_access:" + collectionID, Kind: graph.EdgeHasAccess, From: agentID, To: collectionID})
	return nil
}

// RevokeAccess removes collectionID from agentID's advisory access set.
func (e *Engine) RevokeAccess(agentID, collectionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	agent, err := e.getAgentLocked(agentID)
	if err != nil {
		return err
	}
	agent.RevokeAccess(collectionID)
	if err := e.putAgentLocked(agent); err != nil {
		return err
	}
	e.graph.RemoveEdge(agentID + ":has_access:" + collectionID)
	return nil
}

// CreateContext persists a new, empty context.
func (e *Engine) CreateContext(ctx *types.Context) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.putContextLocked(ctx)
}

func (e *Engine) putContextLocked(ctx *types.Context) error {
	encoded, err := json.Marshal(ctx)
	if err != nil {
		return types.SerializationError("context marshal failed", err)
	}
	if err := e.store.Put(storage.FamilyContexts, typContext, ctx.ID, encoded); err != nil {
		return err
	}
	e.graph.AddNode(graph.NodeContext, ctx.ID)
	return nil
}

func (e *Engine) getContextLocked(id string) (*types.Context, error) {
	raw, err := e.store.Get(storage.FamilyContexts, typContext, id)
	if err != nil {
		return nil, err
	}
	var ctx types.Context
	if err := json.Unmarshal(raw, &ctx); err != nil {
		return nil, types.SerializationError("context unmarshal failed", err)
	}
	return &ctx, nil
}

// AddEngramToContext adds engramID to contextID's engram set.
func (e *Engine) AddEngramToContext(contextID, engramID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.HasNode(graph.NodeEngram, engramID) {
		return types.NotFound("engram", engramID)
	}
	ctx, err := e.getContextLocked(contextID)
	if err != nil {
		return err
	}
	ctx.AddEngram(engramID)
	if err := e.putContextLocked(ctx); err != nil {
		return err
	}
	e.graph.AddEdge(graph.Edge{ID: contextID + ":contains:" + engramID, Kind: graph.EdgeContains, From: contextID, To: engramID})
	return nil
}

// removeEngramFromContextLocked mirrors removeEngramFromCollectionLocked
// for context membership. Called only while e.mu is already held.
func (e *Engine) removeEngramFromContextLocked(batch *storage.Batch, contextID, engramID string) error {
	ctx, err := e.getContextLocked(contextID)
	if err != nil {
		return err
	}
	ctx.RemoveEngram(engramID)
	encoded, err := json.Marshal(ctx)
	if err != nil {
		return types.SerializationError("context marshal failed", err)
	}
	batch.PutRecord(storage.FamilyContexts, typContext, ctx.ID, encoded)
	e.graph.RemoveEdge(contextID + ":contains:" + engramID)
	return nil
}

// AddAgentToContext adds agentID to contextID's participant set, persists
// the updated context record, and adds the bidirectional Contains/Participates
// edge pair using the same prefix scheme warmFromStore reproduces on
// restart.
func (e *Engine) AddAgentToContext(contextID, agentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.HasNode(graph.NodeAgent, agentID) {
		return types.NotFound("agent", agentID)
	}
	ctx, err := e.getContextLocked(contextID)
	if err != nil {
		return err
	}
	ctx.AddAgent(agentID)
	if err := e.putContextLocked(ctx); err != nil {
		return err
	}
	e.graph.AddContextAgentMembership(contextID+":"+agentID, contextID, agentID)
	return nil
}

// RemoveAgentFromContext removes agentID from contextID's participant set.
func (e *Engine) RemoveAgentFromContext(contextID, agentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, err := e.getContextLocked(contextID)
	if err != nil {
		return err
	}
	ctx.RemoveAgent(agentID)
	if err := e.putContextLocked(ctx); err != nil {
		return err
	}
	e.graph.RemoveContextAgentMembership(contextID + ":" + agentID)
	return nil
}
