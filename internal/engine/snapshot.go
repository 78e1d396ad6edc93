package engine

import (
	"context"
	"encoding/json"
	"io"

	"github.com/engramai/engramlite/internal/graph"
	"github.com/engramai/engramlite/internal/snapshot"
	"github.com/engramai/engramlite/internal/storage"
	"github.com/engramai/engramlite/pkg/types"
)

// Export writes a snapshot of every live entity to w. When collectionID is
// non-empty, the export is narrowed to that collection's member engrams
// and the connections between them, per snapshot.Document.ForCollection.
func (e *Engine) Export(w io.Writer, collectionID string) (snapshot.Counts, error) {
	e.mu.RLock()
	doc, err := e.buildSnapshotLocked()
	e.mu.RUnlock()
	if err != nil {
		return snapshot.Counts{}, err
	}

	if collectionID != "" {
		doc, err = doc.ForCollection(collectionID)
		if err != nil {
			return snapshot.Counts{}, err
		}
	}

	if err := snapshot.Write(w, doc); err != nil {
		return snapshot.Counts{}, err
	}
	return doc.Summarize(), nil
}

func (e *Engine) buildSnapshotLocked() (*snapshot.Document, error) {
	var engrams []*types.Engram
	if err := e.store.ForEach(storage.FamilyEngrams, typEngram, func(id string, value []byte) error {
		var eng types.Engram
		if err := json.Unmarshal(value, &eng); err != nil {
			return nil
		}
		engrams = append(engrams, &eng)
		return nil
	}); err != nil {
		return nil, err
	}

	var connections []*types.Connection
	if err := e.store.ForEach(storage.FamilyConnections, typConnection, func(id string, value []byte) error {
		var conn types.Connection
		if err := json.Unmarshal(value, &conn); err != nil {
			return nil
		}
		connections = append(connections, &conn)
		return nil
	}); err != nil {
		return nil, err
	}

	var collections []*types.Collection
	if err := e.store.ForEach(storage.FamilyCollections, typCollection, func(id string, value []byte) error {
		var col types.Collection
		if err := json.Unmarshal(value, &col); err != nil {
			return nil
		}
		collections = append(collections, &col)
		return nil
	}); err != nil {
		return nil, err
	}

	var agents []*types.Agent
	if err := e.store.ForEach(storage.FamilyAgents, typAgent, func(id string, value []byte) error {
		var agent types.Agent
		if err := json.Unmarshal(value, &agent); err != nil {
			return nil
		}
		agents = append(agents, &agent)
		return nil
	}); err != nil {
		return nil, err
	}

	var contexts []*types.Context
	if err := e.store.ForEach(storage.FamilyContexts, typContext, func(id string, value []byte) error {
		var ctx types.Context
		if err := json.Unmarshal(value, &ctx); err != nil {
			return nil
		}
		contexts = append(contexts, &ctx)
		return nil
	}); err != nil {
		return nil, err
	}

	return snapshot.Build(engrams, connections, collections, agents, contexts), nil
}

// Import reads a snapshot document from r and applies every entity to the
// store, replacing existing records on id collision (idempotent import).
// Engrams are applied first so connections and memberships can resolve
// their references, then embeddings are recomputed and the ANN index,
// every secondary index, and the graph are updated to match, matching
// warmFromStore's scan order.
func (e *Engine) Import(r io.Reader) (snapshot.Counts, error) {
	doc, err := snapshot.Read(r)
	if err != nil {
		return snapshot.Counts{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	batch := e.store.BeginBatch()

	liveEngrams := map[string]struct{}{}
	embeddings := map[string]*types.EmbeddingRecord{}
	for _, eng := range doc.Engrams {
		eng.Clamp()
		encoded, err := eng.CanonicalJSON()
		if err != nil {
			return snapshot.Counts{}, err
		}
		batch.PutRecord(storage.FamilyEngrams, typEngram, eng.ID, encoded)
		liveEngrams[eng.ID] = struct{}{}

		rec, err := e.embedAndReduce(context.Background(), eng.ID, eng.Content)
		if err != nil {
			return snapshot.Counts{}, err
		}
		embeddingEncoded, err := json.Marshal(rec)
		if err != nil {
			return snapshot.Counts{}, types.SerializationError("embedding marshal failed", err)
		}
		batch.PutRecord(storage.FamilyEmbeddings, typEmbedding, eng.ID, embeddingEncoded)
		embeddings[eng.ID] = rec
	}

	for _, col := range doc.Collections {
		encoded, err := json.Marshal(col)
		if err != nil {
			return snapshot.Counts{}, types.SerializationError("collection marshal failed", err)
		}
		batch.PutRecord(storage.FamilyCollections, typCollection, col.ID, encoded)
	}
	for _, agent := range doc.Agents {
		encoded, err := json.Marshal(agent)
		if err != nil {
			return snapshot.Counts{}, types.SerializationError("agent marshal failed", err)
		}
		batch.PutRecord(storage.FamilyAgents, typAgent, agent.ID, encoded)
	}
	for _, ctx := range doc.Contexts {
		encoded, err := json.Marshal(ctx)
		if err != nil {
			return snapshot.Counts{}, types.SerializationError("context marshal failed", err)
		}
		batch.PutRecord(storage.FamilyContexts, typContext, ctx.ID, encoded)
	}
	for _, conn := range doc.Connections {
		if _, srcOK := liveEngrams[conn.SourceID]; !srcOK {
			continue
		}
		if _, dstOK := liveEngrams[conn.TargetID]; !dstOK {
			continue
		}
		encoded, err := json.Marshal(conn)
		if err != nil {
			return snapshot.Counts{}, types.SerializationError("connection marshal failed", err)
		}
		batch.PutRecord(storage.FamilyConnections, typConnection, conn.ID, encoded)
		batch.PutRelationshipRow("out", conn.SourceID, conn.ID)
		batch.PutRelationshipRow("in", conn.TargetID, conn.ID)
		batch.PutRelationshipRow("type", conn.RelationshipType, conn.ID)
	}

	if err := batch.Commit(); err != nil {
		return snapshot.Counts{}, err
	}

	for _, eng := range doc.Engrams {
		e.indexEngram(eng)
		if rec, ok := embeddings[eng.ID]; ok {
			if err := e.ann.Add(eng.ID, rec.ActiveVector()); err != nil {
				logf("ann add failed for imported engram %s: %v", eng.ID, err)
			}
		}
	}
	for _, col := range doc.Collections {
		e.graph.AddNode(graph.NodeCollection, col.ID)
		for _, engramID := range col.EngramIDs {
			if _, ok := liveEngrams[engramID]; ok {
				e.graph.AddEdge(graph.Edge{ID: col.ID + ":contains:" + engramID, Kind: graph.EdgeContains, From: col.ID, To: engramID})
			}
		}
	}
	for _, agent := range doc.Agents {
		e.graph.AddNode(graph.NodeAgent, agent.ID)
	}
	for _, ctx := range doc.Contexts {
		e.graph.AddNode(graph.NodeContext, ctx.ID)
		for _, engramID := range ctx.EngramIDs {
			if _, ok := liveEngrams[engramID]; ok {
				e.graph.AddEdge(graph.Edge{ID: ctx.ID + ":contains:" + engramID, Kind: graph.EdgeContains, From: ctx.ID, To: engramID})
			}
		}
		for _, agentID := range ctx.AgentIDs {
			e.graph.AddContextAgentMembership(ctx.ID+":"+agentID, ctx.ID, agentID)
		}
	}
	for _, conn := range doc.Connections {
		if _, srcOK := liveEngrams[conn.SourceID]; !srcOK {
			continue
		}
		if _, dstOK := liveEngrams[conn.TargetID]; !dstOK {
			continue
		}
		e.graph.AddEdge(graph.Edge{
			ID: conn.ID, Kind: graph.EdgeConnection,
			From: conn.SourceID, To: conn.TargetID,
			Weight: conn.Weight, RelationshipType: conn.RelationshipType,
		})
		e.relationshipIdx.Add(conn.ID, conn.SourceID, conn.TargetID, conn.RelationshipType)
	}

	return doc.Summarize(), nil
}
