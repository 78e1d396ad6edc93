package engine

import (
	"encoding/json"

	"github.com/engramai/engramlite/internal/graph"
	"github.com/engramai/engramlite/internal/storage"
	"github.com/engramai/engramlite/pkg/types"
)

// warmFromStore rebuilds the graph and every secondary index by scanning
// the authoritative store, in the order the lifecycle design requires:
// engrams, then collections, agents, contexts (so their membership
// references can be checked against live engrams), then connections last.
// A reference to a missing engram is logged and dropped rather than
// aborting startup; a record that fails to unmarshal is skipped with a
// warning, mirroring the teacher's tolerant startup-scan style.
func (e *Engine) warmFromStore() error {
	liveEngrams := map[string]struct{}{}

	if err := e.store.ForEach(storage.FamilyEngrams, typEngram, func(id string, value []byte) error {
		var eng types.Engram
		if err := json.Unmarshal(value, &eng); err != nil {
			logf("skipping corrupted engram %s: %v", id, err)
			return nil
		}
		e.indexEngram(&eng)
		liveEngrams[eng.ID] = struct{}{}
		return nil
	}); err != nil {
		return err
	}

	if err := e.store.ForEach(storage.FamilyEmbeddings, typEmbedding, func(id string, value []byte) error {
		var rec types.EmbeddingRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			logf("skipping corrupted embedding %s: %v", id, err)
			return nil
		}
		if _, ok := liveEngrams[rec.EngramID]; !ok {
			return nil
		}
		if err := e.ann.Add(rec.EngramID, rec.ActiveVector()); err != nil {
			logf("skipping embedding for %s: %v", rec.EngramID, err)
		}
		return nil
	}); err != nil {
		return err
	}

	collections := map[string]*types.Collection{}
	if err := e.store.ForEach(storage.FamilyCollections, typCollection, func(id string, value []byte) error {
		var c types.Collection
		if err := json.Unmarshal(value, &c); err != nil {
			logf("skipping corrupted collection %s: %v", id, err)
			return nil
		}
		e.graph.AddNode(graph.NodeCollection, c.ID)
		for _, engramID := range c.EngramIDs {
			if _, ok := liveEngrams[engramID]; !ok {
				logf("dropping dangling engram reference %s from collection %s", engramID, c.ID)
				continue
			}
			e.graph.AddEdge(graph.Edge{ID: c.ID + ":contains:" + engramID, Kind: graph.EdgeContains, From: c.ID, To: engramID})
		}
		collections[c.ID] = &c
		return nil
	}); err != nil {
		return err
	}

	if err := e.store.ForEach(storage.FamilyAgents, typAgent, func(id string, value []byte) error {
		var a types.Agent
		if err := json.Unmarshal(value, &a); err != nil {
			logf("skipping corrupted agent %s: %v", id, err)
			return nil
		}
		e.graph.AddNode(graph.NodeAgent, a.ID)
		for _, collectionID := range a.AccessibleCollections {
			if _, ok := collections[collectionID]; !ok {
				logf("dropping dangling collection reference %s from agent %s", collectionID, a.ID)
				continue
			}
			e.graph.AddEdge(graph.Edge{ID: a.ID + ":has_access:" + collectionID, Kind: graph.EdgeHasAccess, From: a.ID, To: collectionID})
		}
		return nil
	}); err != nil {
		return err
	}

	if err := e.store.ForEach(storage.FamilyContexts, typContext, func(id string, value []byte) error {
		var c types.Context
		if err := json.Unmarshal(value, &c); err != nil {
			logf("skipping corrupted context %s: %v", id, err)
			return nil
		}
		e.graph.AddNode(graph.NodeContext, c.ID)
		for _, engramID := range c.EngramIDs {
			if _, ok := liveEngrams[engramID]; !ok {
				logf("dropping dangling engram reference %s from context %s", engramID, c.ID)
				continue
			}
			e.graph.AddEdge(graph.Edge{ID: c.ID + ":contains:" + engramID, Kind: graph.EdgeContains, From: c.ID, To: engramID})
		}
		for _, agentID := range c.AgentIDs {
			if !e.graph.HasNode(graph.NodeAgent, agentID) {
				logf("dropping dangling agent reference %s from context %s", agentID, c.ID)
				continue
			}
			e.graph.AddContextAgentMembership(c.ID+":"+agentID, c.ID, agentID)
		}
		return nil
	}); err != nil {
		return err
	}

	return e.store.ForEach(storage.FamilyConnections, typConnection, func(id string, value []byte) error {
		var conn types.Connection
		if err := json.Unmarshal(value, &conn); err != nil {
			logf("skipping corrupted connection %s: %v", id, err)
			return nil
		}
		_, srcLive := liveEngrams[conn.SourceID]
		_, dstLive := liveEngrams[conn.TargetID]
		if !srcLive || !dstLive {
			logf("dropping connection %s: endpoint no longer live", conn.ID)
			return nil
		}
		e.graph.AddEdge(graph.Edge{
			ID: conn.ID, Kind: graph.EdgeConnection,
			From: conn.SourceID, To: conn.TargetID,
			Weight: conn.Weight, RelationshipType: conn.RelationshipType,
		})
		e.relationshipIdx.Add(conn.ID, conn.SourceID, conn.TargetID, conn.RelationshipType)
		return nil
	})
}

// indexEngram adds eng to the graph and every secondary index. Shared by
// warmFromStore and PutEngram.
func (e *Engine) indexEngram(eng *types.Engram) {
	e.graph.AddNode(graph.NodeEngram, eng.ID)
	e.sourceIdx.Add(eng.ID, eng.Source)
	e.confidenceIdx.Add(eng.ID, eng.Confidence)
	e.metadataIdx.Add(eng.ID, eng.Metadata)
	e.textIdx.Add(eng.ID, eng.Content)
	e.temporalIdx.Add(eng.ID, eng.Timestamp)
	e.importanceIdx.Add(eng.ID, eng.Importance, eng.AccessCount, eng.LastAccessed, eng.TTLSeconds)
}

// unindexEngram removes eng's id from every secondary index and the graph
// (the graph removal also drops every incident edge).
func (e *Engine) unindexEngram(id string) {
	e.sourceIdx.Remove(id)
	e.confidenceIdx.Remove(id)
	e.metadataIdx.Remove(id)
	e.textIdx.Remove(id)
	e.temporalIdx.Remove(id)
	e.importanceIdx.Remove(id)
	e.graph.RemoveNode(graph.NodeEngram, id)
}
