package engine

import (
	"encoding/json"
	"time"

	"github.com/engramai/engramlite/internal/decay"
	"github.com/engramai/engramlite/internal/graph"
	"github.com/engramai/engramlite/internal/storage"
	"github.com/engramai/engramlite/pkg/types"
)

// RecomputeImportance reapplies the four-term weighted importance formula
// to id using its current graph centrality, access count, age, and
// explicit importance, persisting the new score.
func (e *Engine) RecomputeImportance(id string, w decay.Weights, halfLife time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	eng, err := e.getEngramLocked(id)
	if err != nil {
		return err
	}

	inDegree := countConnectionEdges(e.graph.Edges(id, graph.Incoming))
	outDegree := countConnectionEdges(e.graph.Edges(id, graph.Outgoing))

	eng.Importance = decay.RecomputeImportance(decay.ImportanceInputs{
		InDegree:           inDegree,
		OutDegree:          outDegree,
		AccessCount:        eng.AccessCount,
		Age:                time.Since(eng.Timestamp),
		ExplicitImportance: eng.Importance,
		HalfLife:           halfLife,
	}, w)

	encoded, err := eng.CanonicalJSON()
	if err != nil {
		return err
	}
	if err := e.store.Put(storage.FamilyEngrams, typEngram, eng.ID, encoded); err != nil {
		return err
	}
	e.importanceIdx.Add(eng.ID, eng.Importance, eng.AccessCount, eng.LastAccessed, eng.TTLSeconds)
	return nil
}

func countConnectionEdges(edges []graph.Edge) int {
	n := 0
	for _, edge := range edges {
		if edge.Kind == graph.EdgeConnection {
			n++
		}
	}
	return n
}

// ForgettingPolicy is any of decay's five policy variants. Go has no sum
// type, so Select's signature varies per variant (ImportanceThreshold
// needs no clock); ApplyForgettingPolicy dispatches by concrete type.
type ForgettingPolicy interface{}

// ApplyForgettingPolicy evaluates policy against a snapshot of every live
// engram and deletes every selected id through the standard cascade path
// (DeleteEngram), so all indexes and the graph remain consistent. Returns
// the ids actually deleted; a selected id that fails to delete (e.g.
// concurrently removed) is skipped rather than aborting the batch.
func (e *Engine) ApplyForgettingPolicy(policy ForgettingPolicy) ([]string, error) {
	now := time.Now().UTC()
	snaps := e.snapshotEngrams()

	var selected []string
	switch p := policy.(type) {
	case decay.AgeBased:
		selected = p.Select(now, snaps)
	case decay.ImportanceThreshold:
		selected = p.Select(snaps)
	case decay.AccessFrequency:
		selected = p.Select(now, snaps)
	case decay.Hybrid:
		selected = p.Select(now, snaps)
	case decay.TTLExpiration:
		selected = p.Select(now, snaps)
	default:
		return nil, types.InvalidInput("policy", "unrecognized forgetting policy variant")
	}

	deleted := make([]string, 0, len(selected))
	for _, id := range selected {
		if _, err := e.DeleteEngram(id); err != nil {
			logf("forgetting policy: skipping %s: %v", id, err)
			continue
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}

// snapshotEngrams materializes the minimal per-engram state every
// forgetting policy needs, scanning the authoritative store directly so
// the result reflects committed state, not in-flight index updates.
func (e *Engine) snapshotEngrams() []decay.EngramSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []decay.EngramSnapshot
	_ = e.store.ForEach(storage.FamilyEngrams, typEngram, func(id string, value []byte) error {
		var eng types.Engram
		if err := json.Unmarshal(value, &eng); err != nil {
			return nil
		}
		out = append(out, decay.EngramSnapshot{
			ID:           eng.ID,
			Timestamp:    eng.Timestamp,
			Importance:   eng.Importance,
			AccessCount:  eng.AccessCount,
			LastAccessed: eng.LastAccessed,
			TTLSeconds:   eng.TTLSeconds,
		})
		return nil
	})
	return out
}
