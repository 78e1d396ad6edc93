package engine

import (
	"encoding/json"

	"github.com/engramai/engramlite/internal/decay"
	"github.com/engramai/engramlite/internal/storage"
	"github.com/engramai/engramlite/pkg/types"
)

// flushAccessUpdates is the AccessBatcher's FlushFunc: it applies a
// coalesced batch of access-count/last-accessed updates to the
// authoritative store and the importance/access index. Called with e.mu
// already held for writing by whichever caller triggered the flush
// (GetEngram or Close).
func (e *Engine) flushAccessUpdates(updates map[string]decay.AccessUpdate) {
	for id, upd := range updates {
		raw, err := e.store.Get(storage.FamilyEngrams, typEngram, id)
		if err != nil {
			logf("skipping access flush for %s: %v", id, err)
			continue
		}
		var eng types.Engram
		if err := json.Unmarshal(raw, &eng); err != nil {
			logf("skipping access flush for %s: corrupted record: %v", id, err)
			continue
		}
		eng.AccessCount = upd.AccessCount
		eng.LastAccessed = upd.LastAccessed

		encoded, err := json.Marshal(&eng)
		if err != nil {
			logf("skipping access flush for %s: %v", id, err)
			continue
		}
		if err := e.store.Put(storage.FamilyEngrams, typEngram, id, encoded); err != nil {
			logf("failed to persist access flush for %s: %v", id, err)
			continue
		}
		e.importanceIdx.Add(eng.ID, eng.Importance, eng.AccessCount, eng.LastAccessed, eng.TTLSeconds)
	}
}
