// Package index holds the family of in-memory secondary indexes over the
// engram graph. Every index is rebuilt on startup and updated
// transactionally with the authoritative record under the engine's
// exclusive lock; none of them is itself durable.
package index

import "sort"

// RelationshipIndex maintains five views over connections:
// outgoing/incoming connection ids by engram, connection ids by
// relationship type, and target/source engram-id sets by engram.
type RelationshipIndex struct {
	outgoing map[string]map[string]struct{} // engram id -> connection ids
	incoming map[string]map[string]struct{} // engram id -> connection ids
	byType   map[string]map[string]struct{} // relationship type -> connection ids

	targets map[string]map[string]struct{} // engram id -> target engram ids
	sources map[string]map[string]struct{} // engram id -> source engram ids

	// conns tracks enough about each indexed connection to remove it
	// cleanly later, without needing the caller to re-supply the
	// endpoints/type on Remove.
	conns map[string]connEntry
}

type connEntry struct {
	sourceID string
	targetID string
	relType  string
}

// NewRelationshipIndex returns an empty relationship index.
func NewRelationshipIndex() *RelationshipIndex {
	return &RelationshipIndex{
		outgoing: map[string]map[string]struct{}{},
		incoming: map[string]map[string]struct{}{},
		byType:   map[string]map[string]struct{}{},
		targets:  map[string]map[string]struct{}{},
		sources:  map[string]map[string]struct{}{},
		conns:    map[string]connEntry{},
	}
}

// Add indexes a connection. Calling Add twice with the same connID
// reproduces the same state (idempotent add).
func (idx *RelationshipIndex) Add(connID, sourceID, targetID, relType string) {
	if _, exists := idx.conns[connID]; exists {
		idx.Remove(connID)
	}
	idx.conns[connID] = connEntry{sourceID: sourceID, targetID: targetID, relType: relType}

	addTo(idx.outgoing, sourceID, connID)
	addTo(idx.incoming, targetID, connID)
	addTo(idx.byType, relType, connID)
	addTo(idx.targets, sourceID, targetID)
	addTo(idx.sources, targetID, sourceID)
}

// Remove deletes a connection from all five views, leaving no dangling
// references.
func (idx *RelationshipIndex) Remove(connID string) {
	entry, ok := idx.conns[connID]
	if !ok {
		return
	}
	delete(idx.conns, connID)

	removeFrom(idx.outgoing, entry.sourceID, connID)
	removeFrom(idx.incoming, entry.targetID, connID)
	removeFrom(idx.byType, entry.relType, connID)

	// targets/sources sets can only be pruned for (source,target) pairs
	// with no remaining connection sharing them.
	if !idx.pairStillConnected(entry.sourceID, entry.targetID) {
		removeFrom(idx.targets, entry.sourceID, entry.targetID)
		removeFrom(idx.sources, entry.targetID, entry.sourceID)
	}
}

func (idx *RelationshipIndex) pairStillConnected(sourceID, targetID string) bool {
	for _, e := range idx.conns {
		if e.sourceID == sourceID && e.targetID == targetID {
			return true
		}
	}
	return false
}

// RemovedConnection describes a connection dropped by RemoveByEngram, with
// enough detail for a caller to also delete its three denormalized
// relationship-index storage rows ("out:", "in:", "type:").
type RemovedConnection struct {
	ConnID   string
	SourceID string
	TargetID string
	RelType  string
}

// RemoveByEngram removes every connection whose source or target is id,
// used by the cascade-delete path when an engram is deleted. It returns
// each removed connection's full identity (not just its id) so the caller
// can also delete the corresponding storage-level relationship rows.
func (idx *RelationshipIndex) RemoveByEngram(id string) []RemovedConnection {
	var removed []RemovedConnection
	for connID, entry := range idx.conns {
		if entry.sourceID == id || entry.targetID == id {
			removed = append(removed, RemovedConnection{
				ConnID:   connID,
				SourceID: entry.sourceID,
				TargetID: entry.targetID,
				RelType:  entry.relType,
			})
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].ConnID < removed[j].ConnID })
	for _, r := range removed {
		idx.Remove(r.ConnID)
	}
	return removed
}

// Outgoing returns the connection ids originating at engramID.
func (idx *RelationshipIndex) Outgoing(engramID string) []string { return sortedKeys(idx.outgoing[engramID]) }

// Incoming returns the connection ids terminating at engramID.
func (idx *RelationshipIndex) Incoming(engramID string) []string { return sortedKeys(idx.incoming[engramID]) }

// ByType returns the connection ids of the given relationship type.
func (idx *RelationshipIndex) ByType(relType string) []string { return sortedKeys(idx.byType[relType]) }

// Targets returns the set of engram ids that engramID connects to.
func (idx *RelationshipIndex) Targets(engramID string) []string { return sortedKeys(idx.targets[engramID]) }

// Sources returns the set of engram ids that connect to engramID.
func (idx *RelationshipIndex) Sources(engramID string) []string { return sortedKeys(idx.sources[engramID]) }

func addTo(m map[string]map[string]struct{}, key, value string) {
	if m[key] == nil {
		m[key] = map[string]struct{}{}
	}
	m[key][value] = struct{}{}
}

func removeFrom(m map[string]map[string]struct{}, key, value string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(m, key)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
