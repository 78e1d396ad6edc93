// Package snapshot implements the JSON export/import format: a single
// document carrying every engram, connection, collection, agent, and
// context as an array of canonical records, plus an integer version. It
// generalizes the teacher's whole-file SQLite backup into a structured
// document format, since the new engine's durable state is a multi-family
// KV store rather than one copyable file.
package snapshot

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/engramai/engramlite/pkg/types"
)

// CurrentVersion is written on every export and accepted on import.
const CurrentVersion = 1

// Document is the top-level JSON snapshot shape.
type Document struct {
	Version     int                 `json:"version"`
	Engrams     []*types.Engram     `json:"engrams"`
	Connections []*types.Connection `json:"connections"`
	Collections []*types.Collection `json:"collections"`
	Agents      []*types.Agent      `json:"agents"`
	Contexts    []*types.Context    `json:"contexts"`
}

// Build assembles a full-export Document from the current entity
// populations, sorting each slice by id so the resulting JSON is
// reproducible across runs over the same data.
func Build(engrams []*types.Engram, connections []*types.Connection, collections []*types.Collection, agents []*types.Agent, contexts []*types.Context) *Document {
	doc := &Document{
		Version:     CurrentVersion,
		Engrams:     append([]*types.Engram(nil), engrams...),
		Connections: append([]*types.Connection(nil), connections...),
		Collections: append([]*types.Collection(nil), collections...),
		Agents:      append([]*types.Agent(nil), agents...),
		Contexts:    append([]*types.Context(nil), contexts...),
	}
	sort.Slice(doc.Engrams, func(i, j int) bool { return doc.Engrams[i].ID < doc.Engrams[j].ID })
	sort.Slice(doc.Connections, func(i, j int) bool { return doc.Connections[i].ID < doc.Connections[j].ID })
	sort.Slice(doc.Collections, func(i, j int) bool { return doc.Collections[i].ID < doc.Collections[j].ID })
	sort.Slice(doc.Agents, func(i, j int) bool { return doc.Agents[i].ID < doc.Agents[j].ID })
	sort.Slice(doc.Contexts, func(i, j int) bool { return doc.Contexts[i].ID < doc.Contexts[j].ID })
	return doc
}

// ForCollection narrows doc to a subset export containing only the named
// collection, its member engrams, and the connections between those
// engrams. Agents and contexts are omitted: the snapshot format's
// collection-scoped export is defined purely in terms of engrams and
// their connections.
func (doc *Document) ForCollection(collectionID string) (*Document, error) {
	var target *types.Collection
	for _, c := range doc.Collections {
		if c.ID == collectionID {
			target = c
			break
		}
	}
	if target == nil {
		return nil, types.NotFound("collection", collectionID)
	}

	members := make(map[string]struct{}, len(target.EngramIDs))
	for _, id := range target.EngramIDs {
		members[id] = struct{}{}
	}

	var engrams []*types.Engram
	for _, e := range doc.Engrams {
		if _, ok := members[e.ID]; ok {
			engrams = append(engrams, e)
		}
	}

	var connections []*types.Connection
	for _, c := range doc.Connections {
		_, srcIn := members[c.SourceID]
		_, dstIn := members[c.TargetID]
		if srcIn && dstIn {
			connections = append(connections, c)
		}
	}

	return Build(engrams, connections, []*types.Collection{target}, nil, nil), nil
}

// Write marshals doc as indented JSON to w.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return types.SerializationError("snapshot encode failed", err)
	}
	return nil
}

// Read parses a Document from r. An empty or missing version is accepted
// as CurrentVersion for forward leniency; a version greater than
// CurrentVersion is rejected since this package cannot know how to
// interpret a newer format.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, types.SerializationError("snapshot decode failed", err)
	}
	if doc.Version == 0 {
		doc.Version = CurrentVersion
	}
	if doc.Version > CurrentVersion {
		return nil, types.InvalidInput("version", "snapshot version is newer than this engine supports")
	}
	return &doc, nil
}

// Counts summarizes how many records of each kind a Document carries,
// returned to the caller after an import so it can report "counts
// restored".
type Counts struct {
	Engrams     int
	Connections int
	Collections int
	Agents      int
	Contexts    int
}

// Summarize returns the record counts in doc.
func (doc *Document) Summarize() Counts {
	return Counts{
		Engrams:     len(doc.Engrams),
		Connections: len(doc.Connections),
		Collections: len(doc.Collections),
		Agents:      len(doc.Agents),
		Contexts:    len(doc.Contexts),
	}
}
