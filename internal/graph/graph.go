// Package graph maintains the in-memory directed multigraph mirror of the
// authoritative store. It is purely derived state: every
// mutation here is paired 1:1 with a persistent-store mutation performed
// under the same exclusive lock by internal/engine, and on restart the
// graph is rebuilt by scanning the store from scratch.
package graph

import (
	"sync"
)

// NodeKind tags one of the four node variants.
type NodeKind string

const (
	NodeEngram     NodeKind = "engram"
	NodeCollection NodeKind = "collection"
	NodeAgent      NodeKind = "agent"
	NodeContext    NodeKind = "context"
)

// EdgeKind tags one of the four edge variants. The node kind determines
// which edge variants are legal between a given pair, validated by the
// engine before it calls into the graph.
type EdgeKind string

const (
	EdgeConnection  EdgeKind = "connection"  // engram -> engram
	EdgeContains    EdgeKind = "contains"    // collection/context -> engram, context -> agent
	EdgeHasAccess   EdgeKind = "has_access"  // agent -> collection
	EdgeParticipates EdgeKind = "participates" // agent -> context
)

// Direction selects which side of an edge to enumerate.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Edge is a lightweight handle to one graph edge. Weight and
// RelationshipType are only meaningful for EdgeConnection edges.
type Edge struct {
	ID               string
	Kind             EdgeKind
	From             string
	To               string
	Weight           float64
	RelationshipType string
}

// Graph is the directed multigraph mirror. Its own mutex makes it safe to
// use standalone (e.g. in tests); the engine's coarser exclusive lock makes
// this redundant in production but never incorrect.
type Graph struct {
	mu sync.RWMutex

	nodes map[NodeKind]map[string]struct{}

	edges    map[string]*Edge
	outEdges map[string]map[string]*Edge
	inEdges  map[string]map[string]*Edge
}

// New returns an empty graph.
func New() *Graph {
	g := &Graph{
		nodes: map[NodeKind]map[string]struct{}{
			NodeEngram:     {},
			NodeCollection: {},
			NodeAgent:      {},
			NodeContext:    {},
		},
		edges:    map[string]*Edge{},
		outEdges: map[string]map[string]*Edge{},
		inEdges:  map[string]map[string]*Edge{},
	}
	return g
}

// AddNode inserts id as a node of the given kind. Idempotent.
func (g *Graph) AddNode(kind NodeKind, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[kind][id] = struct{}{}
}

// HasNode reports whether id exists as a node of the given kind.
func (g *Graph) HasNode(kind NodeKind, id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[kind][id]
	return ok
}

// RemoveNode removes id (and every edge incident on it) from the graph.
func (g *Graph) RemoveNode(kind NodeKind, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.nodes[kind], id)

	for edgeID := range g.outEdges[id] {
		g.removeEdgeLocked(edgeID)
	}
	for edgeID := range g.inEdges[id] {
		g.removeEdgeLocked(edgeID)
	}
}

// AddEdge inserts an edge. Idempotent when called twice with the same ID.
func (g *Graph) AddEdge(e Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addEdgeLocked(e)
}

func (g *Graph) addEdgeLocked(e Edge) {
	edge := e
	g.edges[e.ID] = &edge
	if g.outEdges[e.From] == nil {
		g.outEdges[e.From] = map[string]*Edge{}
	}
	g.outEdges[e.From][e.ID] = &edge
	if g.inEdges[e.To] == nil {
		g.inEdges[e.To] = map[string]*Edge{}
	}
	g.inEdges[e.To][e.ID] = &edge
}

// RemoveEdge removes a single edge by id. Clean: leaves no dangling
// references in either adjacency map.
func (g *Graph) RemoveEdge(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeEdgeLocked(id)
}

func (g *Graph) removeEdgeLocked(id string) {
	edge, ok := g.edges[id]
	if !ok {
		return
	}
	delete(g.edges, id)
	if m, ok := g.outEdges[edge.From]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(g.outEdges, edge.From)
		}
	}
	if m, ok := g.inEdges[edge.To]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(g.inEdges, edge.To)
		}
	}
}

// AddContextAgentMembership adds the bidirectional pair of edges
// representing an agent's participation in a context: Contains from
// context->agent, Participates from agent->context.
func (g *Graph) AddContextAgentMembership(edgeIDPrefix, contextID, agentID string) {
	g.AddEdge(Edge{ID: edgeIDPrefix + ":contains", Kind: EdgeContains, From: contextID, To: agentID})
	g.AddEdge(Edge{ID: edgeIDPrefix + ":participates", Kind: EdgeParticipates, From: agentID, To: contextID})
}

// RemoveContextAgentMembership removes both halves of the pair added by
// AddContextAgentMembership.
func (g *Graph) RemoveContextAgentMembership(edgeIDPrefix string) {
	g.RemoveEdge(edgeIDPrefix + ":contains")
	g.RemoveEdge(edgeIDPrefix + ":participates")
}

// Edges returns the outgoing, incoming, or both-direction edges of a node.
func (g *Graph) Edges(nodeID string, dir Direction) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Edge
	if dir == Outgoing || dir == Both {
		for _, e := range g.outEdges[nodeID] {
			out = append(out, *e)
		}
	}
	if dir == Incoming || dir == Both {
		for _, e := range g.inEdges[nodeID] {
			out = append(out, *e)
		}
	}
	return out
}

// Edge returns the edge with the given id, if present.
func (g *Graph) Edge(id string) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// EdgesByKind returns every edge of the given kind across the whole graph.
func (g *Graph) EdgesByKind(kind EdgeKind) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Edge
	for _, e := range g.edges {
		if e.Kind == kind {
			out = append(out, *e)
		}
	}
	return out
}

// Neighbors lists the node ids reachable from nodeID via edges of kind,
// in the given direction.
func (g *Graph) Neighbors(nodeID string, kind EdgeKind, dir Direction) []string {
	edges := g.Edges(nodeID, dir)
	seen := map[string]struct{}{}
	var out []string
	for _, e := range edges {
		if e.Kind != kind {
			continue
		}
		other := e.To
		if e.To == nodeID {
			other = e.From
		}
		if _, ok := seen[other]; !ok {
			seen[other] = struct{}{}
			out = append(out, other)
		}
	}
	return out
}

// NodeCount returns how many nodes of the given kind exist. Mostly useful
// for stats and tests.
func (g *Graph) NodeCount(kind NodeKind) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes[kind])
}
