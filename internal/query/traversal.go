package query

import "github.com/engramai/engramlite/internal/graph"

// Traversal bounds a depth-first walk of the connection graph from a
// starting engram.
type Traversal struct {
	MaxDepth     int
	AllowedTypes map[string]struct{} // nil/empty means every relationship type is allowed
	Direction    graph.Direction
}

// Path is one walked route from the start id: the ordered engram ids
// visited (Nodes[0] is the start) and the connection ids used between
// consecutive nodes (len(Edges) == len(Nodes)-1).
type Path struct {
	Nodes []string
	Edges []string
}

// Walk performs the bounded depth-first search and returns every maximal
// path found (one per branch that hits MaxDepth, a dead end, or a node
// already visited on that branch) together with the full reachable set,
// which includes every node encountered regardless of which path reached it
// first.
func (t Traversal) Walk(g *graph.Graph, startID string) ([]Path, []string) {
	reachable := map[string]struct{}{}
	var paths []Path

	visited := map[string]struct{}{startID: {}}
	t.dfs(g, Path{Nodes: []string{startID}}, visited, &paths, reachable)

	return paths, sortedSet(reachable)
}

func (t Traversal) dfs(g *graph.Graph, path Path, visited map[string]struct{}, paths *[]Path, reachable map[string]struct{}) {
	current := path.Nodes[len(path.Nodes)-1]
	depth := len(path.Nodes) - 1

	extended := false
	if depth < t.MaxDepth {
		for _, e := range g.Edges(current, t.Direction) {
			if e.Kind != graph.EdgeConnection {
				continue
			}
			if len(t.AllowedTypes) > 0 {
				if _, ok := t.AllowedTypes[e.RelationshipType]; !ok {
					continue
				}
			}
			next := e.To
			if next == current {
				next = e.From
			}
			if _, seen := visited[next]; seen {
				continue
			}

			extended = true
			reachable[next] = struct{}{}

			nextPath := Path{
				Nodes: append(append([]string(nil), path.Nodes...), next),
				Edges: append(append([]string(nil), path.Edges...), e.ID),
			}
			nextVisited := make(map[string]struct{}, len(visited)+1)
			for id := range visited {
				nextVisited[id] = struct{}{}
			}
			nextVisited[next] = struct{}{}

			t.dfs(g, nextPath, nextVisited, paths, reachable)
		}
	}

	if !extended && depth > 0 {
		*paths = append(*paths, path)
	}
}
