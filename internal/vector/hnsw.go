package vector

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/engramai/engramlite/pkg/types"
)

// HNSWConfig configures a new HNSW.
type HNSWConfig struct {
	// Dim is the vector dimension every inserted vector must match.
	Dim int
	// M is the maximum out-degree per node per layer (layer 0 allows 2*M).
	M int
	// EfConstruction is the candidate-list size used while inserting.
	EfConstruction int
	// EfSearch is the default candidate-list size used while searching.
	EfSearch int
	// Distance selects the metric the graph is built and searched over.
	Distance DistanceKind
}

func (c *HNSWConfig) setDefaults() {
	if c.M < 2 {
		c.M = 16
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = 200
	}
	if c.EfSearch <= 0 {
		c.EfSearch = 50
	}
	if c.Distance == "" {
		c.Distance = DistanceCosine
	}
}

func (c *HNSWConfig) maxConns(layer int) int {
	if layer == 0 {
		return c.M * 2
	}
	return c.M
}

type distItem struct {
	id   uint32
	dist float32
}

type minDistHeap []distItem

func (h minDistHeap) Len() int           { return len(h) }
func (h minDistHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h minDistHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minDistHeap) Push(x any)        { *h = append(*h, x.(distItem)) }
func (h *minDistHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type maxDistHeap []distItem

func (h maxDistHeap) Len() int           { return len(h) }
func (h maxDistHeap) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h maxDistHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxDistHeap) Push(x any)        { *h = append(*h, x.(distItem)) }
func (h *maxDistHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// hnswNode is a single vector in the graph. Removal tombstones a node
// rather than unlinking it immediately, so the graph stays connected
// for other nodes' traversal until Rebuild runs.
type hnswNode struct {
	id         string
	vector     []float32
	level      int
	friends    [][]uint32
	tombstoned bool
}

// HNSW is a Hierarchical Navigable Small-World approximate nearest
// neighbor index. All methods are safe for concurrent use.
type HNSW struct {
	mu       sync.RWMutex
	cfg      HNSWConfig
	dist     func(a, b []float32) float32
	nodes    []*hnswNode
	idMap    map[string]uint32
	entryID  int32
	maxLevel int
	count    int // active, non-tombstoned nodes
	levelMul float64
	rng      *rand.Rand
}

// Match is a single ANN search result, ordered by ascending distance.
type Match struct {
	ID       string
	Distance float32
}

// NewHNSW creates an empty HNSW index. Panics if cfg.Dim is not positive.
func NewHNSW(cfg HNSWConfig) *HNSW {
	if cfg.Dim <= 0 {
		panic("vector: HNSWConfig.Dim must be positive")
	}
	cfg.setDefaults()
	return &HNSW{
		cfg:      cfg,
		dist:     distanceFunc(cfg.Distance),
		idMap:    make(map[string]uint32),
		entryID:  -1,
		levelMul: 1.0 / math.Log(float64(cfg.M)),
		rng:      rand.New(rand.NewSource(1)),
	}
}

// Len returns the number of active (non-tombstoned) vectors.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Add inserts or replaces a vector with the given id.
func (h *HNSW) Add(id string, vec []float32) error {
	if len(vec) != h.cfg.Dim {
		return types.InvalidInput("vector", "dimension does not match the index's configured dimensionality")
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)

	h.mu.Lock()
	defer h.mu.Unlock()

	if oldIdx, ok := h.idMap[id]; ok {
		h.hardRemoveLocked(oldIdx)
	}

	idx := uint32(len(h.nodes))
	level := h.randomLevel()
	nd := &hnswNode{id: id, vector: cp, level: level, friends: make([][]uint32, level+1)}
	h.nodes = append(h.nodes, nd)
	h.idMap[id] = idx
	h.count++

	if h.entryID < 0 {
		h.entryID = int32(idx)
		h.maxLevel = level
		return nil
	}

	cur := uint32(h.entryID)
	curDist := h.dist(cp, h.nodes[cur].vector)
	for lev := h.maxLevel; lev > level; lev-- {
		changed := true
		for changed {
			changed = false
			curNode := h.activeNode(cur)
			if curNode == nil || lev >= len(curNode.friends) {
				break
			}
			for _, fID := range curNode.friends[lev] {
				fn := h.activeNode(fID)
				if fn == nil {
					continue
				}
				d := h.dist(cp, fn.vector)
				if d < curDist {
					cur, curDist = fID, d
					changed = true
				}
			}
		}
	}

	topInsert := level
	if topInsert > h.maxLevel {
		topInsert = h.maxLevel
	}

	ep := []uint32{cur}
	for lev := topInsert; lev >= 0; lev-- {
		candidates := h.searchLayer(cp, ep, h.cfg.EfConstruction, lev, nil)
		maxC := h.cfg.maxConns(lev)
		neighbors := h.selectClosest(cp, candidates, maxC)
		nd.friends[lev] = neighbors

		for _, nID := range neighbors {
			nn := h.nodes[nID]
			if nn == nil || lev >= len(nn.friends) {
				continue
			}
			nn.friends[lev] = append(nn.friends[lev], idx)
			if len(nn.friends[lev]) > maxC {
				nn.friends[lev] = h.selectClosest(nn.vector, nn.friends[lev], maxC)
			}
		}
		ep = candidates
	}

	if level > h.maxLevel {
		h.entryID = int32(idx)
		h.maxLevel = level
	}
	return nil
}

// Remove tombstones id so it is excluded from future search results and
// GetVector lookups. The graph structure is left intact; Rebuild is
// required to reclaim the freed capacity.
func (h *HNSW) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx, ok := h.idMap[id]
	if !ok {
		return
	}
	nd := h.nodes[idx]
	if nd.tombstoned {
		return
	}
	nd.tombstoned = true
	delete(h.idMap, id)
	h.count--

	if h.entryID == int32(idx) {
		h.findNewEntryLocked()
	}
}

// GetVector returns the active vector stored under id, if any.
func (h *HNSW) GetVector(id string) ([]float32, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	idx, ok := h.idMap[id]
	if !ok {
		return nil, false
	}
	nd := h.nodes[idx]
	out := make([]float32, len(nd.vector))
	copy(out, nd.vector)
	return out, true
}

// FilterFunc reports whether id should be eligible for inclusion in a
// Search result. It is consulted during candidate evaluation, not as a
// post-filter, so callers get k results (or fewer, if too few pass) in a
// single pass.
type FilterFunc func(id string) bool

// Search returns up to k nearest neighbors of query, ascending by distance.
// filter, if non-nil, excludes ineligible candidates from the result set
// while still allowing the graph walk to traverse through them.
func (h *HNSW) Search(query []float32, k int, filter FilterFunc) ([]Match, error) {
	if len(query) != h.cfg.Dim {
		return nil, types.InvalidInput("query", "dimension does not match the index's configured dimensionality")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 || k <= 0 || h.entryID < 0 {
		return nil, nil
	}

	ef := h.cfg.EfSearch
	if ef < k {
		ef = k
	}

	cur := uint32(h.entryID)
	entry := h.activeOrAnyNode(cur)
	if entry == nil {
		return nil, nil
	}
	curDist := h.dist(query, entry.vector)

	for lev := h.maxLevel; lev > 0; lev-- {
		changed := true
		for changed {
			changed = false
			nd := h.nodeAt(cur)
			if nd == nil || lev >= len(nd.friends) {
				break
			}
			for _, fID := range nd.friends[lev] {
				fn := h.nodeAt(fID)
				if fn == nil {
					continue
				}
				d := h.dist(query, fn.vector)
				if d < curDist {
					cur, curDist = fID, d
					changed = true
				}
			}
		}
	}

	candidateIDs := h.searchLayer(query, []uint32{cur}, ef, 0, filter)

	type scored struct {
		id   string
		dist float32
	}
	results := make([]scored, 0, len(candidateIDs))
	for _, cID := range candidateIDs {
		nd := h.nodes[cID]
		if nd == nil || nd.tombstoned {
			continue
		}
		if filter != nil && !filter(nd.id) {
			continue
		}
		results = append(results, scored{id: nd.id, dist: h.dist(query, nd.vector)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].dist < results[j].dist })
	if len(results) > k {
		results = results[:k]
	}

	out := make([]Match, len(results))
	for i, r := range results {
		out[i] = Match{ID: r.id, Distance: r.dist}
	}
	return out, nil
}

// Rebuild reconstructs the graph from scratch using only active vectors,
// discarding tombstoned nodes and reclaiming their capacity. This is the
// ANN side of a compaction.
func (h *HNSW) Rebuild() {
	h.mu.Lock()
	ids := make([]string, 0, h.count)
	vecs := make([][]float32, 0, h.count)
	for _, nd := range h.nodes {
		if nd == nil || nd.tombstoned {
			continue
		}
		ids = append(ids, nd.id)
		vecs = append(vecs, nd.vector)
	}
	h.mu.Unlock()

	fresh := NewHNSW(h.cfg)
	for i, id := range ids {
		// Rebuild errors only on dimension mismatch, which cannot happen
		// for vectors that were already accepted by this same config.
		_ = fresh.Add(id, vecs[i])
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes = fresh.nodes
	h.idMap = fresh.idMap
	h.entryID = fresh.entryID
	h.maxLevel = fresh.maxLevel
	h.count = fresh.count
}

func (h *HNSW) randomLevel() int {
	r := math.Max(h.rng.Float64(), math.SmallestNonzeroFloat64)
	level := int(-math.Log(r) * h.levelMul)
	if level > 31 {
		level = 31
	}
	return level
}

// nodeAt returns the node at idx regardless of tombstone state, used while
// walking the graph structure itself.
func (h *HNSW) nodeAt(idx uint32) *hnswNode {
	if int(idx) >= len(h.nodes) {
		return nil
	}
	return h.nodes[idx]
}

// activeNode returns the node at idx only if it has not been tombstoned.
func (h *HNSW) activeNode(idx uint32) *hnswNode {
	nd := h.nodeAt(idx)
	if nd == nil || nd.tombstoned {
		return nil
	}
	return nd
}

// activeOrAnyNode prefers an active node but falls back to any node so a
// tombstoned entry point does not strand traversal before findNewEntry
// catches up.
func (h *HNSW) activeOrAnyNode(idx uint32) *hnswNode {
	return h.nodeAt(idx)
}

func (h *HNSW) searchLayer(query []float32, entryPoints []uint32, ef, layer int, filter FilterFunc) []uint32 {
	visited := make(map[uint32]struct{}, ef*2)
	var candidates minDistHeap
	var results maxDistHeap

	for _, ep := range entryPoints {
		nd := h.nodeAt(ep)
		if nd == nil {
			continue
		}
		visited[ep] = struct{}{}
		d := h.dist(query, nd.vector)
		heap.Push(&candidates, distItem{id: ep, dist: d})
		if !nd.tombstoned && (filter == nil || filter(nd.id)) {
			heap.Push(&results, distItem{id: ep, dist: d})
		}
	}

	for candidates.Len() > 0 {
		closest := heap.Pop(&candidates).(distItem)
		if results.Len() >= ef && closest.dist > results[0].dist {
			break
		}

		nd := h.nodeAt(closest.id)
		if nd == nil || layer >= len(nd.friends) {
			continue
		}
		for _, fID := range nd.friends[layer] {
			if _, seen := visited[fID]; seen {
				continue
			}
			visited[fID] = struct{}{}
			fn := h.nodeAt(fID)
			if fn == nil {
				continue
			}
			d := h.dist(query, fn.vector)
			eligible := !fn.tombstoned && (filter == nil || filter(fn.id))
			if results.Len() < ef || d < results[0].dist {
				heap.Push(&candidates, distItem{id: fID, dist: d})
				if eligible {
					heap.Push(&results, distItem{id: fID, dist: d})
					if results.Len() > ef {
						heap.Pop(&results)
					}
				}
			}
		}
	}

	out := make([]uint32, results.Len())
	for i := range out {
		out[i] = results[i].id
	}
	return out
}

func (h *HNSW) selectClosest(query []float32, candidates []uint32, maxN int) []uint32 {
	if len(candidates) <= maxN {
		out := make([]uint32, len(candidates))
		copy(out, candidates)
		return out
	}
	type scored struct {
		id   uint32
		dist float32
	}
	items := make([]scored, 0, len(candidates))
	for _, cID := range candidates {
		nd := h.nodeAt(cID)
		if nd == nil {
			continue
		}
		items = append(items, scored{id: cID, dist: h.dist(query, nd.vector)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].dist < items[j].dist })
	if len(items) > maxN {
		items = items[:maxN]
	}
	out := make([]uint32, len(items))
	for i := range items {
		out[i] = items[i].id
	}
	return out
}

// hardRemoveLocked fully unlinks idx from the graph, used when Add
// replaces an existing id outright rather than via Remove+Rebuild.
func (h *HNSW) hardRemoveLocked(idx uint32) {
	nd := h.nodes[idx]
	if nd == nil {
		return
	}
	for lev := 0; lev <= nd.level && lev < len(nd.friends); lev++ {
		for _, fID := range nd.friends[lev] {
			fn := h.nodes[fID]
			if fn == nil || lev >= len(fn.friends) {
				continue
			}
			fn.friends[lev] = removeUint32(fn.friends[lev], idx)
		}
	}
	if !nd.tombstoned {
		h.count--
	}
	delete(h.idMap, nd.id)
	h.nodes[idx] = nil
	if h.entryID == int32(idx) {
		h.findNewEntryLocked()
	}
}

func (h *HNSW) findNewEntryLocked() {
	if h.count == 0 {
		h.entryID = -1
		h.maxLevel = 0
		return
	}
	best := int32(-1)
	bestLevel := -1
	for i, nd := range h.nodes {
		if nd != nil && !nd.tombstoned && nd.level > bestLevel {
			best = int32(i)
			bestLevel = nd.level
		}
	}
	h.entryID = best
	if best >= 0 {
		h.maxLevel = bestLevel
	}
}

func removeUint32(s []uint32, val uint32) []uint32 {
	for i, v := range s {
		if v == val {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
