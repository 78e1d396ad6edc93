// Package query implements the engram query engine, the relationship
// query engine, and bounded graph traversal, all built on top of the
// secondary indexes in internal/index and the graph mirror in
// internal/graph.
package query

import "sort"

// candidatePair names one constraint's candidate id set, carried only so
// intersectCandidates can pick the smallest set as the intersection driver.
type candidatePair struct {
	name string
	ids  []string
}

// intersectCandidates returns the sorted intersection of every candidate
// set. It sorts sets by size and uses the smallest as the driver, checking
// driver membership against the rest via O(1) map lookups rather than
// repeated sorted merges.
func intersectCandidates(sets []candidatePair) []string {
	if len(sets) == 0 {
		return nil
	}
	sort.Slice(sets, func(i, j int) bool { return len(sets[i].ids) < len(sets[j].ids) })

	driver := sets[0].ids
	if len(sets) == 1 {
		out := append([]string(nil), driver...)
		sort.Strings(out)
		return out
	}

	memberships := make([]map[string]struct{}, len(sets)-1)
	for i, s := range sets[1:] {
		m := make(map[string]struct{}, len(s.ids))
		for _, id := range s.ids {
			m[id] = struct{}{}
		}
		memberships[i] = m
	}

	var out []string
driverLoop:
	for _, id := range driver {
		for _, m := range memberships {
			if _, ok := m[id]; !ok {
				continue driverLoop
			}
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
