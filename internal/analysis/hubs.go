package analysis

import (
	"sort"

	"sc2affordance/internal/graph"
)

// Hub is a unit ranked by how many linkages touch it.
type Hub struct {
	Node   *graph.Node
	Degree int
	ByType map[graph.LinkageType]int
}

// Hubs returns the n most connected units, ties broken by id. n <= 0
// returns every unit.
func (a *Analyzer) Hubs(n int) []Hub {
	var out []Hub
	for _, node := range a.g.Nodes() {
		h := Hub{Node: node, ByType: make(map[graph.LinkageType]int)}
		for _, e := range a.g.EdgesForNode(node.NodeID) {
			h.Degree++
			h.ByType[e.LinkageType]++
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].Node.NodeID < out[j].Node.NodeID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
