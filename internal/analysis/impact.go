package analysis

import (
	"fmt"
	"sort"

	"sc2affordance/internal/graph"
)

// ImpactReport summarizes the units affected when some units are lost.
type ImpactReport struct {
	DirectlyAffected   []*graph.Node
	IndirectlyAffected []*graph.Node
}

// Analyzer performs impact analysis on the linkage graph.
type Analyzer struct {
	g *graph.Graph
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(g *graph.Graph) *Analyzer {
	return &Analyzer{g: g}
}

// Dependents returns the nodes with a directed edge into id: units that
// depend on it or invoke it.
func (a *Analyzer) Dependents(id string) []*graph.Node {
	var out []*graph.Node
	seen := make(map[string]bool)
	for _, e := range a.g.EdgesForNode(id) {
		if e.Direction != graph.DirectionDirected || e.TargetNodeID != id || seen[e.SourceNodeID] {
			continue
		}
		if n, ok := a.g.Node(e.SourceNodeID); ok {
			seen[n.NodeID] = true
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// AnalyzeImpact identifies which units lose support when the given units
// are gone. Indirect impact follows dependents transitively.
func (a *Analyzer) AnalyzeImpact(ids []string) (*ImpactReport, error) {
	report := &ImpactReport{
		DirectlyAffected:   []*graph.Node{},
		IndirectlyAffected: []*graph.Node{},
	}

	seenDirect := make(map[string]bool)
	seenIndirect := make(map[string]bool)

	// 1. Find Direct Impacts
	for _, id := range ids {
		node, ok := a.g.Node(id)
		if !ok {
			return nil, fmt.Errorf("unknown unit %q", id)
		}
		if !seenDirect[id] {
			report.DirectlyAffected = append(report.DirectlyAffected, node)
			seenDirect[id] = true
		}
	}

	// 2. Find Indirect Impacts (Dependents)
	queue := append([]*graph.Node(nil), report.DirectlyAffected...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range a.Dependents(cur.NodeID) {
			if !seenDirect[dep.NodeID] && !seenIndirect[dep.NodeID] {
				report.IndirectlyAffected = append(report.IndirectlyAffected, dep)
				seenIndirect[dep.NodeID] = true
				queue = append(queue, dep)
			}
		}
	}

	return report, nil
}
