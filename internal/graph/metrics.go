package graph

import "math"

type GraphStats struct {
	GraphID             string         `json:"graph_id"`
	NodeCount           int            `json:"node_count"`
	EdgeCount           int            `json:"edge_count"`
	LinkageSummary      map[string]int `json:"linkage_summary"`
	AvgNodeDegree       float64        `json:"avg_node_degree"`
	IsTraversalComplete bool           `json:"is_traversal_complete"`
	CurrentPhase        string         `json:"current_phase,omitempty"`
	PhaseStats          map[string]int `json:"phase_stats,omitempty"`
}

// LinkageSummary counts inserted edges per linkage type.
func (g *Graph) LinkageSummary() map[LinkageType]int {
	counts := make(map[LinkageType]int)
	if g == nil {
		return counts
	}
	for kind, ids := range g.typeIndex {
		if len(ids) > 0 {
			counts[kind] = len(ids)
		}
	}
	return counts
}

func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		GraphID:             g.GraphID,
		NodeCount:           len(g.nodes),
		EdgeCount:           len(g.edges),
		LinkageSummary:      make(map[string]int),
		IsTraversalComplete: g.traversalComplete,
	}
	for kind, n := range g.LinkageSummary() {
		stats.LinkageSummary[string(kind)] = n
	}
	if g.currentPhase != PhaseNone {
		stats.CurrentPhase = g.currentPhase.String()
	}
	if len(g.nodes) > 0 {
		total := 0
		for id := range g.nodes {
			total += g.Degree(id)
		}
		stats.AvgNodeDegree = math.Round(float64(total)/float64(len(g.nodes))*100) / 100
	}
	if len(g.history) > 0 {
		stats.PhaseStats = make(map[string]int, len(g.history))
		for phase, edges := range g.history {
			stats.PhaseStats[phase.String()] = len(edges)
		}
	}
	return stats
}
