package generator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"sc2affordance/internal/graph"
)

// DefaultMaxEdges keeps diagrams readable for full race graphs.
const DefaultMaxEdges = 60

// MermaidGenerator renders linkage graphs as Mermaid diagrams.
type MermaidGenerator struct{}

// GenerateLinkageDiagram draws units grouped by race and their linkages.
// Directed linkages use arrows. When there are more than maxEdges edges the
// most confident ones are kept; maxEdges <= 0 keeps them all.
func (m *MermaidGenerator) GenerateLinkageDiagram(nodes []*graph.Node, edges []*graph.Edge, maxEdges int) string {
	edges = strongestEdges(edges, maxEdges)

	byRace := make(map[string][]*graph.Node)
	for _, n := range nodes {
		byRace[n.Race] = append(byRace[n.Race], n)
	}
	races := make([]string, 0, len(byRace))
	for r := range byRace {
		races = append(races, r)
	}
	sort.Strings(races)

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph LR\n")
	for _, race := range races {
		members := byRace[race]
		sort.Slice(members, func(i, j int) bool { return members[i].NodeID < members[j].NodeID })
		fmt.Fprintf(&sb, "    subgraph %s[%q]\n", sanitizeMermaidID("race_"+race), race)
		for _, n := range members {
			fmt.Fprintf(&sb, "        %s[%q]\n", sanitizeMermaidID(n.NodeID), n.ClassName)
		}
		sb.WriteString("    end\n")
	}
	for _, e := range edges {
		arrow := "---"
		if e.Direction == graph.DirectionDirected {
			arrow = "-->"
		}
		fmt.Fprintf(&sb, "    %s %s|%s| %s\n",
			sanitizeMermaidID(e.SourceNodeID), arrow, e.LinkageType, sanitizeMermaidID(e.TargetNodeID))
	}
	sb.WriteString("```\n")
	return sb.String()
}

// GenerateLinkageSummary draws the edge count per linkage type as a pie.
func (m *MermaidGenerator) GenerateLinkageSummary(summary map[graph.LinkageType]int) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("pie title Linkage types\n")
	for _, kind := range graph.LinkageTypes {
		if n := summary[kind]; n > 0 {
			fmt.Fprintf(&sb, "    %q : %d\n", string(kind), n)
		}
	}
	sb.WriteString("```\n")
	return sb.String()
}

// strongestEdges keeps the limit most confident edges, ties by id, and
// returns them in id order.
func strongestEdges(edges []*graph.Edge, limit int) []*graph.Edge {
	out := append([]*graph.Edge(nil), edges...)
	if limit > 0 && len(out) > limit {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Metadata.Confidence == out[j].Metadata.Confidence {
				return out[i].EdgeID < out[j].EdgeID
			}
			return out[i].Metadata.Confidence > out[j].Metadata.Confidence
		})
		out = out[:limit]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EdgeID < out[j].EdgeID })
	return out
}

var mermaidUnsafe = regexp.MustCompile(`[^a-z0-9_]`)

func sanitizeMermaidID(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "node"
	}
	v = mermaidUnsafe.ReplaceAllString(strings.ReplaceAll(v, "-", "_"), "_")
	if v[0] >= '0' && v[0] <= '9' {
		v = "n_" + v
	}
	return v
}
