package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sc2affordance/internal/graph"
)

func raceNode(id, class, race string) *graph.Node {
	n := graph.NewNode(id, class)
	n.Race = race
	return n
}

func linkage(src, dst string, kind graph.LinkageType, confidence float64) *graph.Edge {
	e := graph.NewEdge(src, dst, kind)
	e.Metadata.Confidence = confidence
	return e
}

func TestGenerateLinkageDiagram(t *testing.T) {
	nodes := []*graph.Node{
		raceNode("TerranMarine", "Marine", "Terran"),
		raceNode("TerranMedivac", "Medivac", "Terran"),
		raceNode("ZergZergling", "Zergling", "Zerg"),
	}
	edges := []*graph.Edge{
		linkage("TerranMarine", "TerranMedivac", graph.LinkageCombination, 0.9),
		linkage("TerranMarine", "ZergZergling", graph.LinkageInteraction, 0.5),
		linkage("TerranMedivac", "TerranMarine", graph.LinkageInvocation, 0.7),
	}

	out := (&MermaidGenerator{}).GenerateLinkageDiagram(nodes, edges, 0)

	assert.True(t, strings.HasPrefix(out, "```mermaid\ngraph LR\n"))
	assert.Contains(t, out, `subgraph race_terran["Terran"]`)
	assert.Contains(t, out, `subgraph race_zerg["Zerg"]`)
	assert.Contains(t, out, `terranmarine["Marine"]`)
	assert.Contains(t, out, "terranmarine ---|combination| terranmedivac")
	assert.Contains(t, out, "terranmedivac -->|invocation| terranmarine")
	assert.Less(t, strings.Index(out, "race_terran"), strings.Index(out, "race_zerg"))
}

func TestGenerateLinkageDiagram_KeepsStrongestEdges(t *testing.T) {
	edges := []*graph.Edge{
		linkage("A", "B", graph.LinkageCombination, 0.2),
		linkage("A", "C", graph.LinkageCombination, 0.9),
		linkage("B", "C", graph.LinkageCombination, 0.6),
	}
	kept := strongestEdges(edges, 2)
	require.Len(t, kept, 2)
	assert.Equal(t, "A__combination__C", kept[0].EdgeID)
	assert.Equal(t, "B__combination__C", kept[1].EdgeID)

	// input order is left alone
	assert.Equal(t, 0.2, edges[0].Metadata.Confidence)
	assert.Len(t, strongestEdges(edges, 0), 3)
}

func TestGenerateLinkageSummary(t *testing.T) {
	out := (&MermaidGenerator{}).GenerateLinkageSummary(map[graph.LinkageType]int{
		graph.LinkageCombination: 4,
		graph.LinkageInteraction: 2,
		graph.LinkageDependency:  0,
	})
	assert.Contains(t, out, "pie title Linkage types")
	assert.Contains(t, out, `"combination" : 4`)
	assert.Contains(t, out, `"interaction" : 2`)
	assert.NotContains(t, out, "dependency")
}

func TestSanitizeMermaidID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"TerranMarine", "terranmarine"},
		{"Siege Tank", "siege_tank"},
		{"hellion-hellbat", "hellion_hellbat"},
		{"3rd", "n_3rd"},
		{"  ", "node"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeMermaidID(tt.in))
		})
	}
}
