package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeNodeGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph(nil)
	a := NewNode("A", "A")
	a.StrongAgainst = []string{"B"}
	require.Equal(t, 3, g.BuildFromNodes([]*Node{a, NewNode("B", "B"), NewNode("C", "C")}))
	return g
}

func TestEdge_UndirectedIDIsSymmetric(t *testing.T) {
	for _, kind := range []LinkageType{LinkageInteraction, LinkageCombination, LinkageAssociation} {
		t.Run(string(kind), func(t *testing.T) {
			ab := NewEdge("ProtossStalker", "TerranMarine", kind)
			ba := NewEdge("TerranMarine", "ProtossStalker", kind)

			assert.Equal(t, DirectionUndirected, ab.Direction)
			assert.Equal(t, ab.EdgeID, ba.EdgeID)
			assert.Equal(t, "ProtossStalker__"+string(kind)+"__TerranMarine", ab.EdgeID)
			assert.True(t, ab.Equal(ba))
			assert.Equal(t, ab.Key(), ba.Key())
		})
	}
}

func TestEdge_DirectedIDKeepsOrder(t *testing.T) {
	ab := NewEdge("Zealot", "Gateway", LinkageDependency)
	ba := NewEdge("Gateway", "Zealot", LinkageDependency)

	assert.Equal(t, DirectionDirected, ab.Direction)
	assert.Equal(t, "Zealot__dependency__Gateway", ab.EdgeID)
	assert.NotEqual(t, ab.EdgeID, ba.EdgeID)
	assert.False(t, ab.Equal(ba))
}

func TestEdge_WithDirectionRecomputesID(t *testing.T) {
	e := NewEdge("B", "A", LinkageInteraction)
	assert.Equal(t, "A__interaction__B", e.EdgeID)

	e.WithDirection(DirectionDirected)
	assert.Equal(t, "B__interaction__A", e.EdgeID)
}

func TestEdge_AddEvidenceDeduplicates(t *testing.T) {
	e := NewEdge("A", "B", LinkageInteraction)
	e.AddEvidence("strong_against: A counters B")
	e.AddEvidence("strong_against: A counters B")
	e.AddEvidence("")
	assert.Equal(t, []string{"strong_against: A counters B"}, e.Metadata.Evidence)
}

func TestGraph_AddNodeRejectsDuplicates(t *testing.T) {
	g := NewGraph(nil)
	assert.True(t, g.AddNode(NewNode("A", "A")))
	assert.False(t, g.AddNode(NewNode("A", "Other")))
	assert.False(t, g.AddNode(nil))

	n, ok := g.Node("A")
	require.True(t, ok)
	assert.Equal(t, "A", n.ClassName)
	assert.Equal(t, UnknownRace, n.Race)
	assert.Equal(t, AbstractUnit, n.UnitType)
}

func TestGraph_AddEdge(t *testing.T) {
	g := threeNodeGraph(t)

	t.Run("missing endpoint", func(t *testing.T) {
		assert.False(t, g.AddEdge(NewEdge("A", "Z", LinkageInteraction)))
		assert.False(t, g.AddEdge(NewEdge("Z", "A", LinkageInteraction)))
	})

	t.Run("duplicate id", func(t *testing.T) {
		require.True(t, g.AddEdge(NewEdge("A", "B", LinkageInteraction)))
		assert.False(t, g.AddEdge(NewEdge("B", "A", LinkageInteraction)))
	})

	t.Run("duplicate content with a different id", func(t *testing.T) {
		require.True(t, g.AddEdge(NewEdge("A", "C", LinkageDependency)))
		dup := NewEdge("A", "C", LinkageDependency)
		dup.EdgeID = "custom-id"
		assert.False(t, g.AddEdge(dup))
	})

	t.Run("indexes stay consistent", func(t *testing.T) {
		assert.Equal(t, 2, g.EdgeCount())
		assert.Equal(t, 2, g.Degree("A"))
		assert.Equal(t, 1, g.Degree("B"))
		assert.Equal(t, 1, g.Degree("C"))
		assert.Len(t, g.EdgesByType(LinkageInteraction), 1)
		assert.Len(t, g.EdgesByType(LinkageDependency), 1)
		assert.Len(t, g.Neighbors("A"), 2)
	})
}

func TestGraph_RemoveNodeCascades(t *testing.T) {
	g := threeNodeGraph(t)
	require.True(t, g.AddEdge(NewEdge("A", "B", LinkageInteraction)))
	require.True(t, g.AddEdge(NewEdge("B", "C", LinkageCombination)))
	require.True(t, g.AddEdge(NewEdge("A", "C", LinkageAssociation)))

	assert.True(t, g.RemoveNode("B"))
	assert.False(t, g.RemoveNode("B"))

	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Empty(t, g.EdgesByType(LinkageInteraction))
	assert.Empty(t, g.EdgesByType(LinkageCombination))
	assert.Equal(t, 1, g.Degree("A"))
	assert.Equal(t, 1, g.Degree("C"))
	assert.Equal(t, map[LinkageType]int{LinkageAssociation: 1}, g.LinkageSummary())

	// Content index must be cleared too, so the edge can be re-added.
	require.True(t, g.AddNode(NewNode("B", "B")))
	assert.True(t, g.AddEdge(NewEdge("A", "B", LinkageInteraction)))
}

func TestGraph_RemoveEdge(t *testing.T) {
	g := threeNodeGraph(t)
	e := NewEdge("A", "B", LinkageInteraction)
	require.True(t, g.AddEdge(e))

	assert.True(t, g.RemoveEdge(e.EdgeID))
	assert.False(t, g.RemoveEdge(e.EdgeID))
	_, ok := g.Edge(e.EdgeID)
	assert.False(t, ok)
	assert.Zero(t, g.Degree("A"))
	assert.Empty(t, g.LinkageSummary())
}

func TestGraph_FindPath(t *testing.T) {
	g := NewGraph(nil)
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		g.AddNode(NewNode(id, id))
	}
	g.AddEdge(NewEdge("A", "B", LinkageInteraction))
	g.AddEdge(NewEdge("B", "C", LinkageCombination))
	g.AddEdge(NewEdge("D", "C", LinkageDependency))

	t.Run("same node", func(t *testing.T) {
		path, ok := g.FindPath("A", "A", 10)
		assert.True(t, ok)
		assert.Empty(t, path)
	})

	t.Run("ignores direction", func(t *testing.T) {
		path, ok := g.FindPath("A", "D", 10)
		require.True(t, ok)
		require.Len(t, path, 3)
		assert.Equal(t, "A__interaction__B", path[0].EdgeID)
		assert.Equal(t, "B__combination__C", path[1].EdgeID)
		assert.Equal(t, "D__dependency__C", path[2].EdgeID)
	})

	t.Run("depth bound", func(t *testing.T) {
		_, ok := g.FindPath("A", "D", 2)
		assert.False(t, ok)
	})

	t.Run("unreachable and missing", func(t *testing.T) {
		_, ok := g.FindPath("A", "E", 10)
		assert.False(t, ok)
		_, ok = g.FindPath("A", "Z", 10)
		assert.False(t, ok)
	})
}

func TestGraph_Stats(t *testing.T) {
	g := threeNodeGraph(t)
	g.ExecuteFullTraversal()

	stats := g.Stats()
	assert.Equal(t, g.GraphID, stats.GraphID)
	assert.Equal(t, 3, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
	assert.Equal(t, map[string]int{"interaction": 1}, stats.LinkageSummary)
	assert.InDelta(t, 0.67, stats.AvgNodeDegree, 0.001)
	assert.True(t, stats.IsTraversalComplete)
	assert.Equal(t, "PHASE_5_INVOCATION", stats.CurrentPhase)
	assert.Equal(t, 1, stats.PhaseStats["PHASE_1_INTERACTION"])
	assert.Equal(t, 0, stats.PhaseStats["PHASE_5_INVOCATION"])
}
