package unitdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sc2affordance/internal/graph"
)

func findMethod(n *graph.Node, name string) (graph.NodeMethod, bool) {
	for _, m := range n.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return graph.NodeMethod{}, false
}

func TestToNode(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stalker.yaml", stalkerYAML)
	defs, err := NewLoader(nil, true).LoadFile(path)
	require.NoError(t, err)

	n := ToNode(defs[0])
	assert.Equal(t, "ProtossStalker", n.NodeID)
	assert.Equal(t, "Stalker", n.ClassName)
	assert.Equal(t, "Protoss", n.Race)
	assert.Equal(t, "Protoss Unit", n.UnitType)
	assert.Equal(t, []string{"Unit", "StandardUnit", "ProtossUnit", "GroundUnit", "MechanicalUnit", "ProtossStalker"}, n.InheritanceChain)
	assert.Equal(t, 6, n.InheritanceDepth)
	assert.Equal(t, "MechanicalUnit", n.ParentClass)
	assert.Equal(t, []string{"Zergling"}, n.StrongAgainst)

	moveTo, ok := findMethod(n, "move_to")
	require.True(t, ok)
	assert.True(t, moveTo.IsOverridden)
	_, ok = findMethod(n, "warp_in")
	assert.True(t, ok)
	blink, ok := findMethod(n, "blink_to")
	require.True(t, ok)
	assert.Equal(t, "None", blink.ReturnType)
	assert.Equal(t, "Zergling", blink.Parameters[0].Type)

	names := make([]string, len(n.Attributes))
	for i, a := range n.Attributes {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"health", "armor", "speed", "mineral_cost", "vespene_cost", "supply", "shield"}, names)
}

func TestToNode_UnknownRaceKeepsDefaults(t *testing.T) {
	n := ToNode(Default("Probe"))
	assert.Equal(t, graph.UnknownRace, n.Race)
	assert.Equal(t, graph.AbstractUnit, n.UnitType)
	assert.Equal(t, []string{"Unit", "StandardUnit", "Probe"}, n.InheritanceChain)
	assert.NotNil(t, n.LLMInterface)
}

func TestNodes_FeedTraversal(t *testing.T) {
	defs, err := NewLoader(nil, true).LoadDir("../../data/units")
	require.NoError(t, err)

	g := graph.NewGraph(nil)
	require.Equal(t, len(defs), g.BuildFromNodes(Nodes(defs)))
	g.ExecuteFullTraversal()
	assert.True(t, g.TraversalComplete())

	summary := g.LinkageSummary()
	assert.Positive(t, summary[graph.LinkageInteraction])
	assert.Positive(t, summary[graph.LinkageInvocation])
}
