package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protossRoster() []*Node {
	zealot := NewNode("ProtossZealot", "Zealot")
	zealot.Race = "Protoss"
	zealot.StrongAgainst = []string{"Zergling"}
	zealot.Abilities = map[string]Ability{"charge": {Name: "Charge"}}
	zealot.LLMInterface["primary_role"] = []any{"前线", "肉盾"}
	zealot.LLMInterface["tactical_keywords"] = []any{"melee", "frontline", "charge"}

	stalker := NewNode("ProtossStalker", "Stalker")
	stalker.Race = "Protoss"
	stalker.TacticalContext["synergies"] = []any{"Sentry force fields"}
	stalker.LLMInterface["primary_role"] = []any{"后排", "输出"}
	stalker.LLMInterface["tactical_keywords"] = []any{"ranged", "frontline", "charge"}
	stalker.Upgrades = map[string]Upgrade{"blink_research": {Name: "Blink", ResearchedFrom: "Twilight Council"}}
	stalker.Methods = []NodeMethod{{
		Name:       "engage_at_range",
		ReturnType: "dict",
		Parameters: []MethodParam{{Name: "target", Type: "Zergling"}},
	}}

	sentry := NewNode("ProtossSentry", "Sentry")
	sentry.Race = "Protoss"

	gateway := NewNode("ProtossGateway", "Gateway")
	gateway.Race = "Protoss"

	council := NewNode("ProtossTwilightCouncil", "TwilightCouncil")
	council.Race = "Protoss"

	zergling := NewNode("ZergZergling", "Zergling")
	zergling.Race = "Zerg"

	return []*Node{zealot, stalker, sentry, gateway, council, zergling}
}

func edgeIDs(edges []*Edge) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.EdgeID)
	}
	return out
}

func TestStrategy_NextPhaseOrder(t *testing.T) {
	s := NewStrategy()
	var seen []Phase
	p := PhaseNone
	for {
		next, ok := s.NextPhase(p)
		if !ok {
			break
		}
		seen = append(seen, next)
		p = next
	}
	assert.Equal(t, []Phase{PhaseInteraction, PhaseCombination, PhaseAssociation, PhaseDependency, PhaseInvocation}, seen)
}

func TestTraversal_ThreeNodeScenario(t *testing.T) {
	g := threeNodeGraph(t)

	first := g.ExecuteSingleTraversalPhase()
	require.Len(t, first, 1)
	edge := first[0]
	assert.Equal(t, LinkageInteraction, edge.LinkageType)
	assert.Equal(t, "A__interaction__B", edge.EdgeID)
	assert.Equal(t, int(PhaseInteraction), edge.Metadata.DiscoveredInRound)
	require.NotEmpty(t, edge.Metadata.Evidence)
	assert.Contains(t, edge.Metadata.Evidence[0], "strong_against")

	for i := 0; i < 4; i++ {
		assert.Empty(t, g.ExecuteSingleTraversalPhase())
	}
	assert.False(t, g.TraversalComplete())

	assert.Empty(t, g.ExecuteSingleTraversalPhase())
	assert.True(t, g.TraversalComplete())
	assert.Equal(t, 1, g.Stats().EdgeCount)
}

func TestTraversal_Deterministic(t *testing.T) {
	run := func() map[Phase][]string {
		g := NewGraph(nil)
		g.BuildFromNodes(protossRoster())
		out := make(map[Phase][]string)
		for phase, edges := range g.ExecuteFullTraversal() {
			out[phase] = edgeIDs(edges)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestTraversal_PhaseHeuristics(t *testing.T) {
	g := NewGraph(nil)
	g.BuildFromNodes(protossRoster())
	history := g.ExecuteFullTraversal()

	t.Run("interaction from counters", func(t *testing.T) {
		assert.Contains(t, edgeIDs(history[PhaseInteraction]), "ProtossZealot__interaction__ZergZergling")
	})

	t.Run("combination from roles and keywords", func(t *testing.T) {
		ids := edgeIDs(history[PhaseCombination])
		assert.Contains(t, ids, "ProtossStalker__combination__ProtossZealot")
		assert.Contains(t, ids, "ProtossSentry__combination__ProtossStalker")
	})

	t.Run("dependency on facilities and research", func(t *testing.T) {
		ids := edgeIDs(history[PhaseDependency])
		assert.Contains(t, ids, "ProtossZealot__dependency__ProtossGateway")
		assert.Contains(t, ids, "ProtossStalker__dependency__ProtossGateway")
		assert.Contains(t, ids, "ProtossSentry__dependency__ProtossGateway")
		assert.Contains(t, ids, "ProtossStalker__dependency__ProtossTwilightCouncil")
		assert.Contains(t, ids, "ProtossZealot__dependency__ProtossTwilightCouncil")
		for _, e := range history[PhaseDependency] {
			assert.Equal(t, DirectionDirected, e.Direction)
		}
	})

	t.Run("invocation from authored methods", func(t *testing.T) {
		var found *Edge
		for _, e := range history[PhaseInvocation] {
			if e.EdgeID == "ProtossStalker__invocation__ZergZergling" {
				found = e
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, "engage_at_range", found.SourceMethod)
		assert.InDelta(t, 0.85, found.Metadata.Confidence, 1e-9)
	})

	t.Run("every edge is tagged with its phase", func(t *testing.T) {
		for phase, edges := range history {
			for _, e := range edges {
				assert.Equal(t, int(phase), e.Metadata.DiscoveredInRound)
				assert.Equal(t, phase.LinkageType(), e.LinkageType)
			}
		}
	})
}

func TestTraversal_RoleGroupCap(t *testing.T) {
	g := NewGraph(nil)
	for _, id := range []string{"U1", "U2", "U3", "U4", "U5", "U6", "U7"} {
		n := NewNode(id, id)
		n.LLMInterface["primary_role"] = []any{"support"}
		g.AddNode(n)
	}
	var association []*Edge
	for g.CurrentPhase() != PhaseAssociation {
		association = g.ExecuteSingleTraversalPhase()
	}

	// Five members linked pairwise: C(5,2).
	assert.Len(t, association, 10)
	for _, e := range association {
		assert.False(t, strings.Contains(e.EdgeID, "U6") || strings.Contains(e.EdgeID, "U7"))
	}
}

func TestTraversal_EmptyDescriptionNeverMatches(t *testing.T) {
	g := NewGraph(nil)
	a := NewNode("A", "Alpha")
	a.TacticalContext["synergies"] = []any{"anything at all"}
	g.AddNode(a)
	g.AddNode(NewNode("B", "Beta"))

	assert.Empty(t, g.ExecuteSingleTraversalPhase())
}
