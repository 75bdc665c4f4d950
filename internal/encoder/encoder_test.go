package encoder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sc2affordance/internal/graph"
	"sc2affordance/internal/prefab"
)

func linkedGraph(t *testing.T, kind graph.LinkageType, pairs ...[2]string) *graph.Graph {
	t.Helper()
	g := graph.NewGraph(nil)
	for _, p := range pairs {
		for _, id := range p {
			if _, ok := g.Node(id); !ok {
				require.True(t, g.AddNode(graph.NewNode(id, id)))
			}
		}
		require.True(t, g.AddEdge(graph.NewEdge(p[0], p[1], kind)))
	}
	return g
}

func TestMaximalCliques_TriangleWithTail(t *testing.T) {
	g := linkedGraph(t, graph.LinkageCombination,
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"A", "C"}, [2]string{"C", "D"})

	assert.Equal(t, [][]string{{"A", "B", "C"}, {"C", "D"}}, MaximalCliques(g, graph.LinkageCombination))
	assert.Empty(t, MaximalCliques(g, graph.LinkageAssociation))
}

func TestMaximalCliques_SeparateComponents(t *testing.T) {
	g := linkedGraph(t, graph.LinkageAssociation,
		[2]string{"Zealot", "Stalker"}, [2]string{"Marine", "Marauder"})

	assert.Equal(t, [][]string{{"Marauder", "Marine"}, {"Stalker", "Zealot"}},
		MaximalCliques(g, graph.LinkageAssociation))
}

func TestMaximalCliques_DirectedEdgesProjectUndirected(t *testing.T) {
	g := linkedGraph(t, graph.LinkageDependency,
		[2]string{"Gateway", "Stalker"}, [2]string{"Stalker", "Gateway"}, [2]string{"Gateway", "Zealot"})

	assert.Equal(t, [][]string{{"Gateway", "Stalker"}, {"Gateway", "Zealot"}},
		MaximalCliques(g, graph.LinkageDependency))
}

func TestEncode_Interaction(t *testing.T) {
	g := graph.NewGraph(nil)
	require.True(t, g.AddNode(graph.NewNode("ProtossStalker", "Stalker")))
	require.True(t, g.AddNode(graph.NewNode("TerranMarine", "Marine")))
	edge := graph.NewEdge("ProtossStalker", "TerranMarine", graph.LinkageInteraction)
	edge.Metadata.Confidence = 0.7
	edge.AddEvidence("Stalker strong against Marine")
	require.True(t, g.AddEdge(edge))

	fns := New(nil).Encode(g)
	require.Len(t, fns, 1)
	fn := fns[0]
	assert.Equal(t, "INTERACTION_0", fn.FunctionID)
	assert.Equal(t, "target_Stalker_on_Marine", fn.Name)
	assert.Equal(t, prefab.CategoryTargeting, fn.TacticCategory)
	assert.Equal(t, "target_setting", fn.ExecutionType)
	assert.Equal(t, "Stalker", fn.SourceUnit)
	assert.Equal(t, "Marine", fn.TargetUnit)
	assert.Equal(t, []string{"set_target(Stalker, target_unit_tag)"}, fn.ExecutionFlow)
	assert.Equal(t, []string{"Stalker strong against Marine"}, fn.Evidence)
	assert.Equal(t, 0.7, fn.Confidence)
	require.Len(t, fn.Parameters, 1)
	assert.Equal(t, "valid_enemy_tags", fn.Parameters[0].Domain)
}

func TestEncode_GlobalCounterAndTemplates(t *testing.T) {
	g := linkedGraph(t, graph.LinkageCombination,
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"A", "C"}, [2]string{"C", "D"})
	require.True(t, g.AddEdge(graph.NewEdge("A", "D", graph.LinkageInteraction)))
	require.True(t, g.AddEdge(graph.NewEdge("B", "D", graph.LinkageDependency)))

	fns := New(nil).Encode(g)
	ids := make([]string, len(fns))
	for i, fn := range fns {
		ids[i] = fn.FunctionID
	}
	assert.Equal(t, []string{"INTERACTION_0", "COMBINATION_1", "COMBINATION_2", "DEPENDENCY_3"}, ids)

	scouting := fns[1]
	assert.Equal(t, "coordinated_scouting_A_B_C", scouting.Name)
	assert.Equal(t, []string{"A", "B", "C"}, scouting.Units)
	assert.Equal(t, "concurrent", scouting.ExecutionType)
	assert.Equal(t, "scouting", scouting.TacticCategory)
	assert.Equal(t, 0.85, scouting.Confidence)
	assert.Equal(t, []string{"concurrent_execute([A.execute(), B.execute(), C.execute()])"}, scouting.ExecutionFlow)
	assert.Equal(t, []string{"based on COMBINATION maximal clique detection"}, scouting.Evidence)

	deploy := fns[3]
	assert.Equal(t, "strategic_deployment_B_D", deploy.Name)
	assert.Equal(t, 0.95, deploy.Confidence)
	assert.Equal(t, []string{"sequential_execute([B.execute({resource_allocation}), D.execute({resource_allocation})])"},
		deploy.ExecutionFlow)
	assert.Equal(t, "Dict[str, int]", deploy.Parameters[0].Type)
}

func TestEncode_OutputPassesSchema(t *testing.T) {
	g := linkedGraph(t, graph.LinkageAssociation, [2]string{"Zealot", "Stalker"})
	enc := New(nil)
	fns := enc.Encode(g)
	require.Len(t, fns, 1)
	assert.Equal(t, "frontline_combat_group_Stalker_Zealot", fns[0].Name)

	path := filepath.Join(t.TempDir(), "out", "protoss_prefab_functions.json")
	require.NoError(t, enc.Save(path, fns))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "ASSOCIATION_0", records[0]["function_id"])

	v, err := prefab.NewValidator("")
	require.NoError(t, err)
	assert.NoError(t, v.ValidateRaw(records[0]))

	m := prefab.NewManager(nil)
	n, err := m.Load(path, prefab.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
