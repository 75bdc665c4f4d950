package prefab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sc2affordance/internal/gamestate"
)

const libraryJSON = `[
  {
    "function_id": "INTERACTION_1",
    "function_type": "interaction",
    "linkage_type": "interaction",
    "name": "target_ProtossStalker_on_ZergZergling",
    "description": "Stalkers focus Zerglings",
    "tactic_category": "targeting",
    "source_unit": "ProtossStalker",
    "target_unit": "ZergZergling",
    "execution_type": "target_setting",
    "parameters": [{"name": "target_unit_tag", "type": "int", "description": "enemy tag", "domain": "valid_enemy_tags"}],
    "execution_flow": ["set_target(ProtossStalker, target_unit_tag)"],
    "confidence": 0.85
  },
  {
    "function_id": "COMBINATION_2",
    "function_type": "combination",
    "linkage_type": "combination",
    "name": "coordinated_scouting_Sentry_Stalker",
    "description": "Scout together",
    "tactic_category": "scouting",
    "units": ["Sentry", "Stalker"],
    "execution_type": "concurrent",
    "parameters": [{"name": "target_area", "type": "str", "description": "area", "domain": ["enemy_base", "expansion"]}],
    "execution_flow": ["concurrent_execute([Sentry.execute(), Stalker.execute()])"],
    "applicable_maps": ["Simple64"]
  },
  {
    "function_id": "TERRAN_MM_PUSH",
    "function_type": "combination",
    "linkage_type": "combination",
    "name": "mm_push",
    "description": "Marine Marauder push",
    "tactic_category": "offense",
    "units": ["Marine", "Marauder"],
    "execution_type": "concurrent",
    "parameters": [],
    "execution_flow": ["push()"],
    "confidence": 0.9
  },
  {
    "function_id": "BROKEN_CONFIDENCE",
    "function_type": "interaction",
    "linkage_type": "interaction",
    "name": "broken",
    "description": "out of range",
    "execution_type": "target_setting",
    "parameters": [],
    "execution_flow": [],
    "confidence": 2.5
  },
  {
    "function_type": "interaction",
    "name": "no id",
    "execution_type": "target_setting"
  }
]`

func writeLibrary(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protoss_prefab_functions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadedManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	m := NewManager(nil, opts...)
	n, err := m.Load(writeLibrary(t, libraryJSON), LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return m
}

func TestManager_LoadSkipsInvalidRecords(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := NewManager(zap.New(core))

	n, err := m.Load(writeLibrary(t, libraryJSON), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, ok := m.Get("BROKEN_CONFIDENCE")
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("skipping prefab function that failed validation").Len())
	assert.Equal(t, 1, logs.FilterMessage("skipping prefab function without function_id").Len())

	combo, ok := m.Get("COMBINATION_2")
	require.True(t, ok)
	assert.Equal(t, DefaultConfidence, combo.Confidence)
	assert.Equal(t, []any{"enemy_base", "expansion"}, combo.Parameters[0].Domain)
}

func TestManager_LoadFilters(t *testing.T) {
	path := writeLibrary(t, libraryJSON)

	t.Run("race", func(t *testing.T) {
		m := NewManager(nil)
		n, err := m.Load(path, LoadOptions{Race: "terran"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, ok := m.Get("TERRAN_MM_PUSH")
		assert.True(t, ok)
	})

	t.Run("map", func(t *testing.T) {
		m := NewManager(nil)
		n, err := m.Load(path, LoadOptions{MapName: "Acropolis"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		_, ok := m.Get("COMBINATION_2")
		assert.False(t, ok)
	})

	t.Run("merge keeps earlier functions", func(t *testing.T) {
		m := NewManager(nil)
		_, err := m.Load(path, LoadOptions{Race: "terran"})
		require.NoError(t, err)
		_, err = m.Load(path, LoadOptions{Race: "protoss", Merge: true})
		require.NoError(t, err)
		assert.Equal(t, 2, m.Count())

		_, err = m.Load(path, LoadOptions{Race: "protoss"})
		require.NoError(t, err)
		assert.Equal(t, 1, m.Count())
	})

	t.Run("read and decode errors", func(t *testing.T) {
		m := NewManager(nil)
		_, err := m.Load(filepath.Join(t.TempDir(), "missing.json"), LoadOptions{})
		assert.Error(t, err)
		_, err = m.Load(writeLibrary(t, `{"not": "an array"}`), LoadOptions{})
		assert.Error(t, err)
	})
}

func TestManager_Indexes(t *testing.T) {
	m := loadedManager(t)

	assert.Len(t, m.ByType(TypeCombination), 2)
	assert.Len(t, m.ByUnit("ProtossStalker"), 1)
	assert.Len(t, m.ByUnit("ZergZergling"), 1)
	assert.Len(t, m.ByExecutionType("concurrent"), 2)
	assert.Len(t, m.ByCategory(CategoryTargeting), 1)

	ids := func(fns []*Function) []string {
		var out []string
		for _, fn := range fns {
			out = append(out, fn.FunctionID)
		}
		return out
	}
	assert.Equal(t, []string{"COMBINATION_2", "TERRAN_MM_PUSH"}, ids(m.Search(Filter{ExecutionType: "concurrent"})))
	assert.Equal(t, []string{"TERRAN_MM_PUSH"}, ids(m.Search(Filter{ExecutionType: "concurrent", Keyword: "MARAUDER"})))
	assert.Empty(t, m.Search(Filter{FunctionType: TypeInteraction, Unit: "Marine"}))
	assert.Equal(t, []string{"TERRAN_MM_PUSH"}, ids(m.RaceFunctions("terran")))
	assert.Equal(t, []string{"INTERACTION_1", "TERRAN_MM_PUSH"}, ids(m.MapFunctions("Acropolis")))
}

func TestManager_AddAndRemove(t *testing.T) {
	m := loadedManager(t)

	replacement := &Function{
		FunctionID:    "INTERACTION_1",
		FunctionType:  TypeInteraction,
		Name:          "target_ProtossZealot_on_ZergZergling",
		Description:   "Zealots focus Zerglings",
		SourceUnit:    "ProtossZealot",
		TargetUnit:    "ZergZergling",
		ExecutionType: "target_setting",
		Confidence:    0.8,
	}
	require.True(t, m.Add(replacement))
	assert.Equal(t, 3, m.Count())
	assert.Empty(t, m.ByUnit("ProtossStalker"))
	assert.Len(t, m.ByUnit("ProtossZealot"), 1)
	assert.Equal(t, TypeInteraction, replacement.LinkageType)

	assert.False(t, m.Add(&Function{FunctionID: "BAD", FunctionType: TypeInteraction, Name: "bad", ExecutionType: "x", Confidence: -1}))
	assert.False(t, m.Add(&Function{}))

	assert.True(t, m.Remove("INTERACTION_1"))
	assert.False(t, m.Remove("INTERACTION_1"))
	assert.Empty(t, m.ByCategory(CategoryTargeting))
	assert.Equal(t, 2, m.Count())
}

func TestManager_UpdateScoreClamps(t *testing.T) {
	m := loadedManager(t)

	for i := 0; i < 5; i++ {
		require.True(t, m.UpdateScore("TERRAN_MM_PUSH", true))
	}
	fn, _ := m.Get("TERRAN_MM_PUSH")
	assert.Equal(t, MaxConfidence, fn.Confidence)
	assert.Equal(t, 5, fn.UsageCount)
	require.NotNil(t, fn.SuccessRate)
	assert.InDelta(t, 1.0, *fn.SuccessRate, 1e-9)

	require.True(t, m.UpdateScore("TERRAN_MM_PUSH", false))
	assert.InDelta(t, 5.0/6.0, *fn.SuccessRate, 1e-9)
	assert.InDelta(t, 0.95, fn.Confidence, 1e-9)

	for i := 0; i < 30; i++ {
		m.UpdateScore("TERRAN_MM_PUSH", false)
	}
	assert.Equal(t, MinConfidence, fn.Confidence)
	assert.False(t, m.UpdateScore("NOPE", true))

	got, ok := m.SetConfidence("TERRAN_MM_PUSH", 3)
	assert.True(t, ok)
	assert.Equal(t, MaxConfidence, got)
}

func TestManager_ConsistencyAndParameters(t *testing.T) {
	m := loadedManager(t)
	require.True(t, m.Add(&Function{
		FunctionID:    "ASSOCIATION_9",
		FunctionType:  TypeAssociation,
		Name:          "frontline_combat_group_Zealot",
		Description:   "group",
		ExecutionType: "parallel",
		Parameters:    []Parameter{{Name: "operation_type", Type: "str"}},
		Confidence:    0.8,
	}))

	assert.Equal(t, []string{"ASSOCIATION_9"}, m.ValidateConsistency())

	params := m.AggregateParameters()
	assert.Equal(t, []any{"move", "attack", "defend"}, params["ASSOCIATION_9"][0].Domain)
	assert.Equal(t, "valid_enemy_tags", params["INTERACTION_1"][0].Domain)

	sig := m.Signatures()
	assert.Equal(t, "target_ProtossStalker_on_ZergZergling(target_unit_tag: int) -> target_setting", sig["INTERACTION_1"])
	assert.Equal(t, "mm_push() -> concurrent", sig["TERRAN_MM_PUSH"])
}

func TestManager_Statistics(t *testing.T) {
	stats := loadedManager(t).Statistics()
	assert.Equal(t, 3, stats.TotalFunctions)
	assert.Equal(t, map[string]int{"interaction": 1, "combination": 2}, stats.FunctionTypeDistribution)
	assert.Equal(t, map[string]int{"target_setting": 1, "concurrent": 2}, stats.ExecutionTypeDistribution)
	assert.Equal(t, 6, stats.UnitsInvolved)
	assert.InDelta(t, 0.67, stats.AvgParametersPerFunction, 1e-9)
	assert.InDelta(t, 0.75, stats.AvgConfidence, 1e-9)
}

func TestManager_SaveRoundTrip(t *testing.T) {
	m := loadedManager(t)
	path := filepath.Join(t.TempDir(), "out", "saved.json")
	require.NoError(t, m.Save(path))

	reloaded := NewManager(nil)
	n, err := reloaded.Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	if diff := cmp.Diff(m.All(), reloaded.All()); diff != "" {
		t.Errorf("library differs after save (-want +got):\n%s", diff)
	}
}

func TestFunction_CloneIsDeep(t *testing.T) {
	fn := &Function{
		FunctionID:    "X",
		Units:         []string{"A"},
		Prerequisites: &Prerequisites{RequiredUnits: []string{"A"}},
	}
	c := fn.Clone()
	c.Units[0] = "B"
	c.Prerequisites.RequiredUnits[0] = "B"
	assert.Equal(t, "A", fn.Units[0])
	assert.Equal(t, "A", fn.Prerequisites.RequiredUnits[0])
	assert.Nil(t, (*Function)(nil).Clone())
}

func TestValidator_CustomSchemaPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strict.schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"array","items":{"type":"object","required":["tactic_category"]}}`), 0o644))

	v, err := NewValidator(path)
	require.NoError(t, err)
	assert.Error(t, v.ValidateRaw(map[string]any{"function_id": "X"}))
	assert.NoError(t, v.ValidateRaw(map[string]any{"tactic_category": "offense"}))

	again, err := NewValidator(path)
	require.NoError(t, err)
	assert.Same(t, v.schema, again.schema)

	_, err = NewValidator(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func terranState(marines, enemies int) gamestate.State {
	obs := gamestate.Observation{}
	for i := 0; i < marines; i++ {
		obs.UnitInfo = append(obs.UnitInfo, gamestate.UnitInfo{UnitName: "Marine", Alliance: gamestate.AllianceSelf, Health: 45, MaxHealth: 45})
	}
	obs.UnitInfo = append(obs.UnitInfo, gamestate.UnitInfo{UnitName: "Marauder", Alliance: gamestate.AllianceSelf, Health: 125, MaxHealth: 125})
	for i := 0; i < enemies; i++ {
		obs.UnitInfo = append(obs.UnitInfo, gamestate.UnitInfo{UnitName: "Zergling", Alliance: gamestate.AllianceEnemy, Health: 35, MaxHealth: 35})
	}
	return gamestate.Analyze(obs)
}
