package prefab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sc2affordance/internal/gamestate"
)

func scoredIDs(in []Scored) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, s.FunctionID)
	}
	return out
}

func TestOptimalFunctions_Ranking(t *testing.T) {
	m := loadedManager(t)

	got := m.OptimalFunctions(terranState(3, 2), 5)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"TERRAN_MM_PUSH", "INTERACTION_1", "COMBINATION_2"}, scoredIDs(got))

	assert.InDelta(t, 0.6, got[0].Relevance, 1e-9)
	assert.InDelta(t, 0.9*0.7+0.6*0.3, got[0].Score, 1e-9)
	assert.InDelta(t, 0.85*0.7, got[1].Score, 1e-9)
	assert.InDelta(t, 0.2, got[2].Relevance, 1e-9)

	top := m.OptimalFunctions(terranState(3, 2), 1)
	assert.Equal(t, []string{"TERRAN_MM_PUSH"}, scoredIDs(top))
	assert.Empty(t, m.OptimalFunctions(terranState(3, 2), 0))
}

func TestOptimalFunctions_RelevancePrefilter(t *testing.T) {
	m := loadedManager(t)

	behind := m.OptimalFunctions(terranState(1, 5), 5)
	assert.Equal(t, []string{"INTERACTION_1", "COMBINATION_2"}, scoredIDs(behind))

	require.True(t, m.Add(&Function{
		FunctionID:     "TERRAN_HOLD",
		FunctionType:   TypeCombination,
		Name:           "hold_the_line",
		Description:    "defend",
		TacticCategory: CategoryDefense,
		ExecutionType:  "fortified_position",
		Confidence:     0.6,
		Prerequisites:  &Prerequisites{RequiredUnits: []string{"Terran_SiegeTank"}},
	}))
	for _, s := range m.OptimalFunctions(terranState(1, 5), 5) {
		assert.NotEqual(t, "TERRAN_HOLD", s.FunctionID, "requires a siege tank")
	}
}

func TestOptimalFunctions_CacheEvictsOldestKey(t *testing.T) {
	m := loadedManager(t, WithCacheSize(2))

	first, second, third := terranState(3, 2), terranState(4, 2), terranState(5, 2)
	m.OptimalFunctions(first, 3)
	m.OptimalFunctions(second, 3)
	// A cache hit must not refresh the entry.
	m.OptimalFunctions(first, 3)
	m.OptimalFunctions(third, 3)

	assert.False(t, m.cache.Contains(CacheKey(first)))
	assert.True(t, m.cache.Contains(CacheKey(second)))
	assert.True(t, m.cache.Contains(CacheKey(third)))
	assert.Equal(t, "4_2_terran", CacheKey(first))
}

func TestOptimalFunctions_MutationPurgesCache(t *testing.T) {
	m := loadedManager(t)
	state := terranState(3, 2)

	got := m.OptimalFunctions(state, 3)
	got[0] = Scored{}
	again := m.OptimalFunctions(state, 3)
	assert.Equal(t, "TERRAN_MM_PUSH", again[0].FunctionID, "callers cannot corrupt the cache")
	assert.Equal(t, 1, m.cache.Len())

	_, ok := m.SetConfidence("TERRAN_MM_PUSH", 0.1)
	require.True(t, ok)
	assert.Zero(t, m.cache.Len())

	reranked := m.OptimalFunctions(state, 3)
	assert.Equal(t, "INTERACTION_1", reranked[0].FunctionID)
}

func TestRelevance(t *testing.T) {
	state := terranState(2, 1)

	generic := &Function{Units: []string{"all_friendly", "all_enemy"}, ExecutionType: "attack"}
	assert.InDelta(t, 0.8, Relevance(generic, state), 1e-9)

	crowded := &Function{Units: []string{"Marine", "Marauder", "Zergling"}, ExecutionType: "concurrent"}
	assert.InDelta(t, 0.6, Relevance(crowded, terranState(2, 1)), 1e-9)

	saturated := &Function{Units: []string{"Marine"}, ExecutionType: "concurrent"}
	assert.Equal(t, 1.0, Relevance(saturated, terranState(12, 0)))

	required := &Function{Prerequisites: &Prerequisites{RequiredUnits: []string{"marine", "Medivac"}}}
	assert.InDelta(t, 0.1, Relevance(required, state), 1e-9)

	assert.Zero(t, Relevance(&Function{ExecutionType: "attack"}, gamestate.State{}))
}
