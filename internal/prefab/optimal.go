package prefab

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"sc2affordance/internal/gamestate"
)

const (
	confidenceWeight = 0.7
	relevanceWeight  = 0.3
)

// executionFit is the relevance bonus an execution type earns when the
// battlefield allows it.
var executionFit = map[string]struct {
	bonus       float64
	minFriendly int
	needEnemy   bool
}{
	"attack":              {0.2, 0, true},
	"move":                {0.1, 1, false},
	"frontal_assault":     {0.25, 0, true},
	"ambush_attack":       {0.2, 0, true},
	"ability":             {0.15, 1, false},
	"concurrent":          {0.2, 2, false},
	"fortified_position":  {0.15, 1, false},
	"coordinated_advance": {0.2, 2, false},
}

// OptimalFunctions ranks the library for state by 0.7*confidence +
// 0.3*relevance and returns at most max results. Results are cached per
// friendly count, enemy count and race until the library changes.
func (m *Manager) OptimalFunctions(state gamestate.State, max int) []Scored {
	if max <= 0 {
		return nil
	}
	key := CacheKey(state)
	if cached, ok := m.cache.Peek(key); ok {
		m.logger.Debug("optimal functions served from cache", zap.String("key", key))
		return truncate(cached, max)
	}

	var scored []Scored
	for _, fn := range m.All() {
		if !IsRelevant(fn, state) {
			continue
		}
		relevance := Relevance(fn, state)
		scored = append(scored, Scored{
			Function:  fn,
			Score:     fn.Confidence*confidenceWeight + relevance*relevanceWeight,
			Relevance: relevance,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].FunctionID < scored[j].FunctionID
	})

	m.cache.Add(key, scored)
	out := truncate(scored, max)
	for i, s := range out {
		m.logger.Debug("optimal function",
			zap.Int("rank", i+1),
			zap.String("function_id", s.FunctionID),
			zap.Float64("score", s.Score),
			zap.Float64("relevance", s.Relevance))
	}
	return out
}

// CacheKey identifies a battlefield for the optimal-result cache.
func CacheKey(state gamestate.State) string {
	race := state.Race
	if race == "" {
		race = gamestate.RaceUnknown
	}
	return fmt.Sprintf("%d_%d_%s", state.FriendlyCount, state.EnemyCount, race)
}

func truncate(in []Scored, max int) []Scored {
	if len(in) > max {
		in = in[:max]
	}
	out := make([]Scored, len(in))
	copy(out, in)
	return out
}

// IsRelevant is the cheap pre-filter applied before scoring: every required
// unit must be on the field, defense is dropped while ahead and offense while
// behind.
func IsRelevant(fn *Function, state gamestate.State) bool {
	for _, req := range fn.RequiredUnits() {
		base := strings.ToLower(lastSegment(req))
		found := false
		for unit := range state.FriendlyUnitTypes {
			if strings.Contains(strings.ToLower(unit), base) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	switch fn.TacticCategory {
	case CategoryDefense:
		return state.FriendlyCount <= state.EnemyCount
	case CategoryOffense:
		return state.FriendlyCount >= state.EnemyCount
	}
	return true
}

// Relevance is the lightweight unit-overlap heuristic used by
// OptimalFunctions, in [0, 1].
func Relevance(fn *Function, state gamestate.State) float64 {
	units := make(map[string]bool)
	for _, u := range fn.Participants() {
		units[strings.ToLower(u)] = true
	}

	relevance := 0.0
	if units["all_friendly"] {
		relevance += 0.3
	}
	if units["all_enemy"] {
		relevance += 0.3
	}
	for unit, n := range state.FriendlyUnitTypes {
		if units[strings.ToLower(unit)] {
			relevance += 0.1 * float64(n)
		}
	}
	for unit, n := range state.EnemyUnitTypes {
		if units[strings.ToLower(unit)] {
			relevance += 0.1 * float64(n)
		}
	}

	if required := fn.RequiredUnits(); len(required) > 0 {
		present := 0
		for _, req := range required {
			for unit := range state.FriendlyUnitTypes {
				if strings.EqualFold(unit, req) {
					present++
					break
				}
			}
		}
		relevance += 0.2 * float64(present) / float64(len(required))
	}

	if fit, ok := executionFit[strings.ToLower(fn.ExecutionType)]; ok {
		switch {
		case fit.needEnemy && state.EnemyCount > 0:
			relevance += fit.bonus
		case !fit.needEnemy && state.FriendlyCount >= fit.minFriendly:
			relevance += fit.bonus
		}
	}
	return clamp(relevance, 0, 1)
}

// lastSegment returns the text after the last underscore.
func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '_'); i >= 0 {
		return name[i+1:]
	}
	return name
}
