package handler

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"sc2affordance/internal/gamestate"
	"sc2affordance/internal/prefab"
)

const (
	confidenceFactor = 5.0
	diversityDecay   = 0.95
	cooldownBase     = 0.8
	maxCooldownTicks = 10
)

// battlefield is the per-call view shared by every candidate.
type battlefield struct {
	state    gamestate.State
	race     string
	friendly []string
	enemy    []string
}

// Score rates every candidate against the observation and returns the
// survivors sorted by descending score. Candidates are dropped when they
// only move units, belong to another race, or reference units that are not
// on the field.
func (h *Handler) Score(candidates []*prefab.Function, obs gamestate.Observation) []prefab.Scored {
	friendly, enemy := obs.Split()
	bf := battlefield{
		state:    gamestate.Analyze(obs),
		race:     h.race(friendly),
		friendly: unitNames(friendly),
		enemy:    unitNames(enemy),
	}
	h.logger.Debug("scoring candidates", zap.Int("candidates", len(candidates)), zap.String("race", bf.race))

	h.mu.Lock()
	defer h.mu.Unlock()

	var scored []prefab.Scored
	for _, fn := range candidates {
		score, ok := h.scoreLocked(fn, bf)
		if !ok {
			continue
		}
		scored = append(scored, prefab.Scored{Function: fn, Score: score})
		h.logger.Debug("prefab function scored",
			zap.String("function_id", fn.FunctionID),
			zap.String("name", fn.Name),
			zap.Float64("score", score))
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

func (h *Handler) scoreLocked(fn *prefab.Function, bf battlefield) (float64, bool) {
	log := h.logger.With(zap.String("function_id", fn.FunctionID))
	if isPureMove(fn) {
		log.Debug("rejected: pure movement")
		return 0, false
	}
	if bf.race != gamestate.RaceUnknown {
		if race := functionRace(fn); race != "" && race != strings.ToLower(bf.race) {
			log.Debug("rejected: race mismatch", zap.String("function_race", race))
			return 0, false
		}
	}
	if fn.SourceUnit != "" && !genericSources[fn.SourceUnit] && !matchesUnit(fn.SourceUnit, bf.friendly, true) {
		log.Debug("rejected: source unit not fielded", zap.String("source_unit", fn.SourceUnit))
		return 0, false
	}
	if fn.TargetUnit != "" && !genericTargets[fn.TargetUnit] && !matchesUnit(fn.TargetUnit, bf.enemy, false) {
		log.Debug("rejected: target unit not present", zap.String("target_unit", fn.TargetUnit))
		return 0, false
	}

	score := fn.Confidence*confidenceFactor + abilityBonus(fn, bf) + categoryBonus(fn.TacticCategory, bf.state)

	required := append(append([]string(nil), fn.RequiredUnits()...), fn.Units...)
	fielded := true
	for _, unit := range required {
		if genericSources[unit] {
			continue
		}
		if !fieldsRequiredUnit(unit, bf.friendly) {
			fielded = false
			break
		}
	}
	switch {
	case fn.FunctionType == prefab.TypeCombination || fn.LinkageType == prefab.TypeCombination:
		if !fielded {
			log.Debug("rejected: combination units missing")
			return 0, false
		}
		score += 3
	case len(required) > 0 && !fielded:
		log.Debug("rejected: required units missing")
		return 0, false
	case fn.FunctionType == prefab.TypeInteraction:
		score += 2
	}

	return score * h.decayLocked(fn.FunctionID), true
}

// abilityBonus rewards functions whose signature ability is backed by the
// units on the field. The race-specific branches only apply to the
// detected race.
func abilityBonus(fn *prefab.Function, bf battlefield) float64 {
	name := fn.Name
	types := bf.state.FriendlyUnitTypes
	st := bf.state

	if contains(name, "target_") {
		if fn.SourceUnit == "" || fn.TargetUnit == "" {
			return 0
		}
		hasSource := anyNameContainsExact(bf.friendly, lastSegment(fn.SourceUnit))
		hasTarget := anyNameContainsExact(bf.enemy, lastSegment(fn.TargetUnit))
		switch {
		case hasSource && hasTarget:
			return 8
		case hasSource:
			return 4
		}
		return 0
	}

	switch bf.race {
	case gamestate.RaceTerran:
		marines, marauders := types["Marine"], types["Marauder"]
		switch {
		case contains(name, "mm_push"):
			switch {
			case marines >= 3 && marauders >= 1:
				return 10
			case marines >= 2 && marauders >= 1:
				return 6
			case marines >= 2:
				return 3
			}
		case contains(name, "LoadMedivac") || contains(name, "UnloadMedivac"):
			if st.HasMedivac {
				bonus := 5.0
				if st.HasLowHealthUnits {
					bonus += 3
				}
				return bonus
			}
		case contains(name, "heal_") || containsFold(name, "medivac"):
			if st.HasMedivac {
				switch {
				case containsFold(name, "follow") || containsFold(name, "stay"):
					return 12
				case st.HasLowHealthUnits:
					return 10
				default:
					return 7
				}
			}
		case contains(name, "Stim"):
			if marines > 3 || marauders > 2 {
				return 7
			}
		case contains(name, "Siege") || contains(name, "Unsiege"):
			if types["SiegeTank"] > 0 {
				return 8
			}
		}
		return 0
	case gamestate.RaceProtoss:
		switch {
		case contains(name, "Warp"):
			if types["WarpPrism"] > 0 {
				return 8
			}
		case contains(name, "Shield"):
			if types["Sentry"] > 0 {
				return 7
			}
		case contains(name, "Psionic") || contains(name, "Storm"):
			if types["HighTemplar"] > 0 {
				return 9
			}
		}
		return 0
	case gamestate.RaceZerg:
		switch {
		case contains(name, "Creep"):
			if types["Queen"] > 0 {
				return 7
			}
		case contains(name, "Inject") || contains(name, "Larva"):
			if types["Queen"] > 0 {
				return 8
			}
		case contains(name, "Swarm") || contains(name, "Spawn"):
			if st.FriendlyCount > 5 {
				return 6
			}
		}
		return 0
	}

	switch {
	case contains(name, "Attack") || contains(name, "FocusFire"):
		if st.EnemyCount > st.FriendlyCount {
			return 6
		}
	case contains(name, "Move") || contains(name, "Retreat"):
		if st.FriendlyCount < st.EnemyCount {
			return 6
		}
	}
	return 0
}

func anyNameContainsExact(names []string, needle string) bool {
	for _, n := range names {
		if contains(n, needle) {
			return true
		}
	}
	return false
}

func categoryBonus(category string, st gamestate.State) float64 {
	switch category {
	case prefab.CategoryTargeting:
		return 3
	case prefab.CategoryOffense:
		if st.FriendlyCount > st.EnemyCount {
			return 4
		}
	case prefab.CategoryDefense:
		if st.FriendlyCount < st.EnemyCount {
			return 4
		}
	case prefab.CategorySupport:
		if st.HasLowHealthUnits {
			return 5
		}
	case prefab.CategoryHeterogeneous:
		if len(st.FriendlyUnitTypes) >= 4 {
			return 10
		}
		return 8
	case prefab.CategoryFormation:
		return 6
	}
	return 0
}

// decayLocked combines the recent-use penalty, the cooldown penalty and the
// recent success rate into one multiplier.
func (h *Handler) decayLocked(id string) float64 {
	factor := 1.0

	recent := h.history
	if len(recent) > h.opts.HistoryWindow {
		recent = recent[len(recent)-h.opts.HistoryWindow:]
	}
	uses := 0
	for _, used := range recent {
		if used == id {
			uses++
		}
	}
	factor *= math.Pow(diversityDecay, float64(uses))

	if cd := h.cooldowns[id]; cd > 0 {
		factor *= cooldownBase / (cooldownBase + float64(min(cd, maxCooldownTicks))/maxCooldownTicks)
	}

	if rate, ok := h.successRateLocked(id); ok {
		factor *= 0.5 + 0.5*rate
	}
	return factor
}

// successRateLocked is the success share over the function's last
// SuccessWindow log entries.
func (h *Handler) successRateLocked(id string) (float64, bool) {
	var outcomes []bool
	for _, r := range h.results {
		if r.FunctionID == id {
			outcomes = append(outcomes, r.Success)
		}
	}
	if len(outcomes) == 0 {
		return 0, false
	}
	if len(outcomes) > h.opts.SuccessWindow {
		outcomes = outcomes[len(outcomes)-h.opts.SuccessWindow:]
	}
	wins := 0
	for _, ok := range outcomes {
		if ok {
			wins++
		}
	}
	return float64(wins) / float64(len(outcomes)), true
}
