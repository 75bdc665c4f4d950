package handler

import (
	"strings"

	"sc2affordance/internal/gamestate"
	"sc2affordance/internal/prefab"
)

// Placeholder unit references that match any fielded unit.
var genericSources = map[string]bool{
	"all_friendly":        true,
	"all_ground_friendly": true,
	"friendly_infantry":   true,
	"all_mechanical":      true,
	"all_infantry":        true,
}

var genericTargets = map[string]bool{
	"high_value_enemy_unit":  true,
	"high_value_terran_unit": true,
	"nearest_enemy":          true,
	"nearest_enemy_unit":     true,
	"highest_threat_enemy":   true,
	"lowest_health_enemy":    true,
	"armored_enemy":          true,
	"light_enemy":            true,
	"lowest_health_friendly": true,
	"all_enemy":              true,
	"closest_enemy":          true,
}

var (
	pureMoveKeywords    = []string{"move", "move_to_position", "position_move", "navigate"}
	allowedMoveKeywords = []string{"push", "retreat", "advance", "withdraw", "flank", "mm_push"}
)

// minStripLength keeps short names like "Zerg" from being reduced to "".
const minStripLength = 5

func contains(s, substr string) bool {
	return substr != "" && strings.Contains(s, substr)
}

func containsFold(s, substr string) bool {
	return contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if contains(s, kw) {
			return true
		}
	}
	return false
}

// lastSegment returns the text after the last underscore, so
// "Terran_Marine" becomes "Marine".
func lastSegment(ref string) string {
	if i := strings.LastIndexByte(ref, '_'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func anyNameContains(names []string, needle string) bool {
	for _, n := range names {
		if containsFold(n, needle) {
			return true
		}
	}
	return false
}

// matchesUnit reports whether a unit reference names one of the given unit
// instance names. The reference is reduced to its last segment, then a
// race prefix is stripped from long names. With whole set the complete
// reference is tried last.
func matchesUnit(ref string, names []string, whole bool) bool {
	base := lastSegment(ref)
	if anyNameContains(names, base) {
		return true
	}
	if len(base) > minStripLength {
		if stripped, ok := gamestate.StripRacePrefix(base); ok && anyNameContains(names, stripped) {
			return true
		}
	}
	return whole && anyNameContains(names, ref)
}

// fieldsRequiredUnit extends matchesUnit with an exact base type
// comparison.
func fieldsRequiredUnit(ref string, names []string) bool {
	if matchesUnit(ref, names, true) {
		return true
	}
	base := lastSegment(ref)
	for _, n := range names {
		if strings.EqualFold(base, gamestate.BaseType(n)) {
			return true
		}
	}
	return false
}

// functionRace infers a function's race from its id, then its source unit,
// name and flow. The target unit is an enemy and is blanked out of the name
// and flow first. It returns "" when nothing names a race.
func functionRace(fn *prefab.Function) string {
	id := strings.ToUpper(fn.FunctionID)
	for _, race := range gamestate.Races {
		if strings.Contains(id, strings.ToUpper(race)) {
			return race
		}
	}
	own := func(text string) string {
		if fn.TargetUnit == "" {
			return text
		}
		return strings.ReplaceAll(text, fn.TargetUnit, "")
	}
	for _, text := range []string{fn.SourceUnit, own(fn.Name), own(fn.FlowText())} {
		if race := gamestate.RaceOf(text); race != "" {
			return race
		}
	}
	return ""
}

// isPureMove flags functions that only reposition units. Medivac and heal
// functions are never pure moves; named tactical movements such as pushes
// and retreats are allowed.
func isPureMove(fn *prefab.Function) bool {
	name := strings.ToLower(fn.Name)
	if contains(name, "medivac") || contains(name, "heal_") {
		return false
	}
	if containsAny(name, pureMoveKeywords) && !containsAny(name, allowedMoveKeywords) {
		return true
	}
	flow := strings.ToLower(fn.FlowText())
	moves := contains(flow, "move_to_position") || contains(flow, "move(")
	return moves && !contains(name, "mm_push")
}

func unitNames(units []gamestate.UnitInfo) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Name()
	}
	return out
}
