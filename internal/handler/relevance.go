package handler

import (
	"strings"

	"sc2affordance/internal/gamestate"
	"sc2affordance/internal/prefab"
)

// Relevance estimates how well a function fits the battlefield, starting
// from its confidence. The result is clamped to [0, 1].
func Relevance(fn *prefab.Function, st gamestate.State) float64 {
	relevance := fn.Confidence
	name := strings.ToLower(fn.Name)
	friendlyTypes := st.FriendlyTypeNames()
	enemyTypes := st.EnemyTypeNames()

	if fn.SourceUnit != "" {
		if anyNameContains(friendlyTypes, lastSegment(fn.SourceUnit)) {
			relevance += 0.2
		} else {
			relevance -= 0.5
		}
	}
	if fn.TargetUnit != "" && !genericTargets[fn.TargetUnit] {
		if anyNameContains(enemyTypes, lastSegment(fn.TargetUnit)) {
			relevance += 0.2
		} else {
			relevance -= 0.5
		}
	}

	marines, marauders := st.FriendlyUnitTypes["Marine"], st.FriendlyUnitTypes["Marauder"]
	bio := marines + marauders
	switch {
	case contains(name, "mm_push"):
		switch {
		case marines >= 3 && marauders >= 1:
			relevance += 0.3
		case bio >= 4:
			relevance += 0.2
		}
		if st.EnemyCount <= bio {
			relevance += 0.1
		}
	case contains(name, "heal") || contains(name, "medivac"):
		if st.HasMedivac {
			relevance += 0.2
		}
		if st.HasLowHealthUnits {
			relevance += 0.3
		}
		if st.HighEnergyUnits {
			relevance += 0.1
		}
	case contains(name, "stim"):
		switch {
		case bio >= 5:
			relevance += 0.3
		case bio >= 3:
			relevance += 0.2
		}
		if st.EnemyCount > 0 {
			relevance += 0.1
		}
	case contains(name, "siege"):
		if st.FriendlyUnitTypes["SiegeTank"] > 0 {
			relevance += 0.3
			if st.FriendlyCount >= st.EnemyCount {
				relevance += 0.1
			}
		}
	case contains(name, "attack") || contains(name, "focusfire"):
		if st.EnemyCount > 0 {
			relevance += 0.2
		}
		if st.FriendlyCount > st.EnemyCount {
			relevance += 0.2
		}
	case contains(name, "move") || contains(name, "retreat"):
		if st.FriendlyCount < st.EnemyCount {
			relevance += 0.2
		}
	}

	switch fn.TacticCategory {
	case prefab.CategoryOffense:
		switch {
		case st.FriendlyCount > st.EnemyCount:
			relevance += 0.2
		case st.FriendlyCount == st.EnemyCount && st.HasEnergyUnits:
			relevance += 0.1
		}
	case prefab.CategoryDefense:
		switch {
		case st.FriendlyCount < st.EnemyCount:
			relevance += 0.2
		case st.HasLowHealthUnits:
			relevance += 0.1
		}
	case prefab.CategorySupport:
		switch {
		case st.HasLowHealthUnits:
			relevance += 0.2
		case st.HasEnergyUnits && st.FriendlyCount > 0:
			relevance += 0.1
		}
	case prefab.CategoryTargeting:
		if st.EnemyCount > 0 {
			relevance += 0.2
		}
	}

	if st.UnitTypeDiversity > 0.5 && fn.TacticCategory == prefab.TypeCombination {
		relevance += 0.1
	}
	switch stage := strings.ToLower(st.GameStage); stage {
	case "early", "mid", "late":
		if contains(name, stage) {
			relevance += 0.1
		}
	}
	return max(0, min(1, relevance))
}

// reasons explains in one line each why a function suits the state.
func reasons(fn *prefab.Function, st gamestate.State) []string {
	var out []string
	marines, marauders := st.FriendlyUnitTypes["Marine"], st.FriendlyUnitTypes["Marauder"]
	switch name := fn.Name; {
	case contains(name, "mm_push"):
		if marines >= 3 && marauders >= 1 {
			out = append(out, "enough Marines ("+itoa(marines)+") and Marauders ("+itoa(marauders)+")")
		}
	case contains(name, "heal_"):
		if st.HasMedivac {
			out = append(out, "a Medivac is available")
		}
		if st.HasLowHealthUnits {
			out = append(out, "low-health units need healing")
		}
	case contains(name, "Stim"):
		if marines > 3 || marauders > 2 {
			out = append(out, "many units can use Stimpack")
		}
	case contains(name, "Siege") || contains(name, "Unsiege"):
		if st.FriendlyUnitTypes["SiegeTank"] > 0 {
			out = append(out, "Siege Tanks are on the field")
		}
	}
	return out
}
