package handler

import (
	"math"
	"slices"
	"sort"
	"strings"

	"sc2affordance/internal/gamestate"
	"sc2affordance/internal/prefab"
)

// Synergy types understood by the tactical fitness evaluators.
const (
	SynergyAirGround     = "air_ground_coordination"
	SynergyLongShort     = "long_short_range_coordination"
	SynergyAbilityUnit   = "ability_unit_synergy"
	SynergyArmorType     = "armor_type_coordination"
	SynergySupportDamage = "support_dps_coordination"
)

// SynergyScore breaks down how a synergy function fits the current army.
type SynergyScore struct {
	FunctionID        string  `json:"function_id"`
	Name              string  `json:"name"`
	SynergyType       string  `json:"synergy_type"`
	BaseScore         float64 `json:"synergy_score"`
	AvailabilityScore float64 `json:"unit_availability_score"`
	FitnessScore      float64 `json:"tactical_fitness_score"`
	TotalScore        float64 `json:"total_score"`
	Relevance         float64 `json:"relevance"`
}

var (
	airUnits        = []string{"ProtossPhoenix", "ProtossCorsair", "ProtossCarrier", "TerranViking", "TerranBanshee", "TerranBattlecruiser", "ZergMutalisk", "ZergCorruptor"}
	groundUnits     = []string{"ProtossZealot", "ProtossStalker", "ProtossSentry", "TerranMarine", "TerranMarauder", "TerranSiegeTank", "ZergZergling", "ZergRoach", "ZergUltralisk"}
	highValueUnits  = []string{"TerranSiegeTank", "TerranThor", "ZergUltralisk", "ProtossColossus"}
	meleeUnits      = []string{"ProtossZealot", "ProtossDarkTemplar", "TerranMarine", "ZergZergling", "ZergBaneling"}
	rangedUnits     = []string{"ProtossStalker", "ProtossImmortal", "TerranMarauder", "TerranSiegeTank", "ZergHydralisk", "ZergLurker"}
	casterUnits     = []string{"ProtossHighTemplar", "ProtossSentry", "TerranGhost", "TerranMedivac", "ZergInfestor", "ZergQueen"}
	helperUnits     = []string{"ProtossSentry", "ProtossZealot", "TerranMedivac", "ZergQueen"}
	specialistUnits = []string{"ProtossImmortal", "ProtossColossus", "TerranSiegeTank", "TerranThor", "ZergUltralisk"}
	supportUnits    = []string{"ProtossSentry", "ProtossHighTemplar", "ProtossObserver", "TerranMedivac", "TerranRaven", "ZergQueen", "ZergInfestor"}
	damageUnits     = []string{"ProtossZealot", "ProtossStalker", "ProtossDarkTemplar", "TerranMarine", "TerranMarauder", "ZergZergling", "ZergHydralisk"}
	casterThreats   = []string{"TerranGhost", "TerranRaven", "ZergViper", "ProtossHighTemplar"}
	heavyThreats    = []string{"TerranBattlecruiser", "ZergUltralisk", "ProtossColossus"}
)

var difficultyScores = map[string]float64{"easy": 8, "medium": 6, "hard": 4}

const (
	defaultDifficultyScore   = 6.0
	defaultSynergyConfidence = 0.8
	maxSynergyScore          = 10.0
	clusterVarianceLimit     = 1000.0
	distanceBucket           = 10.0
)

// qualifiedType names a unit the way synergy functions do, e.g.
// "TerranMarine" for "Marine_3".
func qualifiedType(u gamestate.UnitInfo) string {
	base := u.BaseType()
	if _, ok := gamestate.StripRacePrefix(base); ok {
		return base
	}
	race, _ := gamestate.DetectRace([]gamestate.UnitInfo{u})
	return gamestate.RacePrefixed(race, base)
}

func anyOf(units []gamestate.UnitInfo, kinds []string) bool {
	for _, u := range units {
		if slices.Contains(kinds, qualifiedType(u)) {
			return true
		}
	}
	return false
}

// ScoreSynergy rates a synergy function: 40% unit availability, 40%
// tactical fitness and 20% authored difficulty times confidence.
func (h *Handler) ScoreSynergy(fn *prefab.Function, obs gamestate.Observation) SynergyScore {
	friendly, enemy := obs.Split()
	availability := unitAvailability(fn.UnitComposition, friendly)
	fitness := tacticalFitness(fn.SynergyType, friendly, enemy)
	base := synergyBase(fn)
	total := availability*0.4 + fitness*0.4 + base*0.2
	synergyType := fn.SynergyType
	if synergyType == "" {
		synergyType = "unknown"
	}
	return SynergyScore{
		FunctionID:        fn.FunctionID,
		Name:              fn.Name,
		SynergyType:       synergyType,
		BaseScore:         base,
		AvailabilityScore: availability,
		FitnessScore:      fitness,
		TotalScore:        total,
		Relevance:         min(1, total/maxSynergyScore),
	}
}

// SelectSynergyFunctions returns the k best synergy functions with a
// positive total.
func (h *Handler) SelectSynergyFunctions(obs gamestate.Observation, k int) []SynergyScore {
	friendly, _ := obs.Split()
	if len(friendly) == 0 || k <= 0 {
		return nil
	}
	var out []SynergyScore
	for _, fn := range h.manager.All() {
		if fn.SynergyType == "" {
			continue
		}
		if s := h.ScoreSynergy(fn, obs); s.TotalScore > 0 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// ExplainSynergy lists the tactical benefits of a function.
func (h *Handler) ExplainSynergy(id string) (string, bool) {
	fn, ok := h.manager.Get(id)
	if !ok || len(fn.TacticalBenefits) == 0 {
		return "", false
	}
	var sb strings.Builder
	sb.WriteString("Key benefits:")
	for _, b := range fn.TacticalBenefits {
		sb.WriteString("\n- ")
		sb.WriteString(b)
	}
	return sb.String(), true
}

// unitAvailability weights fielded primary units 2, secondary 1.5 and
// support 1, scaled to [0, 10]. No composition means full availability.
func unitAvailability(comp *prefab.UnitComposition, friendly []gamestate.UnitInfo) float64 {
	if comp == nil {
		return maxSynergyScore
	}
	available := make(map[string]bool)
	for _, u := range friendly {
		if u.Health <= 0 {
			continue
		}
		available[qualifiedType(u)] = true
		available[u.BaseType()] = true
	}
	groups := []struct {
		units  []string
		weight float64
	}{
		{comp.Primary, 2},
		{comp.Secondary, 1.5},
		{comp.Support, 1},
	}
	matched, possible := 0.0, 0.0
	for _, g := range groups {
		for _, u := range g.units {
			possible += g.weight
			if available[u] {
				matched += g.weight
			}
		}
	}
	if possible == 0 {
		return maxSynergyScore
	}
	return min(maxSynergyScore, matched/possible*maxSynergyScore)
}

func tacticalFitness(synergyType string, friendly, enemy []gamestate.UnitInfo) float64 {
	var score float64
	switch synergyType {
	case SynergyAirGround:
		score = airGroundFitness(friendly, enemy)
	case SynergyLongShort:
		score = rangeFitness(friendly, enemy)
	case SynergyAbilityUnit:
		score = abilityFitness(friendly, enemy)
	case SynergyArmorType:
		score = armorFitness(friendly, enemy)
	case SynergySupportDamage:
		score = supportDamageFitness(friendly, enemy)
	}
	return min(maxSynergyScore, score)
}

func airGroundFitness(friendly, enemy []gamestate.UnitInfo) float64 {
	score := 0.0
	if anyOf(friendly, airUnits) {
		score += 4
	}
	if anyOf(friendly, groundUnits) {
		score += 4
	}
	if anyOf(enemy, highValueUnits) {
		score += 2
	}
	return score
}

// rangeFitness rewards mixed melee and ranged armies facing enemies spread
// over several distance bands.
func rangeFitness(friendly, enemy []gamestate.UnitInfo) float64 {
	buckets := make(map[int]bool)
	for _, e := range enemy[:min(3, len(enemy))] {
		for _, f := range friendly {
			d := math.Hypot(e.X()-f.X(), e.Y()-f.Y())
			buckets[int(d/distanceBucket)] = true
		}
	}
	score := 0.0
	if anyOf(friendly, meleeUnits) {
		score += 3
	}
	if anyOf(friendly, rangedUnits) {
		score += 3
	}
	if len(buckets) >= 2 {
		score += 2
	}
	if len(enemy) >= 3 {
		score += 2
	}
	return score
}

// abilityFitness rewards casters and a clustered enemy.
func abilityFitness(friendly, enemy []gamestate.UnitInfo) float64 {
	cluster := 0.0
	if len(enemy) >= 3 {
		var cx, cy float64
		for _, e := range enemy {
			cx += e.X()
			cy += e.Y()
		}
		n := float64(len(enemy))
		cx, cy = cx/n, cy/n
		variance := 0.0
		for _, e := range enemy {
			variance += (e.X()-cx)*(e.X()-cx) + (e.Y()-cy)*(e.Y()-cy)
		}
		variance /= n
		cluster = 0.5
		if variance < clusterVarianceLimit {
			cluster = 1
		}
	}
	score := cluster * 3
	if anyOf(friendly, casterUnits) {
		score += 4
	}
	if anyOf(friendly, helperUnits) {
		score += 3
	}
	return score
}

func armorFitness(friendly, enemy []gamestate.UnitInfo) float64 {
	kinds := make(map[string]bool)
	for _, u := range friendly {
		kinds[qualifiedType(u)] = true
	}
	score := 0.0
	if anyOf(friendly, specialistUnits) {
		score += 5
	}
	if len(kinds) >= 3 {
		score += 3
	}
	if len(enemy) >= 2 {
		score += 2
	}
	return score
}

func supportDamageFitness(friendly, enemy []gamestate.UnitInfo) float64 {
	threat := 0
	for _, e := range enemy {
		switch kind := qualifiedType(e); {
		case slices.Contains(casterThreats, kind):
			threat += 2
		case slices.Contains(heavyThreats, kind):
			threat++
		}
	}
	score := min(2, float64(threat)*0.5)
	if anyOf(friendly, supportUnits) {
		score += 4
	}
	if anyOf(friendly, damageUnits) {
		score += 4
	}
	return score
}

func synergyBase(fn *prefab.Function) float64 {
	difficulty, ok := difficultyScores[fn.Level()]
	if !ok {
		difficulty = defaultDifficultyScore
	}
	confidence := fn.Confidence
	if confidence == 0 {
		confidence = defaultSynergyConfidence
	}
	return difficulty * confidence
}
