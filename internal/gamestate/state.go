package gamestate

import (
	"sort"
	"strings"
)

// State is the per-tick summary every scorer reads.
type State struct {
	Step                  int            `json:"step"`
	FriendlyCount         int            `json:"friendly_count"`
	EnemyCount            int            `json:"enemy_count"`
	FriendlyUnitTypes     map[string]int `json:"friendly_unit_types"`
	EnemyUnitTypes        map[string]int `json:"enemy_unit_types"`
	FriendlyDetailedTypes map[string]int `json:"friendly_detailed_types"`
	EnemyDetailedTypes    map[string]int `json:"enemy_detailed_types"`
	HasMedivac            bool           `json:"has_medivac"`
	HasLowHealthUnits     bool           `json:"has_low_health_units"`
	HasEnergyUnits        bool           `json:"has_energy_units"`
	HighEnergyUnits       bool           `json:"high_energy_units"`
	UnitTypeDiversity     float64        `json:"unit_type_diversity"`
	FriendlyHealth        float64        `json:"friendly_health"`
	EnemyHealth           float64        `json:"enemy_health"`
	Resources             float64        `json:"resources"`
	Race                  string         `json:"race"`
	GameStage             string         `json:"game_stage,omitempty"`
	Text                  string         `json:"text_observation,omitempty"`
}

const (
	lowHealthRatio  = 0.5
	highEnergyLevel = 50
)

// Analyze summarises an observation. The race is detected from friendly
// units and left as RaceUnknown when nothing matches.
func Analyze(obs Observation) State {
	friendly, enemy := obs.Split()
	st := State{
		Step:                  obs.Step,
		FriendlyCount:         len(friendly),
		EnemyCount:            len(enemy),
		FriendlyUnitTypes:     make(map[string]int),
		EnemyUnitTypes:        make(map[string]int),
		FriendlyDetailedTypes: make(map[string]int),
		EnemyDetailedTypes:    make(map[string]int),
		Resources:             obs.Minerals + obs.Vespene,
		GameStage:             obs.GameStage,
		Text:                  obs.Text,
	}
	for _, u := range friendly {
		name := u.Name()
		st.FriendlyUnitTypes[BaseType(name)]++
		st.FriendlyDetailedTypes[name]++
		st.FriendlyHealth += u.Health
		if strings.Contains(name, "Medivac") {
			st.HasMedivac = true
		}
		if u.Health < u.MaxHealth*lowHealthRatio {
			st.HasLowHealthUnits = true
		}
		if u.Energy > 0 {
			st.HasEnergyUnits = true
		}
		if u.Energy > highEnergyLevel {
			st.HighEnergyUnits = true
		}
	}
	for _, u := range enemy {
		name := u.Name()
		st.EnemyUnitTypes[BaseType(name)]++
		st.EnemyDetailedTypes[name]++
		st.EnemyHealth += u.Health
	}
	if st.FriendlyCount > 0 {
		st.UnitTypeDiversity = float64(len(st.FriendlyUnitTypes)) / float64(st.FriendlyCount)
	}
	st.Race, _ = DetectRace(friendly)
	return st
}

// FriendlyTypeNames returns the friendly base types in sorted order.
func (s State) FriendlyTypeNames() []string {
	return sortedNames(s.FriendlyUnitTypes)
}

func (s State) EnemyTypeNames() []string {
	return sortedNames(s.EnemyUnitTypes)
}

func sortedNames(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Delta captures how the battlefield changed across one decision.
type Delta struct {
	FriendlyCountChange  int     `json:"friendly_count_change"`
	EnemyCountChange     int     `json:"enemy_count_change"`
	LowHealthUnitsChange int     `json:"low_health_units_change"`
	FriendlyHealthChange float64 `json:"friendly_health_change"`
	EnemyHealthChange    float64 `json:"enemy_health_change"`
	ResourceChange       float64 `json:"resource_change"`
}

// Diff computes after minus before.
func Diff(before, after State) Delta {
	return Delta{
		FriendlyCountChange:  after.FriendlyCount - before.FriendlyCount,
		EnemyCountChange:     after.EnemyCount - before.EnemyCount,
		LowHealthUnitsChange: boolInt(after.HasLowHealthUnits) - boolInt(before.HasLowHealthUnits),
		FriendlyHealthChange: after.FriendlyHealth - before.FriendlyHealth,
		EnemyHealthChange:    after.EnemyHealth - before.EnemyHealth,
		ResourceChange:       after.Resources - before.Resources,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
