package unitdata

import (
	"errors"
	"fmt"
	"strings"

	"sc2affordance/internal/graph"
)

var (
	ErrUnitFileNotFound = errors.New("unit file not found")
	ErrUnitDataMissing  = errors.New("unit data missing")
)

// ValidationError lists everything wrong with one unit definition.
type ValidationError struct {
	Unit     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("unit %s failed validation: %s", e.Unit, strings.Join(e.Problems, "; "))
}

// SupportedVersions are the catalog format versions this loader reads.
var SupportedVersions = []string{"1.0.0", "1.1.0"}

const DefaultVersion = "1.0.0"

type Cost struct {
	Mineral float64 `yaml:"mineral" json:"mineral"`
	Vespene float64 `yaml:"vespene" json:"vespene"`
	Supply  float64 `yaml:"supply" json:"supply"`
	Time    float64 `yaml:"time" json:"time"`
}

type Stats struct {
	Health     float64  `yaml:"health" json:"health"`
	Shield     float64  `yaml:"shield" json:"shield"`
	Armor      float64  `yaml:"armor" json:"armor"`
	Speed      float64  `yaml:"speed" json:"speed"`
	Sight      float64  `yaml:"sight" json:"sight"`
	Energy     float64  `yaml:"energy" json:"energy"`
	Attributes []string `yaml:"attributes" json:"attributes"`
}

type Param struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// Method is an authored method signature. Parameter and return types that
// name another unit produce invocation edges.
type Method struct {
	Name        string  `yaml:"name" json:"name"`
	Returns     string  `yaml:"returns" json:"returns"`
	Params      []Param `yaml:"params" json:"params"`
	Description string  `yaml:"description" json:"description"`
}

// Definition is one unit as authored in the catalog.
type Definition struct {
	Version      string   `yaml:"version" json:"version"`
	Name         string   `yaml:"name" json:"name"`
	ID           string   `yaml:"id" json:"id"`
	Race         string   `yaml:"race" json:"race"`
	UnitType     string   `yaml:"unit_type" json:"unit_type"`
	Description  string   `yaml:"description" json:"description"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`

	Cost   Cost           `yaml:"cost" json:"cost"`
	Stats  Stats          `yaml:"unit_stats" json:"unit_stats"`
	Attack map[string]any `yaml:"attack" json:"attack"`

	Abilities map[string]graph.Ability `yaml:"abilities" json:"abilities"`
	Upgrades  map[string]graph.Upgrade `yaml:"upgrades" json:"upgrades"`

	StrongAgainst     []string                `yaml:"strong_against" json:"strong_against"`
	WeakAgainst       []string                `yaml:"weak_against" json:"weak_against"`
	TacticalInfo      graph.TacticalInfo      `yaml:"tactical_info" json:"tactical_info"`
	LLMInterface      map[string]any          `yaml:"llm_interface" json:"llm_interface"`
	VisualRecognition map[string]any          `yaml:"visual_recognition" json:"visual_recognition"`
	TacticalContext   map[string]any          `yaml:"tactical_context" json:"tactical_context"`
	PrefabCandidates  []graph.PrefabCandidate `yaml:"prefab_function_candidates" json:"prefab_function_candidates"`
	BuildRequirements []string                `yaml:"build_requirements" json:"build_requirements"`
	Methods           []Method                `yaml:"methods" json:"methods"`

	// Source is the file the definition was read from.
	Source string `yaml:"-" json:"-"`
}

// requiredFields are checked on the raw document so that an explicit zero
// still counts as present.
var requiredFields = map[string][]string{
	"":           {"description"},
	"cost":       {"mineral", "vespene", "supply"},
	"unit_stats": {"health", "armor", "speed"},
}

var sectionOrder = []string{"", "cost", "unit_stats"}

// missingFields returns the required keys absent from a raw record.
func missingFields(raw map[string]any) []string {
	var out []string
	for _, section := range sectionOrder {
		scope := raw
		if section != "" {
			m, _ := raw[section].(map[string]any)
			scope = m
		}
		for _, field := range requiredFields[section] {
			if _, ok := scope[field]; ok {
				continue
			}
			if section == "" {
				out = append(out, field)
			} else {
				out = append(out, section+"."+field)
			}
		}
	}
	return out
}

// NormalizeRace maps any casing of a race to its title form and reports
// whether it is a playable race.
func NormalizeRace(race string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(race)) {
	case "terran":
		return "Terran", true
	case "protoss":
		return "Protoss", true
	case "zerg":
		return "Zerg", true
	}
	return graph.UnknownRace, false
}

// UniqueID returns the node id: the authored id, or the race followed by
// the name without spaces, e.g. "TerranSiegeTank".
func (d *Definition) UniqueID() string {
	if d.ID != "" {
		return d.ID
	}
	name := strings.ReplaceAll(d.Name, " ", "")
	if race, ok := NormalizeRace(d.Race); ok {
		return race + name
	}
	return name
}
