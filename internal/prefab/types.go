package prefab

import (
	"slices"
	"strings"
)

// Function types mirror the linkage types they were encoded from.
const (
	TypeInteraction = "interaction"
	TypeCombination = "combination"
	TypeAssociation = "association"
	TypeDependency  = "dependency"
	TypeInvocation  = "invocation"
)

// Tactic categories with special handling at runtime.
const (
	CategoryTargeting     = "targeting"
	CategoryOffense       = "offense"
	CategoryDefense       = "defense"
	CategorySupport       = "support"
	CategoryHeterogeneous = "heterogeneous_coordination"
	CategoryFormation     = "formation_control_coordination"
)

const (
	DefaultConfidence = 0.5
	MinConfidence     = 0.1
	MaxConfidence     = 1.0
)

// Parameter is a typed slot of a function. Domain is either a named domain
// ("valid_enemy_tags") or a list of allowed values.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Domain      any    `json:"domain,omitempty"`
}

type Prerequisites struct {
	RequiredUnits    []string `json:"required_units,omitempty"`
	RequiredUpgrades []string `json:"required_upgrades,omitempty"`
}

// UnitComposition groups the units a synergy function is written for.
type UnitComposition struct {
	Primary   []string `json:"primary,omitempty"`
	Secondary []string `json:"secondary,omitempty"`
	Support   []string `json:"support,omitempty"`
}

// Function is one prefab tactic record as stored in *_prefab_functions.json.
type Function struct {
	FunctionID          string         `json:"function_id"`
	FunctionType        string         `json:"function_type"`
	LinkageType         string         `json:"linkage_type"`
	Name                string         `json:"name"`
	Description         string         `json:"description"`
	StrategyDescription string         `json:"strategy_description,omitempty"`
	TacticCategory      string         `json:"tactic_category,omitempty"`
	SourceUnit          string         `json:"source_unit,omitempty"`
	TargetUnit          string         `json:"target_unit,omitempty"`
	Units               []string       `json:"units,omitempty"`
	ExecutionType       string         `json:"execution_type"`
	Parameters          []Parameter    `json:"parameters"`
	ExecutionFlow       []string       `json:"execution_flow"`
	Evidence            []string       `json:"evidence,omitempty"`
	Confidence          float64        `json:"confidence"`
	Prerequisites       *Prerequisites `json:"prerequisites,omitempty"`
	ApplicableMaps      []string       `json:"applicable_maps,omitempty"`
	ApplicableScenarios []string       `json:"applicable_scenarios,omitempty"`
	TacticalEffect      string         `json:"tactical_effect,omitempty"`
	Difficulty          string         `json:"difficulty,omitempty"`
	Race                string         `json:"race,omitempty"`

	SynergyType      string           `json:"synergy_type,omitempty"`
	UnitComposition  *UnitComposition `json:"unit_composition,omitempty"`
	TacticalBenefits []string         `json:"tactical_benefits,omitempty"`
	DifficultyLevel  string           `json:"difficulty_level,omitempty"`

	UsageCount  int      `json:"usage_count,omitempty"`
	SuccessRate *float64 `json:"success_rate,omitempty"`
}

// Scored is a function annotated by OptimalFunctions.
type Scored struct {
	*Function
	Score     float64 `json:"score"`
	Relevance float64 `json:"relevance"`
}

// Participants returns every unit the function references, in field order
// and without duplicates.
func (f *Function) Participants() []string {
	var out []string
	add := func(u string) {
		if u != "" && !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	add(f.SourceUnit)
	add(f.TargetUnit)
	for _, u := range f.Units {
		add(u)
	}
	return out
}

func (f *Function) RequiredUnits() []string {
	if f.Prerequisites == nil {
		return nil
	}
	return f.Prerequisites.RequiredUnits
}

// Level returns the authored difficulty, preferring difficulty_level.
func (f *Function) Level() string {
	if f.DifficultyLevel != "" {
		return f.DifficultyLevel
	}
	return f.Difficulty
}

// FlowText joins the execution flow for keyword scans.
func (f *Function) FlowText() string {
	return strings.Join(f.ExecutionFlow, "\n")
}

// Clone returns a deep copy.
func (f *Function) Clone() *Function {
	if f == nil {
		return nil
	}
	c := *f
	c.Units = slices.Clone(f.Units)
	c.Parameters = slices.Clone(f.Parameters)
	c.ExecutionFlow = slices.Clone(f.ExecutionFlow)
	c.Evidence = slices.Clone(f.Evidence)
	c.ApplicableMaps = slices.Clone(f.ApplicableMaps)
	c.ApplicableScenarios = slices.Clone(f.ApplicableScenarios)
	c.TacticalBenefits = slices.Clone(f.TacticalBenefits)
	if f.Prerequisites != nil {
		p := *f.Prerequisites
		p.RequiredUnits = slices.Clone(p.RequiredUnits)
		p.RequiredUpgrades = slices.Clone(p.RequiredUpgrades)
		c.Prerequisites = &p
	}
	if f.UnitComposition != nil {
		u := *f.UnitComposition
		u.Primary = slices.Clone(u.Primary)
		u.Secondary = slices.Clone(u.Secondary)
		u.Support = slices.Clone(u.Support)
		c.UnitComposition = &u
	}
	if f.SuccessRate != nil {
		r := *f.SuccessRate
		c.SuccessRate = &r
	}
	return &c
}

// MatchesRace reports whether race appears in the id, name, participants or
// flow of the function.
func (f *Function) MatchesRace(race string) bool {
	if race == "" {
		return true
	}
	lower := strings.ToLower(race)
	if strings.Contains(strings.ToUpper(f.FunctionID), strings.ToUpper(race)) {
		return true
	}
	if strings.Contains(strings.ToLower(f.Name), lower) {
		return true
	}
	if strings.EqualFold(f.Race, race) {
		return true
	}
	for _, u := range f.Participants() {
		if strings.Contains(strings.ToLower(u), lower) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(f.FlowText()), lower)
}

// AppliesToMap is true when the function lists no maps or lists mapName.
func (f *Function) AppliesToMap(mapName string) bool {
	if mapName == "" || len(f.ApplicableMaps) == 0 {
		return true
	}
	return slices.Contains(f.ApplicableMaps, mapName)
}

// Signature renders "name(p: type, ...) -> execution_type".
func (f *Function) Signature() string {
	params := make([]string, 0, len(f.Parameters))
	for _, p := range f.Parameters {
		params = append(params, p.Name+": "+p.Type)
	}
	return f.Name + "(" + strings.Join(params, ", ") + ") -> " + f.ExecutionType
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
