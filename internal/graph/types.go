package graph

type LinkageType string

const (
	LinkageInteraction LinkageType = "interaction"
	LinkageCombination LinkageType = "combination"
	LinkageAssociation LinkageType = "association"
	LinkageInvocation  LinkageType = "invocation"
	LinkageDependency  LinkageType = "dependency"
)

// LinkageTypes lists every linkage type in traversal order.
var LinkageTypes = []LinkageType{
	LinkageInteraction,
	LinkageCombination,
	LinkageAssociation,
	LinkageDependency,
	LinkageInvocation,
}

func (t LinkageType) Valid() bool {
	switch t {
	case LinkageInteraction, LinkageCombination, LinkageAssociation, LinkageInvocation, LinkageDependency:
		return true
	}
	return false
}

// DefaultDirection is undirected for peer relations and directed for call/dependency relations.
func (t LinkageType) DefaultDirection() Direction {
	switch t {
	case LinkageInvocation, LinkageDependency:
		return DirectionDirected
	default:
		return DirectionUndirected
	}
}

type Direction string

const (
	DirectionDirected   Direction = "directed"
	DirectionUndirected Direction = "undirected"
)

type EdgeSource string

const (
	SourceAutoDetected EdgeSource = "auto_detected"
	SourceManual       EdgeSource = "manual"
)

type NodeAttribute struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	DefaultValue any    `json:"default_value"`
	Description  string `json:"description"`
	IsRequired   bool   `json:"is_required"`
}

type MethodParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NodeMethod is an authored method signature. The invocation phase reads
// parameter and return types from here instead of reflecting on code.
type NodeMethod struct {
	Name         string        `json:"name"`
	ReturnType   string        `json:"return_type"`
	Parameters   []MethodParam `json:"parameters"`
	Description  string        `json:"description"`
	IsOverridden bool          `json:"is_overridden"`
}

type Ability struct {
	Name        string  `json:"name" yaml:"name"`
	Researched  bool    `json:"researched" yaml:"researched"`
	Cooldown    float64 `json:"cooldown,omitempty" yaml:"cooldown"`
	Range       float64 `json:"range,omitempty" yaml:"range"`
	EnergyCost  float64 `json:"energy_cost,omitempty" yaml:"energy_cost"`
	Description string  `json:"description,omitempty" yaml:"description"`
	Hotkey      string  `json:"hotkey,omitempty" yaml:"hotkey"`
}

type Upgrade struct {
	Name           string `json:"name" yaml:"name"`
	MineralCost    int    `json:"mineral_cost,omitempty" yaml:"mineral_cost"`
	VespeneCost    int    `json:"vespene_cost,omitempty" yaml:"vespene_cost"`
	ResearchTime   int    `json:"research_time,omitempty" yaml:"research_time"`
	ResearchedFrom string `json:"researched_from,omitempty" yaml:"researched_from"`
	Effect         string `json:"effect,omitempty" yaml:"effect"`
}

type TacticalInfo struct {
	StrongAgainst []string `json:"strong_against,omitempty" yaml:"strong_against"`
	WeakAgainst   []string `json:"weak_against,omitempty" yaml:"weak_against"`
	Synergies     []string `json:"synergies,omitempty" yaml:"synergies"`
}

// PrefabCandidate is a tactic sketch authored alongside a unit.
type PrefabCandidate struct {
	FunctionName  string   `json:"function_name" yaml:"function_name"`
	Description   string   `json:"description,omitempty" yaml:"description"`
	ExecutionFlow []string `json:"execution_flow" yaml:"execution_flow"`
}

type EdgeMetadata struct {
	Weight            float64        `json:"weight"`
	Confidence        float64        `json:"confidence"`
	Source            EdgeSource     `json:"source"`
	DiscoveredInRound int            `json:"discovered_in_round"`
	Evidence          []string       `json:"evidence"`
	ContextInfo       map[string]any `json:"context_info"`
}
