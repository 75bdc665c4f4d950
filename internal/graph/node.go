package graph

import "fmt"

const (
	UnknownRace  = "Unknown"
	AbstractUnit = "Abstract"
)

// Node is the linkage-graph vertex: one unit class and its tactical metadata.
type Node struct {
	NodeID            string          `json:"node_id"`
	ClassName         string          `json:"class_name"`
	UniqueClassName   string          `json:"unique_class_name"`
	InheritanceChain  []string        `json:"inheritance_chain"`
	ParentClass       string          `json:"parent_class,omitempty"`
	InheritanceDepth  int             `json:"inheritance_depth"`
	Attributes        []NodeAttribute `json:"attributes"`
	Methods           []NodeMethod    `json:"methods"`
	LLMInterface      map[string]any  `json:"llm_interface"`
	VisualRecognition map[string]any  `json:"visual_recognition"`
	TacticalContext   map[string]any  `json:"tactical_context"`
	Description       string          `json:"description"`
	Race              string          `json:"race"`
	UnitType          string          `json:"unit_type"`

	StrongAgainst     []string           `json:"strong_against,omitempty"`
	WeakAgainst       []string           `json:"weak_against,omitempty"`
	Abilities         map[string]Ability `json:"abilities,omitempty"`
	Upgrades          map[string]Upgrade `json:"upgrades,omitempty"`
	TacticalInfo      TacticalInfo       `json:"tactical_info"`
	PrefabCandidates  []PrefabCandidate  `json:"prefab_function_candidates,omitempty"`
	BuildRequirements []string           `json:"build_requirements,omitempty"`
}

// NewNode returns a node with the default race and unit type filled in.
func NewNode(id, className string) *Node {
	return &Node{
		NodeID:            id,
		ClassName:         className,
		UniqueClassName:   id,
		LLMInterface:      map[string]any{},
		VisualRecognition: map[string]any{},
		TacticalContext:   map[string]any{},
		Race:              UnknownRace,
		UnitType:          AbstractUnit,
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s, %s)", n.NodeID, n.Race, n.UnitType)
}

// Synergies returns tactical_context.synergies.
func (n *Node) Synergies() []string {
	return stringsAt(n.TacticalContext, "synergies")
}

func (n *Node) CommonTactics() []string {
	return stringsAt(n.LLMInterface, "common_tactics")
}

func (n *Node) PrimaryRoles() []string {
	return stringsAt(n.LLMInterface, "primary_role")
}

func (n *Node) TacticalKeywords() []string {
	return stringsAt(n.LLMInterface, "tactical_keywords")
}

// stringsAt reads a free-form metadata value as a string list. A bare
// string is treated as a one-element list.
func stringsAt(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
