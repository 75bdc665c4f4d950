package unitdata

import (
	"maps"
	"slices"

	"sc2affordance/internal/graph"
)

// ToNode converts a definition into a linkage-graph node.
func ToNode(d *Definition) *graph.Node {
	id := d.UniqueID()
	n := graph.NewNode(id, d.Name)
	n.Description = d.Description
	if race, ok := NormalizeRace(d.Race); ok {
		n.Race = race
		n.UnitType = race + " Unit"
	}
	if d.UnitType != "" {
		n.UnitType = d.UnitType
	}

	n.InheritanceChain = inheritanceChain(d.Race, d.Capabilities, id)
	n.InheritanceDepth = len(n.InheritanceChain)
	if len(n.InheritanceChain) > 1 {
		n.ParentClass = n.InheritanceChain[len(n.InheritanceChain)-2]
	}
	n.Methods = methodTable(d.Race, d.Capabilities, d.Methods)
	n.Attributes = attributes(d)

	if d.LLMInterface != nil {
		n.LLMInterface = maps.Clone(d.LLMInterface)
	}
	if d.VisualRecognition != nil {
		n.VisualRecognition = maps.Clone(d.VisualRecognition)
	}
	if d.TacticalContext != nil {
		n.TacticalContext = maps.Clone(d.TacticalContext)
	}
	n.StrongAgainst = slices.Clone(d.StrongAgainst)
	n.WeakAgainst = slices.Clone(d.WeakAgainst)
	n.Abilities = maps.Clone(d.Abilities)
	n.Upgrades = maps.Clone(d.Upgrades)
	n.TacticalInfo = graph.TacticalInfo{
		StrongAgainst: slices.Clone(d.TacticalInfo.StrongAgainst),
		WeakAgainst:   slices.Clone(d.TacticalInfo.WeakAgainst),
		Synergies:     slices.Clone(d.TacticalInfo.Synergies),
	}
	n.PrefabCandidates = slices.Clone(d.PrefabCandidates)
	n.BuildRequirements = slices.Clone(d.BuildRequirements)
	return n
}

// Nodes converts every definition.
func Nodes(defs []*Definition) []*graph.Node {
	out := make([]*graph.Node, len(defs))
	for i, d := range defs {
		out[i] = ToNode(d)
	}
	return out
}

func attributes(d *Definition) []graph.NodeAttribute {
	attr := func(name, typ string, value any, desc string, required bool) graph.NodeAttribute {
		return graph.NodeAttribute{Name: name, DataType: typ, DefaultValue: value, Description: desc, IsRequired: required}
	}
	out := []graph.NodeAttribute{
		attr("health", "float", d.Stats.Health, "maximum hit points", true),
		attr("armor", "float", d.Stats.Armor, "base armor", true),
		attr("speed", "float", d.Stats.Speed, "movement speed", true),
		attr("mineral_cost", "float", d.Cost.Mineral, "mineral cost", true),
		attr("vespene_cost", "float", d.Cost.Vespene, "vespene cost", true),
		attr("supply", "float", d.Cost.Supply, "supply used", true),
	}
	if d.Stats.Shield > 0 {
		out = append(out, attr("shield", "float", d.Stats.Shield, "maximum shields", false))
	}
	if d.Stats.Energy > 0 {
		out = append(out, attr("energy", "float", d.Stats.Energy, "maximum energy", false))
	}
	if len(d.Stats.Attributes) > 0 {
		out = append(out, attr("attributes", "list", slices.Clone(d.Stats.Attributes), "armor attributes", false))
	}
	if d.Attack != nil {
		out = append(out, attr("attack", "dict", maps.Clone(d.Attack), "weapon profile", false))
	}
	return out
}
