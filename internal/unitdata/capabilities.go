package unitdata

import (
	"slices"
	"strings"

	"sc2affordance/internal/graph"
)

const (
	rootClass     = "Unit"
	standardClass = "StandardUnit"
)

func method(name, returns, desc string, params ...graph.MethodParam) graph.NodeMethod {
	if params == nil {
		params = []graph.MethodParam{}
	}
	return graph.NodeMethod{Name: name, ReturnType: returns, Parameters: params, Description: desc}
}

func param(name, typ string) graph.MethodParam {
	return graph.MethodParam{Name: name, Type: typ}
}

// baseMethods are shared by every unit.
var baseMethods = []graph.NodeMethod{
	method("move_to", "bool", "move to a position", param("target_position", "Position")),
	method("get_destroyed", "None", "mark the unit destroyed"),
	method("get_selected", "None", "select the unit"),
}

var raceMethods = map[string][]graph.NodeMethod{
	"Terran": {
		method("be_repaired", "bool", "get repaired by an SCV", param("scv_unit", "SCV")),
		method("lift_off", "bool", "lift off a building"),
	},
	"Protoss": {
		method("regenerate_shields", "bool", "regenerate shields"),
		method("warp_in", "bool", "warp in at a powered location", param("warp_location", "Position")),
	},
	"Zerg": {
		method("regenerate_health", "bool", "regenerate health"),
		method("morph_into", "bool", "morph into another unit type", param("target_unit_type", "str")),
	},
}

// capabilityMethods is the mixin table. Each capability contributes one
// link of the inheritance chain and its methods.
var capabilityMethods = map[string][]graph.NodeMethod{
	"ground": {
		method("traverse_terrain", "float", "move across terrain", param("terrain_type", "str")),
		method("use_ramp", "bool", "use a ramp", param("ramp_position", "Position")),
	},
	"air": {
		method("fly_over", "bool", "fly over terrain", param("position", "Position")),
	},
	"infantry": {
		method("enter_bunker", "bool", "enter a bunker", param("bunker", "Bunker")),
	},
	"vehicle": {
		method("be_repaired_in_field", "bool", "get repaired by an SCV", param("scv_unit", "SCV")),
	},
	"biological": {
		method("receive_healing", "bool", "receive healing from a Medivac", param("healer", "Medivac")),
	},
	"mechanical": {},
	"psionic": {
		method("cast_psionic", "bool", "cast a psionic ability", param("ability", "str")),
	},
	"massive": {},
	"detector": {
		method("detect", "list", "reveal cloaked units", param("position", "Position")),
	},
	"transport": {
		method("load_unit", "bool", "load a unit", param("unit", "Unit")),
		method("unload_all", "bool", "unload all cargo", param("position", "Position")),
	},
	"caster": {
		method("cast_ability", "bool", "cast an ability", param("ability", "str"), param("target", "Unit")),
	},
	"cloakable": {
		method("toggle_cloak", "bool", "toggle cloaking"),
	},
	"transform": {
		method("transform", "bool", "switch mode", param("mode", "str")),
	},
	"suicide": {
		method("detonate", "bool", "detonate at a position", param("target_position", "Position")),
	},
	"burrow": {
		method("burrow", "bool", "burrow"),
	},
}

// KnownCapability reports whether the mixin table has the capability.
func KnownCapability(c string) bool {
	_, ok := capabilityMethods[strings.ToLower(c)]
	return ok
}

func className(capability string) string {
	c := strings.ToLower(capability)
	return strings.ToUpper(c[:1]) + c[1:] + "Unit"
}

// inheritanceChain builds the root-to-leaf chain, e.g.
// Unit, StandardUnit, TerranUnit, GroundUnit, InfantryUnit, TerranMarine.
func inheritanceChain(race string, capabilities []string, id string) []string {
	chain := []string{rootClass, standardClass}
	if r, ok := NormalizeRace(race); ok {
		chain = append(chain, r+"Unit")
	}
	for _, c := range capabilities {
		if c == "" || !KnownCapability(c) {
			continue
		}
		if name := className(c); !slices.Contains(chain, name) {
			chain = append(chain, name)
		}
	}
	return append(chain, id)
}

// methodTable merges the base, race and capability methods with the
// authored ones. An authored method replaces an inherited one of the same
// name and is marked overridden.
func methodTable(race string, capabilities []string, authored []Method) []graph.NodeMethod {
	var out []graph.NodeMethod
	add := func(ms []graph.NodeMethod) {
		for _, m := range ms {
			if !slices.ContainsFunc(out, func(x graph.NodeMethod) bool { return x.Name == m.Name }) {
				out = append(out, m)
			}
		}
	}
	add(baseMethods)
	if r, ok := NormalizeRace(race); ok {
		add(raceMethods[r])
	}
	for _, c := range capabilities {
		add(capabilityMethods[strings.ToLower(c)])
	}

	for _, a := range authored {
		params := make([]graph.MethodParam, len(a.Params))
		for i, p := range a.Params {
			params[i] = graph.MethodParam{Name: p.Name, Type: p.Type}
		}
		m := graph.NodeMethod{Name: a.Name, ReturnType: a.Returns, Parameters: params, Description: a.Description}
		if a.Returns == "" {
			m.ReturnType = "None"
		}
		if i := slices.IndexFunc(out, func(x graph.NodeMethod) bool { return x.Name == a.Name }); i >= 0 {
			m.IsOverridden = true
			out[i] = m
			continue
		}
		out = append(out, m)
	}
	return out
}
