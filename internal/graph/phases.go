package graph

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Only the first maxRoleGroupSize members of a primary-role group are
// linked pairwise, which keeps association edges from growing quadratically.
const maxRoleGroupSize = 5

// Role names accepted in llm_interface.primary_role. The catalog may be
// authored in English or in the original Chinese labels.
var (
	frontRoles = []string{"frontline", "tank", "前线", "肉盾"}
	backRoles  = []string{"backline", "damage", "后排", "输出"}
)

func hasRole(roles, wanted []string) bool {
	for _, r := range roles {
		if slices.Contains(wanted, strings.ToLower(r)) {
			return true
		}
	}
	return false
}

// collector accumulates the edges of one phase, skipping anything equal to
// an existing edge. A repeat of an edge from the same pass only contributes
// its evidence.
type collector struct {
	phase Phase
	seen  map[EdgeKey]*Edge
	edges []*Edge
}

func newCollector(phase Phase, existing []*Edge) *collector {
	c := &collector{phase: phase, seen: make(map[EdgeKey]*Edge, len(existing))}
	for _, e := range existing {
		c.seen[e.Key()] = nil
	}
	return c
}

func (c *collector) emit(source, target *Node, confidence float64, description, evidence string) *Edge {
	e := NewEdge(source.NodeID, target.NodeID, c.phase.LinkageType())
	e.Description = description
	e.Metadata.Confidence = confidence
	e.Metadata.DiscoveredInRound = int(c.phase)
	e.AddEvidence(evidence)

	k := e.Key()
	if prev, ok := c.seen[k]; ok {
		if prev != nil {
			prev.AddEvidence(evidence)
		}
		return nil
	}
	c.seen[k] = e
	c.edges = append(c.edges, e)
	return e
}

// containsFold is a case-insensitive substring test. Short needles can match
// inside unrelated longer words; an empty needle never matches.
func containsFold(haystack, needle string) bool {
	if strings.TrimSpace(needle) == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// mentions reports whether text names the target by class name or description.
func mentions(text string, target *Node) bool {
	return containsFold(text, target.ClassName) || containsFold(text, target.Description)
}

func forEachOther(nodes []*Node, self *Node, fn func(*Node)) {
	for _, other := range nodes {
		if other.NodeID != self.NodeID {
			fn(other)
		}
	}
}

func discoverInteractions(c *collector, nodes []*Node) {
	for _, n := range nodes {
		for _, ref := range n.StrongAgainst {
			forEachOther(nodes, n, func(t *Node) {
				if containsFold(t.ClassName, ref) {
					c.emit(n, t, 0.85,
						fmt.Sprintf("%s is strong against %s", n.ClassName, t.ClassName),
						fmt.Sprintf("strong_against: %s counters %s", n.ClassName, ref))
				}
			})
		}
		for _, ref := range n.WeakAgainst {
			forEachOther(nodes, n, func(t *Node) {
				if containsFold(t.ClassName, ref) {
					c.emit(n, t, 0.85,
						fmt.Sprintf("%s is weak against %s", n.ClassName, t.ClassName),
						fmt.Sprintf("weak_against: %s is countered by %s", n.ClassName, ref))
				}
			})
		}
		for _, synergy := range n.Synergies() {
			forEachOther(nodes, n, func(t *Node) {
				if mentions(synergy, t) {
					c.emit(n, t, 0.8,
						fmt.Sprintf("%s has tactical synergy with %s", n.ClassName, t.ClassName),
						"tactical_context.synergies: "+synergy)
				}
			})
		}
		for _, tactic := range n.CommonTactics() {
			forEachOther(nodes, n, func(t *Node) {
				if mentions(tactic, t) {
					c.emit(n, t, 0.75,
						fmt.Sprintf("%s and %s are used together in %q", n.ClassName, t.ClassName, tactic),
						"llm_interface.common_tactics: "+tactic)
				}
			})
		}
	}
}

func discoverCombinations(c *collector, nodes []*Node) {
	for _, n := range nodes {
		for _, synergy := range n.Synergies() {
			forEachOther(nodes, n, func(t *Node) {
				if mentions(synergy, t) {
					c.emit(n, t, 0.85,
						fmt.Sprintf("%s forms a tactical combination with %s", n.ClassName, t.ClassName),
						"tactical_context.synergies: "+synergy)
				}
			})
		}
	}

	for _, n := range nodes {
		for _, cand := range n.PrefabCandidates {
			for _, step := range cand.ExecutionFlow {
				forEachOther(nodes, n, func(t *Node) {
					if mentions(step, t) {
						c.emit(n, t, 0.9,
							fmt.Sprintf("%s combines with %s in %s", n.ClassName, t.ClassName, cand.FunctionName),
							"prefab_function_candidates.execution_flow: "+step)
					}
				})
			}
		}
	}

	for _, n := range nodes {
		roles := n.PrimaryRoles()
		if !hasRole(roles, frontRoles) {
			continue
		}
		forEachOther(nodes, n, func(t *Node) {
			targetRoles := t.PrimaryRoles()
			if !hasRole(targetRoles, backRoles) {
				return
			}
			c.emit(n, t, 0.85,
				fmt.Sprintf("%s (frontline) complements %s (backline)", n.ClassName, t.ClassName),
				fmt.Sprintf("role complementarity: %s + %s", roles[0], targetRoles[0]))
		})
	}

	for _, n := range nodes {
		keywords := n.TacticalKeywords()
		if len(keywords) == 0 {
			continue
		}
		forEachOther(nodes, n, func(t *Node) {
			common := intersect(keywords, t.TacticalKeywords())
			if len(common) >= 2 {
				c.emit(n, t, 0.75,
					fmt.Sprintf("%s and %s share tactical keywords", n.ClassName, t.ClassName),
					"shared tactical keywords: "+strings.Join(common, ", "))
			}
		})
	}
}

var associationFacilities = []struct {
	marker, facility string
}{
	{"Gateway", "Gateway"},
	{"Stargate", "Stargate"},
	{"Robotics", "Robotics Facility"},
}

func discoverAssociations(c *collector, nodes []*Node) {
	for _, n := range nodes {
		for _, synergy := range n.Synergies() {
			forEachOther(nodes, n, func(t *Node) {
				if mentions(synergy, t) {
					c.emit(n, t, 0.8,
						fmt.Sprintf("%s is associated with %s through synergy", n.ClassName, t.ClassName),
						"tactical_context.synergies: "+synergy)
				}
			})
		}
	}

	// The facility markers are matched case-sensitively.
	groups := make(map[string][]*Node)
	for _, n := range nodes {
		for _, f := range associationFacilities {
			if strings.Contains(n.ClassName, f.marker) || strings.Contains(n.Description, f.marker) {
				groups[f.facility] = append(groups[f.facility], n)
				break
			}
		}
	}
	for _, f := range associationFacilities {
		members := groups[f.facility]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				c.emit(members[i], members[j], 0.85,
					"units built from "+f.facility,
					"shared production facility: "+f.facility)
			}
		}
	}

	roleGroups := make(map[string][]*Node)
	for _, n := range nodes {
		for _, role := range n.PrimaryRoles() {
			roleGroups[role] = append(roleGroups[role], n)
		}
	}
	for _, role := range sortedKeys(roleGroups) {
		members := roleGroups[role]
		limit := min(len(members), maxRoleGroupSize)
		for i := 0; i < limit; i++ {
			for j := i + 1; j < limit; j++ {
				c.emit(members[i], members[j], 0.75,
					fmt.Sprintf("units sharing the %q role", role),
					"shared primary role: "+role)
			}
		}
	}
}

var productionKeywords = []struct {
	facility string
	keywords []string
}{
	{"Gateway", []string{"gateway", "adept", "zealot", "stalker", "sentry", "high templar", "hightemplar"}},
	{"Stargate", []string{"stargate", "phoenix", "oracle"}},
	{"Robotics Facility", []string{"robotics", "immortal", "colossus", "disruptor", "observer"}},
}

var researchBuildings = []string{"twilight council", "cybernetics core", "forge"}

func productionFacility(n *Node) string {
	name := strings.ToLower(n.ClassName)
	for _, p := range productionKeywords {
		for _, kw := range p.keywords {
			if strings.Contains(name, kw) {
				return p.facility
			}
		}
	}
	return ""
}

// compact lowercases s and drops spaces so "Twilight Council" and
// "TwilightCouncil" compare equal.
func compact(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

func containsCompact(haystack, needle string) bool {
	n := compact(needle)
	return n != "" && strings.Contains(compact(haystack), n)
}

func isResearchBuilding(n *Node) bool {
	name := compact(n.ClassName)
	for _, b := range researchBuildings {
		if name == compact(b) {
			return true
		}
	}
	return false
}

func isResearchSource(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "twilight") || strings.Contains(lower, "forge") || strings.Contains(lower, "cybernetics")
}

func discoverDependencies(c *collector, nodes []*Node) {
	for _, n := range nodes {
		for _, synergy := range n.TacticalInfo.Synergies {
			forEachOther(nodes, n, func(t *Node) {
				if containsFold(t.ClassName, synergy) {
					c.emit(n, t, 0.85,
						fmt.Sprintf("%s relies on %s for synergy", n.ClassName, t.ClassName),
						"tactical_info.synergies: "+synergy)
				}
			})
		}
	}

	for _, n := range nodes {
		facility := productionFacility(n)
		if facility == "" {
			continue
		}
		forEachOther(nodes, n, func(t *Node) {
			if containsCompact(t.ClassName, facility) {
				c.emit(n, t, 0.95,
					fmt.Sprintf("%s is produced by %s", n.ClassName, t.ClassName),
					"production facility: "+facility)
			}
		})
	}

	for _, n := range nodes {
		for _, name := range sortedKeys(n.Upgrades) {
			from := n.Upgrades[name].ResearchedFrom
			if !isResearchSource(from) {
				continue
			}
			forEachOther(nodes, n, func(t *Node) {
				if containsCompact(from, t.ClassName) {
					c.emit(n, t, 0.9,
						fmt.Sprintf("%s upgrade %s is researched at %s", n.ClassName, name, t.ClassName),
						"upgrade research: "+from)
				}
			})
		}
	}

	for _, n := range nodes {
		for _, name := range sortedKeys(n.Abilities) {
			ability := strings.ToLower(strings.ReplaceAll(name, "_", " "))
			if !strings.Contains(ability, "charge") && !strings.Contains(ability, "blink") && !strings.Contains(ability, "force field") {
				continue
			}
			forEachOther(nodes, n, func(t *Node) {
				if isResearchBuilding(t) {
					c.emit(n, t, 0.85,
						fmt.Sprintf("%s ability %s depends on %s", n.ClassName, name, t.ClassName),
						"ability requirement: "+name)
				}
			})
		}
	}
}

func discoverInvocations(c *collector, nodes []*Node) {
	for _, n := range nodes {
		for _, m := range n.Methods {
			for _, p := range m.Parameters {
				forEachOther(nodes, n, func(t *Node) {
					if containsFold(t.ClassName, p.Type) {
						if e := c.emit(n, t, 0.85,
							fmt.Sprintf("%s.%s takes a %s parameter", n.ClassName, m.Name, t.ClassName),
							"method parameter type: "+p.Type); e != nil {
							e.SourceMethod = m.Name
						}
					}
				})
			}
		}
	}

	for _, n := range nodes {
		for _, m := range n.Methods {
			forEachOther(nodes, n, func(t *Node) {
				if containsFold(t.ClassName, m.ReturnType) {
					if e := c.emit(n, t, 0.8,
						fmt.Sprintf("%s.%s returns %s", n.ClassName, m.Name, t.ClassName),
						"method return type: "+m.ReturnType); e != nil {
						e.SourceMethod = m.Name
					}
				}
			})
		}
	}

	for _, n := range nodes {
		for _, cand := range n.PrefabCandidates {
			if cand.FunctionName == "" {
				continue
			}
			forEachOther(nodes, n, func(t *Node) {
				if containsFold(cand.FunctionName, t.ClassName) {
					if e := c.emit(n, t, 0.85,
						fmt.Sprintf("%s prefab %s references %s", n.ClassName, cand.FunctionName, t.ClassName),
						"prefab function: "+cand.FunctionName); e != nil {
						e.SourceMethod = cand.FunctionName
					}
				}
			})
		}
	}
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, s := range a {
		if set[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
