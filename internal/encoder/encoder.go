package encoder

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"sc2affordance/internal/graph"
	"sc2affordance/internal/prefab"
)

// cliqueTemplate describes how one clique of a linkage type is rendered.
type cliqueTemplate struct {
	kind       graph.LinkageType
	prefix     string
	category   string
	execution  string
	combinator string
	call       string
	param      prefab.Parameter
	confidence float64
	strategy   string
}

var cliqueTemplates = []cliqueTemplate{
	{
		kind:       graph.LinkageCombination,
		prefix:     "coordinated_scouting",
		category:   "scouting",
		execution:  "concurrent",
		combinator: "concurrent_execute",
		call:       "execute()",
		param: prefab.Parameter{
			Name: "target_area", Type: "str", Description: "area to scout",
			Domain: []any{"enemy_base", "expansion", "middle", "flank"},
		},
		confidence: 0.85,
		strategy:   "Scout with %s in parallel so every unit gathers intel at the same time.",
	},
	{
		kind:       graph.LinkageAssociation,
		prefix:     "frontline_combat_group",
		category:   "frontline_combat",
		execution:  "parallel",
		combinator: "parallel_execute",
		call:       "{operation_type}()",
		param: prefab.Parameter{
			Name: "operation_type", Type: "str", Description: "operation to perform",
			Domain: []any{"move", "attack", "defend"},
		},
		confidence: 0.8,
		strategy:   "Form a frontline group of %s that moves, attacks or defends together.",
	},
	{
		kind:       graph.LinkageInvocation,
		prefix:     "tactical_sequence",
		category:   "tactical_sequence",
		execution:  "sequential",
		combinator: "sequential_execute",
		call:       "invoke({target_unit})",
		param: prefab.Parameter{
			Name: "target_unit", Type: "str", Description: "unit type to act on",
			Domain: "valid_unit_types",
		},
		confidence: 0.9,
		strategy:   "Run %s in order against a chosen unit type.",
	},
	{
		kind:       graph.LinkageDependency,
		prefix:     "strategic_deployment",
		category:   "strategic_deployment",
		execution:  "sequential",
		combinator: "sequential_execute",
		call:       "execute({resource_allocation})",
		param: prefab.Parameter{
			Name: "resource_allocation", Type: "Dict[str, int]", Description: "resource split",
			Domain: "valid_resource_ranges",
		},
		confidence: 0.95,
		strategy:   "Deploy %s following their build dependencies and split resources accordingly.",
	},
}

// Encoder turns a traversed linkage graph into prefab function records.
type Encoder struct {
	logger  *zap.Logger
	counter int
}

func New(logger *zap.Logger) *Encoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Encoder{logger: logger.Named("encoder")}
}

// Encode emits one function per interaction edge and one per maximal clique
// of every other linkage type. Ids share a single counter across types.
func (e *Encoder) Encode(g *graph.Graph) []*prefab.Function {
	e.logger.Info("encoding prefab functions",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()))

	var out []*prefab.Function
	out = append(out, e.encodeInteractions(g)...)
	for _, tmpl := range cliqueTemplates {
		fns := e.encodeCliques(g, tmpl)
		e.logger.Debug("encoded cliques",
			zap.String("linkage_type", string(tmpl.kind)),
			zap.Int("functions", len(fns)))
		out = append(out, fns...)
	}

	e.logger.Info("encoded prefab functions", zap.Int("count", len(out)))
	return out
}

func (e *Encoder) nextID(kind graph.LinkageType) string {
	id := fmt.Sprintf("%s_%d", strings.ToUpper(string(kind)), e.counter)
	e.counter++
	return id
}

func (e *Encoder) encodeInteractions(g *graph.Graph) []*prefab.Function {
	var out []*prefab.Function
	for _, edge := range g.EdgesByType(graph.LinkageInteraction) {
		src, ok := g.Node(edge.SourceNodeID)
		if !ok {
			e.logger.Warn("interaction edge has no source node", zap.String("edge_id", edge.EdgeID))
			continue
		}
		tgt, ok := g.Node(edge.TargetNodeID)
		if !ok {
			e.logger.Warn("interaction edge has no target node", zap.String("edge_id", edge.EdgeID))
			continue
		}
		out = append(out, &prefab.Function{
			FunctionID:   e.nextID(graph.LinkageInteraction),
			FunctionType: prefab.TypeInteraction,
			LinkageType:  string(graph.LinkageInteraction),
			Name:         fmt.Sprintf("target_%s_on_%s", src.ClassName, tgt.ClassName),
			Description:  fmt.Sprintf("Set the target of %s to %s", src.ClassName, tgt.ClassName),
			StrategyDescription: fmt.Sprintf(
				"Use %s to strike %s precisely and exploit the counter relationship.",
				src.ClassName, tgt.ClassName),
			TacticCategory: prefab.CategoryTargeting,
			SourceUnit:     src.ClassName,
			TargetUnit:     tgt.ClassName,
			ExecutionType:  "target_setting",
			Parameters: []prefab.Parameter{{
				Name:        "target_unit_tag",
				Type:        "int",
				Description: fmt.Sprintf("unit tag of the %s", tgt.ClassName),
				Domain:      "valid_enemy_tags",
			}},
			ExecutionFlow: []string{fmt.Sprintf("set_target(%s, target_unit_tag)", src.ClassName)},
			Evidence:      slices.Clone(edge.Metadata.Evidence),
			Confidence:    edge.Metadata.Confidence,
		})
	}
	return out
}

func (e *Encoder) encodeCliques(g *graph.Graph, tmpl cliqueTemplate) []*prefab.Function {
	var out []*prefab.Function
	for _, clique := range MaximalCliques(g, tmpl.kind) {
		units := make([]string, 0, len(clique))
		for _, id := range clique {
			if n, ok := g.Node(id); ok {
				units = append(units, n.ClassName)
			}
		}
		if len(units) < 2 {
			continue
		}
		sorted := slices.Clone(units)
		slices.Sort(sorted)

		calls := make([]string, len(units))
		for i, u := range units {
			calls[i] = u + "." + tmpl.call
		}
		listed := strings.Join(units, ", ")

		param := tmpl.param
		if domain, ok := param.Domain.([]any); ok {
			param.Domain = slices.Clone(domain)
		}
		out = append(out, &prefab.Function{
			FunctionID:          e.nextID(tmpl.kind),
			FunctionType:        string(tmpl.kind),
			LinkageType:         string(tmpl.kind),
			Name:                tmpl.prefix + "_" + strings.Join(sorted, "_"),
			Description:         fmt.Sprintf("Run the %s %s operation of %s", tmpl.execution, tmpl.kind, listed),
			StrategyDescription: fmt.Sprintf(tmpl.strategy, listed),
			TacticCategory:      tmpl.category,
			Units:               units,
			ExecutionType:       tmpl.execution,
			Parameters:          []prefab.Parameter{param},
			ExecutionFlow:       []string{fmt.Sprintf("%s([%s])", tmpl.combinator, strings.Join(calls, ", "))},
			Evidence:            []string{fmt.Sprintf("based on %s maximal clique detection", strings.ToUpper(string(tmpl.kind)))},
			Confidence:          tmpl.confidence,
		})
	}
	return out
}

// MaximalCliques projects the edges of kind onto an undirected graph and
// returns every maximal clique of two or more nodes. Within a connected
// component cliques are tested largest first by exhaustive subset search,
// which is exponential in component size.
func MaximalCliques(g *graph.Graph, kind graph.LinkageType) [][]string {
	ids, projection := project(g, kind)
	if projection.Nodes().Len() == 0 {
		return nil
	}

	components := topo.ConnectedComponents(projection)
	for _, c := range components {
		slices.SortFunc(c, func(a, b gonumgraph.Node) int { return cmp.Compare(a.ID(), b.ID()) })
	}
	slices.SortFunc(components, func(a, b []gonumgraph.Node) int { return cmp.Compare(a[0].ID(), b[0].ID()) })

	var out [][]string
	for _, component := range components {
		members := make([]int64, len(component))
		for i, n := range component {
			members[i] = n.ID()
		}
		for _, clique := range componentCliques(projection, members) {
			named := make([]string, len(clique))
			for i, id := range clique {
				named[i] = ids[id]
			}
			out = append(out, named)
		}
	}
	return out
}

// project maps node ids to dense int64 ids in sorted order and adds one
// undirected edge per linkage of kind. Self links are ignored.
func project(g *graph.Graph, kind graph.LinkageType) ([]string, *simple.UndirectedGraph) {
	projection := simple.NewUndirectedGraph()
	edges := g.EdgesByType(kind)

	seen := make(map[string]bool)
	for _, edge := range edges {
		if edge.SourceNodeID == edge.TargetNodeID {
			continue
		}
		seen[edge.SourceNodeID] = true
		seen[edge.TargetNodeID] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	index := make(map[string]int64, len(ids))
	for i, id := range ids {
		index[id] = int64(i)
		projection.AddNode(simple.Node(i))
	}

	for _, edge := range edges {
		if edge.SourceNodeID == edge.TargetNodeID {
			continue
		}
		a, b := index[edge.SourceNodeID], index[edge.TargetNodeID]
		if projection.HasEdgeBetween(a, b) {
			continue
		}
		projection.SetEdge(projection.NewEdge(simple.Node(a), simple.Node(b)))
	}
	return ids, projection
}

func componentCliques(g *simple.UndirectedGraph, members []int64) [][]int64 {
	isClique := func(set []int64) bool {
		for i := range set {
			for j := i + 1; j < len(set); j++ {
				if !g.HasEdgeBetween(set[i], set[j]) {
					return false
				}
			}
		}
		return true
	}
	extendable := func(set []int64) bool {
		for _, candidate := range members {
			if slices.Contains(set, candidate) {
				continue
			}
			joins := true
			for _, m := range set {
				if !g.HasEdgeBetween(candidate, m) {
					joins = false
					break
				}
			}
			if joins {
				return true
			}
		}
		return false
	}

	var out [][]int64
	for size := len(members); size >= 2; size-- {
		combinations(members, size, func(set []int64) {
			if isClique(set) && !extendable(set) {
				out = append(out, slices.Clone(set))
			}
		})
	}
	return out
}

// combinations calls visit with every size-k subset of items in
// lexicographic index order. The slice passed to visit is reused.
func combinations(items []int64, k int, visit func([]int64)) {
	if k > len(items) || k <= 0 {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	set := make([]int64, k)
	for {
		for i, j := range idx {
			set[i] = items[j]
		}
		visit(set)

		i := k - 1
		for i >= 0 && idx[i] == len(items)-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// Save writes fns as an indented JSON array.
func (e *Encoder) Save(path string, fns []*prefab.Function) error {
	if err := prefab.SaveFile(path, fns); err != nil {
		e.logger.Error("failed to save prefab functions", zap.String("path", path), zap.Error(err))
		return err
	}
	e.logger.Info("saved prefab functions", zap.String("path", path), zap.Int("count", len(fns)))
	return nil
}
