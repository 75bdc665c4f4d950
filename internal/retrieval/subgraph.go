package retrieval

import (
	"sort"
	"strings"

	"sc2affordance/internal/gamestate"
	"sc2affordance/internal/graph"
)

// Config controls how unit neighbourhoods are extracted.
type Config struct {
	MaxHops       int
	MinConfidence float64
	AllowedKinds  map[graph.LinkageType]bool
}

func DefaultConfig() Config {
	return Config{
		MaxHops:       2,
		MinConfidence: 0.0,
		AllowedKinds:  nil,
	}
}

// Subgraph is the neighbourhood of a set of seed units.
type Subgraph struct {
	MaxHops    int
	SeedIDs    []string
	Unresolved []string
	NodeIDs    []string
	NodeScores map[string]float64
	Edges      []*graph.Edge
}

// ResolveSeeds maps unit references to node ids. A reference matches a node
// id exactly, or a class name ignoring case after the instance suffix is
// dropped, so "Marine_2" and "TerranMarine" both find TerranMarine.
func ResolveSeeds(g *graph.Graph, refs []string) (ids, unresolved []string) {
	byClass := make(map[string][]string)
	for _, n := range g.Nodes() {
		key := strings.ToLower(n.ClassName)
		byClass[key] = append(byClass[key], n.NodeID)
	}

	found := make(map[string]bool)
	for _, ref := range refs {
		if _, ok := g.Node(ref); ok {
			found[ref] = true
			continue
		}
		base := gamestate.BaseType(ref)
		matches := byClass[strings.ToLower(base)]
		if len(matches) == 0 {
			if stripped, ok := gamestate.StripRacePrefix(base); ok {
				matches = byClass[strings.ToLower(stripped)]
			}
		}
		if len(matches) == 0 {
			unresolved = append(unresolved, ref)
			continue
		}
		for _, id := range matches {
			found[id] = true
		}
	}
	return sortedKeys(found), unresolved
}

// FromObservation seeds the extraction with the friendly units on the field.
func FromObservation(g *graph.Graph, obs gamestate.Observation, cfg Config) *Subgraph {
	friendly, _ := obs.Split()
	refs := make([]string, 0, len(friendly))
	for _, u := range friendly {
		refs = append(refs, u.Name())
	}
	return Extract(g, refs, cfg)
}

// Extract runs a hop-bounded breadth-first search from the seed units,
// ignoring edge direction. Seeds score 1; every other node keeps the best
// product of edge confidences along a path from a seed.
func Extract(g *graph.Graph, refs []string, cfg Config) *Subgraph {
	if g == nil {
		return &Subgraph{NodeScores: map[string]float64{}}
	}
	if cfg.MaxHops < 0 {
		cfg.MaxHops = 0
	}

	seedIDs, unresolved := ResolveSeeds(g, refs)
	if len(seedIDs) == 0 {
		return &Subgraph{
			MaxHops:    cfg.MaxHops,
			Unresolved: unresolved,
			NodeScores: map[string]float64{},
		}
	}

	adj := make(map[string][]edgeHop)
	for _, e := range g.Edges() {
		if !edgeAllowed(e, cfg) {
			continue
		}
		adj[e.SourceNodeID] = append(adj[e.SourceNodeID], edgeHop{to: e.TargetNodeID, edge: e})
		adj[e.TargetNodeID] = append(adj[e.TargetNodeID], edgeHop{to: e.SourceNodeID, edge: e})
	}

	visitedDepth := make(map[string]int, len(seedIDs))
	nodeScores := make(map[string]float64, len(seedIDs))
	queue := make([]queueItem, 0, len(seedIDs))
	for _, id := range seedIDs {
		visitedDepth[id] = 0
		nodeScores[id] = 1.0
		queue = append(queue, queueItem{id: id, depth: 0})
	}

	edgeSeen := make(map[string]bool)
	var edges []*graph.Edge

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= cfg.MaxHops {
			continue
		}

		for _, next := range adj[cur.id] {
			if !edgeSeen[next.edge.EdgeID] {
				edgeSeen[next.edge.EdgeID] = true
				edges = append(edges, next.edge)
			}

			nextDepth := cur.depth + 1
			candidateScore := nodeScores[cur.id] * normalizedEdgeConfidence(next.edge.Metadata.Confidence)
			if candidateScore > nodeScores[next.to] {
				nodeScores[next.to] = candidateScore
			}
			prevDepth, seen := visitedDepth[next.to]
			if !seen || nextDepth < prevDepth {
				visitedDepth[next.to] = nextDepth
				queue = append(queue, queueItem{id: next.to, depth: nextDepth})
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].EdgeID < edges[j].EdgeID })

	return &Subgraph{
		MaxHops:    cfg.MaxHops,
		SeedIDs:    seedIDs,
		Unresolved: unresolved,
		NodeIDs:    sortedKeys(visitedDepth),
		NodeScores: nodeScores,
		Edges:      edges,
	}
}

// Ranked returns the non-seed nodes by descending score, ties by id.
func (s *Subgraph) Ranked() []string {
	seeds := make(map[string]bool, len(s.SeedIDs))
	for _, id := range s.SeedIDs {
		seeds[id] = true
	}
	var out []string
	for _, id := range s.NodeIDs {
		if !seeds[id] {
			out = append(out, id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return s.NodeScores[out[i]] > s.NodeScores[out[j]] })
	return out
}

type queueItem struct {
	id    string
	depth int
}

type edgeHop struct {
	to   string
	edge *graph.Edge
}

func edgeAllowed(e *graph.Edge, cfg Config) bool {
	if cfg.MinConfidence > 0 && e.Metadata.Confidence < cfg.MinConfidence {
		return false
	}
	if len(cfg.AllowedKinds) == 0 {
		return true
	}
	return cfg.AllowedKinds[e.LinkageType]
}

func normalizedEdgeConfidence(c float64) float64 {
	if c <= 0 {
		return 0.5
	}
	if c > 1 {
		return 1
	}
	return c
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
