package graph

import (
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contentKey struct {
	source, target string
	kind           LinkageType
}

// Graph owns unit nodes, linkage edges, and the traversal state that
// discovers them. Lookups of missing nodes or edges never panic; they
// return false or nil and log a warning.
type Graph struct {
	GraphID string

	nodes map[string]*Node
	edges map[string]*Edge

	// Derived indexes. Every edge id in edges appears in the adjacency
	// lists of its two endpoints and in its type index, nowhere else.
	nodeEdges map[string][]string
	typeIndex map[LinkageType][]string
	content   map[contentKey]string

	strategy          *Strategy
	currentPhase      Phase
	traversalComplete bool
	history           map[Phase][]*Edge

	logger *zap.Logger
}

// NewGraph creates an empty graph with a fresh id. A nil logger disables logging.
func NewGraph(logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Graph{
		GraphID:  uuid.NewString(),
		strategy: NewStrategy(),
		logger:   logger.Named("graph"),
	}
	g.reset()
	return g
}

func (g *Graph) reset() {
	g.nodes = make(map[string]*Node)
	g.edges = make(map[string]*Edge)
	g.nodeEdges = make(map[string][]string)
	g.typeIndex = make(map[LinkageType][]string)
	g.content = make(map[contentKey]string)
	g.currentPhase = PhaseNone
	g.traversalComplete = false
	g.history = make(map[Phase][]*Edge)
}

// AddNode inserts a node. It returns false if the id is already present.
func (g *Graph) AddNode(n *Node) bool {
	if n == nil || n.NodeID == "" {
		g.logger.Warn("rejecting node without id")
		return false
	}
	if _, ok := g.nodes[n.NodeID]; ok {
		g.logger.Warn("node already exists", zap.String("node_id", n.NodeID))
		return false
	}
	g.nodes[n.NodeID] = n
	g.nodeEdges[n.NodeID] = []string{}
	g.logger.Debug("node added", zap.String("node_id", n.NodeID))
	return true
}

// AddEdge inserts an edge. It returns false if an endpoint is missing, the
// id is taken, or an edge with the same source, target, and type exists.
func (g *Graph) AddEdge(e *Edge) bool {
	if e == nil {
		return false
	}
	if _, ok := g.nodes[e.SourceNodeID]; !ok {
		g.logger.Warn("source node missing", zap.String("edge_id", e.EdgeID), zap.String("node_id", e.SourceNodeID))
		return false
	}
	if _, ok := g.nodes[e.TargetNodeID]; !ok {
		g.logger.Warn("target node missing", zap.String("edge_id", e.EdgeID), zap.String("node_id", e.TargetNodeID))
		return false
	}
	if _, ok := g.edges[e.EdgeID]; ok {
		g.logger.Warn("edge already exists", zap.String("edge_id", e.EdgeID))
		return false
	}
	ck := contentKey{source: e.SourceNodeID, target: e.TargetNodeID, kind: e.LinkageType}
	if existing, ok := g.content[ck]; ok {
		g.logger.Warn("duplicate edge content", zap.String("edge_id", e.EdgeID), zap.String("existing", existing))
		return false
	}

	g.edges[e.EdgeID] = e
	g.content[ck] = e.EdgeID
	g.nodeEdges[e.SourceNodeID] = append(g.nodeEdges[e.SourceNodeID], e.EdgeID)
	if e.TargetNodeID != e.SourceNodeID {
		g.nodeEdges[e.TargetNodeID] = append(g.nodeEdges[e.TargetNodeID], e.EdgeID)
	}
	g.typeIndex[e.LinkageType] = append(g.typeIndex[e.LinkageType], e.EdgeID)
	g.logger.Debug("edge added", zap.String("edge_id", e.EdgeID), zap.String("type", string(e.LinkageType)))
	return true
}

// RemoveNode removes every edge touching the node, then the node itself.
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.nodes[id]; !ok {
		g.logger.Warn("cannot remove missing node", zap.String("node_id", id))
		return false
	}
	for _, edgeID := range append([]string(nil), g.nodeEdges[id]...) {
		g.RemoveEdge(edgeID)
	}
	delete(g.nodeEdges, id)
	delete(g.nodes, id)
	return true
}

func (g *Graph) RemoveEdge(id string) bool {
	e, ok := g.edges[id]
	if !ok {
		g.logger.Warn("cannot remove missing edge", zap.String("edge_id", id))
		return false
	}
	delete(g.edges, id)
	delete(g.content, contentKey{source: e.SourceNodeID, target: e.TargetNodeID, kind: e.LinkageType})
	g.nodeEdges[e.SourceNodeID] = without(g.nodeEdges[e.SourceNodeID], id)
	g.nodeEdges[e.TargetNodeID] = without(g.nodeEdges[e.TargetNodeID], id)
	g.typeIndex[e.LinkageType] = without(g.typeIndex[e.LinkageType], id)
	if len(g.typeIndex[e.LinkageType]) == 0 {
		delete(g.typeIndex, e.LinkageType)
	}
	return true
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) Edge(id string) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeIDs returns node ids in sorted order.
func (g *Graph) NodeIDs() []string {
	return sortedKeys(g.nodes)
}

// Nodes returns nodes sorted by id.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, id := range g.NodeIDs() {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns edges sorted by id.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, id := range sortedKeys(g.edges) {
		out = append(out, g.edges[id])
	}
	return out
}

// EdgesForNode returns the node's edges in insertion order.
func (g *Graph) EdgesForNode(id string) []*Edge {
	ids, ok := g.nodeEdges[id]
	if !ok {
		return nil
	}
	out := make([]*Edge, 0, len(ids))
	for _, edgeID := range ids {
		if e, ok := g.edges[edgeID]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) EdgesByType(kind LinkageType) []*Edge {
	ids := g.typeIndex[kind]
	out := make([]*Edge, 0, len(ids))
	for _, edgeID := range ids {
		if e, ok := g.edges[edgeID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Neighbors returns the nodes on the far side of each incident edge.
// A node linked by several edges appears once per edge.
func (g *Graph) Neighbors(id string) []*Node {
	var out []*Node
	for _, e := range g.EdgesForNode(id) {
		if n, ok := g.nodes[e.Other(id)]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (g *Graph) Degree(id string) int {
	return len(g.nodeEdges[id])
}

// BuildFromNodes adds every node and returns how many were inserted.
func (g *Graph) BuildFromNodes(nodes []*Node) int {
	added := 0
	for _, n := range nodes {
		if g.AddNode(n) {
			added++
		}
	}
	g.logger.Info("graph built from nodes", zap.Int("requested", len(nodes)), zap.Int("added", added))
	return added
}

// FindPath runs a depth-bounded breadth-first search over the adjacency
// lists, ignoring direction. start == end yields an empty path.
func (g *Graph) FindPath(start, end string, maxDepth int) ([]*Edge, bool) {
	if _, ok := g.nodes[start]; !ok {
		return nil, false
	}
	if _, ok := g.nodes[end]; !ok {
		return nil, false
	}
	if start == end {
		return []*Edge{}, true
	}

	type item struct {
		id   string
		path []*Edge
	}
	visited := make(map[string]bool)
	queue := []item{{id: start}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if len(cur.path) >= maxDepth || visited[cur.id] {
			continue
		}
		visited[cur.id] = true

		for _, e := range g.EdgesForNode(cur.id) {
			next := e.Other(cur.id)
			path := make([]*Edge, len(cur.path), len(cur.path)+1)
			copy(path, cur.path)
			path = append(path, e)
			if next == end {
				return path, true
			}
			if !visited[next] {
				queue = append(queue, item{id: next, path: path})
			}
		}
	}
	return nil, false
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
