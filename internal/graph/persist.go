package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// graphFile is the on-disk layout of *_linkage_graph.json.
type graphFile struct {
	GraphID           string             `json:"graph_id"`
	Nodes             map[string]*Node   `json:"nodes"`
	Edges             map[string]*Edge   `json:"edges"`
	TraversalHistory  map[string][]*Edge `json:"traversal_history"`
	TraversalComplete bool               `json:"traversal_complete"`
	CurrentPhase      string             `json:"current_phase,omitempty"`
}

// WriteJSON encodes the full graph, including traversal state.
func (g *Graph) WriteJSON(w io.Writer) error {
	file := graphFile{
		GraphID:           g.GraphID,
		Nodes:             g.nodes,
		Edges:             g.edges,
		TraversalHistory:  make(map[string][]*Edge, len(g.history)),
		TraversalComplete: g.traversalComplete,
	}
	for phase, edges := range g.history {
		file.TraversalHistory[phase.String()] = edges
	}
	if g.currentPhase != PhaseNone {
		file.CurrentPhase = g.currentPhase.String()
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(file); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// ReadJSON replaces the graph contents with a decoded file. On error the
// graph is left untouched.
func (g *Graph) ReadJSON(r io.Reader) error {
	var file graphFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return fmt.Errorf("failed to decode graph: %w", err)
	}

	g.reset()
	for _, id := range sortedKeys(file.Nodes) {
		n := file.Nodes[id]
		if n.NodeID == "" {
			n.NodeID = id
		}
		g.AddNode(n)
	}
	for _, id := range sortedKeys(file.Edges) {
		e := file.Edges[id]
		if e.EdgeID == "" {
			e.EdgeID = id
		}
		g.AddEdge(e)
	}
	for name, edges := range file.TraversalHistory {
		phase, ok := ParsePhase(name)
		if !ok {
			g.logger.Warn("skipping unknown traversal phase", zap.String("phase", name))
			continue
		}
		g.history[phase] = edges
	}
	if file.CurrentPhase != "" {
		if phase, ok := ParsePhase(file.CurrentPhase); ok {
			g.currentPhase = phase
		}
	}
	g.traversalComplete = file.TraversalComplete
	if file.GraphID != "" {
		g.GraphID = file.GraphID
	}
	return nil
}

// ExportJSON writes the graph to path. Failures are logged and reported as false.
func (g *Graph) ExportJSON(path string) bool {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			g.logger.Error("failed to create graph directory", zap.String("path", path), zap.Error(err))
			return false
		}
	}
	f, err := os.Create(path)
	if err != nil {
		g.logger.Error("failed to create graph file", zap.String("path", path), zap.Error(err))
		return false
	}
	defer f.Close()

	if err := g.WriteJSON(f); err != nil {
		g.logger.Error("failed to export graph", zap.String("path", path), zap.Error(err))
		return false
	}
	g.logger.Info("graph exported", zap.String("path", path), zap.Int("nodes", len(g.nodes)), zap.Int("edges", len(g.edges)))
	return true
}

// LoadJSON replaces the graph with the contents of path.
func (g *Graph) LoadJSON(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		g.logger.Error("failed to open graph file", zap.String("path", path), zap.Error(err))
		return false
	}
	defer f.Close()

	if err := g.ReadJSON(f); err != nil {
		g.logger.Error("failed to load graph", zap.String("path", path), zap.Error(err))
		return false
	}
	g.logger.Info("graph loaded", zap.String("path", path), zap.Int("nodes", len(g.nodes)), zap.Int("edges", len(g.edges)))
	return true
}
