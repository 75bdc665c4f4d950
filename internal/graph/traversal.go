package graph

import (
	"fmt"

	"go.uber.org/zap"
)

// Phase is one round of relationship discovery. Phases run in a fixed order
// and each may only read edges committed by earlier phases.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseInteraction
	PhaseCombination
	PhaseAssociation
	PhaseDependency
	PhaseInvocation
)

// maxTraversalRounds bounds ExecuteFullTraversal in case the phase order is
// ever made cyclic.
const maxTraversalRounds = 10

var phaseOrder = []Phase{
	PhaseInteraction,
	PhaseCombination,
	PhaseAssociation,
	PhaseDependency,
	PhaseInvocation,
}

var phaseNames = map[Phase]string{
	PhaseInteraction: "PHASE_1_INTERACTION",
	PhaseCombination: "PHASE_2_COMBINATION",
	PhaseAssociation: "PHASE_3_ASSOCIATION",
	PhaseDependency:  "PHASE_4_DEPENDENCY",
	PhaseInvocation:  "PHASE_5_INVOCATION",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// LinkageType is the edge type discovered by the phase.
func (p Phase) LinkageType() LinkageType {
	switch p {
	case PhaseInteraction:
		return LinkageInteraction
	case PhaseCombination:
		return LinkageCombination
	case PhaseAssociation:
		return LinkageAssociation
	case PhaseDependency:
		return LinkageDependency
	case PhaseInvocation:
		return LinkageInvocation
	}
	return ""
}

func ParsePhase(name string) (Phase, bool) {
	for p, n := range phaseNames {
		if n == name {
			return p, true
		}
	}
	return PhaseNone, false
}

// Strategy discovers candidate edges for a phase from node metadata.
type Strategy struct {
	order []Phase
}

func NewStrategy() *Strategy {
	return &Strategy{order: phaseOrder}
}

// NextPhase returns the phase after current, or false once all have run.
func (s *Strategy) NextPhase(current Phase) (Phase, bool) {
	if current == PhaseNone {
		return s.order[0], true
	}
	for i, p := range s.order {
		if p == current && i+1 < len(s.order) {
			return s.order[i+1], true
		}
	}
	return PhaseNone, false
}

// Discover runs one phase over nodes (sorted by id) and returns the edges it
// finds that are not already present in existing. history carries the edges
// of earlier phases.
func (s *Strategy) Discover(phase Phase, nodes []*Node, existing []*Edge, history map[Phase][]*Edge) []*Edge {
	c := newCollector(phase, existing)
	switch phase {
	case PhaseInteraction:
		discoverInteractions(c, nodes)
	case PhaseCombination:
		discoverCombinations(c, nodes)
	case PhaseAssociation:
		discoverAssociations(c, nodes)
	case PhaseDependency:
		discoverDependencies(c, nodes)
	case PhaseInvocation:
		discoverInvocations(c, nodes)
	}
	return c.edges
}

// ExecuteSingleTraversalPhase runs the phase after the current one against
// the current node set and the edges accumulated so far. Every discovered
// edge is offered to AddEdge and recorded in the history whether or not it
// was inserted. Once no phase remains the traversal is marked complete and
// an empty slice is returned.
func (g *Graph) ExecuteSingleTraversalPhase() []*Edge {
	next, ok := g.strategy.NextPhase(g.currentPhase)
	if !ok {
		g.traversalComplete = true
		g.logger.Info("traversal complete")
		return []*Edge{}
	}

	discovered := g.strategy.Discover(next, g.Nodes(), g.Edges(), g.history)
	added := 0
	for _, e := range discovered {
		if g.AddEdge(e) {
			added++
		}
	}
	g.history[next] = discovered
	g.currentPhase = next

	g.logger.Info("traversal phase finished",
		zap.Stringer("phase", next),
		zap.Int("discovered", len(discovered)),
		zap.Int("added", added),
	)
	return discovered
}

// ExecuteFullTraversal resets traversal state and runs every phase.
func (g *Graph) ExecuteFullTraversal() map[Phase][]*Edge {
	g.currentPhase = PhaseNone
	g.traversalComplete = false
	g.history = make(map[Phase][]*Edge)

	for round := 0; !g.traversalComplete; round++ {
		if round > maxTraversalRounds {
			g.logger.Warn("traversal round limit reached", zap.Int("rounds", round))
			break
		}
		g.ExecuteSingleTraversalPhase()
	}

	total := 0
	for _, edges := range g.history {
		total += len(edges)
	}
	g.logger.Info("full traversal finished", zap.Int("discovered", total), zap.Int("edges", len(g.edges)))
	return g.History()
}

func (g *Graph) CurrentPhase() Phase { return g.currentPhase }

func (g *Graph) TraversalComplete() bool { return g.traversalComplete }

// History returns a copy of the per-phase discovery record.
func (g *Graph) History() map[Phase][]*Edge {
	out := make(map[Phase][]*Edge, len(g.history))
	for p, edges := range g.history {
		out[p] = append([]*Edge(nil), edges...)
	}
	return out
}
