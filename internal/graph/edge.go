package graph

import (
	"fmt"
	"maps"
	"slices"
)

// Edge is a typed relationship between two unit classes.
type Edge struct {
	EdgeID       string       `json:"edge_id"`
	SourceNodeID string       `json:"source_node_id"`
	TargetNodeID string       `json:"target_node_id"`
	LinkageType  LinkageType  `json:"linkage_type"`
	Direction    Direction    `json:"direction"`
	Description  string       `json:"description"`
	SourceMethod string       `json:"source_method,omitempty"`
	TargetMethod string       `json:"target_method,omitempty"`
	Metadata     EdgeMetadata `json:"metadata"`
}

// EdgeKey identifies an edge by content. For undirected edges the endpoint
// pair is stored sorted, so (A,B) and (B,A) produce the same key.
type EdgeKey struct {
	Kind      LinkageType
	Direction Direction
	A, B      string
}

// NewEdge builds an auto-detected edge with the type's default direction.
func NewEdge(source, target string, kind LinkageType) *Edge {
	e := &Edge{
		SourceNodeID: source,
		TargetNodeID: target,
		LinkageType:  kind,
		Direction:    kind.DefaultDirection(),
		Metadata: EdgeMetadata{
			Weight:      1.0,
			Confidence:  1.0,
			Source:      SourceAutoDetected,
			Evidence:    []string{},
			ContextInfo: map[string]any{},
		},
	}
	e.EdgeID = MakeEdgeID(source, target, kind, e.Direction)
	return e
}

// MakeEdgeID formats "{a}__{type}__{b}", sorting a and b for undirected edges.
func MakeEdgeID(source, target string, kind LinkageType, dir Direction) string {
	a, b := source, target
	if dir == DirectionUndirected && b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s__%s__%s", a, kind, b)
}

// WithDirection overrides the derived direction and recomputes the id.
func (e *Edge) WithDirection(dir Direction) *Edge {
	e.Direction = dir
	e.EdgeID = MakeEdgeID(e.SourceNodeID, e.TargetNodeID, e.LinkageType, dir)
	return e
}

func (e *Edge) Key() EdgeKey {
	a, b := e.SourceNodeID, e.TargetNodeID
	if e.Direction == DirectionUndirected && b < a {
		a, b = b, a
	}
	return EdgeKey{Kind: e.LinkageType, Direction: e.Direction, A: a, B: b}
}

func (e *Edge) Equal(other *Edge) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Key() == other.Key()
}

// AddEvidence appends a justification unless it is already recorded.
func (e *Edge) AddEvidence(evidence string) {
	if evidence == "" || slices.Contains(e.Metadata.Evidence, evidence) {
		return
	}
	e.Metadata.Evidence = append(e.Metadata.Evidence, evidence)
}

// Other returns the endpoint opposite to id.
func (e *Edge) Other(id string) string {
	if e.SourceNodeID == id {
		return e.TargetNodeID
	}
	return e.SourceNodeID
}

func (e *Edge) Touches(id string) bool {
	return e.SourceNodeID == id || e.TargetNodeID == id
}

func (e *Edge) Clone() *Edge {
	c := *e
	c.Metadata.Evidence = slices.Clone(e.Metadata.Evidence)
	c.Metadata.ContextInfo = maps.Clone(e.Metadata.ContextInfo)
	return &c
}

func (e *Edge) String() string {
	arrow := "<->"
	if e.Direction == DirectionDirected {
		arrow = "->"
	}
	return fmt.Sprintf("%s %s %s [%s %.2f]", e.SourceNodeID, arrow, e.TargetNodeID, e.LinkageType, e.Metadata.Confidence)
}
