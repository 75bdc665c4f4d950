package prefab

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// WriteJSON encodes fns as an indented JSON array.
func WriteJSON(w io.Writer, fns []*Function) error {
	if fns == nil {
		fns = []*Function{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(fns); err != nil {
		return fmt.Errorf("failed to encode prefab functions: %w", err)
	}
	return nil
}

// SaveFile writes fns to path, creating parent directories.
func SaveFile(path string, fns []*Function) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create prefab directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create prefab library: %w", err)
	}
	defer f.Close()
	return WriteJSON(f, fns)
}

// ValidateConsistency returns the ids of functions whose parameters or
// confidence are malformed. Flow steps that reference no parameter are only
// reported at debug level.
func (m *Manager) ValidateConsistency() []string {
	var invalid []string
	for _, fn := range m.All() {
		if !m.consistent(fn) {
			invalid = append(invalid, fn.FunctionID)
		}
	}
	m.logger.Info("consistency check finished", zap.Int("invalid", len(invalid)))
	return invalid
}

func (m *Manager) consistent(fn *Function) bool {
	log := m.logger.With(zap.String("function_id", fn.FunctionID))
	required := map[string]string{
		"function_type":  fn.FunctionType,
		"name":           fn.Name,
		"description":    fn.Description,
		"linkage_type":   fn.LinkageType,
		"execution_type": fn.ExecutionType,
	}
	for _, field := range sortedKeys(required) {
		if required[field] == "" {
			log.Warn("missing required field", zap.String("field", field))
			return false
		}
	}
	for _, p := range fn.Parameters {
		if p.Name == "" || p.Type == "" || p.Description == "" {
			log.Warn("parameter is missing name, type or description", zap.String("parameter", p.Name))
			return false
		}
	}
	for _, step := range fn.ExecutionFlow {
		used := slices.ContainsFunc(fn.Parameters, func(p Parameter) bool {
			return strings.Contains(step, p.Name) || strings.Contains(step, strings.ToUpper(p.Name))
		})
		if !used {
			log.Debug("execution step references no parameter", zap.String("step", step))
		}
	}
	if fn.Confidence < 0 || fn.Confidence > 1 {
		log.Warn("confidence out of range", zap.Float64("confidence", fn.Confidence))
		return false
	}
	return true
}

// canonicalDomains maps (name, type) to the domain every function should use.
var canonicalDomains = []struct {
	name, typ string
	domain    any
}{
	{"target_unit_tag", "int", "valid_enemy_tags"},
	{"target_positions", "List[Tuple[int, int]]", "valid_grid_positions"},
	{"operation_type", "str", []any{"move", "attack", "defend"}},
	{"target_unit", "str", "valid_unit_types"},
	{"resource_allocation", "Dict[str, int]", "valid_resource_ranges"},
}

// AggregateParameters rewrites well-known parameters to their canonical
// domains and returns the resulting parameter lists by function id.
func (m *Manager) AggregateParameters() map[string][]Parameter {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]Parameter, len(m.functions))
	for id, fn := range m.functions {
		for i := range fn.Parameters {
			p := &fn.Parameters[i]
			for _, c := range canonicalDomains {
				if p.Name == c.name && p.Type == c.typ {
					p.Domain = c.domain
				}
			}
		}
		out[id] = slices.Clone(fn.Parameters)
	}
	m.cache.Purge()
	return out
}

// Signatures renders every function signature by id.
func (m *Manager) Signatures() map[string]string {
	out := make(map[string]string)
	for _, fn := range m.All() {
		out[fn.FunctionID] = fn.Signature()
	}
	return out
}

type Statistics struct {
	TotalFunctions             int            `json:"total_functions"`
	FunctionTypeDistribution   map[string]int `json:"function_type_distribution"`
	ExecutionTypeDistribution  map[string]int `json:"execution_type_distribution"`
	TacticCategoryDistribution map[string]int `json:"tactic_category_distribution"`
	UnitsInvolved              int            `json:"units_involved"`
	AvgParametersPerFunction   float64        `json:"avg_parameters_per_function"`
	AvgConfidence              float64        `json:"avg_confidence"`
}

func (m *Manager) Statistics() Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Statistics{
		TotalFunctions:             len(m.functions),
		FunctionTypeDistribution:   countIndex(m.byType),
		ExecutionTypeDistribution:  countIndex(m.byExec),
		TacticCategoryDistribution: countIndex(m.byCategory),
		UnitsInvolved:              len(m.byUnit),
	}
	if len(m.functions) == 0 {
		return stats
	}
	params, confidence := 0, 0.0
	for _, fn := range m.functions {
		params += len(fn.Parameters)
		confidence += fn.Confidence
	}
	n := float64(len(m.functions))
	stats.AvgParametersPerFunction = math.Round(float64(params)/n*100) / 100
	stats.AvgConfidence = math.Round(confidence/n*1000) / 1000
	return stats
}

func countIndex(idx map[string][]string) map[string]int {
	out := make(map[string]int, len(idx))
	for k, ids := range idx {
		out[k] = len(ids)
	}
	return out
}
