package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"sc2affordance/internal/gamestate"
)

type UsageRecord struct {
	FunctionID   string    `json:"func_id"`
	FunctionName string    `json:"func_name"`
	Step         int       `json:"step"`
	Selected     bool      `json:"selected"`
	Confidence   float64   `json:"confidence"`
	Relevance    float64   `json:"relevance"`
	Timestamp    time.Time `json:"timestamp"`
}

// Outcome counts the commands a decision produced.
type Outcome struct {
	AttackCount  int `json:"attack_count"`
	MoveCount    int `json:"move_count"`
	AbilityCount int `json:"ability_count"`
}

func OutcomeOf(actions gamestate.Actions) Outcome {
	return Outcome{
		AttackCount:  len(actions[gamestate.ActionAttack]),
		MoveCount:    len(actions[gamestate.ActionMove]),
		AbilityCount: len(actions[gamestate.ActionAbility]),
	}
}

type QualityRecord struct {
	Step          int              `json:"step"`
	DecisionType  string           `json:"decision_type"`
	FunctionsUsed []string         `json:"functions_used"`
	Outcome       Outcome          `json:"outcome"`
	State         *gamestate.State `json:"game_state,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

type RelevanceRecord struct {
	FunctionID   string          `json:"func_id"`
	FunctionName string          `json:"func_name"`
	Step         int             `json:"step"`
	Relevance    float64         `json:"relevance"`
	State        gamestate.State `json:"game_state"`
	Timestamp    time.Time       `json:"timestamp"`
}

// StateChange is the part of a Delta the impact history keeps, plus the
// number of commands issued.
type StateChange struct {
	FriendlyCountChange  int `json:"friendly_count_change"`
	EnemyCountChange     int `json:"enemy_count_change"`
	LowHealthUnitsChange int `json:"low_health_units_change"`
	ActionCount          int `json:"action_count"`
}

type ImpactRecord struct {
	Step        int               `json:"step"`
	Before      gamestate.State   `json:"pre_game_state"`
	After       gamestate.State   `json:"post_game_state"`
	Actions     gamestate.Actions `json:"actions"`
	StateChange StateChange       `json:"state_change"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Monitor records how prefab functions are used and what the resulting
// decisions did. It is safe for concurrent use.
type Monitor struct {
	mu        sync.Mutex
	usage     []UsageRecord
	quality   []QualityRecord
	relevance []RelevanceRecord
	impact    []ImpactRecord
	now       func() time.Time
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{now: time.Now, logger: logger.Named("monitor")}
}

func (m *Monitor) RecordUsage(id, name string, step int, selected bool, confidence, relevance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = append(m.usage, UsageRecord{
		FunctionID:   id,
		FunctionName: name,
		Step:         step,
		Selected:     selected,
		Confidence:   confidence,
		Relevance:    relevance,
		Timestamp:    m.now(),
	})
}

func (m *Monitor) RecordDecisionQuality(step int, decisionType string, functionsUsed []string, outcome Outcome, state *gamestate.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quality = append(m.quality, QualityRecord{
		Step:          step,
		DecisionType:  decisionType,
		FunctionsUsed: append([]string(nil), functionsUsed...),
		Outcome:       outcome,
		State:         state,
		Timestamp:     m.now(),
	})
}

func (m *Monitor) RecordRelevance(id, name string, step int, relevance float64, state gamestate.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relevance = append(m.relevance, RelevanceRecord{
		FunctionID:   id,
		FunctionName: name,
		Step:         step,
		Relevance:    relevance,
		State:        state,
		Timestamp:    m.now(),
	})
}

// RecordDecisionImpact stores the before/after states of one decision and
// returns the derived state change.
func (m *Monitor) RecordDecisionImpact(step int, before, after gamestate.State, actions gamestate.Actions) StateChange {
	delta := gamestate.Diff(before, after)
	change := StateChange{
		FriendlyCountChange:  delta.FriendlyCountChange,
		EnemyCountChange:     delta.EnemyCountChange,
		LowHealthUnitsChange: delta.LowHealthUnitsChange,
		ActionCount:          actions.Count(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.impact = append(m.impact, ImpactRecord{
		Step:        step,
		Before:      before,
		After:       after,
		Actions:     actions,
		StateChange: change,
		Timestamp:   m.now(),
	})
	m.logger.Debug("decision impact recorded",
		zap.Int("step", step),
		zap.Int("friendly_change", change.FriendlyCountChange),
		zap.Int("enemy_change", change.EnemyCountChange),
		zap.Int("actions", change.ActionCount))
	return change
}

type FunctionStats struct {
	Name          string  `json:"name"`
	TotalCount    int     `json:"total_count"`
	SelectedCount int     `json:"selected_count"`
	AvgRelevance  float64 `json:"avg_relevance"`
	AvgConfidence float64 `json:"avg_confidence"`
	SelectedRate  float64 `json:"selected_rate"`
}

type AverageActions struct {
	Attack  float64 `json:"attack"`
	Move    float64 `json:"move"`
	Ability float64 `json:"ability"`
}

type TrendPoint struct {
	Step         int     `json:"step"`
	AvgRelevance float64 `json:"avg_relevance"`
}

type Summary struct {
	FunctionStats   map[string]*FunctionStats `json:"function_stats"`
	TotalDecisions  int                       `json:"total_decisions"`
	AvgActions      AverageActions            `json:"avg_actions"`
	RelevanceTrend  []TrendPoint              `json:"relevance_trend"`
	UsageHistory    []UsageRecord             `json:"usage_history"`
	QualityHistory  []QualityRecord           `json:"quality_history"`
	RelevanceHist   []RelevanceRecord         `json:"relevance_history"`
	DecisionImpacts []ImpactRecord            `json:"decision_impact_history"`
}

func (m *Monitor) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		FunctionStats:   make(map[string]*FunctionStats),
		TotalDecisions:  len(m.quality),
		RelevanceTrend:  []TrendPoint{},
		UsageHistory:    append([]UsageRecord(nil), m.usage...),
		QualityHistory:  append([]QualityRecord(nil), m.quality...),
		RelevanceHist:   append([]RelevanceRecord(nil), m.relevance...),
		DecisionImpacts: append([]ImpactRecord(nil), m.impact...),
	}

	relevances := make(map[string][]float64)
	confidences := make(map[string][]float64)
	for _, r := range m.usage {
		fs, ok := s.FunctionStats[r.FunctionID]
		if !ok {
			fs = &FunctionStats{Name: r.FunctionName}
			s.FunctionStats[r.FunctionID] = fs
		}
		fs.TotalCount++
		if r.Selected {
			fs.SelectedCount++
		}
		relevances[r.FunctionID] = append(relevances[r.FunctionID], r.Relevance)
		confidences[r.FunctionID] = append(confidences[r.FunctionID], r.Confidence)
	}
	for id, fs := range s.FunctionStats {
		fs.AvgRelevance = stat.Mean(relevances[id], nil)
		fs.AvgConfidence = stat.Mean(confidences[id], nil)
		fs.SelectedRate = float64(fs.SelectedCount) / float64(fs.TotalCount)
	}

	if n := len(m.quality); n > 0 {
		attack, move, ability := make([]float64, n), make([]float64, n), make([]float64, n)
		for i, q := range m.quality {
			attack[i] = float64(q.Outcome.AttackCount)
			move[i] = float64(q.Outcome.MoveCount)
			ability[i] = float64(q.Outcome.AbilityCount)
		}
		s.AvgActions = AverageActions{
			Attack:  stat.Mean(attack, nil),
			Move:    stat.Mean(move, nil),
			Ability: stat.Mean(ability, nil),
		}
	}

	byStep := make(map[int][]float64)
	for _, r := range m.relevance {
		byStep[r.Step] = append(byStep[r.Step], r.Relevance)
	}
	steps := make([]int, 0, len(byStep))
	for step := range byStep {
		steps = append(steps, step)
	}
	sort.Ints(steps)
	for _, step := range steps {
		s.RelevanceTrend = append(s.RelevanceTrend, TrendPoint{Step: step, AvgRelevance: stat.Mean(byStep[step], nil)})
	}
	return s
}

// Export writes the summary as indented JSON.
func (m *Monitor) Export(path string) error {
	summary := m.Summary()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create monitor export directory: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode performance summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write performance summary: %w", err)
	}
	m.logger.Info("performance summary exported",
		zap.String("path", path),
		zap.Int("functions", len(summary.FunctionStats)),
		zap.Int("decisions", summary.TotalDecisions))
	return nil
}
