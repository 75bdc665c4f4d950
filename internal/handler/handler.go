package handler

import (
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sc2affordance/internal/gamestate"
	"sc2affordance/internal/monitor"
	"sc2affordance/internal/prefab"
)

const (
	DefaultHistoryWindow = 5
	DefaultSuccessWindow = 5
	DefaultTopK          = 3
)

// Options tune a Handler. Zero values fall back to the defaults above.
type Options struct {
	// DefaultRace is used when no friendly unit reveals the race.
	DefaultRace   string
	HistoryWindow int
	SuccessWindow int
}

// ExecutionRecord is one entry of the execution log. Entries appended by
// UpdateHistory carry the step and actions; entries appended by
// RecordExecutionResult also carry the states and the derived quality.
type ExecutionRecord struct {
	FunctionID   string            `json:"func_id"`
	FunctionName string            `json:"func_name,omitempty"`
	Step         int               `json:"step"`
	Success      bool              `json:"success"`
	Actions      gamestate.Actions `json:"actions"`
	Timestamp    time.Time         `json:"timestamp"`
	Before       *gamestate.State  `json:"game_state_before,omitempty"`
	After        *gamestate.State  `json:"game_state_after,omitempty"`
	Effect       *gamestate.Delta  `json:"effect_metrics,omitempty"`
	Quality      *float64          `json:"execution_quality,omitempty"`
}

// Handler scores the prefab library against each game tick and tracks
// per-function usage, cooldowns and outcomes. All methods are safe for
// concurrent use; callers should still run one tick at a time.
type Handler struct {
	mu        sync.Mutex
	manager   *prefab.Manager
	monitor   *monitor.Monitor
	logger    *zap.Logger
	opts      Options
	history   []string
	cooldowns map[string]int
	results   []ExecutionRecord
	now       func() time.Time
}

func New(manager *prefab.Manager, mon *monitor.Monitor, logger *zap.Logger, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mon == nil {
		mon = monitor.New(logger)
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	if opts.SuccessWindow <= 0 {
		opts.SuccessWindow = DefaultSuccessWindow
	}
	return &Handler{
		manager:   manager,
		monitor:   mon,
		logger:    logger.Named("handler"),
		opts:      opts,
		cooldowns: make(map[string]int),
		now:       time.Now,
	}
}

func (h *Handler) Monitor() *monitor.Monitor { return h.monitor }

// Retrieve collects the candidate functions for an observation: those
// indexed under a friendly unit's full name, base type or race-prefixed
// base type, plus coordination functions whose required units are all
// fielded. The result is deduplicated by id in discovery order.
func (h *Handler) Retrieve(obs gamestate.Observation) []*prefab.Function {
	friendly, _ := obs.Split()
	race := h.race(friendly)

	baseTypes := make(map[string]bool)
	for _, u := range friendly {
		baseTypes[u.BaseType()] = true
	}

	seen := make(map[string]bool)
	var out []*prefab.Function
	add := func(fns []*prefab.Function) {
		for _, fn := range fns {
			if !seen[fn.FunctionID] {
				seen[fn.FunctionID] = true
				out = append(out, fn)
			}
		}
	}

	for _, u := range friendly {
		name, base := u.Name(), u.BaseType()
		add(h.manager.ByUnit(name))
		add(h.manager.ByUnit(base))
		add(h.manager.ByUnit(gamestate.RacePrefixed(race, base)))
	}

	for _, fn := range h.manager.All() {
		if fn.TacticCategory != prefab.CategoryHeterogeneous && fn.TacticCategory != prefab.CategoryFormation {
			continue
		}
		if fn.Prerequisites == nil || fn.Prerequisites.RequiredUnits == nil {
			continue
		}
		fielded := true
		for _, req := range fn.Prerequisites.RequiredUnits {
			if !baseTypes[req] {
				fielded = false
				break
			}
		}
		if fielded {
			add([]*prefab.Function{fn})
		}
	}

	h.logger.Info("retrieved prefab functions", zap.Int("count", len(out)), zap.String("race", race))
	return out
}

// Execute is advisory only: the language model turns the prompt into unit
// commands, so no actions are produced here.
func (h *Handler) Execute(selected []*prefab.Function, obs gamestate.Observation, step int) gamestate.Actions {
	h.logger.Debug("prefab execution is advisory", zap.Int("selected", len(selected)), zap.Int("step", step))
	return gamestate.Actions{}
}

// cooldownFor returns how many ticks a function rests after use.
func cooldownFor(name string) int {
	switch {
	case contains(name, "mm_push"):
		return 3
	case contains(name, "Stim"):
		return 2
	case contains(name, "Siege"):
		return 4
	default:
		return 1
	}
}

// UpdateHistory records that a function ran at step: it enters the usage
// history, starts its cooldown and is appended to the execution log.
func (h *Handler) UpdateHistory(id, name string, actions gamestate.Actions, step int, success bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, id)
	h.cooldowns[id] = cooldownFor(name)
	h.results = append(h.results, ExecutionRecord{
		FunctionID:   id,
		FunctionName: name,
		Step:         step,
		Success:      success,
		Actions:      actions,
		Timestamp:    h.now(),
	})
	h.logger.Debug("history updated",
		zap.String("function_id", id),
		zap.Int("cooldown", h.cooldowns[id]),
		zap.Bool("success", success))
}

// DecrementCooldowns advances every cooldown by one tick and drops the
// ones that expired.
func (h *Handler) DecrementCooldowns() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.cooldowns {
		h.cooldowns[id]--
		if h.cooldowns[id] <= 0 {
			delete(h.cooldowns, id)
		}
	}
}

// Cooldown returns the remaining cooldown of a function.
func (h *Handler) Cooldown(id string) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cd, ok := h.cooldowns[id]
	return cd, ok
}

func (h *Handler) History() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.history)
}

// ExecutionHistory returns the last limit log entries, optionally only those
// of one function.
func (h *Handler) ExecutionHistory(id string, limit int) []ExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []ExecutionRecord
	for _, r := range h.results {
		if id == "" || r.FunctionID == id {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// race resolves the playing race from the friendly units, then the
// configured default.
func (h *Handler) race(friendly []gamestate.UnitInfo) string {
	race, ok := gamestate.DetectRace(friendly)
	if ok {
		return race
	}
	if h.opts.DefaultRace != "" {
		h.logger.Debug("race detection failed, using default", zap.String("race", h.opts.DefaultRace))
		return strings.ToLower(h.opts.DefaultRace)
	}
	return gamestate.RaceUnknown
}
