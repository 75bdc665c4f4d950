package handler

import (
	"sort"
	"strconv"

	"go.uber.org/zap"

	"sc2affordance/internal/gamestate"
	"sc2affordance/internal/generator"
	"sc2affordance/internal/monitor"
	"sc2affordance/internal/prefab"
)

// unknownStep marks monitor records written without a game state.
const unknownStep = -1

// Select returns the top k functions with a positive score. Every
// candidate, selected or not, is reported to the monitor; relevance is only
// computed when state is known.
func (h *Handler) Select(scored []prefab.Scored, k int, state *gamestate.State) []*prefab.Function {
	ranked := make([]prefab.Scored, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	selected := make(map[string]bool)
	var out []*prefab.Function
	for i, s := range ranked {
		if i >= k {
			break
		}
		if s.Score > 0 {
			out = append(out, s.Function)
			selected[s.FunctionID] = true
		}
	}

	step := unknownStep
	if state != nil {
		step = state.Step
	}
	for _, s := range ranked {
		relevance := 0.0
		if state != nil {
			relevance = Relevance(s.Function, *state)
			h.monitor.RecordRelevance(s.FunctionID, s.Name, step, relevance, *state)
		}
		h.monitor.RecordUsage(s.FunctionID, s.Name, step, selected[s.FunctionID], s.Confidence, relevance)
		if selected[s.FunctionID] {
			h.logger.Info("prefab function selected",
				zap.String("function_id", s.FunctionID),
				zap.String("name", s.Name),
				zap.Float64("score", s.Score),
				zap.Float64("relevance", relevance))
		}
	}
	return out
}

// Decision is the outcome of one advisory tick.
type Decision struct {
	State      gamestate.State
	Candidates int
	Scored     []prefab.Scored
	Selected   []*prefab.Function
	Actions    gamestate.Actions
	Prompt     string
}

// Tick runs retrieval, scoring, selection and the advisory execution for one
// observation and renders the prompt block. History and cooldowns are left
// to the caller, which knows whether the tactic was followed.
func (h *Handler) Tick(obs gamestate.Observation, k int) Decision {
	state := gamestate.Analyze(obs)
	candidates := h.Retrieve(obs)
	scored := h.Score(candidates, obs)
	selected := h.Select(scored, k, &state)
	actions := h.Execute(selected, obs, obs.Step)

	ids := make([]string, len(selected))
	for i, fn := range selected {
		ids[i] = fn.FunctionID
	}
	h.monitor.RecordDecisionQuality(obs.Step, "prefab", ids, monitor.OutcomeOf(actions), &state)

	return Decision{
		State:      state,
		Candidates: len(candidates),
		Scored:     scored,
		Selected:   selected,
		Actions:    actions,
		Prompt:     h.PromptInfo(selected, &state),
	}
}

// PromptInfo renders the selected functions as the ranked prompt block.
func (h *Handler) PromptInfo(selected []*prefab.Function, state *gamestate.State) string {
	entries := make([]generator.PromptEntry, 0, min(len(selected), generator.MaxPromptEntries))
	for _, fn := range selected {
		if len(entries) == generator.MaxPromptEntries {
			break
		}
		strategy := fn.StrategyDescription
		if strategy == "" {
			strategy = fn.Description
		}
		entry := generator.PromptEntry{
			Name:          fn.Name,
			Strategy:      strategy,
			Category:      fn.TacticCategory,
			ExecutionType: fn.ExecutionType,
			Confidence:    fn.Confidence,
			Steps:         fn.ExecutionFlow,
			Evidence:      fn.Evidence,
			Scenarios:     fn.ApplicableScenarios,
		}
		if state != nil {
			relevance := Relevance(fn, *state)
			entry.Relevance = &relevance
			entry.Reasons = reasons(fn, *state)
		}
		entries = append(entries, entry)
	}
	return generator.RenderPrompt(entries)
}

func itoa(n int) string { return strconv.Itoa(n) }
