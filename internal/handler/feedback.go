package handler

import (
	"go.uber.org/zap"

	"sc2affordance/internal/gamestate"
	"sc2affordance/internal/prefab"
)

const (
	baseAdjustment    = 0.03
	qualityAdjustment = 0.07
)

// RecordExecutionResult logs the outcome of a function, reports the state
// change to the monitor and nudges the function's confidence by 0.03 to 0.10
// depending on the execution quality. It returns the quality.
func (h *Handler) RecordExecutionResult(id string, success bool, before, after gamestate.State, actions gamestate.Actions) float64 {
	if actions == nil {
		actions = gamestate.Actions{}
	}
	delta := gamestate.Diff(before, after)
	quality := ExecutionQuality(success, delta)

	h.mu.Lock()
	h.results = append(h.results, ExecutionRecord{
		FunctionID: id,
		Step:       after.Step,
		Success:    success,
		Actions:    actions,
		Timestamp:  h.now(),
		Before:     &before,
		After:      &after,
		Effect:     &delta,
		Quality:    &quality,
	})
	h.mu.Unlock()

	h.logger.Info("execution result recorded",
		zap.String("function_id", id),
		zap.Bool("success", success),
		zap.Float64("quality", quality))
	h.monitor.RecordDecisionImpact(after.Step, before, after, actions)
	h.updateConfidence(id, success, quality)
	return quality
}

// ExecutionQuality blends the outcome and the state change into [0, 1].
func ExecutionQuality(success bool, d gamestate.Delta) float64 {
	score := 0.5
	if success {
		score += 0.3
	} else {
		score -= 0.3
	}
	units := (float64(d.EnemyCountChange)*-0.5 + float64(d.FriendlyCountChange)*0.5) / 10
	score += 0.2 * units
	health := (d.FriendlyHealthChange*0.3 + d.EnemyHealthChange*-0.7) / 100
	score += 0.2 * health
	score += 0.15 * (-float64(d.LowHealthUnitsChange) * 0.5)
	score += 0.15 * min(d.ResourceChange/1000, 1)
	return max(0, min(1, score))
}

func (h *Handler) updateConfidence(id string, success bool, quality float64) {
	fn, ok := h.manager.Get(id)
	if !ok {
		h.logger.Warn("cannot update confidence of unknown prefab function", zap.String("function_id", id))
		return
	}
	current := fn.Confidence
	var next float64
	if success {
		next = min(prefab.MaxConfidence, current+baseAdjustment+quality*qualityAdjustment)
	} else {
		next = max(prefab.MinConfidence, current-(baseAdjustment+(1-quality)*qualityAdjustment))
	}
	updated, _ := h.manager.SetConfidence(id, next)
	h.logger.Info("prefab confidence updated",
		zap.String("function_id", id),
		zap.Float64("before", current),
		zap.Float64("after", updated),
		zap.Bool("success", success),
		zap.Float64("quality", quality))
}
