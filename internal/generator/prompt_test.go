package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPrompt_Empty(t *testing.T) {
	assert.Empty(t, RenderPrompt(nil))
}

func TestRenderPrompt_Entry(t *testing.T) {
	relevance := 0.62
	out := RenderPrompt([]PromptEntry{{
		Name:       "mm_push",
		Strategy:   "Push with the bio ball",
		Category:   "offense",
		Confidence: 0.9,
		Relevance:  &relevance,
		Reasons:    []string{"enough Marines (3) and Marauders (1)"},
		Steps:      []string{"move_to_position(all_friendly, front)", "attack(nearest_enemy)"},
		Evidence:   []string{"Medivacs sustain the push"},
	}})

	assert.True(t, strings.HasPrefix(out, "\n## Tactical recommendations (retrieved):\n"))
	assert.Contains(t, out, "### [1] mm_push\n")
	assert.Contains(t, out, "**Execution**: unknown\n")
	assert.Contains(t, out, "**Confidence**: **** (0.9)\n")
	assert.Contains(t, out, "**Situation match**: +++ (0.62)\n")
	assert.Contains(t, out, "**Why it fits**: enough Marines (3) and Marauders (1)\n")
	assert.Contains(t, out, "**Execution steps**:\n  1. move_to_position(all_friendly, front)\n  2. attack(nearest_enemy)\n")
	assert.Contains(t, out, "**Tactical advantages**:\n  - Medivacs sustain the push\n")
	assert.NotContains(t, out, "Applicable scenarios")
	assert.True(t, strings.HasSuffix(out, usageGuidelines[len(usageGuidelines)-1]+"\n"))
}

func TestRenderPrompt_CapsEntries(t *testing.T) {
	entries := make([]PromptEntry, MaxPromptEntries+2)
	for i := range entries {
		entries[i] = PromptEntry{Name: "tactic", Confidence: 1}
	}
	out := RenderPrompt(entries)
	assert.Equal(t, MaxPromptEntries, strings.Count(out, "### ["))
	assert.Contains(t, out, "**Confidence**: ***** (1)\n")
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0.5", formatScore(0.5))
	assert.Equal(t, "0.123", formatScore(0.1234))
	assert.Equal(t, "0", formatScore(0))
}
