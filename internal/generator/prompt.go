package generator

import (
	"fmt"
	"strings"
)

// MaxPromptEntries caps the ranked list handed to the language model.
const MaxPromptEntries = 5

// PromptEntry is one recommended tactic in the prompt block.
type PromptEntry struct {
	Name          string
	Strategy      string
	Category      string
	ExecutionType string
	Confidence    float64
	// Relevance is nil when no game state was available.
	Relevance *float64
	Reasons   []string
	Steps     []string
	Evidence  []string
	Scenarios []string
}

var usageGuidelines = []string{
	"1. Generate unit actions that follow the recommended tactics exactly.",
	"2. Derive the unit action sequence directly from the execution steps.",
	"3. Base every action on the current battlefield; avoid pointless movement.",
	"4. Keep units together and move them in the same direction.",
	"5. Push the front line toward the enemy rather than toward the map edge.",
	"6. Tactic types:",
	"   - Offense: use when we outnumber the enemy, advance as one group.",
	"   - Defense: use when outnumbered, keep a compact formation.",
	"   - Support: use when units are hurt or abilities are needed, heal key units first.",
	"7. Unit coordination:",
	"   - Medivacs always follow the ground army, one or two cells behind or beside it.",
	"   - Medivacs reposition with the ground army and never hold a fixed spot.",
	"   - Medivacs heal low-health key units such as Marauders or Siege Tanks first.",
	"   - With nothing to heal, Medivacs wait in a safe spot ready to support.",
	"8. Medivac orders:",
	"   - When the ground army advances, move Medivacs within two cells of it.",
	"   - When the ground army attacks, hover Medivacs near the fight to heal at once.",
	"   - Never send Medivacs off alone or away from the ground army.",
	"   - Medivac move orders must match the ground army's direction.",
	"   - Never move Medivacs to the map edge or away from the ground army.",
	"9. Action requirements:",
	"   - Choose move targets from the current situation, never hard-coded positions.",
	"   - Move units in the direction the tactic calls for.",
	"   - Pick explicit attack targets and prefer high-value enemy units.",
	"   - Cast abilities only when energy and the fight call for them.",
}

// RenderPrompt formats at most MaxPromptEntries tactics followed by the
// usage guidelines. It returns "" for an empty list.
func RenderPrompt(entries []PromptEntry) string {
	if len(entries) == 0 {
		return ""
	}
	if len(entries) > MaxPromptEntries {
		entries = entries[:MaxPromptEntries]
	}

	var sb strings.Builder
	sb.WriteString("\n## Tactical recommendations (retrieved):\n")
	sb.WriteString("The tactics below were ranked against the current battlefield. Use them directly when choosing unit actions.\n\n")

	for i, e := range entries {
		fmt.Fprintf(&sb, "### [%d] %s\n", i+1, e.Name)
		fmt.Fprintf(&sb, "**Strategy**: %s\n", e.Strategy)
		fmt.Fprintf(&sb, "**Category**: %s\n", orUnknown(e.Category))
		fmt.Fprintf(&sb, "**Execution**: %s\n", orUnknown(e.ExecutionType))
		fmt.Fprintf(&sb, "**Confidence**: %s (%s)\n", strings.Repeat("*", int(e.Confidence*5)), formatScore(e.Confidence))
		if e.Relevance != nil {
			fmt.Fprintf(&sb, "**Situation match**: %s (%s)\n", strings.Repeat("+", int(*e.Relevance*5)), formatScore(*e.Relevance))
			if len(e.Reasons) > 0 {
				fmt.Fprintf(&sb, "**Why it fits**: %s\n", strings.Join(e.Reasons, "; "))
			}
		}
		writeList(&sb, "Execution steps", e.Steps, true)
		writeList(&sb, "Tactical advantages", e.Evidence, false)
		writeList(&sb, "Applicable scenarios", e.Scenarios, false)
		sb.WriteString("\n")
	}

	sb.WriteString("**Usage guidelines**:\n")
	for _, line := range usageGuidelines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string, numbered bool) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "**%s**:\n", title)
	for i, item := range items {
		if numbered {
			fmt.Fprintf(sb, "  %d. %s\n", i+1, item)
		} else {
			fmt.Fprintf(sb, "  - %s\n", item)
		}
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func formatScore(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
