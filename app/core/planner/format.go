package planner

import (
	"fmt"
	"strings"
)

const stepSeparator = "---"

// FormatMinutes renders a duration in minutes for display: "45 min",
// "2 hr", "1 hr 30 min". Minutes are omitted only when exactly zero.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	rest := minutes % 60
	if rest == 0 {
		return fmt.Sprintf("%d hr", hours)
	}
	return fmt.Sprintf("%d hr %d min", hours, rest)
}

func OwnerLabel(who Owner) string {
	switch who {
	case OwnerYou:
		return "You"
	case OwnerYouAI:
		return "You + AI"
	case OwnerAI:
		return "AI"
	default:
		return string(who)
	}
}

// PortableText renders a plan to its portable text form. The same output is
// used for copy, download, and share, so it must be deterministic and must
// reproduce prompts verbatim inside their fenced blocks.
func PortableText(p TaskPlan) string {
	var b strings.Builder
	b.WriteString("# " + p.Title + "\n\n")
	if p.Summary != "" {
		b.WriteString(p.Summary + "\n\n")
	}
	b.WriteString(fmt.Sprintf("Steps: %d | Total time: %s\n", p.StepCount, FormatMinutes(p.TotalTimeMinutes)))

	for _, step := range p.Steps {
		b.WriteString("\n" + stepSeparator + "\n\n")
		b.WriteString(fmt.Sprintf("Step %d: %s\n", step.Number, step.Title))
		b.WriteString(fmt.Sprintf("Who: %s | Time: %s", OwnerLabel(step.Who), FormatMinutes(step.TimeMinutes)))
		if step.Tool != "" {
			b.WriteString(" | Tool: " + step.Tool)
		}
		b.WriteString("\n\n")
		b.WriteString(step.Description + "\n")
		if step.Prompt != "" {
			b.WriteString("\nPrompt:\n")
			b.WriteString("```\n")
			b.WriteString(step.Prompt)
			if !strings.HasSuffix(step.Prompt, "\n") {
				b.WriteString("\n")
			}
			b.WriteString("```\n")
			if step.PromptCaveat != "" {
				b.WriteString("Note: " + step.PromptCaveat + "\n")
			}
		}
		b.WriteString("\nWhy this step: " + step.WhyThisStep + "\n")
	}
	return b.String()
}
