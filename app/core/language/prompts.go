package language

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/sjson"

	"taskpilot/app/core/planner"
)

const (
	analyzeSystem = "You are a pragmatic work-planning assistant. You read a description of a real work task and extract what is actually being asked for. Return JSON only."

	complexitySystem = "You classify work tasks by how much planning they need. Return JSON only."

	questionsSystem = "You decide whether a short clarification would materially improve a work plan. Ask only what you genuinely need; zero questions is a good answer. Return JSON only."

	planSystem = "You turn a task understanding into a concrete, ordered execution plan a busy person can follow today. Every step states who does it, how long it takes, and why it exists. Return JSON only."

	refineSystem = "You are a helpful planning assistant discussing an existing task plan. Answer conversationally and concretely. You may describe changes, but you never rewrite the plan yourself; the user applies changes separately."
)

func buildAnalyzePrompt(raw string) string {
	var b strings.Builder
	b.WriteString("Analyze the task below.\n")
	b.WriteString("Return JSON only.\n\n")
	b.WriteString("JSON schema:\n")
	b.WriteString(`{"deliverables":["..."],"inputs":["..."],"audience":"optional","timeline":"optional","constraints":["..."]}` + "\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- deliverables: what is being produced, in presentation order.\n")
	b.WriteString("- inputs: source material the person already has.\n")
	b.WriteString("- Leave audience and timeline empty if the task does not say.\n")
	b.WriteString("- Do not invent constraints.\n\n")
	b.WriteString("Task:\n")
	b.WriteString(raw + "\n")
	return b.String()
}

func buildComplexityPrompt(raw string) string {
	var b strings.Builder
	b.WriteString("Classify the task below as simple, standard, or complex.\n")
	b.WriteString("Return JSON only.\n\n")
	b.WriteString("JSON schema:\n")
	b.WriteString(`{"complexity":"simple|standard|complex"}` + "\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- simple: one sitting, one deliverable, no coordination.\n")
	b.WriteString("- complex: multiple deliverables, several people or tools, or a multi-day timeline.\n")
	b.WriteString("- Otherwise standard.\n\n")
	b.WriteString("Task:\n")
	b.WriteString(raw + "\n")
	return b.String()
}

func buildQuestionsPrompt(u planner.TaskUnderstanding, max int) string {
	var b strings.Builder
	b.WriteString("Given the task understanding below, list the clarifying questions that would materially change the plan.\n")
	b.WriteString("Return JSON only.\n\n")
	b.WriteString("JSON schema:\n")
	b.WriteString(`{"questions":[{"id":"q1","question":"...","options":[{"label":"...","value":"..."}],"allow_custom":true}]}` + "\n\n")
	b.WriteString("Rules:\n")
	b.WriteString(fmt.Sprintf("- At most %d questions. Fewer is better. An empty list is a valid answer.\n", max))
	b.WriteString("- Only ask about ambiguity that changes the steps, not nice-to-know detail.\n")
	b.WriteString("- Offer 2-4 short canned options where natural; set allow_custom true when a free answer makes sense.\n\n")
	b.WriteString("Understanding:\n")
	b.WriteString(understandingJSON(u) + "\n")
	return b.String()
}

func buildPlanPrompt(u planner.TaskUnderstanding, answers planner.AnswerMap, extraInstruction string) string {
	var b strings.Builder
	b.WriteString("Create an execution plan for the task described by the context below.\n")
	b.WriteString("Return JSON only.\n\n")
	b.WriteString("JSON schema:\n")
	b.WriteString(`{"title":"...","summary":"...","steps":[{"title":"...","description":"...","who":"you|you-ai|ai","time_minutes":15,"tool":"optional","prompt":"optional ready-to-paste AI prompt","prompt_caveat":"required if who=you and prompt present","why_this_step":"..."}]}` + "\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- 3 to 7 steps in execution order.\n")
	b.WriteString("- who=ai or you-ai steps should include a prompt the person can paste into an AI tool, with [INSERT: ...] markers for their material.\n")
	b.WriteString("- time_minutes is a realistic estimate per step.\n")
	b.WriteString("- Skipped clarifications mean: use your best judgment for that point.\n")
	if extraInstruction != "" {
		b.WriteString("\nAdjustment directive (apply to the whole plan):\n")
		b.WriteString(extraInstruction + "\n")
	}
	b.WriteString("\nContext:\n")
	b.WriteString(planContextJSON(u, answers) + "\n")
	return b.String()
}

func buildRefinePrompt(p planner.TaskPlan, transcript []planner.RefinementMessage, message string) string {
	var b strings.Builder
	b.WriteString("Current plan:\n")
	b.WriteString(planner.PortableText(p))
	if len(transcript) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range transcript {
			b.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
		}
	}
	b.WriteString("\nUser message:\n")
	b.WriteString(message + "\n")
	return b.String()
}

// understandingJSON renders the understanding as compact JSON for embedding
// in a prompt. Nil slices become empty arrays so the model always sees every
// field.
func understandingJSON(u planner.TaskUnderstanding) string {
	out := "{}"
	out, _ = sjson.Set(out, "deliverables", stringsOrEmpty(u.Deliverables))
	out, _ = sjson.Set(out, "inputs", stringsOrEmpty(u.Inputs))
	out, _ = sjson.Set(out, "constraints", stringsOrEmpty(u.Constraints))
	if u.Audience != "" {
		out, _ = sjson.Set(out, "audience", u.Audience)
	}
	if u.Timeline != "" {
		out, _ = sjson.Set(out, "timeline", u.Timeline)
	}
	return out
}

// planContextJSON assembles the generation context. Skipped questions are
// listed separately from answered ones; questions never interacted with are
// absent entirely, preserving the skip/unanswered distinction on the wire.
func planContextJSON(u planner.TaskUnderstanding, answers planner.AnswerMap) string {
	out := "{}"
	out, _ = sjson.SetRaw(out, "understanding", understandingJSON(u))
	answered := map[string]string{}
	var skipped []string
	for id, value := range answers {
		if value == "" {
			skipped = append(skipped, id)
			continue
		}
		answered[id] = value
	}
	if len(answered) > 0 {
		raw, err := json.Marshal(answered)
		if err == nil {
			out, _ = sjson.SetRaw(out, "answers", string(raw))
		}
	}
	if len(skipped) > 0 {
		sort.Strings(skipped)
		out, _ = sjson.Set(out, "skipped_questions", skipped)
	}
	return out
}

func stringsOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
