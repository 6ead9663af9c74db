package language

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"taskpilot/app/core/planner"
)

func TestBuildAnalyzePromptContainsTask(t *testing.T) {
	prompt := buildAnalyzePrompt("Summarize this 1-page memo")
	if !strings.Contains(prompt, "Summarize this 1-page memo") {
		t.Fatalf("task text missing from prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "deliverables") {
		t.Fatalf("schema missing from prompt:\n%s", prompt)
	}
}

func TestUnderstandingJSONAlwaysHasArrays(t *testing.T) {
	out := understandingJSON(planner.TaskUnderstanding{Audience: "execs"})
	if !gjson.Valid(out) {
		t.Fatalf("invalid json: %s", out)
	}
	for _, field := range []string{"deliverables", "inputs", "constraints"} {
		if !gjson.Get(out, field).IsArray() {
			t.Fatalf("%s is not an array: %s", field, out)
		}
	}
	if gjson.Get(out, "audience").String() != "execs" {
		t.Fatalf("audience missing: %s", out)
	}
	if gjson.Get(out, "timeline").Exists() {
		t.Fatalf("empty timeline should be omitted: %s", out)
	}
}

func TestPlanContextJSONSeparatesSkippedFromAnswered(t *testing.T) {
	u := planner.TaskUnderstanding{Deliverables: []string{"a summary"}}
	answers := planner.AnswerMap{
		"q1": "internal team",
		"q2": "",
	}
	// q3 never touched: must be absent everywhere.

	out := planContextJSON(u, answers)
	if !gjson.Valid(out) {
		t.Fatalf("invalid json: %s", out)
	}
	if gjson.Get(out, "answers.q1").String() != "internal team" {
		t.Fatalf("answered question missing: %s", out)
	}
	if gjson.Get(out, "answers.q2").Exists() {
		t.Fatalf("skipped question leaked into answers: %s", out)
	}
	skipped := gjson.Get(out, "skipped_questions")
	if !skipped.IsArray() || len(skipped.Array()) != 1 || skipped.Array()[0].String() != "q2" {
		t.Fatalf("skipped list wrong: %s", out)
	}
	if strings.Contains(out, "q3") {
		t.Fatalf("untouched question appeared in context: %s", out)
	}
}

func TestPlanContextJSONIsDeterministic(t *testing.T) {
	u := planner.TaskUnderstanding{Deliverables: []string{"a summary"}}
	answers := planner.AnswerMap{"b": "", "a": "", "c": "yes", "d": "no"}
	first := planContextJSON(u, answers)
	for i := 0; i < 10; i++ {
		if got := planContextJSON(u, answers); got != first {
			t.Fatalf("context json not deterministic:\n%s\n%s", first, got)
		}
	}
}

func TestBuildPlanPromptIncludesDirective(t *testing.T) {
	u := planner.TaskUnderstanding{Deliverables: []string{"a summary"}}

	plain := buildPlanPrompt(u, nil, "")
	if strings.Contains(plain, "Adjustment directive") {
		t.Fatalf("directive section present without instruction:\n%s", plain)
	}

	adjusted := buildPlanPrompt(u, nil, "Merge the last two steps.")
	if !strings.Contains(adjusted, "Adjustment directive") || !strings.Contains(adjusted, "Merge the last two steps.") {
		t.Fatalf("directive missing:\n%s", adjusted)
	}
}

func TestBuildQuestionsPromptStatesBound(t *testing.T) {
	u := planner.TaskUnderstanding{Deliverables: []string{"a summary"}}
	prompt := buildQuestionsPrompt(u, 2)
	if !strings.Contains(prompt, "At most 2 questions") {
		t.Fatalf("bound missing from prompt:\n%s", prompt)
	}
}

func TestBuildRefinePromptCarriesPlanAndTranscript(t *testing.T) {
	plan := planner.NormalizePlan(planner.TaskPlan{
		Title:   "Plan",
		Summary: "s",
		Steps: []planner.TaskPlanStep{
			{Title: "Only step", Description: "d", Who: planner.OwnerYou, TimeMinutes: 5, WhyThisStep: "w"},
		},
	})
	transcript := []planner.RefinementMessage{
		{Role: planner.RoleUser, Content: "too long"},
		{Role: planner.RoleAssistant, Content: "cut step 3"},
	}

	prompt := buildRefinePrompt(plan, transcript, "what else?")
	if !strings.Contains(prompt, "Step 1: Only step") {
		t.Fatalf("plan missing from refine prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "user: too long") || !strings.Contains(prompt, "assistant: cut step 3") {
		t.Fatalf("transcript missing from refine prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "what else?") {
		t.Fatalf("new message missing from refine prompt:\n%s", prompt)
	}
}
