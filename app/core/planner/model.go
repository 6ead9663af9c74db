package planner

import "strings"

// Phase is the planning session's position in the state machine.
type Phase string

const (
	PhaseInput         Phase = "input"
	PhaseUnderstanding Phase = "understanding"
	PhaseQuestions     Phase = "questions"
	PhaseGenerating    Phase = "generating"
	PhaseOutput        Phase = "output"
)

type Complexity string

const (
	ComplexityUnknown  Complexity = ""
	ComplexitySimple   Complexity = "simple"
	ComplexityStandard Complexity = "standard"
	ComplexityComplex  Complexity = "complex"
)

func NormalizeComplexity(raw string) Complexity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "simple":
		return ComplexitySimple
	case "standard":
		return ComplexityStandard
	case "complex":
		return ComplexityComplex
	default:
		return ComplexityUnknown
	}
}

// TaskUnderstanding is the interpreted form of the user's raw task text. It is
// always derived wholesale from the latest submission, never merged with a
// prior one.
type TaskUnderstanding struct {
	Deliverables []string `json:"deliverables"`
	Inputs       []string `json:"inputs"`
	Audience     string   `json:"audience,omitempty"`
	Timeline     string   `json:"timeline,omitempty"`
	Constraints  []string `json:"constraints"`
}

type QuestionOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type ClarifyingQuestion struct {
	ID          string           `json:"id"`
	Question    string           `json:"question"`
	Options     []QuestionOption `json:"options"`
	AllowCustom bool             `json:"allow_custom"`
}

// AnswerMap records answers keyed by question id. An empty string means the
// user explicitly skipped the question; an absent key means the question has
// not been interacted with yet. The two states are distinguishable by a
// presence check.
type AnswerMap map[string]string

func (m AnswerMap) Answered(id string) bool {
	v, ok := m[id]
	return ok && v != ""
}

func (m AnswerMap) Skipped(id string) bool {
	v, ok := m[id]
	return ok && v == ""
}

func (m AnswerMap) Clone() AnswerMap {
	if m == nil {
		return nil
	}
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Owner classifies who carries out a step. It is a responsibility label, not a
// permission model.
type Owner string

const (
	OwnerYou   Owner = "you"
	OwnerYouAI Owner = "you-ai"
	OwnerAI    Owner = "ai"
)

func NormalizeOwner(raw string) Owner {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "you":
		return OwnerYou
	case "you-ai", "you+ai", "you_ai", "both":
		return OwnerYouAI
	case "ai":
		return OwnerAI
	default:
		return OwnerYou
	}
}

type TaskPlanStep struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Who         Owner  `json:"who"`
	TimeMinutes int    `json:"time_minutes"`
	Tool        string `json:"tool,omitempty"`
	// Prompt is a ready-to-use instruction block for an external AI tool.
	// Meaningful when Who is you-ai or ai; a prompt on a plain "you" step must
	// carry PromptCaveat explaining why it is offered anyway.
	Prompt       string `json:"prompt,omitempty"`
	PromptCaveat string `json:"prompt_caveat,omitempty"`
	WhyThisStep  string `json:"why_this_step"`
}

type TaskPlan struct {
	Title            string         `json:"title"`
	Summary          string         `json:"summary"`
	Steps            []TaskPlanStep `json:"steps"`
	StepCount        int            `json:"step_count"`
	TotalTimeMinutes int            `json:"total_time_minutes"`
}

func (p TaskPlan) Clone() TaskPlan {
	out := p
	out.Steps = make([]TaskPlanStep, len(p.Steps))
	copy(out.Steps, p.Steps)
	return out
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RefinementMessage is one turn in the append-only conversation attached to a
// plan. Turns are never deleted or reordered; starting over discards the whole
// transcript with the plan.
type RefinementMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Canned adjustment intents. Free-text instructions are passed through as-is.
const (
	AdjustSimplify        = "simplify"
	AdjustMoreDetail      = "more-detail"
	AdjustTighterTimeline = "tighter-timeline"
	AdjustAddStep         = "add-step"
	AdjustRemoveStep      = "remove-step"
)

var adjustmentDirectives = map[string]string{
	AdjustSimplify:        "Simplify the plan: fewer steps, plainer actions, keep only what is essential to the deliverable.",
	AdjustMoreDetail:      "Add more detail: break broad steps into concrete sub-actions with specific instructions.",
	AdjustTighterTimeline: "Tighten the timeline: reduce the time budget of each step and cut anything optional.",
	AdjustAddStep:         "Add one more step that is missing from the current plan and would improve the outcome.",
	AdjustRemoveStep:      "Remove the least valuable step and fold anything essential from it into the remaining steps.",
}

// ResolveAdjustment maps a canned intent to its generation directive. Unknown
// values are treated as free-text instructions.
func ResolveAdjustment(instruction string) string {
	trimmed := strings.TrimSpace(instruction)
	if directive, ok := adjustmentDirectives[strings.ToLower(trimmed)]; ok {
		return directive
	}
	return trimmed
}
