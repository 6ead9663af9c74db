package planner

import "strings"

// NormalizePlan recomputes the plan's derived fields: dense 1-based step
// numbers in sequence order, StepCount, and TotalTimeMinutes. Negative step
// times are clamped to zero. The input is not mutated.
func NormalizePlan(p TaskPlan) TaskPlan {
	out := p.Clone()
	total := 0
	for i := range out.Steps {
		out.Steps[i].Number = i + 1
		if out.Steps[i].TimeMinutes < 0 {
			out.Steps[i].TimeMinutes = 0
		}
		total += out.Steps[i].TimeMinutes
	}
	out.StepCount = len(out.Steps)
	out.TotalTimeMinutes = total
	return out
}

// ValidatePlan rejects plans that cannot be shown to the user: no steps,
// steps with empty titles, broken numbering, or derived fields out of sync
// with the step sequence.
func ValidatePlan(p TaskPlan) error {
	if len(p.Steps) == 0 {
		return &InconsistentPlanError{Reason: "plan has no steps"}
	}
	if strings.TrimSpace(p.Title) == "" {
		return &InconsistentPlanError{Reason: "plan has no title"}
	}
	total := 0
	for i, step := range p.Steps {
		if step.Number != i+1 {
			return &InconsistentPlanError{Reason: "step numbers are not dense from 1"}
		}
		if strings.TrimSpace(step.Title) == "" {
			return &InconsistentPlanError{Reason: "step has no title"}
		}
		if step.TimeMinutes < 0 {
			return &InconsistentPlanError{Reason: "step has negative time"}
		}
		if step.Who != OwnerYou && step.Who != OwnerYouAI && step.Who != OwnerAI {
			return &InconsistentPlanError{Reason: "step has unknown owner"}
		}
		if step.Who == OwnerYou && step.Prompt != "" && strings.TrimSpace(step.PromptCaveat) == "" {
			return &InconsistentPlanError{Reason: "prompt on a you-owned step requires a caveat"}
		}
		total += step.TimeMinutes
	}
	if p.StepCount != len(p.Steps) {
		return &InconsistentPlanError{Reason: "step count does not match steps"}
	}
	if p.TotalTimeMinutes != total {
		return &InconsistentPlanError{Reason: "total time does not match steps"}
	}
	return nil
}

// BoundQuestions enforces the per-session clarifying question cap: only the
// leading subset up to max is kept. Questions without an id get one assigned
// by the caller before use.
func BoundQuestions(questions []ClarifyingQuestion, max int) []ClarifyingQuestion {
	if max < 0 {
		max = 0
	}
	if len(questions) <= max {
		return questions
	}
	return questions[:max]
}
