package planner

import "context"

// LanguageService is the narrow surface the planner needs from the external
// text-generation collaborator. Every call is fallible and latent; callers
// bound each call with the context deadline and treat a timeout like any
// other failure of the same call.
type LanguageService interface {
	AnalyzeTask(ctx context.Context, raw string) (TaskUnderstanding, error)
	AssessComplexity(ctx context.Context, raw string) (Complexity, error)
	GenerateClarifyingQuestions(ctx context.Context, u TaskUnderstanding) ([]ClarifyingQuestion, error)
	GenerateTaskPlan(ctx context.Context, u TaskUnderstanding, answers AnswerMap, extraInstruction string) (TaskPlan, error)
	Refine(ctx context.Context, p TaskPlan, transcript []RefinementMessage, message string) (string, error)
}
