package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"taskpilot/app/pkg/logger"
)

// User-facing retry messages. Kept non-technical; the underlying error goes
// to the log, not the user.
const (
	msgAnalyzeFailed  = "We couldn't analyze that task. Please try again."
	msgGenerateFailed = "We couldn't generate your plan. Please try again."
	msgAdjustFailed   = "We couldn't adjust the plan. Your current plan is unchanged; please try again."
)

// Orchestrator drives the planning session through its phases:
// input -> understanding -> questions -> generating -> output, with
// clarifying questions skipped entirely when none are needed. It is the only
// writer of the PlanStore's phase data.
type Orchestrator struct {
	svc          LanguageService
	store        *PlanStore
	maxQuestions int
}

func NewOrchestrator(svc LanguageService, store *PlanStore, maxQuestions int) *Orchestrator {
	if maxQuestions <= 0 {
		maxQuestions = 2
	}
	return &Orchestrator{
		svc:          svc,
		store:        store,
		maxQuestions: maxQuestions,
	}
}

func (o *Orchestrator) Store() *PlanStore {
	return o.store
}

func (o *Orchestrator) Snapshot() State {
	return o.store.Snapshot()
}

// SubmitTask analyzes the raw task text and moves the session to the
// understanding phase. Analysis and complexity assessment run concurrently;
// a failed assessment falls back to unknown complexity, a failed analysis
// keeps the session in input with a retryable error.
func (o *Orchestrator) SubmitTask(ctx context.Context, raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ErrEmptyTask
	}

	token, _, err := o.store.begin("submit_task", PhaseInput)
	if err != nil {
		return err
	}
	o.store.stage(token, func(s *PlanStore) {
		s.rawInput = trimmed
	})

	var (
		understanding TaskUnderstanding
		complexity    Complexity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := o.svc.AnalyzeTask(gctx, trimmed)
		if err != nil {
			return fmt.Errorf("analyze task: %w", err)
		}
		understanding = u
		return nil
	})
	g.Go(func() error {
		c, err := o.svc.AssessComplexity(gctx, trimmed)
		if err != nil {
			// Complexity is advisory; never fail the transition for it.
			logger.Error("Complexity assessment failed, defaulting to unknown: %v", err)
			complexity = ComplexityUnknown
			return nil
		}
		complexity = c
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("Task analysis failed: %v", err)
		o.store.fail(token, PhaseInput, msgAnalyzeFailed)
		return err
	}

	o.store.finish(token, func(s *PlanStore) {
		u := understanding
		s.understanding = &u
		s.complexity = complexity
		s.phase = PhaseUnderstanding
	})
	logger.Info("Task analyzed: %d deliverable(s), complexity=%s", len(understanding.Deliverables), complexity)
	return nil
}

// ConfirmUnderstanding asks for clarifying questions. One or more questions
// move the session to the questions phase; zero questions, or a failed
// request, go straight to plan generation. Clarification is an enhancement,
// never a gate.
func (o *Orchestrator) ConfirmUnderstanding(ctx context.Context) error {
	token, st, err := o.store.begin("confirm_understanding", PhaseUnderstanding)
	if err != nil {
		return err
	}
	if st.Understanding == nil {
		o.store.fail(token, PhaseUnderstanding, msgAnalyzeFailed)
		return ErrNoUnderstanding
	}

	questions, qErr := o.svc.GenerateClarifyingQuestions(ctx, *st.Understanding)
	if qErr != nil {
		logger.Error("Clarifying questions failed, proceeding without: %v", qErr)
		questions = nil
	}
	questions = BoundQuestions(questions, o.maxQuestions)
	for i := range questions {
		if strings.TrimSpace(questions[i].ID) == "" {
			questions[i].ID = uuid.NewString()
		}
	}

	if len(questions) == 0 {
		o.store.stage(token, func(s *PlanStore) {
			s.phase = PhaseGenerating
		})
		return o.generatePlan(ctx, token, st, "", PhaseUnderstanding)
	}

	o.store.finish(token, func(s *PlanStore) {
		s.questions = questions
		s.answers = AnswerMap{}
		s.phase = PhaseQuestions
	})
	logger.Info("Loaded %d clarifying question(s)", len(questions))
	return nil
}

// ClarifyUnderstanding returns to the input phase so the user can revise the
// task text. The previous understanding stays in place until a resubmission
// succeeds, so a failed resubmission loses nothing.
func (o *Orchestrator) ClarifyUnderstanding() error {
	token, _, err := o.store.begin("clarify_understanding", PhaseUnderstanding)
	if err != nil {
		return err
	}
	o.store.finish(token, func(s *PlanStore) {
		s.phase = PhaseInput
	})
	return nil
}

// AnswerQuestion records a non-empty answer for a loaded question.
func (o *Orchestrator) AnswerQuestion(id string, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	return o.store.setAnswer(id, trimmed)
}

// SkipQuestion marks a question as explicitly skipped. A skipped question is
// recorded as an empty answer, distinguishable from one never touched.
func (o *Orchestrator) SkipQuestion(id string) error {
	return o.store.setAnswer(id, "")
}

// SubmitAnswers moves from questions to plan generation. Answering every
// question is not required; whatever is in the answer map goes along. On
// failure the session returns to the questions phase so the user can retry
// without re-answering.
func (o *Orchestrator) SubmitAnswers(ctx context.Context) error {
	token, st, err := o.store.begin("submit_answers", PhaseQuestions)
	if err != nil {
		return err
	}
	if st.Understanding == nil {
		o.store.fail(token, PhaseQuestions, msgGenerateFailed)
		return ErrNoUnderstanding
	}
	o.store.stage(token, func(s *PlanStore) {
		s.phase = PhaseGenerating
	})
	return o.generatePlan(ctx, token, st, "", PhaseQuestions)
}

func (o *Orchestrator) generatePlan(ctx context.Context, token uint64, st State, extraInstruction string, fallback Phase) error {
	plan, err := o.svc.GenerateTaskPlan(ctx, *st.Understanding, st.Answers, extraInstruction)
	if err == nil {
		err = ValidatePlan(plan)
	}
	if err != nil {
		logger.Error("Plan generation failed: %v", err)
		o.store.fail(token, fallback, msgGenerateFailed)
		return fmt.Errorf("generate plan: %w", err)
	}

	o.store.finish(token, func(s *PlanStore) {
		p := plan.Clone()
		s.plan = &p
		s.phase = PhaseOutput
	})
	logger.Info("Plan generated: %d step(s), %d min total", plan.StepCount, plan.TotalTimeMinutes)
	return nil
}

// StartOver discards the whole session from any phase. This is the only
// transition allowed to drop a plan and its transcript.
func (o *Orchestrator) StartOver() {
	o.store.Reset()
	logger.Info("Session reset")
}
