package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeService struct {
	understanding TaskUnderstanding
	analyzeErr    error
	analyzeCalls  int

	complexity    Complexity
	complexityErr error

	questions    []ClarifyingQuestion
	questionsErr error

	plan        TaskPlan
	planErr     error
	planCalls   int
	lastExtra   string
	lastAnswers AnswerMap

	reply     string
	refineErr error
}

func (f *fakeService) AnalyzeTask(ctx context.Context, raw string) (TaskUnderstanding, error) {
	f.analyzeCalls++
	if f.analyzeErr != nil {
		return TaskUnderstanding{}, f.analyzeErr
	}
	return f.understanding, nil
}

func (f *fakeService) AssessComplexity(ctx context.Context, raw string) (Complexity, error) {
	if f.complexityErr != nil {
		return ComplexityUnknown, f.complexityErr
	}
	return f.complexity, nil
}

func (f *fakeService) GenerateClarifyingQuestions(ctx context.Context, u TaskUnderstanding) ([]ClarifyingQuestion, error) {
	if f.questionsErr != nil {
		return nil, f.questionsErr
	}
	return f.questions, nil
}

func (f *fakeService) GenerateTaskPlan(ctx context.Context, u TaskUnderstanding, answers AnswerMap, extraInstruction string) (TaskPlan, error) {
	f.planCalls++
	f.lastExtra = extraInstruction
	f.lastAnswers = answers.Clone()
	if f.planErr != nil {
		return TaskPlan{}, f.planErr
	}
	return f.plan, nil
}

func (f *fakeService) Refine(ctx context.Context, p TaskPlan, transcript []RefinementMessage, message string) (string, error) {
	if f.refineErr != nil {
		return "", f.refineErr
	}
	return f.reply, nil
}

func testUnderstanding() TaskUnderstanding {
	return TaskUnderstanding{
		Deliverables: []string{"a one-page summary"},
		Inputs:       []string{"the memo"},
		Constraints:  []string{},
	}
}

func testPlan(stepCount int) TaskPlan {
	plan := TaskPlan{
		Title:   "Summarize the memo",
		Summary: "Short plan.",
	}
	for i := 0; i < stepCount; i++ {
		plan.Steps = append(plan.Steps, TaskPlanStep{
			Title:       fmt.Sprintf("Step title %d", i+1),
			Description: "Do the thing.",
			Who:         OwnerYou,
			TimeMinutes: 15,
			WhyThisStep: "It moves the work forward.",
		})
	}
	return NormalizePlan(plan)
}

func testQuestions(n int) []ClarifyingQuestion {
	var out []ClarifyingQuestion
	for i := 0; i < n; i++ {
		out = append(out, ClarifyingQuestion{
			ID:          fmt.Sprintf("q%d", i+1),
			Question:    fmt.Sprintf("Question %d?", i+1),
			AllowCustom: true,
		})
	}
	return out
}

func newTestOrchestrator(svc *fakeService) *Orchestrator {
	return NewOrchestrator(svc, NewPlanStore(), 2)
}

func TestSubmitTaskRejectsEmptyText(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding()}
	o := newTestOrchestrator(svc)

	if err := o.SubmitTask(context.Background(), "   \n\t"); !errors.Is(err, ErrEmptyTask) {
		t.Fatalf("expected ErrEmptyTask, got %v", err)
	}
	st := o.Snapshot()
	if st.Phase != PhaseInput {
		t.Fatalf("phase changed on validation failure: %s", st.Phase)
	}
	if svc.analyzeCalls != 0 {
		t.Fatalf("analyze called despite empty input")
	}
}

func TestSubmitTaskReachesUnderstanding(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding(), complexity: ComplexitySimple}
	o := newTestOrchestrator(svc)

	if err := o.SubmitTask(context.Background(), "  Summarize this 1-page memo  "); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	st := o.Snapshot()
	if st.Phase != PhaseUnderstanding {
		t.Fatalf("unexpected phase: %s", st.Phase)
	}
	if st.Understanding == nil {
		t.Fatalf("understanding not set")
	}
	if st.RawInput != "Summarize this 1-page memo" {
		t.Fatalf("raw input not trimmed and stored: %q", st.RawInput)
	}
	if st.Complexity != ComplexitySimple {
		t.Fatalf("complexity not set: %q", st.Complexity)
	}
	if st.Error != "" {
		t.Fatalf("unexpected error: %q", st.Error)
	}
}

func TestSubmitTaskAnalyzeFailureStaysInInput(t *testing.T) {
	svc := &fakeService{analyzeErr: errors.New("service down"), complexity: ComplexityStandard}
	o := newTestOrchestrator(svc)

	if err := o.SubmitTask(context.Background(), "Plan the offsite"); err == nil {
		t.Fatalf("expected error")
	}
	st := o.Snapshot()
	if st.Phase != PhaseInput {
		t.Fatalf("expected to stay in input, got %s", st.Phase)
	}
	if st.Understanding != nil {
		t.Fatalf("understanding set despite failure")
	}
	if st.Error == "" {
		t.Fatalf("expected retryable error message")
	}
	if st.RawInput != "Plan the offsite" {
		t.Fatalf("raw input lost on failure: %q", st.RawInput)
	}
	if st.Loading {
		t.Fatalf("loading flag stuck")
	}

	// Retry with the service recovered.
	svc.analyzeErr = nil
	svc.understanding = testUnderstanding()
	if err := o.SubmitTask(context.Background(), st.RawInput); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if o.Snapshot().Phase != PhaseUnderstanding {
		t.Fatalf("retry did not advance the phase")
	}
}

func TestSubmitTaskComplexityFailureIsNonFatal(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding(), complexityErr: errors.New("timeout")}
	o := newTestOrchestrator(svc)

	if err := o.SubmitTask(context.Background(), "Write a launch email"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	st := o.Snapshot()
	if st.Phase != PhaseUnderstanding {
		t.Fatalf("unexpected phase: %s", st.Phase)
	}
	if st.Complexity != ComplexityUnknown {
		t.Fatalf("expected unknown complexity, got %q", st.Complexity)
	}
}

func TestConfirmUnderstandingLoadsQuestions(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding(), questions: testQuestions(2)}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ConfirmUnderstanding(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	st := o.Snapshot()
	if st.Phase != PhaseQuestions {
		t.Fatalf("unexpected phase: %s", st.Phase)
	}
	if len(st.Questions) != 2 {
		t.Fatalf("unexpected question count: %d", len(st.Questions))
	}
	if len(st.Answers) != 0 {
		t.Fatalf("answer map not cleared")
	}
	if svc.planCalls != 0 {
		t.Fatalf("plan generated before answers")
	}
}

func TestConfirmUnderstandingBoundsQuestions(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding(), questions: testQuestions(5)}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ConfirmUnderstanding(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	st := o.Snapshot()
	if len(st.Questions) != 2 {
		t.Fatalf("expected bound of 2 questions, got %d", len(st.Questions))
	}
	if st.Questions[0].ID != "q1" || st.Questions[1].ID != "q2" {
		t.Fatalf("expected the leading subset, got %v", st.Questions)
	}
}

func TestConfirmUnderstandingZeroQuestionsGoesStraightToOutput(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding(), plan: testPlan(3)}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ConfirmUnderstanding(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	st := o.Snapshot()
	if st.Phase != PhaseOutput {
		t.Fatalf("expected output phase, got %s", st.Phase)
	}
	if st.Plan == nil {
		t.Fatalf("plan not set")
	}
	if len(st.Questions) != 0 {
		t.Fatalf("questions phase should have been skipped")
	}
}

func TestConfirmUnderstandingQuestionFailureIsSwallowed(t *testing.T) {
	svc := &fakeService{
		understanding: testUnderstanding(),
		questionsErr:  errors.New("service down"),
		plan:          testPlan(4),
	}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ConfirmUnderstanding(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	st := o.Snapshot()
	if st.Phase != PhaseOutput {
		t.Fatalf("question failure should fall through to generation, got phase %s", st.Phase)
	}
	if st.Error != "" {
		t.Fatalf("question failure should not surface an error, got %q", st.Error)
	}
}

func TestClarifyUnderstandingKeepsTextAndUnderstanding(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding()}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ClarifyUnderstanding(); err != nil {
		t.Fatalf("clarify failed: %v", err)
	}
	st := o.Snapshot()
	if st.Phase != PhaseInput {
		t.Fatalf("unexpected phase: %s", st.Phase)
	}
	if st.RawInput == "" {
		t.Fatalf("raw input cleared")
	}
	if st.Understanding == nil {
		t.Fatalf("understanding cleared before a new submission succeeded")
	}
}

func TestSkipAndAnswerAreDistinguishable(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding(), questions: testQuestions(2)}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ConfirmUnderstanding(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	st := o.Snapshot()
	if _, present := st.Answers["q1"]; present {
		t.Fatalf("untouched question should be absent from the answer map")
	}

	if err := o.SkipQuestion("q1"); err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	if err := o.AnswerQuestion("q2", "  by Friday "); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	st = o.Snapshot()
	if v, present := st.Answers["q1"]; !present || v != "" {
		t.Fatalf("skip should record an empty answer, got present=%v value=%q", present, v)
	}
	if !st.Answers.Skipped("q1") {
		t.Fatalf("q1 not reported as skipped")
	}
	if st.Answers["q2"] != "by Friday" {
		t.Fatalf("answer not trimmed and stored: %q", st.Answers["q2"])
	}

	if err := o.AnswerQuestion("nope", "x"); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
	if err := o.AnswerQuestion("q1", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage for blank answer, got %v", err)
	}
}

func TestSubmitAnswersGeneratesWithoutCompleteness(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding(), questions: testQuestions(2), plan: testPlan(3)}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ConfirmUnderstanding(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if err := o.SkipQuestion("q1"); err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	// q2 left untouched on purpose.

	if err := o.SubmitAnswers(context.Background()); err != nil {
		t.Fatalf("submit answers failed: %v", err)
	}
	st := o.Snapshot()
	if st.Phase != PhaseOutput {
		t.Fatalf("unexpected phase: %s", st.Phase)
	}
	if v, present := svc.lastAnswers["q1"]; !present || v != "" {
		t.Fatalf("skip not passed through to generation: present=%v value=%q", present, v)
	}
	if _, present := svc.lastAnswers["q2"]; present {
		t.Fatalf("untouched question leaked into generation answers")
	}
}

func TestSubmitAnswersFailureReturnsToQuestions(t *testing.T) {
	svc := &fakeService{
		understanding: testUnderstanding(),
		questions:     testQuestions(1),
		planErr:       errors.New("service down"),
	}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ConfirmUnderstanding(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if err := o.AnswerQuestion("q1", "internal team"); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if err := o.SubmitAnswers(context.Background()); err == nil {
		t.Fatalf("expected generation error")
	}
	st := o.Snapshot()
	if st.Phase != PhaseQuestions {
		t.Fatalf("expected to return to questions, got %s", st.Phase)
	}
	if st.Plan != nil {
		t.Fatalf("plan set despite failure")
	}
	if st.Error == "" {
		t.Fatalf("expected retryable error message")
	}
	if st.Answers["q1"] != "internal team" {
		t.Fatalf("answers lost on failure")
	}

	// Retry without re-answering.
	svc.planErr = nil
	svc.plan = testPlan(3)
	if err := o.SubmitAnswers(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if o.Snapshot().Phase != PhaseOutput {
		t.Fatalf("retry did not reach output")
	}
}

func TestInconsistentPlanIsRejected(t *testing.T) {
	badPlan := testPlan(3)
	badPlan.StepCount = 5
	svc := &fakeService{understanding: testUnderstanding(), questions: testQuestions(1), plan: badPlan}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ConfirmUnderstanding(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	err := o.SubmitAnswers(context.Background())
	if err == nil {
		t.Fatalf("expected inconsistent plan to be rejected")
	}
	var inconsistent *InconsistentPlanError
	if !errors.As(err, &inconsistent) {
		t.Fatalf("expected InconsistentPlanError, got %v", err)
	}
	st := o.Snapshot()
	if st.Plan != nil {
		t.Fatalf("inconsistent plan must not be displayed")
	}
	if st.Phase != PhaseQuestions {
		t.Fatalf("expected to return to questions, got %s", st.Phase)
	}
}

func TestSubmitTaskRejectedOverExistingPlan(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding(), plan: testPlan(2)}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ConfirmUnderstanding(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if o.Snapshot().Phase != PhaseOutput {
		t.Fatalf("setup did not reach output")
	}

	err := o.SubmitTask(context.Background(), "A totally different task")
	var phaseErr *PhaseError
	if !errors.As(err, &phaseErr) {
		t.Fatalf("expected PhaseError, got %v", err)
	}
	if o.Snapshot().Plan == nil {
		t.Fatalf("existing plan discarded without start over")
	}
}

func TestStartOverResetsEverything(t *testing.T) {
	svc := &fakeService{understanding: testUnderstanding(), plan: testPlan(2), reply: "sure"}
	o := newTestOrchestrator(svc)

	mustSubmit(t, o)
	if err := o.ConfirmUnderstanding(context.Background()); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	refiner := NewRefiner(svc, o.Store(), "")
	if _, err := refiner.Send(context.Background(), "make it shorter"); err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	o.StartOver()

	st := o.Snapshot()
	if st.Phase != PhaseInput {
		t.Fatalf("unexpected phase after reset: %s", st.Phase)
	}
	if st.RawInput != "" || st.Understanding != nil || st.Plan != nil {
		t.Fatalf("session data survived reset")
	}
	if len(st.Questions) != 0 || len(st.Answers) != 0 || len(st.Transcript) != 0 {
		t.Fatalf("derived data survived reset")
	}
	if st.Complexity != ComplexityUnknown {
		t.Fatalf("complexity survived reset")
	}
	if st.Error != "" || st.Loading || st.ChatBusy {
		t.Fatalf("flags survived reset")
	}
}

func mustSubmit(t *testing.T, o *Orchestrator) {
	t.Helper()
	if err := o.SubmitTask(context.Background(), "Summarize this 1-page memo"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
}
