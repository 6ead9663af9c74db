package planner

import (
	"context"
	"fmt"

	"taskpilot/app/pkg/logger"
)

// Adjuster regenerates the plan with an adjustment directive folded into the
// generation request. It never patches a plan in place: regeneration is the
// only way a plan changes, which keeps step numbering and the derived totals
// consistent by construction.
type Adjuster struct {
	svc   LanguageService
	store *PlanStore
}

func NewAdjuster(svc LanguageService, store *PlanStore) *Adjuster {
	return &Adjuster{svc: svc, store: store}
}

// Adjust replaces the current plan with a regenerated one. instruction is
// either a canned intent (simplify, more-detail, tighter-timeline, add-step,
// remove-step) or free text. At most one adjustment runs at a time; on
// failure the previous plan stays exactly as it was.
func (a *Adjuster) Adjust(ctx context.Context, instruction string) error {
	directive := ResolveAdjustment(instruction)
	if directive == "" {
		return ErrEmptyMessage
	}

	token, st, err := a.store.begin("adjust", PhaseOutput)
	if err != nil {
		return err
	}
	if st.Plan == nil {
		a.store.fail(token, st.Phase, msgAdjustFailed)
		return ErrNoPlan
	}
	if st.Understanding == nil {
		a.store.fail(token, st.Phase, msgAdjustFailed)
		return ErrNoUnderstanding
	}

	plan, err := a.svc.GenerateTaskPlan(ctx, *st.Understanding, st.Answers, directive)
	if err == nil {
		err = ValidatePlan(plan)
	}
	if err != nil {
		logger.Error("Plan adjustment failed, keeping previous plan: %v", err)
		a.store.fail(token, PhaseOutput, msgAdjustFailed)
		return fmt.Errorf("adjust plan: %w", err)
	}

	a.store.finish(token, func(s *PlanStore) {
		p := plan.Clone()
		s.plan = &p
		s.phase = PhaseOutput
	})
	logger.Info("Plan adjusted (%q): %d step(s), %d min total", instruction, plan.StepCount, plan.TotalTimeMinutes)
	return nil
}
