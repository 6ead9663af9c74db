package planner

import (
	"context"
	"strings"

	"taskpilot/app/pkg/logger"
)

const DefaultApology = "Sorry, I couldn't answer that just now. Your plan is unchanged; please try asking again."

// Refiner maintains the chat transcript attached to the current plan. Chat is
// advisory: replies may describe changes, but the plan itself only changes
// through the Adjuster. The transcript is append-only and always ends in a
// paired turn, so it stays renderable and exportable after any failure.
type Refiner struct {
	svc     LanguageService
	store   *PlanStore
	apology string
}

func NewRefiner(svc LanguageService, store *PlanStore, apology string) *Refiner {
	if strings.TrimSpace(apology) == "" {
		apology = DefaultApology
	}
	return &Refiner{svc: svc, store: store, apology: apology}
}

// Send appends the user's turn immediately, asks the language service for a
// contextual reply, and appends it. A failed or empty reply becomes the fixed
// apology turn instead: the transcript always grows by exactly two turns.
// The returned error is non-nil only for local precondition failures.
func (r *Refiner) Send(ctx context.Context, message string) (string, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "", ErrEmptyMessage
	}

	token, st, err := r.store.beginChat()
	if err != nil {
		return "", err
	}
	defer r.store.endChat(token)

	r.store.appendTurn(token, RefinementMessage{Role: RoleUser, Content: trimmed})

	reply, refineErr := r.svc.Refine(ctx, *st.Plan, st.Transcript, trimmed)
	reply = strings.TrimSpace(reply)
	if refineErr != nil || reply == "" {
		if refineErr != nil {
			logger.Error("Refinement reply failed, sending apology: %v", refineErr)
		}
		reply = r.apology
	}

	r.store.appendTurn(token, RefinementMessage{Role: RoleAssistant, Content: reply})
	return reply, nil
}
