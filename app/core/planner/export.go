package planner

import "strings"

// ConversationText renders a plan together with its refinement transcript as a
// single portable document. Pure: no clock, no network, same input yields the
// same bytes.
func ConversationText(p TaskPlan, transcript []RefinementMessage) string {
	var b strings.Builder
	b.WriteString(PortableText(p))
	if len(transcript) == 0 {
		return b.String()
	}
	b.WriteString("\n" + stepSeparator + "\n\n")
	b.WriteString("## Conversation\n")
	for _, turn := range transcript {
		label := "You"
		if turn.Role == RoleAssistant {
			label = "Assistant"
		}
		b.WriteString("\n" + label + ":\n")
		b.WriteString(turn.Content + "\n")
	}
	return b.String()
}
