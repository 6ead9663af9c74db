package planner

import "sync"

// State is a point-in-time copy of the session, safe for presentation code to
// read and serialize while the orchestrator keeps working.
type State struct {
	Phase         Phase                `json:"phase"`
	RawInput      string               `json:"raw_input"`
	Understanding *TaskUnderstanding   `json:"understanding,omitempty"`
	Questions     []ClarifyingQuestion `json:"questions"`
	Answers       AnswerMap            `json:"answers"`
	Complexity    Complexity           `json:"complexity,omitempty"`
	Plan          *TaskPlan            `json:"plan,omitempty"`
	Transcript    []RefinementMessage  `json:"transcript"`
	Loading       bool                 `json:"loading"`
	ChatBusy      bool                 `json:"chat_busy"`
	Error         string               `json:"error,omitempty"`
}

// PlanStore holds the single mutable session. All writes go through the named
// transition methods below; presentation code only ever sees Snapshot copies.
// A generation counter makes StartOver safe against in-flight work: results
// carrying a stale token are dropped instead of resurrecting discarded state.
type PlanStore struct {
	mu sync.Mutex

	gen           uint64
	phase         Phase
	rawInput      string
	understanding *TaskUnderstanding
	questions     []ClarifyingQuestion
	answers       AnswerMap
	complexity    Complexity
	plan          *TaskPlan
	transcript    []RefinementMessage
	loading       bool
	chatBusy      bool
	errMsg        string
}

func NewPlanStore() *PlanStore {
	return &PlanStore{
		phase:   PhaseInput,
		answers: AnswerMap{},
	}
}

// Seed pre-fills the raw task text. Only honored before the session has left
// the input phase.
func (s *PlanStore) Seed(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseInput && !s.loading {
		s.rawInput = raw
	}
}

func (s *PlanStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *PlanStore) snapshotLocked() State {
	st := State{
		Phase:      s.phase,
		RawInput:   s.rawInput,
		Complexity: s.complexity,
		Loading:    s.loading,
		ChatBusy:   s.chatBusy,
		Error:      s.errMsg,
		Answers:    s.answers.Clone(),
	}
	if s.understanding != nil {
		u := *s.understanding
		u.Deliverables = append([]string(nil), s.understanding.Deliverables...)
		u.Inputs = append([]string(nil), s.understanding.Inputs...)
		u.Constraints = append([]string(nil), s.understanding.Constraints...)
		st.Understanding = &u
	}
	if s.questions != nil {
		st.Questions = append([]ClarifyingQuestion(nil), s.questions...)
	}
	if s.plan != nil {
		p := s.plan.Clone()
		st.Plan = &p
	}
	if s.transcript != nil {
		st.Transcript = append([]RefinementMessage(nil), s.transcript...)
	}
	return st
}

// begin starts an orchestrator transition: rejects re-entry while a previous
// one is loading, checks the source phase, clears the surfaced error, and
// returns a token that finish/fail must present.
func (s *PlanStore) begin(op string, want ...Phase) (uint64, State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return 0, State{}, ErrBusy
	}
	if len(want) > 0 && !phaseIn(s.phase, want) {
		return 0, State{}, &PhaseError{Op: op, Have: s.phase, Want: want}
	}
	s.loading = true
	s.errMsg = ""
	return s.gen, s.snapshotLocked(), nil
}

// stage applies an intermediate mutation inside a running transition, e.g.
// recording the raw input before the analyze call, or flipping the phase to
// generating while the plan request is in flight.
func (s *PlanStore) stage(token uint64, apply func(*PlanStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.gen {
		return
	}
	apply(s)
}

// finish completes a transition successfully.
func (s *PlanStore) finish(token uint64, apply func(*PlanStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.gen {
		return
	}
	apply(s)
	s.loading = false
}

// fail completes a transition with a user-facing retry message, returning the
// session to the given phase.
func (s *PlanStore) fail(token uint64, backTo Phase, userMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.gen {
		return
	}
	s.phase = backTo
	s.errMsg = userMsg
	s.loading = false
}

// beginChat serializes refinement turns independently of orchestrator
// transitions: one chat turn in flight at a time, but a chat turn and an
// adjustment may overlap.
func (s *PlanStore) beginChat() (uint64, State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatBusy {
		return 0, State{}, ErrBusy
	}
	if s.plan == nil {
		return 0, State{}, ErrNoPlan
	}
	s.chatBusy = true
	return s.gen, s.snapshotLocked(), nil
}

func (s *PlanStore) appendTurn(token uint64, turn RefinementMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.gen {
		return
	}
	s.transcript = append(s.transcript, turn)
}

func (s *PlanStore) endChat(token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// chatBusy is cleared even for a stale token: Reset already cleared it,
	// so this is a no-op there.
	if token == s.gen {
		s.chatBusy = false
	}
}

func (s *PlanStore) setAnswer(id string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseQuestions {
		return &PhaseError{Op: "answer", Have: s.phase, Want: []Phase{PhaseQuestions}}
	}
	if !questionIn(s.questions, id) {
		return ErrUnknownQuestion
	}
	s.answers[id] = value
	return nil
}

// Reset discards the whole session: understanding, questions, answers,
// complexity, plan, transcript, error. Always available, even while a call is
// in flight; the generation bump orphans that call's token.
func (s *PlanStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.phase = PhaseInput
	s.rawInput = ""
	s.understanding = nil
	s.questions = nil
	s.answers = AnswerMap{}
	s.complexity = ComplexityUnknown
	s.plan = nil
	s.transcript = nil
	s.loading = false
	s.chatBusy = false
	s.errMsg = ""
}

func phaseIn(p Phase, candidates []Phase) bool {
	for _, c := range candidates {
		if p == c {
			return true
		}
	}
	return false
}

func questionIn(questions []ClarifyingQuestion, id string) bool {
	for _, q := range questions {
		if q.ID == id {
			return true
		}
	}
	return false
}
