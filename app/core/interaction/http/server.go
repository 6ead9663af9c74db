package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taskpilot/app/core/archive"
	"taskpilot/app/core/planner"
	"taskpilot/app/pkg/logger"
)

const defaultShutdownTimeout = 5 * time.Second

// Server exposes the planning session over a JSON API: one route per
// orchestrator transition, plus adjustment, chat, export, and the archive.
type Server struct {
	port            int
	shutdownTimeout time.Duration

	orchestrator *planner.Orchestrator
	adjuster     *planner.Adjuster
	refiner      *planner.Refiner
	archiveStore *archive.Store

	server *http.Server
}

func NewServer(port int, orchestrator *planner.Orchestrator, adjuster *planner.Adjuster, refiner *planner.Refiner, archiveStore *archive.Store) *Server {
	return &Server{
		port:            port,
		shutdownTimeout: defaultShutdownTimeout,
		orchestrator:    orchestrator,
		adjuster:        adjuster,
		refiner:         refiner,
		archiveStore:    archiveStore,
	}
}

func (s *Server) SetShutdownTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.shutdownTimeout = timeout
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/api/session/start", s.handleStart)
	mux.HandleFunc("/api/session/submit", s.handleSubmit)
	mux.HandleFunc("/api/session/confirm", s.handleConfirm)
	mux.HandleFunc("/api/session/clarify", s.handleClarify)
	mux.HandleFunc("/api/session/answer", s.handleAnswer)
	mux.HandleFunc("/api/session/skip", s.handleSkip)
	mux.HandleFunc("/api/session/generate", s.handleGenerate)
	mux.HandleFunc("/api/session/adjust", s.handleAdjust)
	mux.HandleFunc("/api/session/chat", s.handleChat)
	mux.HandleFunc("/api/session/reset", s.handleReset)
	mux.HandleFunc("/api/session/export", s.handleExport)
	mux.HandleFunc("/api/session/export/conversation", s.handleExportConversation)
	mux.HandleFunc("/api/archive/plans", s.handleArchivePlans)
	mux.HandleFunc("/api/archive/plans/", s.handleArchivePlan)
	mux.HandleFunc("/api/seed", s.handleSeed)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error: %v", err)
		}
	}()

	logger.Info("HTTP listening on port %d...", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type submitRequest struct {
	Text string `json:"text"`
}

type answerRequest struct {
	ID    string `json:"id"`
	Value string `json:"value,omitempty"`
}

type adjustRequest struct {
	Instruction string `json:"instruction"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string        `json:"reply"`
	State planner.State `json:"state"`
}

type stateResponse struct {
	State planner.State `json:"state"`
}

type seedRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: s.orchestrator.Snapshot()})
}

// handleStart consumes the staged seed, if any, into the input phase.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.archiveStore != nil {
		seed, ok, err := s.archiveStore.TakeSeed(r.Context())
		if err != nil {
			logger.Error("Seed lookup failed: %v", err)
		} else if ok {
			s.orchestrator.Store().Seed(seed)
		}
	}
	writeJSON(w, http.StatusOK, stateResponse{State: s.orchestrator.Snapshot()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodePost(w, r, &req) {
		return
	}
	s.respondAfter(w, s.orchestrator.SubmitTask(r.Context(), req.Text))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	s.respondAfter(w, s.orchestrator.ConfirmUnderstanding(r.Context()))
}

func (s *Server) handleClarify(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	s.respondAfter(w, s.orchestrator.ClarifyUnderstanding())
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodePost(w, r, &req) {
		return
	}
	s.respondAfter(w, s.orchestrator.AnswerQuestion(req.ID, req.Value))
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodePost(w, r, &req) {
		return
	}
	s.respondAfter(w, s.orchestrator.SkipQuestion(req.ID))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	s.respondAfter(w, s.orchestrator.SubmitAnswers(r.Context()))
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !decodePost(w, r, &req) {
		return
	}
	s.respondAfter(w, s.adjuster.Adjust(r.Context(), req.Instruction))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodePost(w, r, &req) {
		return
	}
	reply, err := s.refiner.Send(r.Context(), req.Message)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply, State: s.orchestrator.Snapshot()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	s.orchestrator.StartOver()
	writeJSON(w, http.StatusOK, stateResponse{State: s.orchestrator.Snapshot()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := s.orchestrator.Snapshot()
	if st.Plan == nil {
		http.Error(w, "no plan available", http.StatusNotFound)
		return
	}
	writeText(w, planner.PortableText(*st.Plan))
}

func (s *Server) handleExportConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := s.orchestrator.Snapshot()
	if st.Plan == nil {
		http.Error(w, "no plan available", http.StatusNotFound)
		return
	}
	writeText(w, planner.ConversationText(*st.Plan, st.Transcript))
}

func (s *Server) handleArchivePlans(w http.ResponseWriter, r *http.Request) {
	if s.archiveStore == nil {
		http.Error(w, "archive unavailable", http.StatusServiceUnavailable)
		return
	}
	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		plans, err := s.archiveStore.ListPlans(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if plans == nil {
			plans = []archive.SavedPlan{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
	case http.MethodPost:
		st := s.orchestrator.Snapshot()
		if st.Plan == nil {
			http.Error(w, "no plan to save", http.StatusConflict)
			return
		}
		saved, err := s.archiveStore.SavePlan(r.Context(), *st.Plan, st.Transcript)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleArchivePlan(w http.ResponseWriter, r *http.Request) {
	if s.archiveStore == nil {
		http.Error(w, "archive unavailable", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/archive/plans/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "invalid plan id", http.StatusBadRequest)
		return
	}
	p, transcript, err := s.archiveStore.GetPlan(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plan": p, "transcript": transcript})
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	if s.archiveStore == nil {
		http.Error(w, "archive unavailable", http.StatusServiceUnavailable)
		return
	}
	var req seedRequest
	if !decodePost(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if err := s.archiveStore.PutSeed(r.Context(), req.Text); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondAfter maps a transition result to a response. The snapshot is
// returned even for generation failures: the retryable error message lives in
// the state and the UI renders it in place.
func (s *Server) respondAfter(w http.ResponseWriter, err error) {
	if err != nil {
		code := statusFor(err)
		if code != http.StatusBadGateway {
			http.Error(w, err.Error(), code)
			return
		}
	}
	writeJSON(w, http.StatusOK, stateResponse{State: s.orchestrator.Snapshot()})
}

func statusFor(err error) int {
	var phaseErr *planner.PhaseError
	switch {
	case errors.Is(err, planner.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &phaseErr):
		return http.StatusConflict
	case errors.Is(err, planner.ErrEmptyTask),
		errors.Is(err, planner.ErrEmptyMessage),
		errors.Is(err, planner.ErrUnknownQuestion):
		return http.StatusBadRequest
	case errors.Is(err, planner.ErrNoPlan),
		errors.Is(err, planner.ErrNoUnderstanding):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func postOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func decodePost(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if !postOnly(w, r) {
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
