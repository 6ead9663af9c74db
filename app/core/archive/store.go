// Package archive persists finished plans and the single session seed: the
// one raw task string another part of the application may stage for the next
// planning session, consumed exactly once.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskpilot/app/core/planner"
)

type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

type SavedPlan struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Summary          string `json:"summary"`
	StepCount        int    `json:"step_count"`
	TotalTimeMinutes int    `json:"total_time_minutes"`
	Document         string `json:"document"`
	CreatedAt        int64  `json:"created_at"`
}

// SavePlan stores a snapshot of the plan with its transcript. The rendered
// portable document is stored alongside the structured form so exports of
// archived plans do not depend on the formatter staying byte-identical.
func (s *Store) SavePlan(ctx context.Context, p planner.TaskPlan, transcript []planner.RefinementMessage) (SavedPlan, error) {
	planJSON, err := json.Marshal(p)
	if err != nil {
		return SavedPlan{}, fmt.Errorf("marshal plan: %w", err)
	}
	if transcript == nil {
		transcript = []planner.RefinementMessage{}
	}
	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return SavedPlan{}, fmt.Errorf("marshal transcript: %w", err)
	}

	saved := SavedPlan{
		ID:               uuid.NewString(),
		Title:            p.Title,
		Summary:          p.Summary,
		StepCount:        p.StepCount,
		TotalTimeMinutes: p.TotalTimeMinutes,
		Document:         planner.ConversationText(p, transcript),
		CreatedAt:        time.Now().Unix(),
	}

	query := `INSERT INTO saved_plans (id, title, summary, step_count, total_minutes, plan_json, transcript_json, document, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.Conn().ExecContext(ctx, query,
		saved.ID, saved.Title, saved.Summary, saved.StepCount, saved.TotalTimeMinutes,
		string(planJSON), string(transcriptJSON), saved.Document, saved.CreatedAt,
	); err != nil {
		return SavedPlan{}, err
	}
	return saved, nil
}

func (s *Store) ListPlans(ctx context.Context, limit int) ([]SavedPlan, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT id, title, summary, step_count, total_minutes, document, created_at
		FROM saved_plans ORDER BY created_at DESC, id LIMIT ?`
	rows, err := s.db.Conn().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SavedPlan
	for rows.Next() {
		var p SavedPlan
		if err := rows.Scan(&p.ID, &p.Title, &p.Summary, &p.StepCount, &p.TotalTimeMinutes, &p.Document, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPlan(ctx context.Context, id string) (planner.TaskPlan, []planner.RefinementMessage, error) {
	query := `SELECT plan_json, transcript_json FROM saved_plans WHERE id = ?`
	var planJSON, transcriptJSON string
	err := s.db.Conn().QueryRowContext(ctx, query, id).Scan(&planJSON, &transcriptJSON)
	if err == sql.ErrNoRows {
		return planner.TaskPlan{}, nil, fmt.Errorf("plan not found: %s", id)
	}
	if err != nil {
		return planner.TaskPlan{}, nil, err
	}
	var p planner.TaskPlan
	if err := json.Unmarshal([]byte(planJSON), &p); err != nil {
		return planner.TaskPlan{}, nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	var transcript []planner.RefinementMessage
	if err := json.Unmarshal([]byte(transcriptJSON), &transcript); err != nil {
		return planner.TaskPlan{}, nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	return p, transcript, nil
}

// PutSeed stages raw task text for the next session, replacing any staged
// value.
func (s *Store) PutSeed(ctx context.Context, raw string) error {
	query := `INSERT INTO session_seed (slot, raw_text, created_at) VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET raw_text = excluded.raw_text, created_at = excluded.created_at`
	_, err := s.db.Conn().ExecContext(ctx, query, raw, time.Now().Unix())
	return err
}

// TakeSeed consumes the staged seed: it is returned once and deleted in the
// same transaction.
func (s *Store) TakeSeed(ctx context.Context) (string, bool, error) {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT raw_text FROM session_seed WHERE slot = 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_seed WHERE slot = 1`); err != nil {
		return "", false, err
	}
	if err := tx.Commit(); err != nil {
		return "", false, err
	}
	return raw, true, nil
}
