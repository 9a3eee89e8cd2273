// Package processlog records what happened inside a session: stage
// transitions of the conversation machine and metadata of the LLM
// calls made on its behalf. Entries are append-only and queryable per
// session.
package processlog

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lexintake/lexintake/internal/db"
	"github.com/lexintake/lexintake/internal/session"
)

// Entry kinds.
const (
	KindStage = "stage"
	KindLLM   = "llm"
)

// Entry is one recorded event.
type Entry struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id"`
	Kind             string    `json:"kind"`
	StageFrom        string    `json:"stage_from,omitempty"`
	StageTo          string    `json:"stage_to,omitempty"`
	Operation        string    `json:"operation,omitempty"`
	Model            string    `json:"model,omitempty"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	DurationMS       int64     `json:"duration_ms,omitempty"`
	Detail           string    `json:"detail,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Recorder writes process log entries. Recording is best-effort: a
// failed insert is logged and dropped, never surfaced to the caller.
type Recorder struct {
	db *db.DB
}

// NewRecorder creates a recorder over the given database.
func NewRecorder(database *db.DB) *Recorder {
	return &Recorder{db: database}
}

// StageTransition records one stage edge taken by a session.
func (r *Recorder) StageTransition(ctx context.Context, sessionID string, from, to session.Stage) {
	r.insert(ctx, &Entry{
		SessionID: sessionID,
		Kind:      KindStage,
		StageFrom: string(from),
		StageTo:   string(to),
	})
}

// LLMCall records one model invocation made for a session.
func (r *Recorder) LLMCall(ctx context.Context, sessionID, operation, model string, promptTokens, completionTokens int, duration time.Duration, detail string) {
	r.insert(ctx, &Entry{
		SessionID:        sessionID,
		Kind:             KindLLM,
		Operation:        operation,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		DurationMS:       duration.Milliseconds(),
		Detail:           detail,
	})
}

func (r *Recorder) insert(ctx context.Context, e *Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO process_logs
			(session_id, kind, stage_from, stage_to, operation, model,
			 prompt_tokens, completion_tokens, duration_ms, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Kind, e.StageFrom, e.StageTo, e.Operation, e.Model,
		e.PromptTokens, e.CompletionTokens, e.DurationMS, e.Detail,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		log.Printf("processlog: recording %s entry for %s failed: %v", e.Kind, e.SessionID, err)
	}
}

// List returns the session's entries in insertion order.
func (r *Recorder) List(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, kind, stage_from, stage_to, operation, model,
		       prompt_tokens, completion_tokens, duration_ms, detail, created_at
		FROM process_logs
		WHERE session_id = ?
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing process logs for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.StageFrom, &e.StageTo,
			&e.Operation, &e.Model, &e.PromptTokens, &e.CompletionTokens,
			&e.DurationMS, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning process log: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
