package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lexintake/lexintake/internal/db"
)

// ErrSessionNotFound is returned when no session exists for the given ID.
var ErrSessionNotFound = errors.New("session not found")

// Store persists conversation state in SQLite. The full state is kept
// as a JSON column; frequently queried attributes are mirrored into
// dedicated columns.
type Store struct {
	db *db.DB
}

// NewStore creates a session store over the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Load fetches the state for the given session ID.
func (s *Store) Load(ctx context.Context, sessionID string) (*ConversationState, error) {
	var stateJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM chat_sessions WHERE session_id = ?`, sessionID,
	).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	var state ConversationState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", sessionID, err)
	}
	if state.AskedCounts == nil {
		state.AskedCounts = make(map[string]int)
	}
	return &state, nil
}

// Save upserts the state in a single statement.
func (s *Store) Save(ctx context.Context, state *ConversationState) error {
	state.UpdatedAt = time.Now()

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", state.SessionID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions
			(session_id, channel, status, stage, case_type, sub_case_type,
			 extraction_method, completion_rate, state_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			channel = excluded.channel,
			status = excluded.status,
			stage = excluded.stage,
			case_type = excluded.case_type,
			sub_case_type = excluded.sub_case_type,
			extraction_method = excluded.extraction_method,
			completion_rate = excluded.completion_rate,
			state_json = excluded.state_json,
			updated_at = excluded.updated_at`,
		state.SessionID, state.Channel, string(state.Status), string(state.Stage),
		state.CaseType, state.SubCaseType, state.ExtractionMethod,
		state.CompletionRate, string(stateJSON),
		state.CreatedAt.UTC().Format(time.RFC3339),
		state.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", state.SessionID, err)
	}
	return nil
}

// ExpireStale marks active sessions idle for longer than olderThan as
// aborted. Returns the number of sessions swept.
func (s *Store) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions SET status = 'aborted'
		WHERE status = 'active' AND updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expiring stale sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
