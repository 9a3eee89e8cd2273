package summary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lexintake/lexintake/internal/db"
)

// ErrSummaryNotFound is returned when no summary exists for a session.
var ErrSummaryNotFound = errors.New("summary not found")

// Record is one persisted case summary.
type Record struct {
	ID             int64          `json:"id"`
	SessionID      string         `json:"session_id"`
	CaseType       string         `json:"case_type"`
	SubCaseType    string         `json:"sub_case_type"`
	SummaryText    string         `json:"summary_text"`
	Structured     map[string]any `json:"structured"`
	CompletionRate int            `json:"completion_rate"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Store persists case summaries.
type Store struct {
	db *db.DB
}

// NewStore creates a summary store over the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save inserts the summary and fills in its ID.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	structured, err := json.Marshal(rec.Structured)
	if err != nil {
		return fmt.Errorf("encoding summary for %s: %w", rec.SessionID, err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO case_summaries
			(session_id, case_type, sub_case_type, summary_text, structured_json,
			 completion_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.CaseType, rec.SubCaseType, rec.SummaryText,
		string(structured), rec.CompletionRate,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving summary for %s: %w", rec.SessionID, err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// Latest returns the most recent summary for the session.
func (s *Store) Latest(ctx context.Context, sessionID string) (*Record, error) {
	var (
		rec        Record
		structured string
		createdAt  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, case_type, sub_case_type, summary_text,
		       structured_json, completion_rate, created_at
		FROM case_summaries
		WHERE session_id = ?
		ORDER BY id DESC LIMIT 1`, sessionID,
	).Scan(&rec.ID, &rec.SessionID, &rec.CaseType, &rec.SubCaseType,
		&rec.SummaryText, &structured, &rec.CompletionRate, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSummaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading summary for %s: %w", sessionID, err)
	}

	if err := json.Unmarshal([]byte(structured), &rec.Structured); err != nil {
		return nil, fmt.Errorf("decoding summary for %s: %w", sessionID, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rec, nil
}
