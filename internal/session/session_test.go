package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lexintake/lexintake/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestFactsResolvedAndClear(t *testing.T) {
	f := Facts{}
	if f.Resolved(FieldAmount) {
		t.Error("empty amount should not be resolved")
	}

	amount := int64(500000)
	f.Amount = &amount
	if !f.Resolved(FieldAmount) {
		t.Error("amount should be resolved")
	}

	// evidence=false is still a resolved answer.
	no := false
	f.Evidence = &no
	if !f.Resolved(FieldEvidence) {
		t.Error("evidence=false should count as resolved")
	}

	f.Clear(FieldAmount)
	if f.Resolved(FieldAmount) {
		t.Error("cleared amount should not be resolved")
	}

	if f.Resolved("unknown_field") {
		t.Error("unknown field should never resolve")
	}
}

func TestMarkSkippedIsIdempotent(t *testing.T) {
	s := NewState("s1", "web", "transcript")
	s.MarkSkipped(FieldAmount)
	s.MarkSkipped(FieldAmount)
	if len(s.SkippedFields) != 1 {
		t.Errorf("SkippedFields = %v", s.SkippedFields)
	}
	if !s.IsSkipped(FieldAmount) {
		t.Error("amount should be skipped")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	state := NewState("sess-1", "web", "pattern")
	state.Stage = StageFactCollection
	state.CaseType = "CIVIL"
	state.SubCaseType = "CONTRACT"
	date := "2026-08-01"
	state.Facts.IncidentDate = &date
	state.RecordQA(FieldIncidentDate, "언제 일어난 일인가요?", "이번 달 1일이요")
	state.AskedCounts[FieldIncidentDate] = 1
	state.MissingFields = []string{FieldAmount, FieldCounterparty}
	state.CompletionRate = 25

	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Stage != StageFactCollection {
		t.Errorf("Stage = %q", loaded.Stage)
	}
	if loaded.CaseType != "CIVIL" || loaded.SubCaseType != "CONTRACT" {
		t.Errorf("case type = %q/%q", loaded.CaseType, loaded.SubCaseType)
	}
	if loaded.Facts.IncidentDate == nil || *loaded.Facts.IncidentDate != "2026-08-01" {
		t.Errorf("IncidentDate = %v", loaded.Facts.IncidentDate)
	}
	if len(loaded.History) != 1 || loaded.History[0].Field != FieldIncidentDate {
		t.Errorf("History = %+v", loaded.History)
	}
	if loaded.AskedCounts[FieldIncidentDate] != 1 {
		t.Errorf("AskedCounts = %v", loaded.AskedCounts)
	}
	if loaded.CompletionRate != 25 {
		t.Errorf("CompletionRate = %d", loaded.CompletionRate)
	}
}

func TestStoreSaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	state := NewState("sess-2", "web", "transcript")
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	state.Stage = StageSummary
	state.CompletionRate = 100
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	loaded, err := store.Load(ctx, "sess-2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Stage != StageSummary || loaded.CompletionRate != 100 {
		t.Errorf("loaded %q/%d after upsert", loaded.Stage, loaded.CompletionRate)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load(context.Background(), "nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	old := NewState("old", "web", "transcript")
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	if err := store.Save(ctx, old); err != nil {
		t.Fatal(err)
	}
	// Backdate updated_at directly; Save always stamps now.
	if _, err := store.db.Exec(
		`UPDATE chat_sessions SET updated_at = ? WHERE session_id = 'old'`,
		time.Now().Add(-48*time.Hour).UTC().Format(time.RFC3339),
	); err != nil {
		t.Fatal(err)
	}

	fresh := NewState("fresh", "web", "transcript")
	if err := store.Save(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	n, err := store.ExpireStale(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d sessions, want 1", n)
	}

	var status string
	if err := store.db.QueryRow(
		`SELECT status FROM chat_sessions WHERE session_id = 'old'`,
	).Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != "aborted" {
		t.Errorf("old session status = %q, want aborted", status)
	}

	if err := store.db.QueryRow(
		`SELECT status FROM chat_sessions WHERE session_id = 'fresh'`,
	).Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != "active" {
		t.Errorf("fresh session status = %q, want active", status)
	}
}
