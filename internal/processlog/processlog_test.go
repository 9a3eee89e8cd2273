package processlog

import (
	"context"
	"testing"
	"time"

	"github.com/lexintake/lexintake/internal/db"
	"github.com/lexintake/lexintake/internal/session"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRecorder(database)
}

func TestRecordAndList(t *testing.T) {
	rec := newTestRecorder(t)
	ctx := context.Background()

	rec.StageTransition(ctx, "sess-1", session.StageInit, session.StageCaseClassification)
	rec.StageTransition(ctx, "sess-1", session.StageCaseClassification, session.StageFactCollection)
	rec.LLMCall(ctx, "sess-1", "classification", "gpt-4o", 120, 15, 350*time.Millisecond, "")
	rec.StageTransition(ctx, "sess-2", session.StageInit, session.StageCaseClassification)

	entries, err := rec.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	if entries[0].Kind != KindStage || entries[0].StageFrom != "INIT" || entries[0].StageTo != "CASE_CLASSIFICATION" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].StageTo != "FACT_COLLECTION" {
		t.Errorf("entry 1 = %+v", entries[1])
	}

	call := entries[2]
	if call.Kind != KindLLM || call.Operation != "classification" || call.Model != "gpt-4o" {
		t.Errorf("entry 2 = %+v", call)
	}
	if call.PromptTokens != 120 || call.CompletionTokens != 15 || call.DurationMS != 350 {
		t.Errorf("entry 2 usage = %+v", call)
	}
}

func TestListEmptySession(t *testing.T) {
	rec := newTestRecorder(t)

	entries, err := rec.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want none", entries)
	}
}
