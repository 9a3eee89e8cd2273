package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lexintake/lexintake/internal/db"
	"github.com/lexintake/lexintake/internal/knowledge"
	"github.com/lexintake/lexintake/internal/llm"
	"github.com/lexintake/lexintake/internal/session"
)

type stubProvider struct {
	response string
	err      error
	calls    int
}

func (p *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.response, Model: req.Model}, nil
}

func (p *stubProvider) Name() string { return "stub" }

func testState() *session.ConversationState {
	date, party := "2026-01-10", "김철수"
	amount := int64(3000000)
	yes := true
	evType := "계약서"

	state := session.NewState("sess-1", "web", "transcript")
	state.CaseType = "CIVIL"
	state.SubCaseType = "CIVIL_CONTRACT"
	state.Narrative = "친구가 300만원을 빌려가서 갚지 않습니다"
	state.Facts = session.Facts{
		IncidentDate: &date,
		Amount:       &amount,
		Counterparty: &party,
		Evidence:     &yes,
		EvidenceType: &evType,
	}
	state.Emotions = []session.Emotion{{Type: "억울함", Intensity: 4, Source: "너무 억울해요"}}
	state.CompletionRate = 100
	return state
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestGenerateFromLLM(t *testing.T) {
	provider := &stubProvider{
		response: `{"사건 유형": "CIVIL / CIVIL_CONTRACT", "핵심 사실관계": "대여금 미상환", "금액 및 증거": "300만원, 계약서", "특이사항": "없음"}`,
	}
	gen := NewGenerator(provider, "test-model", nil, nil)

	text, structured, err := gen.Generate(context.Background(), testState())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
	if structured["핵심 사실관계"] != "대여금 미상환" {
		t.Errorf("structured = %v", structured)
	}
	// Section order from the default layout.
	if !strings.HasPrefix(text, "사건 유형: ") {
		t.Errorf("text does not open with the case type section: %q", text)
	}
	if !strings.Contains(text, "금액 및 증거: 300만원, 계약서") {
		t.Errorf("text missing amount section: %q", text)
	}
}

func TestFallbackWhenProviderFails(t *testing.T) {
	provider := &stubProvider{err: errors.New("api down")}
	gen := NewGenerator(provider, "test-model", nil, nil)

	text, structured, err := gen.Generate(context.Background(), testState())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(text, "3000000원") {
		t.Errorf("fallback text missing amount: %q", text)
	}
	if !strings.Contains(text, "CIVIL / CIVIL_CONTRACT") {
		t.Errorf("fallback text missing case type: %q", text)
	}
	if structured["특이사항"] != "억울함(강도 4)" {
		t.Errorf("structured = %v", structured)
	}
}

func TestGeneratePersistsRecord(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	// The summary references its session row.
	if err := session.NewStore(database).Save(ctx, testState()); err != nil {
		t.Fatalf("saving session: %v", err)
	}

	store := NewStore(database)
	provider := &stubProvider{err: errors.New("api down")}
	gen := NewGenerator(provider, "test-model", nil, store)

	if _, _, err := gen.Generate(ctx, testState()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	rec, err := store.Latest(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rec.CaseType != "CIVIL" || rec.CompletionRate != 100 {
		t.Errorf("record = %+v", rec)
	}
	if rec.SummaryText == "" || len(rec.Structured) == 0 {
		t.Errorf("record content missing: %+v", rec)
	}
}

func TestLatestNotFound(t *testing.T) {
	store := NewStore(newTestDB(t))
	if _, err := store.Latest(context.Background(), "nope"); !errors.Is(err, ErrSummaryNotFound) {
		t.Fatalf("err = %v, want ErrSummaryNotFound", err)
	}
}

func TestMatchRiskRules(t *testing.T) {
	state := testState()
	state.History = []session.QAPair{{Field: "evidence", Answer: "카톡 대화내역이 있어요"}}

	rules := []knowledge.RiskRule{
		{Condition: "차용증", Note: "차용증 원본 확보 필요", Severity: "high"},
		{Condition: "카톡", Note: "대화내역 캡처본 확보 필요", Severity: "medium"},
		{Condition: "빌려", Note: "대여 시점 특정 필요", Severity: "low"},
	}

	notes := matchRiskRules(rules, state)
	if len(notes) != 2 {
		t.Fatalf("notes = %v, want 2 matches", notes)
	}
	if notes[0] != "대화내역 캡처본 확보 필요" || notes[1] != "대여 시점 특정 필요" {
		t.Errorf("notes = %v", notes)
	}
}

func TestCaseTypeLabel(t *testing.T) {
	state := &session.ConversationState{}
	if got := caseTypeLabel(state); got != "미분류" {
		t.Errorf("empty label = %q", got)
	}
	state.CaseType = "CIVIL"
	if got := caseTypeLabel(state); got != "CIVIL" {
		t.Errorf("label = %q", got)
	}
	state.SubCaseType = "CIVIL_CONTRACT"
	if got := caseTypeLabel(state); got != "CIVIL / CIVIL_CONTRACT" {
		t.Errorf("label = %q", got)
	}
}
