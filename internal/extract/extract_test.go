package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lexintake/lexintake/internal/llm"
	"github.com/lexintake/lexintake/internal/session"
)

// fixedNow anchors relative date expressions: Friday 2026-08-28.
var fixedNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// scriptedProvider returns queued responses in order, or routes by a
// prompt substring when route is set. Safe for concurrent callers.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	route     map[string]string
	err       error
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.route != nil {
		prompt := req.Messages[len(req.Messages)-1].Content
		for needle, content := range p.route {
			if strings.Contains(prompt, needle) {
				return &llm.CompletionResponse{Content: content, Model: "scripted"}, nil
			}
		}
		return nil, errors.New("no route matched")
	}
	if len(p.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	content := p.responses[0]
	p.responses = p.responses[1:]
	return &llm.CompletionResponse{Content: content, Model: "scripted"}, nil
}

func strp(s string) *string { return &s }

func TestExtractDateRelative(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"어제 일어난 일이에요", "2026-08-27"},
		{"오늘 아침에요", "2026-08-28"},
		{"3일 전이요", "2026-08-25"},
		{"작년 11월 20일에 계약했어요", "2025-11-20"},
		{"작년 3월이요", "2025-03-01"},
		{"올해 2월 15일", "2026-02-15"},
		{"올해 6월쯤", "2026-06-01"},
		{"11월 20일이요", "2026-11-20"},
		{"5월이요", "2026-05-01"},
		{"2개월 전쯤이요", "2026-06-29"},
		{"1년 전 일입니다", "2025-08-28"},
	}
	for _, tt := range tests {
		if got := ExtractDate(tt.text, fixedNow); got != tt.want {
			t.Errorf("ExtractDate(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractDateAbsolute(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"2023년 10월 15일에 빌려줬어요", "2023-10-15"},
		{"2023-10-15", "2023-10-15"},
		{"2023.10.15에 만났습니다", "2023-10-15"},
		{"2024년 3월쯤이에요", "2024-03-01"},
	}
	for _, tt := range tests {
		if got := ExtractDate(tt.text, fixedNow); got != tt.want {
			t.Errorf("ExtractDate(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractDateClampsImpossibleDay(t *testing.T) {
	// February 30th resolves to the end of February.
	if got := ExtractDate("올해 2월 30일", fixedNow); got != "2026-02-28" {
		t.Errorf("got %q, want 2026-02-28", got)
	}
}

func TestExtractDateNoMatch(t *testing.T) {
	for _, text := range []string{"잘 모르겠어요", "친구랑 싸웠어요", ""} {
		if got := ExtractDate(text, fixedNow); got != "" {
			t.Errorf("ExtractDate(%q) = %q, want empty", text, got)
		}
	}
}

func TestExtractAmountUnits(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"500만원이요", 5_000_000},
		{"1억 빌려줬어요", 100_000_000},
		{"3000원", 3000},
		{"5천 정도", 5000},
		{"2조원 규모", 2_000_000_000_000},
	}
	for _, tt := range tests {
		got := ExtractAmount(tt.text)
		if got == nil || *got != tt.want {
			t.Errorf("ExtractAmount(%q) = %v, want %d", tt.text, got, tt.want)
		}
	}

	if got := ExtractAmount("증거는 많아요"); got != nil {
		t.Errorf("expected nil for no amount, got %d", *got)
	}
}

func TestAmountFromAnswer(t *testing.T) {
	// Negative answers yield nil, not zero.
	for _, text := range []string{"모름", "없어요", "잘 모르겠어요"} {
		if got := AmountFromAnswer(text); got != nil {
			t.Errorf("AmountFromAnswer(%q) = %d, want nil", text, *got)
		}
	}

	// Unit-less digits expand 만/천 and apply the threshold.
	if got := AmountFromAnswer("500만"); got == nil || *got != 5_000_000 {
		t.Errorf("500만 = %v", got)
	}
	if got := AmountFromAnswer("300,000"); got == nil || *got != 300_000 {
		t.Errorf("300,000 = %v", got)
	}

	// A bare small number is a date fragment, not an amount.
	if got := AmountFromAnswer("15"); got != nil {
		t.Errorf("bare 15 = %d, want nil", *got)
	}
}

func TestEvidenceFromAnswer(t *testing.T) {
	// Simple affirmative only counts for a direct evidence question.
	ev, evType := EvidenceFromAnswer("네 있어요", true)
	if ev == nil || !*ev {
		t.Error("expected evidence=true for affirmative answer")
	}
	if evType != nil {
		t.Errorf("expected no type from bare affirmative, got %q", *evType)
	}

	// Affirmative with a recognizable evidence keyword carries the type.
	ev, evType = EvidenceFromAnswer("네 카톡 대화가 있어요", true)
	if ev == nil || !*ev {
		t.Error("expected evidence=true")
	}
	if evType == nil || *evType != "대화내역" {
		t.Errorf("evidence type = %v, want 대화내역", evType)
	}

	// Explicit denial is false, not nil.
	ev, _ = EvidenceFromAnswer("증거는 없습니다", true)
	if ev == nil || *ev {
		t.Error("expected evidence=false for denial")
	}

	// "Don't know" asserts nothing; the field stays unresolved.
	ev, _ = EvidenceFromAnswer("잘 모르겠어요", true)
	if ev != nil {
		t.Errorf("expected nil evidence for unknown answer, got %v", *ev)
	}

	// Outside an evidence question, a bare "네" says nothing.
	ev, _ = EvidenceFromAnswer("네", false)
	if ev != nil {
		t.Error("expected nil evidence for bare affirmative in other context")
	}

	// But explicit evidence keywords still register.
	ev, evType = EvidenceFromAnswer("계약서를 가지고 있습니다", false)
	if ev == nil || !*ev {
		t.Error("expected evidence=true for explicit keyword")
	}
	if evType == nil || *evType != "계약서" {
		t.Errorf("evidence type = %v, want 계약서", evType)
	}

	// Unrelated text says nothing about evidence.
	ev, _ = EvidenceFromAnswer("친구에게 돈을 빌려줬어요", false)
	if ev != nil {
		t.Errorf("expected nil evidence, got %v", *ev)
	}
}

func TestEvidenceTypeFromAnswer(t *testing.T) {
	if got := EvidenceTypeFromAnswer("이체 내역이요"); got == nil || *got != "이체내역" {
		t.Errorf("got %v", got)
	}
	// Unrecognized answers are stored verbatim.
	if got := EvidenceTypeFromAnswer("공증받은 차용증"); got == nil || *got != "공증받은 차용증" {
		t.Errorf("got %v", got)
	}
	if got := EvidenceTypeFromAnswer("  "); got != nil {
		t.Errorf("expected nil for blank, got %q", *got)
	}
}

func TestCounterpartyFromAnswer(t *testing.T) {
	if got := CounterpartyFromAnswer("김철수"); got == nil || *got != "김철수" {
		t.Errorf("got %v", got)
	}
	for _, text := range []string{"", "김", "12345", "없음", "None"} {
		if got := CounterpartyFromAnswer(text); got != nil {
			t.Errorf("CounterpartyFromAnswer(%q) = %q, want nil", text, *got)
		}
	}
}

func TestMergeNilNeverOverwrites(t *testing.T) {
	date := "2026-01-01"
	amount := int64(1000)
	dst := session.Facts{IncidentDate: &date}
	Merge(&dst, session.Facts{Amount: &amount})

	if dst.IncidentDate == nil || *dst.IncidentDate != "2026-01-01" {
		t.Error("existing date lost in merge")
	}
	if dst.Amount == nil || *dst.Amount != 1000 {
		t.Error("new amount not merged")
	}

	// Non-nil overlay wins.
	newDate := "2026-02-02"
	Merge(&dst, session.Facts{IncidentDate: &newDate})
	if *dst.IncidentDate != "2026-02-02" {
		t.Error("overlay did not win")
	}
}

func TestNewlyResolved(t *testing.T) {
	date := "2026-01-01"
	no := false
	before := session.Facts{IncidentDate: &date}
	after := session.Facts{IncidentDate: &date, Evidence: &no}

	got := NewlyResolved(&before, &after)
	if len(got) != 1 || got[0] != session.FieldEvidence {
		t.Errorf("NewlyResolved = %v", got)
	}
}

func TestAssignerDefault(t *testing.T) {
	a := NewAssigner(MethodTranscript, false, 1)
	for i := 0; i < 5; i++ {
		if got := a.Assign(); got != MethodTranscript {
			t.Fatalf("Assign() = %q, want transcript", got)
		}
	}
}

func TestAssignerABSplit(t *testing.T) {
	a := NewAssigner(MethodTranscript, true, 42)
	seen := map[Method]int{}
	for i := 0; i < 100; i++ {
		seen[a.Assign()]++
	}
	if seen[MethodPattern] == 0 || seen[MethodTranscript] == 0 {
		t.Errorf("A/B split never produced both methods: %v", seen)
	}
}

func TestPatternStrategyCreditsOnlyTargetedField(t *testing.T) {
	s := NewPatternStrategy(nil, "", clock)
	state := session.NewState("s", "web", "pattern")

	// The answer mentions both a date and an amount, but only the
	// targeted field is credited.
	facts, err := s.Extract(context.Background(), state, session.FieldAmount, "어제 500만원을 보냈어요")
	if err != nil {
		t.Fatal(err)
	}
	if facts.Amount == nil || *facts.Amount != 5_000_000 {
		t.Errorf("Amount = %v", facts.Amount)
	}
	if facts.IncidentDate != nil {
		t.Error("untargeted date should not be credited")
	}
}

func TestPatternStrategyEvidenceAnswer(t *testing.T) {
	s := NewPatternStrategy(nil, "", clock)
	state := session.NewState("s", "web", "pattern")

	facts, err := s.Extract(context.Background(), state, session.FieldEvidence, "네 계약서 있어요")
	if err != nil {
		t.Fatal(err)
	}
	if facts.Evidence == nil || !*facts.Evidence {
		t.Error("expected evidence=true")
	}
	if facts.EvidenceType == nil || *facts.EvidenceType != "계약서" {
		t.Errorf("EvidenceType = %v", facts.EvidenceType)
	}
}

func TestPatternStrategyLLMDateFallback(t *testing.T) {
	p := &scriptedProvider{responses: []string{"2026-03-02"}}
	s := NewPatternStrategy(p, "m", clock)
	state := session.NewState("s", "web", "pattern")

	facts, err := s.Extract(context.Background(), state, session.FieldIncidentDate, "삼월 초쯤이었어요")
	if err != nil {
		t.Fatal(err)
	}
	if facts.IncidentDate == nil || *facts.IncidentDate != "2026-03-02" {
		t.Errorf("IncidentDate = %v", facts.IncidentDate)
	}
	if p.calls != 1 {
		t.Errorf("expected 1 LLM call, got %d", p.calls)
	}
}

func TestPatternStrategyNegativeSkipsLLM(t *testing.T) {
	p := &scriptedProvider{responses: []string{"2026-01-01"}}
	s := NewPatternStrategy(p, "m", clock)
	state := session.NewState("s", "web", "pattern")

	facts, err := s.Extract(context.Background(), state, session.FieldIncidentDate, "모르겠어요")
	if err != nil {
		t.Fatal(err)
	}
	if facts.IncidentDate != nil {
		t.Error("negative answer should not resolve the date")
	}
	if p.calls != 0 {
		t.Errorf("negative answer should not hit the LLM, got %d calls", p.calls)
	}
}

func TestTranscriptStrategyParsesJSON(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`{"incident_date":"2026-08-01","amount":"5,000,000","counterparty":"김철수","evidence":true,"evidence_type":"계약서"}`,
	}}
	s := NewTranscriptStrategy(p, "m", clock)

	state := session.NewState("s", "web", "transcript")
	state.Narrative = "친구에게 돈을 빌려줬는데 갚지 않아요"
	state.RecordQA(session.FieldIncidentDate, "언제 일어난 일인가요?", "8월 1일이요")
	state.RecordQA(session.FieldCounterparty, "상대방은 누구인가요?", "김철수요")

	facts, err := s.Extract(context.Background(), state, session.FieldCounterparty, "김철수요")
	if err != nil {
		t.Fatal(err)
	}
	if facts.IncidentDate == nil || *facts.IncidentDate != "2026-08-01" {
		t.Errorf("IncidentDate = %v", facts.IncidentDate)
	}
	if facts.Amount == nil || *facts.Amount != 5_000_000 {
		t.Errorf("Amount = %v (string coercion)", facts.Amount)
	}
	if facts.Counterparty == nil || *facts.Counterparty != "김철수" {
		t.Errorf("Counterparty = %v", facts.Counterparty)
	}
	if facts.Evidence == nil || !*facts.Evidence {
		t.Errorf("Evidence = %v", facts.Evidence)
	}
}

func TestTranscriptStrategyRejectsMalformedDate(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`{"incident_date":"작년 11월","amount":null,"counterparty":null,"evidence":null,"evidence_type":null}`,
	}}
	s := NewTranscriptStrategy(p, "m", clock)
	state := session.NewState("s", "web", "transcript")

	facts, err := s.Extract(context.Background(), state, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if facts.IncidentDate != nil {
		t.Errorf("non-normalized date should be dropped, got %q", *facts.IncidentDate)
	}
}

func TestTranscriptStrategyFallsBackToPatterns(t *testing.T) {
	p := &scriptedProvider{err: errors.New("api down")}
	s := NewTranscriptStrategy(p, "m", clock)

	state := session.NewState("s", "web", "transcript")
	state.RecordQA(session.FieldIncidentDate, "언제 일어난 일인가요?", "어제요")
	state.RecordQA(session.FieldAmount, "금액은 얼마인가요?", "500만원이요")
	state.RecordQA(session.FieldEvidence, "증거가 있으신가요?", "네 있어요")

	facts, err := s.Extract(context.Background(), state, session.FieldEvidence, "네 있어요")
	if err != nil {
		t.Fatal(err)
	}
	if facts.IncidentDate == nil || *facts.IncidentDate != "2026-08-27" {
		t.Errorf("IncidentDate = %v", facts.IncidentDate)
	}
	if facts.Amount == nil || *facts.Amount != 5_000_000 {
		t.Errorf("Amount = %v", facts.Amount)
	}
	if facts.Evidence == nil || !*facts.Evidence {
		t.Errorf("Evidence = %v", facts.Evidence)
	}
}

func TestAnalyzerConstrainsToRequiredFields(t *testing.T) {
	p := &scriptedProvider{route: map[string]string{
		"추출 대상 필드":    `{"incident_date":"2026-08-01","amount":3000000,"counterparty":"박영희","evidence":null,"evidence_type":null}`,
		"사실(fact)과 감정": `{"facts":[{"content":"8월 1일에 300만원을 송금했다","type":"행위"}],"emotions":[{"type":"억울함","intensity":4,"source_text":"너무 억울해요"}]}`,
	}}
	a := NewAnalyzer(p, "m", time.Second, clock)

	// amount is not tracked for this (hypothetical) case type.
	result := a.Analyze(context.Background(), "8월 1일에 박영희에게 300만원을 보냈는데 너무 억울해요",
		[]string{session.FieldIncidentDate, session.FieldCounterparty})

	if result.Facts.IncidentDate == nil {
		t.Error("expected incident date from narrative")
	}
	if result.Facts.Amount != nil {
		t.Error("untracked amount should be discarded")
	}
	if len(result.Emotions) != 1 || result.Emotions[0].Type != "억울함" {
		t.Errorf("Emotions = %+v", result.Emotions)
	}
	if len(result.FactStatements) != 1 {
		t.Errorf("FactStatements = %v", result.FactStatements)
	}
}

func TestAnalyzerSurvivesFailure(t *testing.T) {
	p := &scriptedProvider{err: errors.New("api down")}
	a := NewAnalyzer(p, "m", time.Second, clock)

	result := a.Analyze(context.Background(), "설명", []string{session.FieldAmount})
	if result.Facts.Amount != nil || len(result.Emotions) != 0 {
		t.Errorf("failed analysis should contribute nothing: %+v", result)
	}
}
