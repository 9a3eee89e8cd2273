package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/lexintake/lexintake/internal/llm"
	"github.com/lexintake/lexintake/internal/session"
)

// TranscriptStrategy extracts all facts in one JSON-mode LLM call over
// the full Q/A history. When the call or its JSON fails, it degrades to
// running the pattern strategy per recorded pair.
type TranscriptStrategy struct {
	provider llm.Provider
	model    string
	now      func() time.Time
	fallback *PatternStrategy
}

// NewTranscriptStrategy creates a transcript strategy backed by the
// given provider, with the pattern strategy as its failure fallback.
func NewTranscriptStrategy(provider llm.Provider, model string, now func() time.Time) *TranscriptStrategy {
	if now == nil {
		now = time.Now
	}
	return &TranscriptStrategy{
		provider: provider,
		model:    model,
		now:      now,
		fallback: NewPatternStrategy(nil, model, now),
	}
}

func (s *TranscriptStrategy) Method() Method { return MethodTranscript }

// wireFacts is the JSON contract the model fills in. Amount is any
// because models sometimes return it as a string.
type wireFacts struct {
	IncidentDate *string `json:"incident_date"`
	Amount       any     `json:"amount"`
	Counterparty *string `json:"counterparty"`
	Evidence     *bool   `json:"evidence"`
	EvidenceType *string `json:"evidence_type"`
}

func (s *TranscriptStrategy) Extract(ctx context.Context, state *session.ConversationState, field, answer string) (session.Facts, error) {
	facts, err := s.extractFromTranscript(ctx, state)
	if err == nil {
		return facts, nil
	}
	log.Printf("extract: transcript call failed, using per-pair patterns: %v", err)
	return s.perPairFallback(ctx, state)
}

func (s *TranscriptStrategy) extractFromTranscript(ctx context.Context, state *session.ConversationState) (session.Facts, error) {
	var f session.Facts
	if s.provider == nil {
		return f, fmt.Errorf("no provider configured")
	}

	var transcript strings.Builder
	if state.Narrative != "" {
		fmt.Fprintf(&transcript, "[사건 설명] %s\n", state.Narrative)
	}
	for _, qa := range state.History {
		fmt.Fprintf(&transcript, "Q(%s): %s\nA: %s\n", qa.Field, qa.Question, qa.Answer)
	}

	prompt := fmt.Sprintf(`다음은 법률 상담 접수 대화입니다. 대화 전체에서 사건 정보를 추출하여 JSON으로 반환하세요.

규칙:
- incident_date: YYYY-MM-DD 형식. 오늘은 %s 이며 상대적 표현은 오늘 기준으로 계산. 언급이 없으면 null.
- amount: 원 단위 숫자만 (단위 제거). 언급이 없으면 null.
- counterparty: 상대방 이름 또는 호칭. 언급이 없으면 null.
- evidence: 증거 보유 여부 true/false. "없다"고 답했으면 false, 언급이 없으면 null.
- evidence_type: 증거 종류 (계약서/대화내역/이체내역 등). 언급이 없으면 null.
- 사용자가 말하지 않은 정보를 추측하지 마세요.

대화:
%s

JSON:`, s.now().Format(dateLayout), transcript.String())

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:       s.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   300,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return f, err
	}

	var wire wireFacts
	if err := llm.ParseJSONObject(resp.Content, &wire); err != nil {
		return f, err
	}

	f.IncidentDate = normalizeDate(wire.IncidentDate)
	f.Amount = coerceAmount(wire.Amount)
	f.Counterparty = normalizeText(wire.Counterparty)
	f.Evidence = wire.Evidence
	f.EvidenceType = normalizeText(wire.EvidenceType)
	return f, nil
}

// perPairFallback replays the history through the pattern matchers,
// crediting each answer to the field its question targeted.
func (s *TranscriptStrategy) perPairFallback(ctx context.Context, state *session.ConversationState) (session.Facts, error) {
	var merged session.Facts
	for _, qa := range state.History {
		got, err := s.fallback.Extract(ctx, state, qa.Field, qa.Answer)
		if err != nil {
			continue
		}
		Merge(&merged, got)
	}
	return merged, nil
}

func normalizeDate(d *string) *string {
	if d == nil {
		return nil
	}
	s := strings.TrimSpace(*d)
	if _, err := time.Parse(dateLayout, s); err != nil {
		return nil
	}
	return &s
}

func normalizeText(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" || s == "null" || s == "없음" {
		return nil
	}
	return &s
}

// coerceAmount accepts the number, string and null encodings models
// produce for amounts.
func coerceAmount(v any) *int64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		a := int64(n)
		return &a
	case json.Number:
		if a, err := n.Int64(); err == nil {
			return &a
		}
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if m := reDigits.FindString(cleaned); m != "" {
			if a, err := strconv.ParseInt(m, 10, 64); err == nil {
				return &a
			}
		}
	}
	return nil
}
