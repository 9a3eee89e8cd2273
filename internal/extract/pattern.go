package extract

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lexintake/lexintake/internal/llm"
	"github.com/lexintake/lexintake/internal/session"
)

// PatternStrategy resolves single answers with Korean regex patterns,
// falling back to a focused LLM call when the patterns come up empty.
// It only ever credits the field the question targeted.
type PatternStrategy struct {
	provider llm.Provider
	model    string
	now      func() time.Time
}

// NewPatternStrategy creates a pattern strategy. provider may be nil to
// disable LLM fallbacks (patterns only).
func NewPatternStrategy(provider llm.Provider, model string, now func() time.Time) *PatternStrategy {
	if now == nil {
		now = time.Now
	}
	return &PatternStrategy{provider: provider, model: model, now: now}
}

func (s *PatternStrategy) Method() Method { return MethodPattern }

func (s *PatternStrategy) Extract(ctx context.Context, state *session.ConversationState, field, answer string) (session.Facts, error) {
	var f session.Facts

	switch field {
	case session.FieldIncidentDate:
		if IsNegativeAnswer(answer) {
			return f, nil
		}
		if d := ExtractDate(answer, s.now()); d != "" {
			f.IncidentDate = &d
		} else if d := s.llmDate(ctx, answer); d != nil {
			f.IncidentDate = d
		}

	case session.FieldAmount:
		if a := AmountFromAnswer(answer); a != nil {
			f.Amount = a
		} else if !IsNegativeAnswer(answer) {
			f.Amount = s.llmAmount(ctx, answer)
		}

	case session.FieldCounterparty:
		if IsNegativeAnswer(answer) {
			return f, nil
		}
		if c := CounterpartyFromAnswer(answer); c != nil {
			f.Counterparty = c
		} else if c := s.llmParty(ctx, answer); c != nil {
			f.Counterparty = c
		}

	case session.FieldEvidence:
		ev, evType := EvidenceFromAnswer(answer, true)
		f.Evidence = ev
		f.EvidenceType = evType

	case session.FieldEvidenceType:
		if IsNegativeAnswer(answer) {
			return f, nil
		}
		f.EvidenceType = EvidenceTypeFromAnswer(answer)
	}

	return f, nil
}

// llmDate asks the model to pull a YYYY-MM-DD date out of free text.
func (s *PatternStrategy) llmDate(ctx context.Context, text string) *string {
	if s.provider == nil {
		return nil
	}
	prompt := fmt.Sprintf(`다음 텍스트에서 날짜를 추출하여 YYYY-MM-DD 형식으로 반환하세요.
오늘 날짜는 %s 입니다. 상대적 표현은 오늘 기준으로 계산하세요.
텍스트에 날짜가 없으면 "없음"을 반환하세요.

텍스트: %s

날짜:`, s.now().Format(dateLayout), text)

	content, err := s.complete(ctx, prompt, 50)
	if err != nil {
		log.Printf("extract: date fallback failed: %v", err)
		return nil
	}
	content = strings.TrimSpace(content)
	if content == "" || content == "없음" {
		return nil
	}
	if _, err := time.Parse(dateLayout, content); err != nil {
		return nil
	}
	return &content
}

// llmAmount asks the model for a bare won amount.
func (s *PatternStrategy) llmAmount(ctx context.Context, text string) *int64 {
	if s.provider == nil {
		return nil
	}
	prompt := fmt.Sprintf(`다음 텍스트에서 금액을 추출하여 숫자만 반환하세요 (원 단위).
금액이 없으면 "없음"을 반환하세요.

텍스트: %s

금액 (숫자만):`, text)

	content, err := s.complete(ctx, prompt, 50)
	if err != nil {
		log.Printf("extract: amount fallback failed: %v", err)
		return nil
	}
	content = strings.TrimSpace(content)
	if content == "" || content == "없음" {
		return nil
	}
	if m := reDigits.FindString(strings.ReplaceAll(content, ",", "")); m != "" {
		var n int64
		if _, err := fmt.Sscanf(m, "%d", &n); err == nil {
			return &n
		}
	}
	return nil
}

// llmParty asks the model for the counterparty's name.
func (s *PatternStrategy) llmParty(ctx context.Context, text string) *string {
	if s.provider == nil {
		return nil
	}
	prompt := fmt.Sprintf(`다음 텍스트에서 분쟁 상대방의 이름 또는 호칭을 추출하세요.
이름만 반환하고, 찾을 수 없으면 "없음"을 반환하세요.

텍스트: %s

상대방:`, text)

	content, err := s.complete(ctx, prompt, 50)
	if err != nil {
		log.Printf("extract: party fallback failed: %v", err)
		return nil
	}
	content = strings.TrimSpace(content)
	if content == "" || content == "없음" {
		return nil
	}
	return CounterpartyFromAnswer(content)
}

func (s *PatternStrategy) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:       s.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
