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

// NarrativeResult is what the analyzer could establish from the user's
// initial free-text description.
type NarrativeResult struct {
	Facts          session.Facts
	FactStatements []string
	Emotions       []session.Emotion
}

// Analyzer runs the one-shot narrative analysis after classification:
// a fact extraction constrained to the case type's required fields and
// a fact/emotion split, dispatched concurrently. A sub-call that times
// out or fails contributes nothing.
type Analyzer struct {
	provider llm.Provider
	model    string
	timeout  time.Duration
	now      func() time.Time
}

// NewAnalyzer creates a narrative analyzer. timeout bounds each
// sub-call independently.
func NewAnalyzer(provider llm.Provider, model string, timeout time.Duration, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{provider: provider, model: model, timeout: timeout, now: now}
}

// Analyze extracts facts and emotions from the narrative. requiredFields
// limits which facts the extraction may fill in.
func (a *Analyzer) Analyze(ctx context.Context, narrative string, requiredFields []string) NarrativeResult {
	var result NarrativeResult
	if a.provider == nil || strings.TrimSpace(narrative) == "" {
		return result
	}

	type factsOut struct {
		facts session.Facts
		ok    bool
	}
	type splitOut struct {
		statements []string
		emotions   []session.Emotion
		ok         bool
	}

	factsCh := make(chan factsOut, 1)
	splitCh := make(chan splitOut, 1)

	go func() {
		cctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		f, err := a.extractFacts(cctx, narrative, requiredFields)
		if err != nil {
			log.Printf("extract: narrative fact analysis failed: %v", err)
			factsCh <- factsOut{}
			return
		}
		factsCh <- factsOut{facts: f, ok: true}
	}()

	go func() {
		cctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		statements, emotions, err := a.splitFactEmotion(cctx, narrative)
		if err != nil {
			log.Printf("extract: fact/emotion split failed: %v", err)
			splitCh <- splitOut{}
			return
		}
		splitCh <- splitOut{statements: statements, emotions: emotions, ok: true}
	}()

	if out := <-factsCh; out.ok {
		result.Facts = out.facts
	}
	if out := <-splitCh; out.ok {
		result.FactStatements = out.statements
		result.Emotions = out.emotions
	}
	return result
}

func (a *Analyzer) extractFacts(ctx context.Context, narrative string, requiredFields []string) (session.Facts, error) {
	var f session.Facts

	allowed := strings.Join(requiredFields, ", ")
	if allowed == "" {
		allowed = "incident_date, amount, counterparty, evidence, evidence_type"
	}

	prompt := fmt.Sprintf(`다음 사건 설명에서 정보를 추출하여 JSON으로 반환하세요.
추출 대상 필드: %s

규칙:
- incident_date: YYYY-MM-DD 형식. 오늘은 %s. 언급이 없으면 null.
- amount: 원 단위 숫자만. 언급이 없으면 null.
- counterparty: 상대방 이름 또는 호칭. 언급이 없으면 null.
- evidence: 증거 보유 여부 true/false. 언급이 없으면 null.
- evidence_type: 증거 종류. 언급이 없으면 null.
- 설명에 없는 정보를 추측하지 마세요.

사건 설명: %s

JSON:`, allowed, a.now().Format(dateLayout), narrative)

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model:       a.model,
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

	// Respect the field allowlist: facts the case type does not track
	// are discarded.
	if len(requiredFields) > 0 {
		tracked := make(map[string]bool, len(requiredFields)+1)
		for _, field := range requiredFields {
			tracked[field] = true
		}
		// evidence_type rides along with evidence.
		if tracked[session.FieldEvidence] {
			tracked[session.FieldEvidenceType] = true
		}
		for _, field := range []string{
			session.FieldIncidentDate, session.FieldAmount,
			session.FieldCounterparty, session.FieldEvidence,
			session.FieldEvidenceType,
		} {
			if !tracked[field] {
				f.Clear(field)
			}
		}
	}
	return f, nil
}

func (a *Analyzer) splitFactEmotion(ctx context.Context, narrative string) ([]string, []session.Emotion, error) {
	prompt := fmt.Sprintf(`다음 텍스트를 사실(fact)과 감정(emotion)으로 분리하세요.
JSON 형식으로 반환하세요:
{
    "facts": [{"content": "객관적 사실 내용", "type": "날짜/금액/행위/기타"}],
    "emotions": [{"type": "억울함/불안/화남/기타", "intensity": 1-5, "source_text": "원문에서 감정이 드러난 부분"}]
}

주의사항:
- 사실은 객관적이고 검증 가능한 정보만 포함
- 감정은 주관적 표현과 느낌만 포함
- 감정 표현이 없으면 emotions는 빈 배열

텍스트: %s

JSON:`, narrative)

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model:       a.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   500,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, nil, err
	}

	var wire struct {
		Facts []struct {
			Content string `json:"content"`
		} `json:"facts"`
		Emotions []session.Emotion `json:"emotions"`
	}
	if err := llm.ParseJSONObject(resp.Content, &wire); err != nil {
		return nil, nil, err
	}

	var statements []string
	for _, f := range wire.Facts {
		if s := strings.TrimSpace(f.Content); s != "" {
			statements = append(statements, s)
		}
	}
	return statements, wire.Emotions, nil
}
