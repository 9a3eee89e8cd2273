package summary

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lexintake/lexintake/internal/knowledge"
	"github.com/lexintake/lexintake/internal/llm"
	"github.com/lexintake/lexintake/internal/session"
)

// defaultSections is the K4 fallback layout.
var defaultSections = []knowledge.Section{
	{Title: "사건 유형"},
	{Title: "핵심 사실관계"},
	{Title: "금액 및 증거"},
	{Title: "특이사항"},
}

// Generator builds the final case summary: K4 output format and K3
// risk rules from the knowledge store, rendered through the LLM, with
// a deterministic fallback when the call fails.
type Generator struct {
	provider  llm.Provider
	model     string
	retriever *knowledge.Retriever
	store     *Store
}

// NewGenerator creates a generator. provider, retriever and store may
// each be nil; the generator degrades accordingly.
func NewGenerator(provider llm.Provider, model string, retriever *knowledge.Retriever, store *Store) *Generator {
	return &Generator{provider: provider, model: model, retriever: retriever, store: store}
}

// Generate produces the summary for a finished session and persists it
// when a store is configured.
func (g *Generator) Generate(ctx context.Context, state *session.ConversationState) (string, map[string]any, error) {
	sections := defaultSections
	if g.retriever != nil {
		if s := g.retriever.SummaryFormat(ctx, state.CaseType, state.SubCaseType); len(s) > 0 {
			sections = s
		}
	}

	var riskNotes []string
	if g.retriever != nil {
		riskNotes = matchRiskRules(g.retriever.RiskRules(ctx, state.CaseType, state.SubCaseType), state)
	}

	structured, err := g.generateLLM(ctx, state, sections)
	if err != nil {
		log.Printf("summary: generation failed, using deterministic fallback: %v", err)
		structured = fallbackSummary(state, sections)
	}
	if len(riskNotes) > 0 {
		structured["risk_notes"] = riskNotes
	}

	text := renderText(sections, structured)

	if g.store != nil {
		rec := &Record{
			SessionID:      state.SessionID,
			CaseType:       state.CaseType,
			SubCaseType:    state.SubCaseType,
			SummaryText:    text,
			Structured:     structured,
			CompletionRate: state.CompletionRate,
		}
		if err := g.store.Save(ctx, rec); err != nil {
			log.Printf("summary: persisting summary for %s failed: %v", state.SessionID, err)
		}
	}
	return text, structured, nil
}

func (g *Generator) generateLLM(ctx context.Context, state *session.ConversationState, sections []knowledge.Section) (map[string]any, error) {
	if g.provider == nil {
		return nil, fmt.Errorf("no provider configured")
	}

	var sectionsInfo strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&sectionsInfo, "- %s\n", s.Title)
	}

	prompt := fmt.Sprintf(`다음 법률 상담 내용을 상담사용으로 요약하세요.
각 섹션을 키로 하는 JSON 객체로 반환하세요. 객관적이고 사실 중심으로 작성하세요.

사건 유형: %s
수집된 사실:
%s
감정 표현: %s
수집 완료율: %d%%

사용자 입력 내용 (전체):
%s

섹션:
%s
JSON:`,
		caseTypeLabel(state),
		factsText(&state.Facts),
		emotionsText(state.Emotions),
		state.CompletionRate,
		strings.Join(append([]string{state.Narrative}, state.FactStatements...), "\n"),
		sectionsInfo.String(),
	)

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model:       g.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   800,
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	var structured map[string]any
	if err := llm.ParseJSONObject(resp.Content, &structured); err != nil {
		return nil, err
	}
	if len(structured) == 0 {
		return nil, fmt.Errorf("empty summary object")
	}
	return structured, nil
}

// fallbackSummary renders the collected facts directly into the
// section layout without an LLM.
func fallbackSummary(state *session.ConversationState, sections []knowledge.Section) map[string]any {
	structured := map[string]any{
		"사건 유형":   caseTypeLabel(state),
		"핵심 사실관계": factsText(&state.Facts),
	}
	if state.Facts.Amount != nil || state.Facts.Evidence != nil {
		structured["금액 및 증거"] = factsText(&session.Facts{
			Amount:       state.Facts.Amount,
			Evidence:     state.Facts.Evidence,
			EvidenceType: state.Facts.EvidenceType,
		})
	}
	if len(state.Emotions) > 0 {
		structured["특이사항"] = emotionsText(state.Emotions)
	}
	for _, s := range sections {
		if _, ok := structured[s.Title]; !ok {
			structured[s.Title] = "없음"
		}
	}
	return structured
}

// matchRiskRules returns the notes of rules whose condition keyword
// appears anywhere in the conversation.
func matchRiskRules(rules []knowledge.RiskRule, state *session.ConversationState) []string {
	if len(rules) == 0 {
		return nil
	}
	var corpus strings.Builder
	corpus.WriteString(state.Narrative)
	for _, qa := range state.History {
		corpus.WriteString("\n")
		corpus.WriteString(qa.Answer)
	}
	text := corpus.String()

	var notes []string
	for _, r := range rules {
		if r.Condition != "" && strings.Contains(text, r.Condition) {
			notes = append(notes, r.Note)
		}
	}
	return notes
}

// renderText flattens the structured summary into section-ordered
// lines; keys outside the layout follow at the end.
func renderText(sections []knowledge.Section, structured map[string]any) string {
	var b strings.Builder
	seen := make(map[string]bool, len(sections))
	for _, s := range sections {
		if v, ok := structured[s.Title]; ok {
			fmt.Fprintf(&b, "%s: %v\n", s.Title, v)
			seen[s.Title] = true
		}
	}
	for k, v := range structured {
		if !seen[k] {
			fmt.Fprintf(&b, "%s: %v\n", k, v)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func caseTypeLabel(state *session.ConversationState) string {
	switch {
	case state.CaseType != "" && state.SubCaseType != "":
		return state.CaseType + " / " + state.SubCaseType
	case state.CaseType != "":
		return state.CaseType
	case state.SubCaseType != "":
		return state.SubCaseType
	}
	return "미분류"
}

func factsText(f *session.Facts) string {
	var lines []string
	if f.IncidentDate != nil {
		lines = append(lines, "- 사건 발생일: "+*f.IncidentDate)
	}
	if f.Amount != nil {
		lines = append(lines, fmt.Sprintf("- 금액: %d원", *f.Amount))
	}
	if f.Counterparty != nil {
		lines = append(lines, "- 상대방: "+*f.Counterparty)
	}
	if f.Evidence != nil {
		if *f.Evidence {
			lines = append(lines, "- 증거: 있음")
		} else {
			lines = append(lines, "- 증거: 없음")
		}
	}
	if f.EvidenceType != nil {
		lines = append(lines, "- 증거 종류: "+*f.EvidenceType)
	}
	if len(lines) == 0 {
		return "없음"
	}
	return strings.Join(lines, "\n")
}

func emotionsText(emotions []session.Emotion) string {
	if len(emotions) == 0 {
		return "없음"
	}
	var parts []string
	for _, e := range emotions {
		parts = append(parts, fmt.Sprintf("%s(강도 %d)", e.Type, e.Intensity))
	}
	return strings.Join(parts, ", ")
}
