package intake

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lexintake/lexintake/internal/knowledge"
	"github.com/lexintake/lexintake/internal/llm"
)

// Classifier decides the case type for a narrative. It tries the
// knowledge store's taxonomy first, then a constrained LLM call, then
// the static keyword table. It always returns a usable pair.
type Classifier struct {
	retriever *knowledge.Retriever
	provider  llm.Provider
	model     string
}

// NewClassifier creates a classifier. retriever and provider may each
// be nil; the chain skips what is missing.
func NewClassifier(retriever *knowledge.Retriever, provider llm.Provider, model string) *Classifier {
	return &Classifier{retriever: retriever, provider: provider, model: model}
}

// Classify returns (caseType, subCaseType) for the narrative.
func (c *Classifier) Classify(ctx context.Context, narrative string) (string, string) {
	if c.retriever != nil {
		hints := c.retriever.ClassifyHints(ctx, narrative)
		if len(hints) > 0 && hints[0].CaseType != "" {
			return normalizeCaseType(hints[0].CaseType), hints[0].SubCaseType
		}
	}

	if caseType, sub, ok := c.classifyLLM(ctx, narrative); ok {
		return caseType, sub
	}

	return classifyByKeywords(narrative)
}

func (c *Classifier) classifyLLM(ctx context.Context, narrative string) (string, string, bool) {
	if c.provider == nil {
		return "", "", false
	}

	prompt := fmt.Sprintf(`다음 텍스트를 분석하여 법률 사건 유형을 분류하세요.
가능한 분류:
- 민사: 계약, 불법행위, 대여금, 손해배상
- 형사: 사기, 성범죄, 폭행
- 가사: 이혼, 상속
- 행정: 행정처분, 세무

텍스트: %s

JSON 형식으로 반환:
{
    "main_case_type": "민사/형사/가사/행정",
    "sub_case_type": "세부 유형"
}`, narrative)

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model:       c.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   100,
		Temperature: 0.3,
	})
	if err != nil {
		log.Printf("intake: classification call failed: %v", err)
		return "", "", false
	}

	var wire struct {
		MainCaseType string `json:"main_case_type"`
		SubCaseType  string `json:"sub_case_type"`
	}
	if err := llm.ParseJSONObject(resp.Content, &wire); err != nil {
		log.Printf("intake: classification response unparsable: %v", err)
		return "", "", false
	}
	caseType := normalizeCaseType(wire.MainCaseType)
	if caseType == "" {
		return "", "", false
	}
	return caseType, strings.TrimSpace(wire.SubCaseType), true
}

// classifyByKeywords walks the static keyword table in order; the
// first substring hit wins.
func classifyByKeywords(narrative string) (string, string) {
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(narrative, kw) {
				return rule.caseType, rule.subCaseType
			}
		}
	}
	return fallbackCaseType, fallbackSubCaseType
}

// normalizeCaseType accepts both the canonical codes and the Korean
// labels, returning "" for anything else.
func normalizeCaseType(v string) string {
	v = strings.TrimSpace(v)
	if en, ok := caseTypeFromKorean[v]; ok {
		return en
	}
	switch strings.ToUpper(v) {
	case CaseCivil, CaseCriminal, CaseFamily, CaseAdmin:
		return strings.ToUpper(v)
	}
	return ""
}
