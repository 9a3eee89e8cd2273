package knowledge

import (
	"context"
	"log"
)

// Retriever provides typed lookups over the knowledge store. Every
// accessor degrades to a zero value on retrieval failure so callers can
// fall back to their static defaults.
type Retriever struct {
	store Store
}

// NewRetriever creates a retriever over the given store.
func NewRetriever(store Store) *Retriever {
	return &Retriever{store: store}
}

// Hint is one taxonomy candidate surfaced for case classification.
type Hint struct {
	CaseType    string
	SubCaseType string
	Keywords    []string
	Expressions []string
	Similarity  float32
}

// IntakeMessage returns the K0 message registered under key (greeting,
// closing, apology), or "" if none is found.
func (r *Retriever) IntakeMessage(ctx context.Context, key string) string {
	t := TypeIntake
	results, err := r.store.Search(ctx, key, 1, &Filter{Type: &t})
	if err != nil {
		log.Printf("knowledge: intake message lookup failed: %v", err)
		return ""
	}
	for _, res := range results {
		p, err := ParsePayload(res.Document.Content)
		if err != nil {
			continue
		}
		if msg, ok := p.Messages[key]; ok {
			return msg
		}
	}
	return ""
}

// ClassifyHints returns taxonomy candidates (K1) most similar to the
// user's narrative, best match first.
func (r *Retriever) ClassifyHints(ctx context.Context, narrative string) []Hint {
	t := TypeTaxonomy
	results, err := r.store.Search(ctx, narrative, 3, &Filter{Type: &t})
	if err != nil {
		log.Printf("knowledge: taxonomy lookup failed: %v", err)
		return nil
	}

	var hints []Hint
	for _, res := range results {
		p, err := ParsePayload(res.Document.Content)
		if err != nil {
			continue
		}
		hints = append(hints, Hint{
			CaseType:    res.Document.Metadata.CaseType,
			SubCaseType: res.Document.Metadata.SubCaseType,
			Keywords:    p.Keywords,
			Expressions: p.Expressions,
			Similarity:  res.Similarity,
		})
	}
	return hints
}

// RequiredFields returns the K2 required-field list for the case type,
// or nil if no document matches.
func (r *Retriever) RequiredFields(ctx context.Context, caseType, subCaseType string) []string {
	p := r.fieldsDoc(ctx, caseType, subCaseType)
	if p == nil {
		return nil
	}
	return p.RequiredFields
}

// QuestionTemplate returns the K2 question template for the given field
// and case type, or "" if none is found.
func (r *Retriever) QuestionTemplate(ctx context.Context, field, caseType, subCaseType string) string {
	p := r.fieldsDoc(ctx, caseType, subCaseType)
	if p == nil {
		return ""
	}
	for _, q := range p.Questions {
		if q.Field == field {
			return q.Question
		}
	}
	return ""
}

// fieldsDoc fetches the best K2 document for the case type, retrying
// without the sub-type filter when the narrow lookup comes up empty.
func (r *Retriever) fieldsDoc(ctx context.Context, caseType, subCaseType string) *Payload {
	t := TypeFields
	filter := &Filter{Type: &t, CaseType: &caseType}
	if subCaseType != "" {
		filter.SubCaseType = &subCaseType
	}

	results, err := r.store.Search(ctx, caseType+" "+subCaseType, 1, filter)
	if err != nil {
		log.Printf("knowledge: required fields lookup failed: %v", err)
		return nil
	}
	if len(results) == 0 && subCaseType != "" {
		results, err = r.store.Search(ctx, caseType, 1, &Filter{Type: &t, CaseType: &caseType})
		if err != nil || len(results) == 0 {
			return nil
		}
	}
	if len(results) == 0 {
		return nil
	}

	p, err := ParsePayload(results[0].Document.Content)
	if err != nil {
		return nil
	}
	return p
}

// RiskRules returns the K3 rules for the case type, or nil.
func (r *Retriever) RiskRules(ctx context.Context, caseType, subCaseType string) []RiskRule {
	t := TypeRiskRules
	filter := &Filter{Type: &t, CaseType: &caseType}
	results, err := r.store.Search(ctx, caseType+" "+subCaseType, 2, filter)
	if err != nil {
		log.Printf("knowledge: risk rules lookup failed: %v", err)
		return nil
	}

	var rules []RiskRule
	for _, res := range results {
		p, err := ParsePayload(res.Document.Content)
		if err != nil {
			continue
		}
		rules = append(rules, p.Rules...)
	}
	return rules
}

// SummaryFormat returns the K4 output sections for the case type, or nil.
func (r *Retriever) SummaryFormat(ctx context.Context, caseType, subCaseType string) []Section {
	t := TypeFormats
	filter := &Filter{Type: &t, CaseType: &caseType}
	results, err := r.store.Search(ctx, caseType+" "+subCaseType, 1, filter)
	if err != nil {
		log.Printf("knowledge: summary format lookup failed: %v", err)
		return nil
	}
	if len(results) == 0 {
		// Formats may be case-type agnostic.
		results, err = r.store.Search(ctx, caseType, 1, &Filter{Type: &t})
		if err != nil || len(results) == 0 {
			return nil
		}
	}

	p, err := ParsePayload(results[0].Document.Content)
	if err != nil {
		return nil
	}
	return p.Sections
}
