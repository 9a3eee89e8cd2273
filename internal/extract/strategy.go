package extract

import (
	"context"

	"github.com/lexintake/lexintake/internal/session"
)

// Method identifies a fact-extraction strategy.
type Method string

const (
	// MethodPattern matches regex patterns against single answers.
	MethodPattern Method = "pattern"
	// MethodTranscript sends the full Q/A history to the LLM in one
	// JSON-mode call.
	MethodTranscript Method = "transcript"
)

// Strategy interprets the latest answer in the context of the session
// and returns the facts it could establish. Only non-nil fields in the
// result are meaningful; the caller merges them into the session state.
type Strategy interface {
	Method() Method
	Extract(ctx context.Context, state *session.ConversationState, field, answer string) (session.Facts, error)
}

// Merge overlays extracted facts onto the session's facts. A non-nil
// overlay value wins; nil never erases an established fact.
func Merge(dst *session.Facts, src session.Facts) {
	if src.IncidentDate != nil {
		dst.IncidentDate = src.IncidentDate
	}
	if src.Amount != nil {
		dst.Amount = src.Amount
	}
	if src.Counterparty != nil {
		dst.Counterparty = src.Counterparty
	}
	if src.Evidence != nil {
		dst.Evidence = src.Evidence
	}
	if src.EvidenceType != nil {
		dst.EvidenceType = src.EvidenceType
	}
}

// NewlyResolved returns the field names that are resolved in after but
// were not in before.
func NewlyResolved(before, after *session.Facts) []string {
	fields := []string{
		session.FieldIncidentDate,
		session.FieldAmount,
		session.FieldCounterparty,
		session.FieldEvidence,
		session.FieldEvidenceType,
	}
	var out []string
	for _, f := range fields {
		if after.Resolved(f) && !before.Resolved(f) {
			out = append(out, f)
		}
	}
	return out
}
