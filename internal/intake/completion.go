package intake

import (
	"math"

	"github.com/lexintake/lexintake/internal/session"
)

// effectiveRequired returns the required-field set for the current
// facts. evidence_type joins the set only once evidence is affirmed
// without a type.
func effectiveRequired(required []string, facts *session.Facts) []string {
	out := make([]string, 0, len(required)+1)
	out = append(out, required...)
	if facts.Evidence != nil && *facts.Evidence && facts.EvidenceType == nil {
		out = append(out, session.FieldEvidenceType)
	}
	return out
}

// computeMissing returns the unresolved required fields in priority
// order. Facts are only ever written from an explicit Q/A pair or the
// narrative analysis, so a non-nil fact is a properly answered one.
func computeMissing(caseType string, required []string, facts *session.Facts) []string {
	fields := effectiveRequired(required, facts)

	var missing []string
	for _, f := range fields {
		if !facts.Resolved(f) {
			missing = append(missing, f)
		}
	}
	return orderByPriority(caseType, missing)
}

// orderByPriority sorts fields by the case type's priority list;
// unprioritized fields keep their relative order after the listed ones.
func orderByPriority(caseType string, fields []string) []string {
	priority := priorityFor(caseType)

	rank := make(map[string]int, len(priority))
	for i, f := range priority {
		rank[f] = i
	}

	out := make([]string, 0, len(fields))
	for _, p := range priority {
		for _, f := range fields {
			if f == p {
				out = append(out, f)
			}
		}
	}
	for _, f := range fields {
		if _, ok := rank[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// completionRate is round(100 * resolved / required), clamped to
// [0, 100].
func completionRate(required []string, facts *session.Facts) int {
	fields := effectiveRequired(required, facts)
	if len(fields) == 0 {
		return 100
	}
	resolved := 0
	for _, f := range fields {
		if facts.Resolved(f) {
			resolved++
		}
	}
	rate := int(math.Round(100 * float64(resolved) / float64(len(fields))))
	if rate < 0 {
		rate = 0
	}
	if rate > 100 {
		rate = 100
	}
	return rate
}
