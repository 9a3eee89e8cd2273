package intake

import (
	"context"
	"fmt"

	"github.com/lexintake/lexintake/internal/knowledge"
)

// questionFor resolves the question text for a field: K2 template
// first, then the static table, then a generic prompt.
func questionFor(ctx context.Context, retriever *knowledge.Retriever, field, caseType, subCaseType string) string {
	if retriever != nil {
		if q := retriever.QuestionTemplate(ctx, field, caseType, subCaseType); q != "" {
			return q
		}
	}
	if q, ok := questionMessages[field]; ok {
		return q
	}
	return fmt.Sprintf("%s 정보를 알려주세요.", field)
}

// selectNextField picks the field to ask from the ordered missing
// list. Never-asked fields come first; fields at the ask ceiling are
// given up on. Returns "" when nothing is left to ask.
func selectNextField(missing []string, askedCounts map[string]int, maxAsks int) string {
	for _, f := range missing {
		if askedCounts[f] == 0 {
			return f
		}
	}
	for _, f := range missing {
		if askedCounts[f] < maxAsks {
			return f
		}
	}
	return ""
}
