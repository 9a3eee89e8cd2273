package extract

import (
	"strings"
	"unicode"
)

// evidenceTypeKeywords maps mention keywords to the canonical evidence
// type recorded on the case.
var evidenceTypeKeywords = []struct {
	keyword string
	evType  string
}{
	{"계약서", "계약서"},
	{"카톡", "대화내역"},
	{"대화내역", "대화내역"},
	{"대화", "대화내역"},
	{"송금내역", "이체내역"},
	{"계좌이체", "이체내역"},
	{"이체", "이체내역"},
	{"송금", "이체내역"},
	{"사진", "사진"},
	{"영상", "영상"},
	{"녹음", "녹음"},
	{"문서", "문서"},
	{"증빙", "증빙"},
	{"자료", "기타"},
}

var evidencePositive = []string{
	"증거", "계약서", "카톡", "이체", "내역", "대화", "송금",
	"대화내역", "송금내역", "계좌이체", "문서", "사진", "영상",
	"녹음", "증빙", "자료",
}

var evidenceNegative = []string{
	"없음", "없어", "아니", "no", "없다", "없습니다", "증거 없",
}

var evidenceSimplePositive = []string{
	"네", "있어요", "있습니다", "있다고", "있어", "있음", "있다", "예", "그래", "yes",
}

// evidenceUnknown answers assert nothing either way; the field stays
// unresolved and gets re-asked.
var evidenceUnknown = []string{
	"모름", "모르겠", "알 수 없", "알수없", "불명",
}

const evidenceTypeMaxLength = 50

// EvidenceFromAnswer interprets a user message for evidence presence
// and type. isEvidenceQuestion widens the accepted answers to simple
// affirmatives ("네") that are meaningless outside a direct question.
// A nil evidence result means the message said nothing about evidence;
// false means the user explicitly has none.
func EvidenceFromAnswer(answer string, isEvidenceQuestion bool) (*bool, *string) {
	s := strings.ToLower(strings.TrimSpace(answer))

	for _, kw := range evidenceUnknown {
		if strings.Contains(s, kw) {
			return nil, nil
		}
	}

	if isEvidenceQuestion {
		for _, kw := range evidenceSimplePositive {
			if strings.Contains(s, kw) {
				yes := true
				return &yes, matchEvidenceType(s)
			}
		}
	}

	for _, kw := range evidencePositive {
		if strings.Contains(s, kw) {
			yes := true
			return &yes, matchEvidenceType(s)
		}
	}
	for _, kw := range evidenceNegative {
		if strings.Contains(s, kw) {
			no := false
			return &no, nil
		}
	}
	return nil, nil
}

// EvidenceTypeFromAnswer interprets a direct answer to the evidence-
// type follow-up. Unrecognized answers are stored verbatim, truncated.
func EvidenceTypeFromAnswer(answer string) *string {
	s := strings.TrimSpace(answer)
	if s == "" {
		return nil
	}
	if t := matchEvidenceType(strings.ToLower(s)); t != nil {
		return t
	}
	if runes := []rune(s); len(runes) > evidenceTypeMaxLength {
		s = string(runes[:evidenceTypeMaxLength])
	}
	return &s
}

func matchEvidenceType(s string) *string {
	for _, e := range evidenceTypeKeywords {
		if strings.Contains(s, e.keyword) {
			t := e.evType
			return &t
		}
	}
	return nil
}

// CounterpartyFromAnswer captures the counterparty verbatim, rejecting
// answers too short or numeric to be a name.
func CounterpartyFromAnswer(answer string) *string {
	s := strings.TrimSpace(answer)
	if s == "" || s == "없음" || s == "None" {
		return nil
	}
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	digitsOnly := true
	for _, r := range runes {
		if !unicode.IsDigit(r) {
			digitsOnly = false
			break
		}
	}
	if digitsOnly {
		return nil
	}
	return &s
}
