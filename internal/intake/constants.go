package intake

import "github.com/lexintake/lexintake/internal/session"

// Top-level case types.
const (
	CaseCivil    = "CIVIL"
	CaseCriminal = "CRIMINAL"
	CaseFamily   = "FAMILY"
	CaseAdmin    = "ADMIN"
)

// caseTypeFromKorean maps the Korean labels models tend to answer with
// to the canonical case type codes.
var caseTypeFromKorean = map[string]string{
	"민사": CaseCivil,
	"형사": CaseCriminal,
	"가사": CaseFamily,
	"행정": CaseAdmin,
}

// requiredFieldsByCaseType is the static fallback when no K2 document
// answers the lookup. All case types currently share the base set.
var requiredFieldsByCaseType = map[string][]string{
	CaseCivil:    {session.FieldIncidentDate, session.FieldCounterparty, session.FieldAmount, session.FieldEvidence},
	CaseCriminal: {session.FieldIncidentDate, session.FieldCounterparty, session.FieldAmount, session.FieldEvidence},
	CaseFamily:   {session.FieldIncidentDate, session.FieldCounterparty, session.FieldAmount, session.FieldEvidence},
	CaseAdmin:    {session.FieldIncidentDate, session.FieldCounterparty, session.FieldAmount, session.FieldEvidence},
}

// defaultRequiredFields applies when the case type is unknown.
var defaultRequiredFields = []string{
	session.FieldIncidentDate,
	session.FieldCounterparty,
	session.FieldAmount,
	session.FieldEvidence,
}

// priorityByCaseType orders missing fields for question selection.
// Fields absent from the priority list keep their required-field
// declaration order after the prioritized ones.
var priorityByCaseType = map[string][]string{
	CaseCivil:    {session.FieldIncidentDate, session.FieldAmount, session.FieldCounterparty, session.FieldEvidence},
	CaseCriminal: {session.FieldIncidentDate, session.FieldCounterparty, session.FieldAmount, session.FieldEvidence},
	CaseFamily:   {session.FieldIncidentDate, session.FieldCounterparty, session.FieldAmount, session.FieldEvidence},
	CaseAdmin:    {session.FieldIncidentDate, session.FieldCounterparty, session.FieldAmount, session.FieldEvidence},
}

var defaultPriority = []string{
	session.FieldIncidentDate,
	session.FieldAmount,
	session.FieldCounterparty,
	session.FieldEvidence,
}

// fallbackRule is one row of the keyword classification table, checked
// in declaration order. First substring hit wins.
type fallbackRule struct {
	caseType    string
	subCaseType string
	keywords    []string
}

var fallbackRules = []fallbackRule{
	{CaseCivil, "CIVIL_CONTRACT", []string{"돈", "빌려", "대여금", "계약", "미지급", "채무", "채권", "계약서", "약속어음"}},
	{CaseCriminal, "CRIMINAL_FRAUD", []string{"사기", "절도", "폭행", "성범죄", "협박", "강도", "살인", "상해"}},
	{CaseFamily, "FAMILY_DIVORCE", []string{"이혼", "상속", "양육권", "재산분할", "위자료", "친권"}},
	{CaseAdmin, "ADMIN_TAX", []string{"행정처분", "세무", "과태료", "과징금", "허가", "인허가"}},
}

const (
	fallbackCaseType    = CaseCivil
	fallbackSubCaseType = "CIVIL_CONTRACT"
)

// questionMessages is the static per-field question table, used when no
// K2 template answers the lookup.
var questionMessages = map[string]string{
	session.FieldIncidentDate: "사건이 발생한 날짜를 알려주세요.",
	session.FieldCounterparty: "계약 상대방은 누구인가요?",
	session.FieldAmount:       "문제가 된 금액은 얼마인가요?",
	session.FieldEvidence:     "계약서나 관련 증거를 가지고 계신가요?",
	session.FieldEvidenceType: "어떤 증거를 가지고 계신가요? (예: 계약서, 카톡 대화내역, 송금내역, 사진, 영상 등)",
	"additional_info":         "추가로 알려주실 내용이 있으신가요?",
}

// K0 message keys plus the hardcoded defaults behind them.
const (
	msgKeyGreeting = "greeting"
	msgKeyClosing  = "closing"
	msgKeyApology  = "apology"

	defaultGreeting  = "안녕하세요. 법률 상담을 도와드리겠습니다. 상황을 3~5줄로 편하게 적어주세요."
	defaultClosing   = "상담에 필요한 정보를 확인했습니다. 자료 확인 후 상담 전화를 드리오니 받아 주시기 부탁드립니다."
	defaultApology   = "죄송합니다. 처리 중 오류가 발생하여 상담을 종료합니다. 잠시 후 다시 시도해 주세요."
	rePromptMessage  = "사건과 관련된 내용을 알려주세요."
	expectsNarrative = "narrative"
)

// requiredFieldsFor returns the static required-field list for the case
// type.
func requiredFieldsFor(caseType string) []string {
	if fields, ok := requiredFieldsByCaseType[caseType]; ok {
		return fields
	}
	return defaultRequiredFields
}

// priorityFor returns the question-selection priority for the case type.
func priorityFor(caseType string) []string {
	if p, ok := priorityByCaseType[caseType]; ok {
		return p
	}
	return defaultPriority
}
