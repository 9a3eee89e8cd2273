package session

import "time"

// Stage identifies a step of the intake conversation.
type Stage string

const (
	StageInit               Stage = "INIT"
	StageCaseClassification Stage = "CASE_CLASSIFICATION"
	StageFactCollection     Stage = "FACT_COLLECTION"
	StageValidation         Stage = "VALIDATION"
	StageReQuestion         Stage = "RE_QUESTION"
	StageSummary            Stage = "SUMMARY"
	StageCompleted          Stage = "COMPLETED"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Fact field names. These are the keys used in knowledge documents,
// priority tables and extraction output.
const (
	FieldIncidentDate = "incident_date"
	FieldAmount       = "amount"
	FieldCounterparty = "counterparty"
	FieldEvidence     = "evidence"
	FieldEvidenceType = "evidence_type"
)

// Facts holds the structured facts collected during intake. A nil
// pointer means the fact has not been established; evidence=false is a
// real answer ("no evidence"), not an absence.
type Facts struct {
	IncidentDate *string `json:"incident_date"`
	Amount       *int64  `json:"amount"`
	Counterparty *string `json:"counterparty"`
	Evidence     *bool   `json:"evidence"`
	EvidenceType *string `json:"evidence_type"`
}

// Resolved reports whether the named field carries a value.
func (f *Facts) Resolved(field string) bool {
	switch field {
	case FieldIncidentDate:
		return f.IncidentDate != nil
	case FieldAmount:
		return f.Amount != nil
	case FieldCounterparty:
		return f.Counterparty != nil
	case FieldEvidence:
		return f.Evidence != nil
	case FieldEvidenceType:
		return f.EvidenceType != nil
	}
	return false
}

// Clear resets the named field to unestablished.
func (f *Facts) Clear(field string) {
	switch field {
	case FieldIncidentDate:
		f.IncidentDate = nil
	case FieldAmount:
		f.Amount = nil
	case FieldCounterparty:
		f.Counterparty = nil
	case FieldEvidence:
		f.Evidence = nil
	case FieldEvidenceType:
		f.EvidenceType = nil
	}
}

// QAPair is one question/answer exchange recorded in order.
type QAPair struct {
	Field    string    `json:"field"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// Emotion is one emotional annotation split off the user's narrative.
// Intensity runs 1 (mild) to 5 (severe).
type Emotion struct {
	Type      string `json:"type"`
	Intensity int    `json:"intensity"`
	Source    string `json:"source_text"`
}

// ConversationState is the full durable state of one intake session.
type ConversationState struct {
	SessionID   string `json:"session_id"`
	Channel     string `json:"channel"`
	Status      Status `json:"status"`
	Stage       Stage  `json:"stage"`
	CaseType    string `json:"case_type"`
	SubCaseType string `json:"sub_case_type"`

	Facts    Facts     `json:"facts"`
	Emotions []Emotion `json:"emotions"`
	History  []QAPair  `json:"history"`

	// Narrative is the user's initial free-text description, kept for
	// summary generation. FactStatements are the objective statements
	// split out of it.
	Narrative      string   `json:"narrative"`
	FactStatements []string `json:"fact_statements"`

	AskedCounts   map[string]int `json:"asked_counts"`
	SkippedFields []string       `json:"skipped_fields"`
	MissingFields []string       `json:"missing_fields"`

	CompletionRate int `json:"completion_rate"`

	// Per-turn scratch.
	UserMessage   string `json:"user_message"`
	BotMessage    string `json:"bot_message"`
	ExpectedInput string `json:"expected_input"`

	ExtractionMethod string `json:"extraction_method"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates an active session at the INIT stage.
func NewState(sessionID, channel, extractionMethod string) *ConversationState {
	now := time.Now()
	return &ConversationState{
		SessionID:        sessionID,
		Channel:          channel,
		Status:           StatusActive,
		Stage:            StageInit,
		AskedCounts:      make(map[string]int),
		ExtractionMethod: extractionMethod,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// RecordQA appends one exchange to the ordered history and bumps the
// field's ask count.
func (s *ConversationState) RecordQA(field, question, answer string) {
	s.History = append(s.History, QAPair{
		Field:    field,
		Question: question,
		Answer:   answer,
		AskedAt:  time.Now(),
	})
}

// IsSkipped reports whether the field was marked as skipped.
func (s *ConversationState) IsSkipped(field string) bool {
	for _, f := range s.SkippedFields {
		if f == field {
			return true
		}
	}
	return false
}

// MarkSkipped adds the field to the skipped set once.
func (s *ConversationState) MarkSkipped(field string) {
	if !s.IsSkipped(field) {
		s.SkippedFields = append(s.SkippedFields, field)
	}
}
