package intake

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/lexintake/lexintake/internal/extract"
	"github.com/lexintake/lexintake/internal/knowledge"
	"github.com/lexintake/lexintake/internal/llm"
	"github.com/lexintake/lexintake/internal/session"
)

// Summarizer produces the final case summary from a finished session.
type Summarizer interface {
	Generate(ctx context.Context, state *session.ConversationState) (text string, structured map[string]any, err error)
}

// ProcessLogger records stage transitions for later inspection.
// Implementations must be non-fatal; the engine ignores their errors.
type ProcessLogger interface {
	StageTransition(ctx context.Context, sessionID string, from, to session.Stage)
}

// TurnResult is what one externally triggered call returns.
type TurnResult struct {
	SessionID      string           `json:"session_id"`
	Stage          session.Stage    `json:"stage"`
	BotMessage     string           `json:"bot_message"`
	ExpectedInput  string           `json:"expected_input"`
	CompletionRate int              `json:"completion_rate"`
	History        []session.QAPair `json:"conversation_history"`

	// Set once a summary has been generated.
	SummaryText string         `json:"summary_text,omitempty"`
	Structured  map[string]any `json:"structured_summary,omitempty"`
}

// Options wires the engine's collaborators. Retriever, Analyzer,
// Summarizer and ProcessLogger may be nil; the engine degrades to its
// static fallbacks.
type Options struct {
	Sessions   *session.Store
	Retriever  *knowledge.Retriever
	Classifier *Classifier
	Analyzer   *extract.Analyzer
	Strategies map[extract.Method]extract.Strategy
	Assigner   *extract.Assigner
	Summarizer Summarizer
	Logger     ProcessLogger
	MaxDepth   int
	MaxAsks    int
}

// Engine runs the intake conversation. One user turn executes stages
// until a handler needs user input or the terminal stage is reached,
// then persists the state exactly once.
type Engine struct {
	sessions   *session.Store
	retriever  *knowledge.Retriever
	classifier *Classifier
	analyzer   *extract.Analyzer
	strategies map[extract.Method]extract.Strategy
	assigner   *extract.Assigner
	summarizer Summarizer
	plog       ProcessLogger
	maxDepth   int
	maxAsks    int
}

// NewEngine creates an engine from the given options.
func NewEngine(opts Options) *Engine {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 50
	}
	if opts.MaxAsks <= 0 {
		opts.MaxAsks = 5
	}
	return &Engine{
		sessions:   opts.Sessions,
		retriever:  opts.Retriever,
		classifier: opts.Classifier,
		analyzer:   opts.Analyzer,
		strategies: opts.Strategies,
		assigner:   opts.Assigner,
		summarizer: opts.Summarizer,
		plog:       opts.Logger,
		maxDepth:   opts.MaxDepth,
		maxAsks:    opts.MaxAsks,
	}
}

// turn carries per-call scratch between stage handlers.
type turn struct {
	input    string
	consumed bool

	// Answer recorded by fact collection for validation to process.
	field  string
	answer string

	// Field selected by re-question for fact collection to ask.
	pendingField string

	summaryText string
	structured  map[string]any
}

// Start creates a new session, assigns its extraction strategy and
// returns the opening prompt.
func (e *Engine) Start(ctx context.Context, channel string) (*TurnResult, error) {
	method := extract.MethodTranscript
	if e.assigner != nil {
		method = e.assigner.Assign()
	}

	state := session.NewState(uuid.NewString(), channel, string(method))
	state.BotMessage = e.intakeMessage(ctx, msgKeyGreeting, defaultGreeting)
	state.ExpectedInput = expectsNarrative

	if err := e.sessions.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	return resultOf(state, nil), nil
}

// Advance processes one user turn for an existing session.
func (e *Engine) Advance(ctx context.Context, sessionID, userMessage string) (*TurnResult, error) {
	state, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if state.Stage == session.StageCompleted {
		return resultOf(state, nil), nil
	}

	ctx = llm.ContextWithSession(ctx, sessionID)
	t := &turn{input: strings.TrimSpace(userMessage)}
	state.UserMessage = t.input
	e.run(ctx, state, t)

	if err := e.sessions.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("saving session %s: %w", sessionID, err)
	}
	return resultOf(state, t), nil
}

// Finalize forces the session through SUMMARY to COMPLETED and returns
// the summary.
func (e *Engine) Finalize(ctx context.Context, sessionID string) (*TurnResult, error) {
	state, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ctx = llm.ContextWithSession(ctx, sessionID)
	t := &turn{consumed: true}
	if state.Stage != session.StageCompleted {
		e.setStage(ctx, state, session.StageSummary)
		e.run(ctx, state, t)
		if err := e.sessions.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("saving session %s: %w", sessionID, err)
		}
	} else if e.summarizer != nil {
		text, structured, err := e.summarizer.Generate(ctx, state)
		if err == nil {
			t.summaryText, t.structured = text, structured
		}
	}
	return resultOf(state, t), nil
}

// run executes stages until one awaits user input or the session
// terminates. The depth ceiling converts a runaway cascade into a
// forced completion with an apology.
func (e *Engine) run(ctx context.Context, state *session.ConversationState, t *turn) {
	for depth := 0; ; depth++ {
		if depth >= e.maxDepth {
			log.Printf("intake: [%s] stage ceiling hit at %s, forcing completion", state.SessionID, state.Stage)
			e.setStage(ctx, state, session.StageCompleted)
			state.Status = session.StatusCompleted
			state.BotMessage = e.intakeMessage(ctx, msgKeyApology, defaultApology)
			state.ExpectedInput = ""
			return
		}

		var await bool
		switch state.Stage {
		case session.StageInit:
			await = e.handleInit(ctx, state, t)
		case session.StageCaseClassification:
			await = e.handleClassification(ctx, state, t)
		case session.StageFactCollection:
			await = e.handleFactCollection(ctx, state, t)
		case session.StageValidation:
			await = e.handleValidation(ctx, state, t)
		case session.StageReQuestion:
			await = e.handleReQuestion(ctx, state, t)
		case session.StageSummary:
			await = e.handleSummary(ctx, state, t)
		case session.StageCompleted:
			e.handleCompleted(ctx, state)
			return
		default:
			log.Printf("intake: [%s] unknown stage %q, forcing completion", state.SessionID, state.Stage)
			e.setStage(ctx, state, session.StageCompleted)
		}
		if await {
			return
		}
	}
}

// handleInit gates on a non-trivial first message and hands the
// narrative to classification.
func (e *Engine) handleInit(ctx context.Context, state *session.ConversationState, t *turn) bool {
	if len([]rune(t.input)) < 2 {
		state.BotMessage = e.intakeMessage(ctx, msgKeyGreeting, defaultGreeting)
		state.ExpectedInput = expectsNarrative
		return true
	}
	state.Narrative = t.input
	t.consumed = true
	e.setStage(ctx, state, session.StageCaseClassification)
	return false
}

// handleClassification decides the case type and seeds facts from the
// narrative, then always moves on to fact collection.
func (e *Engine) handleClassification(ctx context.Context, state *session.ConversationState, t *turn) bool {
	if state.Narrative == "" {
		state.BotMessage = rePromptMessage
		state.ExpectedInput = expectsNarrative
		return true
	}

	caseType, subCaseType := fallbackCaseType, fallbackSubCaseType
	if e.classifier != nil {
		caseType, subCaseType = e.classifier.Classify(ctx, state.Narrative)
	}
	state.CaseType = caseType
	state.SubCaseType = subCaseType
	log.Printf("intake: [%s] classified as %s/%s", state.SessionID, caseType, subCaseType)

	e.seedFromNarrative(ctx, state)
	e.setStage(ctx, state, session.StageFactCollection)
	return false
}

// seedFromNarrative runs the one-shot narrative analysis. Fields it
// resolves are marked skipped so they are never asked.
func (e *Engine) seedFromNarrative(ctx context.Context, state *session.ConversationState) {
	if e.analyzer == nil {
		return
	}
	required := e.requiredFields(ctx, state)
	res := e.analyzer.Analyze(ctx, state.Narrative, required)

	before := state.Facts
	extract.Merge(&state.Facts, res.Facts)
	for _, f := range extract.NewlyResolved(&before, &state.Facts) {
		state.MarkSkipped(f)
	}
	state.FactStatements = append(state.FactStatements, res.FactStatements...)
	state.Emotions = append(state.Emotions, res.Emotions...)
}

// handleFactCollection either asks the question re-question selected,
// records the user's answer to the pending question, or passes straight
// through to validation.
func (e *Engine) handleFactCollection(ctx context.Context, state *session.ConversationState, t *turn) bool {
	if t.pendingField != "" {
		field := t.pendingField
		t.pendingField = ""
		state.BotMessage = questionFor(ctx, e.retriever, field, state.CaseType, state.SubCaseType)
		state.ExpectedInput = field
		state.AskedCounts[field]++
		return true
	}

	if state.ExpectedInput != "" && state.ExpectedInput != expectsNarrative {
		if t.consumed || t.input == "" {
			// No new answer this turn. Ask again.
			state.BotMessage = questionFor(ctx, e.retriever, state.ExpectedInput, state.CaseType, state.SubCaseType)
			return true
		}
		t.field = state.ExpectedInput
		t.answer = t.input
		t.consumed = true
		state.RecordQA(t.field, state.BotMessage, t.answer)
		state.ExpectedInput = ""
	}

	e.setStage(ctx, state, session.StageValidation)
	return false
}

// handleValidation runs the session's extraction strategy over the
// turn, merges the result and recomputes completion.
func (e *Engine) handleValidation(ctx context.Context, state *session.ConversationState, t *turn) bool {
	if strat := e.strategies[extract.Method(state.ExtractionMethod)]; strat != nil && (t.field != "" || len(state.History) > 0) {
		got, err := strat.Extract(ctx, state, t.field, t.answer)
		if err != nil {
			log.Printf("intake: [%s] extraction failed: %v", state.SessionID, err)
		} else {
			before := state.Facts
			extract.Merge(&state.Facts, got)
			for _, f := range extract.NewlyResolved(&before, &state.Facts) {
				if state.AskedCounts[f] == 0 {
					state.MarkSkipped(f)
				}
			}
		}
	}
	t.field, t.answer = "", ""

	required := e.requiredFields(ctx, state)
	state.MissingFields = computeMissing(state.CaseType, required, &state.Facts)
	state.CompletionRate = completionRate(required, &state.Facts)

	if len(state.MissingFields) == 0 {
		e.setStage(ctx, state, session.StageSummary)
	} else {
		e.setStage(ctx, state, session.StageReQuestion)
	}
	return false
}

// handleReQuestion picks the next field to ask, or gives up and heads
// for summary once every missing field hit the ask ceiling.
func (e *Engine) handleReQuestion(ctx context.Context, state *session.ConversationState, t *turn) bool {
	field := selectNextField(state.MissingFields, state.AskedCounts, e.maxAsks)
	if field == "" {
		log.Printf("intake: [%s] giving up on %v after %d asks each", state.SessionID, state.MissingFields, e.maxAsks)
		for _, f := range state.MissingFields {
			state.MarkSkipped(f)
		}
		e.setStage(ctx, state, session.StageSummary)
		return false
	}
	t.pendingField = field
	e.setStage(ctx, state, session.StageFactCollection)
	return false
}

// handleSummary generates and stores the case summary.
func (e *Engine) handleSummary(ctx context.Context, state *session.ConversationState, t *turn) bool {
	if e.summarizer != nil {
		text, structured, err := e.summarizer.Generate(ctx, state)
		if err != nil {
			log.Printf("intake: [%s] summary generation failed: %v", state.SessionID, err)
		} else {
			t.summaryText = text
			t.structured = structured
		}
	}
	e.setStage(ctx, state, session.StageCompleted)
	return false
}

// handleCompleted closes the session with the terminal message.
func (e *Engine) handleCompleted(ctx context.Context, state *session.ConversationState) {
	state.Status = session.StatusCompleted
	state.BotMessage = e.intakeMessage(ctx, msgKeyClosing, defaultClosing)
	state.ExpectedInput = ""
}

// requiredFields looks up K2 required fields, falling back to the
// static per-case-type table.
func (e *Engine) requiredFields(ctx context.Context, state *session.ConversationState) []string {
	if e.retriever != nil {
		if fields := e.retriever.RequiredFields(ctx, state.CaseType, state.SubCaseType); len(fields) > 0 {
			return fields
		}
	}
	return requiredFieldsFor(state.CaseType)
}

// intakeMessage resolves a K0 message by key with a hardcoded default.
func (e *Engine) intakeMessage(ctx context.Context, key, fallback string) string {
	if e.retriever != nil {
		if msg := e.retriever.IntakeMessage(ctx, key); msg != "" {
			return msg
		}
	}
	return fallback
}

func (e *Engine) setStage(ctx context.Context, state *session.ConversationState, to session.Stage) {
	if e.plog != nil && state.Stage != to {
		e.plog.StageTransition(ctx, state.SessionID, state.Stage, to)
	}
	state.Stage = to
}

func resultOf(state *session.ConversationState, t *turn) *TurnResult {
	res := &TurnResult{
		SessionID:      state.SessionID,
		Stage:          state.Stage,
		BotMessage:     state.BotMessage,
		ExpectedInput:  state.ExpectedInput,
		CompletionRate: state.CompletionRate,
		History:        state.History,
	}
	if t != nil {
		res.SummaryText = t.summaryText
		res.Structured = t.structured
	}
	return res
}
