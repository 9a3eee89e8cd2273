package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Errs     []error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- Tests ---

func TestMockProviderRecordsCalls(t *testing.T) {
	mock := NewMockProvider("test")
	ctx := context.Background()

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	resp, err := mock.Complete(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}

	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &APIError{Kind: KindRateLimit, Err: errors.New("429")}, true},
		{"connectivity", &APIError{Kind: KindConnectivity, Err: errors.New("503")}, true},
		{"malformed", &APIError{Kind: KindMalformed, Err: errors.New("400")}, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"unclassified", errors.New("boom"), true},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("%s: Retryable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	mock := NewMockProvider("test")
	mock.Errs = []error{
		&APIError{Kind: KindRateLimit, Err: errors.New("429")},
		&APIError{Kind: KindConnectivity, Err: errors.New("503")},
		nil,
	}

	r := WithRetry(mock, 3).(*RetryProvider)
	r.baseDelay = time.Millisecond

	resp, err := r.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected cached content, got %q", resp.Content)
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRetryStopsOnMalformed(t *testing.T) {
	mock := NewMockProvider("test")
	mock.Errs = []error{&APIError{Kind: KindMalformed, Err: errors.New("bad request")}}

	r := WithRetry(mock, 3).(*RetryProvider)
	r.baseDelay = time.Millisecond

	_, err := r.Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call for fatal error, got %d", mock.CallCount())
	}
}

func TestRetryExhausts(t *testing.T) {
	mock := NewMockProvider("test")
	mock.Errs = []error{
		&APIError{Kind: KindRateLimit, Err: errors.New("429")},
		&APIError{Kind: KindRateLimit, Err: errors.New("429")},
		&APIError{Kind: KindRateLimit, Err: errors.New("429")},
	}

	r := WithRetry(mock, 2).(*RetryProvider)
	r.baseDelay = time.Millisecond

	_, err := r.Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls (1 + 2 retries), got %d", mock.CallCount())
	}
}

func TestCacheServesSecondCall(t *testing.T) {
	mock := NewMockProvider("test")
	c := WithCache(mock, time.Hour)

	req := CompletionRequest{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 upstream call, got %d", mock.CallCount())
	}

	// A different prompt misses the cache.
	req.Messages[0].Content = "goodbye"
	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("expected 2 upstream calls, got %d", mock.CallCount())
	}
}

func TestCacheExpiry(t *testing.T) {
	mock := NewMockProvider("test")
	c := WithCache(mock, time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }

	req := CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Advance past the TTL.
	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("expected expired entry to miss, got %d upstream calls", mock.CallCount())
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider("test")
	rl := WithRateLimit(mock, 60)

	resp, err := rl.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if rl.Name() != "test" {
		t.Errorf("expected name 'test', got %q", rl.Name())
	}
}

func TestRateLimiterLimitsRequests(t *testing.T) {
	mock := NewMockProvider("test")
	// Allow only 2 requests per minute.
	rl := WithRateLimit(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	for i := 0; i < 2; i++ {
		if _, err := rl.Complete(ctx, CompletionRequest{}); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	// Third should block and eventually fail due to context timeout.
	if _, err := rl.Complete(ctx, CompletionRequest{}); err == nil {
		t.Error("expected error due to rate limiting + context timeout")
	}
}

func TestParseJSONObject(t *testing.T) {
	type out struct {
		CaseType string `json:"case_type"`
	}

	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `{"case_type":"CIVIL"}`, "CIVIL", false},
		{"fenced", "```json\n{\"case_type\":\"CRIMINAL\"}\n```", "CRIMINAL", false},
		{"bare fence", "```\n{\"case_type\":\"CIVIL\"}\n```", "CIVIL", false},
		{"prose around", `Here you go: {"case_type":"CIVIL"} hope that helps`, "CIVIL", false},
		{"no json", "I cannot answer that", "", true},
		{"truncated", `{"case_type":"CIV`, "", true},
	}

	for _, tt := range tests {
		var v out
		err := ParseJSONObject(tt.content, &v)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if v.CaseType != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, v.CaseType, tt.want)
		}
	}
}

func TestEstimateCost(t *testing.T) {
	// gpt-4o: $2.50/1M input, $10/1M output.
	cost := EstimateCost("gpt-4o", 1_000_000, 1_000_000)
	expected := 12.5
	if cost < expected-0.01 || cost > expected+0.01 {
		t.Errorf("expected cost ~$%.2f, got $%.2f", expected, cost)
	}

	if c := EstimateCost("unknown-model", 1000, 500); c != 0 {
		t.Errorf("expected 0 for unknown model, got %f", c)
	}
}

func TestCostTrackerAccumulates(t *testing.T) {
	tr := NewCostTracker()
	tr.Record("s1", "gpt-4o", 1000, 500)
	tr.Record("s1", "gpt-4o", 2000, 1000)
	tr.Record("s2", "gpt-4o", 100, 50)

	u := tr.SessionUsage("s1")
	if u.Calls != 2 {
		t.Errorf("expected 2 calls, got %d", u.Calls)
	}
	if u.InputTokens != 3000 || u.OutputTokens != 1500 {
		t.Errorf("unexpected totals: %+v", u)
	}
	if u.CostUSD <= 0 {
		t.Errorf("expected positive cost, got %f", u.CostUSD)
	}

	if other := tr.SessionUsage("s2"); other.Calls != 1 {
		t.Errorf("expected isolated session usage, got %+v", other)
	}

	if empty := tr.SessionUsage("missing"); empty.Calls != 0 {
		t.Errorf("expected zero usage for unknown session, got %+v", empty)
	}
}

func TestWithUsageReportsSuccessfulCalls(t *testing.T) {
	mock := NewMockProvider("base")
	ctx := ContextWithSession(context.Background(), "sess-1")

	type report struct {
		session string
		model   string
		in, out int
	}
	var reports []report
	provider := WithUsage(mock, func(ctx context.Context, model string, in, out int, duration time.Duration) {
		reports = append(reports, report{SessionFromContext(ctx), model, in, out})
	})

	if _, err := provider.Complete(ctx, CompletionRequest{Model: "gpt-4o"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.Errs = []error{&APIError{Kind: KindConnectivity, Err: errors.New("down")}}
	if _, err := provider.Complete(ctx, CompletionRequest{Model: "gpt-4o"}); err == nil {
		t.Fatal("expected error from failing call")
	}

	if len(reports) != 1 {
		t.Fatalf("expected 1 report (failures excluded), got %d", len(reports))
	}
	r := reports[0]
	if r.session != "sess-1" || r.model != "mock-model" || r.in != 10 || r.out != 20 {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestSessionFromContextDefault(t *testing.T) {
	if got := SessionFromContext(context.Background()); got != "" {
		t.Errorf("expected empty session, got %q", got)
	}
}
