package digest

import (
	"context"
	"errors"
	"testing"
)

// mockBackend replays a scripted sequence of responses, one per attempt.
type mockBackend struct {
	structured bool
	script     []mockAttempt
	calls      int
}

type mockAttempt struct {
	out *RawOutput
	err error
}

func (m *mockBackend) Name() string     { return "mock" }
func (m *mockBackend) Structured() bool { return m.structured }

func (m *mockBackend) Generate(ctx context.Context, req GenerateRequest) (*RawOutput, error) {
	if m.calls >= len(m.script) {
		return nil, transportErr(false, errors.New("script exhausted"))
	}
	attempt := m.script[m.calls]
	m.calls++
	return attempt.out, attempt.err
}

func goodResponse() *RawOutput {
	return &RawOutput{
		Text:       `{"Tech": [{"ref": "1", "title": "Pick", "summary": "A solid summary."}]}`,
		Structured: true,
		Model:      "mock-model",
	}
}

func TestGeneratorSuccessFirstAttempt(t *testing.T) {
	backend := &mockBackend{structured: true, script: []mockAttempt{{out: goodResponse()}}}
	gen := NewGenerator(backend, DefaultGeneratorOptions())

	result, err := gen.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Attempts != 1 || backend.calls != 1 {
		t.Errorf("expected a single attempt, got %d (calls %d)", result.Attempts, backend.calls)
	}
	if len(result.Digest.Sections) != 1 || result.Digest.Sections[0].Category != "Tech" {
		t.Errorf("unexpected digest: %+v", result.Digest.Sections)
	}
	if result.Digest.Model != "mock-model" {
		t.Errorf("model not carried from backend: %q", result.Digest.Model)
	}
}

func TestGeneratorRetriesThenSucceeds(t *testing.T) {
	backend := &mockBackend{structured: true, script: []mockAttempt{
		{err: timeoutErr(errors.New("deadline"))},
		{out: &RawOutput{Text: "not even json", Structured: true}},
		{out: goodResponse()},
	}}
	gen := NewGenerator(backend, DefaultGeneratorOptions())

	result, err := gen.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Attempts != 3 || backend.calls != 3 {
		t.Errorf("expected 3 attempts, got %d (calls %d)", result.Attempts, backend.calls)
	}
}

func TestGeneratorExhaustsAttempts(t *testing.T) {
	backend := &mockBackend{structured: true, script: []mockAttempt{
		{out: &RawOutput{Text: "garbage", Structured: true}},
		{out: &RawOutput{Text: "garbage", Structured: true}},
		{out: &RawOutput{Text: "garbage", Structured: true}},
	}}
	opts := DefaultGeneratorOptions()
	opts.MaxAttempts = 3
	gen := NewGenerator(backend, opts)

	_, err := gen.Generate(context.Background(), testRequest())
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if backend.calls != 3 {
		t.Errorf("expected exactly 3 backend calls, got %d", backend.calls)
	}
	var gerr *GenerationError
	if !errors.As(err, &gerr) || gerr.Attempts != 3 {
		t.Errorf("expected *GenerationError with 3 attempts, got %v", err)
	}
}

func TestGeneratorAuthFailureAborts(t *testing.T) {
	backend := &mockBackend{structured: true, script: []mockAttempt{
		{err: transportErr(true, errors.New("401 unauthorized"))},
		{out: goodResponse()},
	}}
	gen := NewGenerator(backend, DefaultGeneratorOptions())

	_, err := gen.Generate(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrGenerationFailed) {
		t.Error("auth failures must not report as exhausted retries")
	}
	if backend.calls != 1 {
		t.Errorf("auth failure must abort after 1 call, got %d", backend.calls)
	}
}

func TestGeneratorDropsUnresolvableEntries(t *testing.T) {
	backend := &mockBackend{structured: true, script: []mockAttempt{
		{out: &RawOutput{
			Text:       `{"Tech": [{"ref": "1", "summary": "keep"}, {"ref": "99", "summary": "drop"}]}`,
			Structured: true,
		}},
	}}
	gen := NewGenerator(backend, DefaultGeneratorOptions())

	result, err := gen.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unresolvable entries must not fail the run: %v", err)
	}
	if len(result.Diagnostics) != 1 {
		t.Errorf("expected 1 diagnostic, got %v", result.Diagnostics)
	}
	if len(result.Digest.Sections[0].Items) != 1 {
		t.Errorf("expected the valid entry to survive: %+v", result.Digest.Sections[0].Items)
	}
}

func TestGeneratorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &mockBackend{structured: true, script: []mockAttempt{{out: goodResponse()}}}
	gen := NewGenerator(backend, DefaultGeneratorOptions())

	if _, err := gen.Generate(ctx, testRequest()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
