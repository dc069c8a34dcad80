package surrogate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultPromptTemplate is used when no template is configured.
const DefaultPromptTemplate = "Process {inputs} and generate output"

// MockLLM imitates a language-model call. It renders a prompt from its
// template, optionally appends it to a log file and returns a canned
// response sized by the inputs.
type MockLLM struct {
	template string
	logPath  string
	model    string
	now      func() time.Time
}

// MockLLMOption configures a MockLLM.
type MockLLMOption func(*MockLLM)

// WithPromptTemplate sets the template; "{inputs}" is replaced by the
// indented JSON of the inputs.
func WithPromptTemplate(template string) MockLLMOption {
	return func(m *MockLLM) {
		if template != "" {
			m.template = template
		}
	}
}

// WithPromptLog appends every rendered prompt to path.
func WithPromptLog(path string) MockLLMOption {
	return func(m *MockLLM) {
		m.logPath = path
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MockLLMOption {
	return func(m *MockLLM) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMockLLM builds a MockLLM.
func NewMockLLM(opts ...MockLLMOption) *MockLLM {
	m := &MockLLM{
		template: DefaultPromptTemplate,
		model:    "mock-gpt-4",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Prompt renders the template for inputs.
func (m *MockLLM) Prompt(inputs map[string]any) (string, error) {
	data, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding surrogate inputs: %w", err)
	}
	return strings.ReplaceAll(m.template, "{inputs}", string(data)), nil
}

// Run implements Surrogate.
func (m *MockLLM) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompt, err := m.Prompt(inputs)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	if err := m.logPrompt(now, prompt); err != nil {
		return nil, err
	}

	compact, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("encoding surrogate inputs: %w", err)
	}
	return map[string]any{
		"response":       fmt.Sprintf("<mock-llm-response-for-%d-inputs>", len(inputs)),
		"prompt_logged":  m.logPath != "",
		"execution_time": now.Format(time.RFC3339),
		"model":          m.model,
		"tokens_used":    len(compact) * 2,
	}, nil
}

func (m *MockLLM) logPrompt(at time.Time, prompt string) error {
	if m.logPath == "" {
		return nil
	}
	f, err := os.OpenFile(m.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening prompt log: %w", err)
	}
	// One write per prompt; O_APPEND keeps concurrent runs from interleaving.
	if _, err := fmt.Fprintf(f, "[%s] MockLLM Prompt:\n%s\n\n", at.Format(time.RFC3339), prompt); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing prompt log: %w", err)
	}
	return f.Close()
}

// Info implements Surrogate.
func (m *MockLLM) Info() Info {
	return Info{Type: "MockLLMSurrogate", Description: "Simulates an LLM call and logs its prompt"}
}
