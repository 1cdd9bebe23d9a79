package llm

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *Response
	err       error

	calls   int
	lastReq Request
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func TestClient_AskChat_Success(t *testing.T) {
	mock := &MockProvider{
		name:     "test-provider",
		response: &Response{Content: `{"answer": "Proxies relay traffic.", "sources": ["https://x/a"]}`, Model: "m"},
	}
	client := NewClient(mock, Config{Model: "test-model", MaxTokens: 200, Temperature: 0.1}, nil)
	client.SetSystemMessage("be grounded")

	resp, err := client.AskChat(context.Background(), "### User Question\nq\n")
	if err != nil {
		t.Fatalf("AskChat failed: %v", err)
	}

	if resp.Answer != "Proxies relay traffic." || !reflect.DeepEqual(resp.Sources, []string{"https://x/a"}) {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if mock.calls != 1 {
		t.Errorf("Expected exactly one provider call, got %d", mock.calls)
	}
	if mock.lastReq.System != "be grounded" || mock.lastReq.Schema != AnswerSchema {
		t.Errorf("Unexpected request: %+v", mock.lastReq)
	}
	if mock.lastReq.Model != "test-model" || mock.lastReq.MaxTokens != 200 {
		t.Errorf("Expected configured model and max tokens, got %+v", mock.lastReq)
	}
}

func TestClient_AskChat_EmptySourcesNotNil(t *testing.T) {
	mock := &MockProvider{name: "p", response: &Response{Content: `{"answer": "I cannot provide an answer to your query.", "sources": []}`}}

	resp, err := NewClient(mock, Config{}, nil).AskChat(context.Background(), "q")
	if err != nil {
		t.Fatalf("AskChat failed: %v", err)
	}
	if resp.Sources == nil {
		t.Error("Expected empty, non-nil sources")
	}
}

func TestClient_Ask_ProviderError(t *testing.T) {
	mock := &MockProvider{name: "test-provider", err: &mockError{msg: "API rate limit exceeded"}}
	client := NewClient(mock, Config{}, nil)

	_, err := client.AskChat(context.Background(), "q")

	var genErr *model.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected GenerationError, got %v", err)
	}
	if genErr.Provider != "test-provider" {
		t.Errorf("Expected provider name in error, got %q", genErr.Provider)
	}
	if !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("Expected cause in message, got %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("Expected no retry, got %d calls", mock.calls)
	}
}

func TestClient_Ask_SchemaViolation(t *testing.T) {
	outputs := []string{
		`{"answer": "", "sources": []}`,
		`{"answer": "partial"}`,
		`not json at all`,
	}

	for _, out := range outputs {
		mock := &MockProvider{name: "p", response: &Response{Content: out}}
		_, err := NewClient(mock, Config{}, nil).AskChat(context.Background(), "q")

		var genErr *model.GenerationError
		if !errors.As(err, &genErr) {
			t.Errorf("output %q: expected GenerationError, got %v", out, err)
			continue
		}
		if !errors.Is(err, model.ErrSchemaViolation) {
			t.Errorf("output %q: expected schema violation cause, got %v", out, err)
		}
	}
}

func TestClient_SystemMessage(t *testing.T) {
	client := NewClient(&MockProvider{name: "p", available: true}, Config{}, nil)

	if client.SystemMessage() != "" {
		t.Error("Expected empty system message before configuration")
	}
	client.SetSystemMessage("rules")
	if client.SystemMessage() != "rules" {
		t.Errorf("Unexpected system message %q", client.SystemMessage())
	}
	if client.ProviderName() != "p" || !client.IsAvailable(context.Background()) {
		t.Error("Expected provider passthrough")
	}
}

func TestVerifyCitations(t *testing.T) {
	allowed := []string{"https://x/a", "https://x/b"}

	tests := []struct {
		name    string
		resp    model.ChatResponse
		wantErr bool
	}{
		{name: "all allowed", resp: model.ChatResponse{Answer: "See (https://x/a).", Sources: []string{"https://x/b"}}},
		{name: "no citations", resp: model.ChatResponse{Answer: "I cannot provide an answer to your query.", Sources: []string{}}},
		{name: "foreign source", resp: model.ChatResponse{Answer: "ok", Sources: []string{"https://evil.example"}}, wantErr: true},
		{name: "foreign URL in answer", resp: model.ChatResponse{Answer: "See https://other.example/page.", Sources: nil}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyCitations(&tt.resp, allowed)
			if tt.wantErr && !errors.Is(err, model.ErrSourceNotInContext) {
				t.Fatalf("Expected ErrSourceNotInContext, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{name: "openai", config: Config{Provider: "openai", APIKey: "k"}, wantName: "openai"},
		{name: "anthropic", config: Config{Provider: "anthropic", APIKey: "k"}, wantName: "anthropic"},
		{name: "claude alias", config: Config{Provider: "Claude", APIKey: "k"}, wantName: "anthropic"},
		{name: "ollama", config: Config{Provider: "ollama"}, wantName: "ollama"},
		{name: "openai without key", config: Config{Provider: "openai"}, wantErr: true},
		{name: "unknown", config: Config{Provider: "bard"}, wantErr: true},
		{name: "empty", config: Config{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider failed: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{
		Provider:    "ollama",
		Model:       "llama3.1:8b",
		Timeout:     90,
		MaxTokens:   500,
		Temperature: 0.4,
		NoProxy:     "localhost",
	})

	if cfg.Provider != "ollama" || cfg.Model != "llama3.1:8b" || cfg.Timeout != 90 || cfg.MaxTokens != 500 || cfg.Temperature != 0.4 || cfg.NoProxy != "localhost" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "openai" || cfg.Timeout != 60 || cfg.MaxTokens != 1000 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

// Mock error type for testing
type mockError struct {
	msg string
}

func (e *mockError) Error() string {
	return e.msg
}
