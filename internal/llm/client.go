package llm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/logging"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

// Client is the generation client. Each Ask issues exactly one provider call;
// any failure, including output that does not satisfy the schema, is
// returned as a *model.GenerationError and out is left untouched.
type Client struct {
	provider Provider
	config   Config
	log      *slog.Logger

	mu     sync.RWMutex
	system string
}

// NewClient wraps a provider
func NewClient(provider Provider, config Config, log *slog.Logger) *Client {
	return &Client{
		provider: provider,
		config:   config,
		log:      logging.OrDiscard(log).With("component", "llm", "provider", provider.Name()),
	}
}

// SetSystemMessage sets the instructions sent with every request
func (c *Client) SetSystemMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system = msg
}

// SystemMessage returns the current instructions
func (c *Client) SystemMessage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.system
}

// ProviderName returns the name of the underlying provider
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// IsAvailable reports whether the provider answers
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c.provider.IsAvailable(ctx)
}

// Ask sends user with the current system message and decodes the structured
// reply into out, which must be a pointer matching schema
func (c *Client) Ask(ctx context.Context, user string, schema *Schema, out any) error {
	start := time.Now()

	resp, err := c.provider.Generate(ctx, Request{
		System:      c.SystemMessage(),
		User:        user,
		Schema:      schema,
		Model:       c.config.Model,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return &model.GenerationError{Provider: c.provider.Name(), Err: err}
	}

	if err := schema.Decode([]byte(resp.Content), out); err != nil {
		c.log.Debug("rejected structured output", "content", resp.Content)
		return &model.GenerationError{Provider: c.provider.Name(), Err: err}
	}

	c.log.Debug("generation complete",
		"model", resp.Model,
		"tokens", resp.TokensUsed,
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// AskChat is Ask with the chat answer schema
func (c *Client) AskChat(ctx context.Context, user string) (*model.ChatResponse, error) {
	var resp model.ChatResponse
	if err := c.Ask(ctx, user, AnswerSchema, &resp); err != nil {
		return nil, err
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	return &resp, nil
}
