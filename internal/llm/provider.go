// Package llm is the generation client: it sends a system/user message pair
// with a required output schema to a language model and returns the
// validated structured result.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate runs one completion constrained to req.Schema and returns the raw JSON output
	Generate(ctx context.Context, req Request) (*Response, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Request contains the input for one generation call
type Request struct {
	// System is the instruction preamble
	System string

	// User is the rendered context plus question
	User string

	// Schema is the required output shape
	Schema *Schema

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature overrides the configured sampling temperature when positive
	Temperature float32
}

// Response contains the provider's raw structured output
type Response struct {
	// Content is the JSON document produced by the model
	Content string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Timeout:     60,
		MaxTokens:   1000,
		Temperature: 0.2,
	}
}

// resolve fills per-request values from the provider configuration
func (c Config) resolve(req Request, defaultModel string) (modelName string, maxTokens int, temperature float32) {
	modelName = req.Model
	if modelName == "" {
		modelName = c.Model
	}
	if modelName == "" {
		modelName = defaultModel
	}

	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1000
	}

	temperature = req.Temperature
	if temperature <= 0 {
		temperature = c.Temperature
	}
	return modelName, maxTokens, temperature
}

// VerifyCitations checks that every cited source, and every URL quoted in the
// answer text, is one of the allowed context URLs
func VerifyCitations(resp *model.ChatResponse, allowed []string) error {
	cited := append([]string(nil), resp.Sources...)
	cited = append(cited, extractURLs(resp.Answer)...)

	for _, citedURL := range cited {
		if !contains(allowed, citedURL) {
			return fmt.Errorf("%w: %s", model.ErrSourceNotInContext, citedURL)
		}
	}
	return nil
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)]+`)

// extractURLs extracts all URLs from text using regex
func extractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	// Deduplicate
	seen := make(map[string]bool)
	var unique []string
	for _, url := range matches {
		// Clean up trailing punctuation
		url = strings.TrimRight(url, ".,;:!?")
		if !seen[url] {
			seen[url] = true
			unique = append(unique, url)
		}
	}

	return unique
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
