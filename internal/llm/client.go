package llm

import (
	"context"
	"fmt"

	"github.com/okidwi/chathub/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client implements Completer on top of langchaingo.
type Client struct {
	llm      llms.Model
	provider config.Provider
}

// Compile-time check that Client implements Completer.
var _ Completer = (*Client)(nil)

// NewClient creates a completion client based on configuration.
// Ollama is the primary backend; OpenAI and Anthropic are selectable for
// deployments without a local model server.
func NewClient(cfg config.Config) (*Client, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.ChatModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.ChatModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.ChatModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	return &Client{llm: model, provider: cfg.Provider}, nil
}

// Provider returns the configured backend provider.
func (c *Client) Provider() config.Provider {
	return c.provider
}

// Complete sends the message context to the backend and returns the
// assistant reply text.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, opts Options) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(chatMessageType(msg.Role), msg.Content))
	}

	response, err := c.llm.GenerateContent(ctx, content,
		llms.WithModel(model),
		llms.WithTemperature(opts.Temperature),
	)
	if err != nil {
		return "", classify(err)
	}

	if len(response.Choices) == 0 {
		return "", &BackendError{Detail: "no response choices"}
	}

	return response.Choices[0].Content, nil
}

func chatMessageType(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
