package agent

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Client is the language-model capability the conversation engine depends
// on. It may fail; callers own their fallback behavior.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config carries the model parameters explicitly instead of reading process
// state at call time.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIClient calls the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	cfg    Config
}

// NewOpenAIClient constructs an OpenAI-backed client. Low temperature and a
// short token budget keep the clinical questions consistent and terse.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-4"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	return &OpenAIClient{client: openai.NewClient(cfg.APIKey), cfg: cfg}
}

func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: strings.TrimSpace(systemPrompt)},
			{Role: openai.ChatMessageRoleUser, Content: strings.TrimSpace(userPrompt)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
