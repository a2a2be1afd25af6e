package categorize

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultClassifierTimeout = 30 * time.Second
	classifierMaxTokens      = 100
	classifierTemperature    = 0.2
)

// OpenAIClassifier asks a chat-completion model to categorize a commit.
type OpenAIClassifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClassifier creates a classifier. An empty baseURL uses the public API.
func NewOpenAIClassifier(apiKey, model, baseURL string) *OpenAIClassifier {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClassifier{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: defaultClassifierTimeout,
	}
}

// WithTimeout overrides the per-request timeout.
func (o *OpenAIClassifier) WithTimeout(d time.Duration) *OpenAIClassifier {
	if d > 0 {
		o.timeout = d
	}
	return o
}

// Classify sends the prompt and returns the first choice's text.
func (o *OpenAIClassifier) Classify(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You label git commits. Answer with a single line in the requested format.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt.String(),
			},
		},
		Temperature: classifierTemperature,
		MaxTokens:   classifierMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
