package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/hazuki-io/threadrelay/llm"
)

type Options struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

type Client struct {
	api *goopenai.Client
}

func New(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(strings.TrimRight(opts.BaseURL, "/")); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	} else if opts.RequestTimeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.RequestTimeout}
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg)}, nil
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	if c == nil || c.api == nil {
		return llm.Result{}, fmt.Errorf("openai client is not initialized")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return llm.Result{}, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return llm.Result{}, fmt.Errorf("at least one message is required")
	}
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    toOpenAIRole(msg.Role),
			Content: msg.Content,
		})
	}
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return llm.Result{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Result{}, fmt.Errorf("openai chat completion returned no choices")
	}
	return llm.Result{Text: strings.TrimSpace(resp.Choices[0].Message.Content)}, nil
}

func toOpenAIRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case llm.RoleSystem:
		return goopenai.ChatMessageRoleSystem
	case llm.RoleAssistant:
		return goopenai.ChatMessageRoleAssistant
	default:
		return goopenai.ChatMessageRoleUser
	}
}
