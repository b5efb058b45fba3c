package llm

import "context"

// Message is a single role-tagged chat message sent to a completion provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model    string
	Messages []Message
}

type Result struct {
	Text string
}

// Client is implemented by completion providers (see providers/openai).
type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
