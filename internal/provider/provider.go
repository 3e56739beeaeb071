// Package provider talks to chat-completion backends: OpenAI-compatible
// servers (OpenAI, Ollama, vLLM), Anthropic and Google.
package provider

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type StreamChunk struct {
	Delta    string
	Thinking string // reasoning emitted inside <think> blocks
	Done     bool
	Error    error
	Usage    *Usage
}

// Options bounds generation. Zero values leave the backend default.
type Options struct {
	MaxTokens int
	// Temperature is sent only when Deterministic is false.
	Temperature float64
	// Deterministic pins temperature to 0 and sends a fixed seed where the
	// backend supports one.
	Deterministic bool
}

// Seed used for deterministic generation.
const Seed = 42

type Provider interface {
	Chat(ctx context.Context, msgs []Message) (<-chan StreamChunk, error)
	Name() string
	ModelName() string
	Models(ctx context.Context) ([]string, error)
}

// Factory builds a provider bound to one credential.
type Factory func(apiKey string) Provider
