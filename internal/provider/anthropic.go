package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const anthropicBaseURL = "https://api.anthropic.com/v1"

type AnthropicProvider struct {
	baseURL string
	apiKey  string
	model   string
	opts    Options
	client  *http.Client
}

// NewAnthropic returns a Messages API client. An empty baseURL targets the
// public endpoint.
func NewAnthropic(baseURL, apiKey, model string, opts Options) *AnthropicProvider {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &AnthropicProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		opts:    opts,
		client:  &http.Client{},
	}
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

func (a *AnthropicProvider) ModelName() string { return a.model }

func (a *AnthropicProvider) Models(_ context.Context) ([]string, error) {
	return []string{
		"claude-3-5-haiku-latest",
		"claude-3-5-sonnet-latest",
		"claude-3-opus-latest",
	}, nil
}

type anthropicRequest struct {
	Model       string         `json:"model"`
	MaxTokens   int            `json:"max_tokens"`
	System      string         `json:"system,omitempty"`
	Messages    []anthropicMsg `json:"messages"`
	Stream      bool           `json:"stream"`
	Temperature *float64       `json:"temperature,omitempty"`
}

type anthropicMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *AnthropicProvider) Chat(ctx context.Context, msgs []Message) (<-chan StreamChunk, error) {
	body := anthropicRequest{Model: a.model, MaxTokens: a.opts.MaxTokens, Stream: true}
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if body.System != "" {
				body.System += "\n\n"
			}
			body.System += m.Content
			continue
		}
		body.Messages = append(body.Messages, anthropicMsg{Role: string(m.Role), Content: m.Content})
	}
	if a.opts.Deterministic {
		zero := 0.0
		body.Temperature = &zero
	} else if a.opts.Temperature > 0 {
		t := a.opts.Temperature
		body.Temperature = &t
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %s", friendlyProviderError(err))
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic: %s", parseProviderError("anthropic", resp.StatusCode, b))
	}

	ch := make(chan StreamChunk, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		send := sender(ctx, ch)

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var evt anthropicEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
				continue
			}
			switch evt.Type {
			case "content_block_delta":
				switch evt.Delta.Type {
				case "text_delta":
					send(StreamChunk{Delta: evt.Delta.Text})
				case "thinking_delta":
					send(StreamChunk{Thinking: evt.Delta.Thinking})
				}
			case "error":
				msg := "stream error"
				if evt.Error != nil {
					msg = evt.Error.Message
				}
				send(StreamChunk{Error: fmt.Errorf("anthropic: %s", msg), Done: true})
				return
			case "message_stop":
				send(StreamChunk{Done: true})
				return
			}
		}
		if err := scanner.Err(); err != nil {
			send(StreamChunk{Error: err, Done: true})
		}
	}()
	return ch, nil
}
