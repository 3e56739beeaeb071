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

const googleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GoogleProvider struct {
	baseURL string
	apiKey  string
	model   string
	opts    Options
	client  *http.Client
}

func NewGoogle(baseURL, apiKey, model string, opts Options) *GoogleProvider {
	if baseURL == "" {
		baseURL = googleBaseURL
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GoogleProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		opts:    opts,
		client:  &http.Client{},
	}
}

func (g *GoogleProvider) Name() string { return "google" }

func (g *GoogleProvider) ModelName() string { return g.model }

func (g *GoogleProvider) Models(_ context.Context) ([]string, error) {
	return []string{
		"gemini-2.0-flash",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	}, nil
}

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	Seed            *int     `json:"seed,omitempty"`
}

func (g *GoogleProvider) Chat(ctx context.Context, msgs []Message) (<-chan StreamChunk, error) {
	var body geminiRequest
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case RoleUser:
			body.Contents = append(body.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		case RoleAssistant:
			body.Contents = append(body.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	gc := &geminiGenConfig{MaxOutputTokens: g.opts.MaxTokens}
	if g.opts.Deterministic {
		zero, seed := 0.0, Seed
		gc.Temperature, gc.Seed = &zero, &seed
	} else if g.opts.Temperature > 0 {
		t := g.opts.Temperature
		gc.Temperature = &t
	}
	body.GenerationConfig = gc

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	// Use header for API key instead of URL parameter
	apiURL := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google API error: %s", friendlyProviderError(err))
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("google returned %d: %s", resp.StatusCode, parseProviderError("google", resp.StatusCode, b))
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
			var sse struct {
				Candidates []struct {
					Content      geminiContent `json:"content"`
					FinishReason string        `json:"finishReason"`
				} `json:"candidates"`
			}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &sse); err != nil {
				continue
			}
			if len(sse.Candidates) == 0 {
				continue
			}
			cand := sse.Candidates[0]
			for _, part := range cand.Content.Parts {
				if part.Text != "" {
					send(StreamChunk{Delta: part.Text})
				}
			}
			if cand.FinishReason != "" {
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
