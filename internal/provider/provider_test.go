package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sse writes each payload as a server-sent event line.
func sse(w http.ResponseWriter, payloads ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, p := range payloads {
		fmt.Fprintf(w, "data: %s\n\n", p)
	}
}

func oaiDelta(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]any{"content": content}}},
	})
	return string(b)
}

func TestOpenAI_CollectStream(t *testing.T) {
	var got oaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		sse(w, oaiDelta("Pa"), oaiDelta("ris"), "[DONE]")
	}))
	defer server.Close()

	p := NewOpenAI("cloud", server.URL, "key-1", "gpt-4o-mini", Options{MaxTokens: 256, Deterministic: true})
	text, err := Collect(context.Background(), p, Prompt("capital of France"))
	require.NoError(t, err)
	assert.Equal(t, "Paris", text)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.0, *got.Temperature)
	require.NotNil(t, got.Seed)
	assert.Equal(t, Seed, *got.Seed)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
}

func TestOpenAI_StripsThinking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sse(w, oaiDelta("<thi"), oaiDelta("nk>pondering</th"), oaiDelta("ink>Answer"), `{"choices":[{"delta":{},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	p := NewOpenAI("ollama", server.URL, "", "qwen", Options{})
	text, err := Collect(context.Background(), p, Prompt("q"))
	require.NoError(t, err)
	assert.Equal(t, "Answer", text)
}

func TestOpenAI_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	p := NewOpenAI("cloud", server.URL, "bad", "m", Options{})
	_, err := Collect(context.Background(), p, Prompt("q"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key")
	assert.Contains(t, err.Error(), "401")
}

func TestOpenAI_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := NewOpenAI("cloud", server.URL, "k", "m", Options{})
	_, err := Collect(ctx, p, Prompt("q"))
	require.Error(t, err)
}

func TestOpenAI_Models(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"data":[{"id":"llama3.2"},{"id":"qwen2.5"}]}`))
	}))
	defer server.Close()

	models, err := NewOpenAI("ollama", server.URL, "", "", Options{}).Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2", "qwen2.5"}, models)
}

func TestAnthropic_CollectStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))

		var req anthropicRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "be brief", req.System)
		assert.Len(t, req.Messages, 1)

		sse(w,
			`{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}`,
			`{"type":"content_block_delta","delta":{"type":"text_delta","text":" there"}}`,
			`{"type":"message_stop"}`,
		)
	}))
	defer server.Close()

	p := NewAnthropic(server.URL, "sk-ant", "", Options{})
	msgs := []Message{{Role: RoleSystem, Content: "be brief"}, {Role: RoleUser, Content: "hi"}}
	text, err := Collect(context.Background(), p, msgs)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)
}

func TestGoogle_CollectStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		sse(w,
			`{"candidates":[{"content":{"parts":[{"text":"Bon"}]}}]}`,
			`{"candidates":[{"content":{"parts":[{"text":"jour"}]},"finishReason":"STOP"}]}`,
		)
	}))
	defer server.Close()

	p := NewGoogle(server.URL, "g-key", "", Options{})
	text, err := Collect(context.Background(), p, Prompt("hi"))
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", text)
}

func TestThinkSplitter(t *testing.T) {
	var s thinkSplitter
	var delta, thinking string
	for _, piece := range []string{"before <", "think>inside</", "think> after <t"} {
		d, th := s.feed(piece)
		delta += d
		thinking += th
	}
	d, th := s.flush()
	delta += d
	thinking += th

	assert.Equal(t, "before  after <t", delta)
	assert.Equal(t, "inside", thinking)
}

func TestNewFactory(t *testing.T) {
	f, err := NewFactory("", "", "gpt-4o-mini", Options{})
	require.NoError(t, err)
	p := f("k")
	assert.Equal(t, KindOpenAI, p.Name())
	assert.Equal(t, "gpt-4o-mini", p.ModelName())

	f, err = NewFactory(KindAnthropic, "", "", Options{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", f("k").Name())

	f, err = NewFactory(KindGoogle, "", "", Options{})
	require.NoError(t, err)
	assert.Equal(t, "google", f("k").Name())

	_, err = NewFactory("cohere", "", "", Options{})
	assert.Error(t, err)
}
