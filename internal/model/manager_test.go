package model

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagsServer(t *testing.T, names ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			fmt.Fprint(w, `{"models":[`)
			for i, n := range names {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"name":%q,"size":1024,"details":{"family":"llama","parameter_size":"3B"}}`, n)
			}
			fmt.Fprint(w, `]}`)
		case "/api/pull":
			fmt.Fprintln(w, `{"status":"pulling manifest"}`)
			fmt.Fprintln(w, `{"status":"downloading","total":100,"completed":50}`)
			fmt.Fprintln(w, `{"status":"success"}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestManager_TrimsV1Suffix(t *testing.T) {
	assert.Equal(t, "http://localhost:11434", NewManager("http://localhost:11434/v1/").URL())
	assert.Equal(t, DefaultOllamaURL, NewManager("").URL())
}

func TestManager_ListAndHas(t *testing.T) {
	srv := tagsServer(t, "llama3.2:latest", "qwen2.5:7b")
	defer srv.Close()

	m := NewManager(srv.URL + "/v1")
	models, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "3B", models[0].Parameters)

	ok, err := m.Has(context.Background(), "llama3.2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Has(context.Background(), "mistral")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_Unreachable(t *testing.T) {
	srv := tagsServer(t)
	url := srv.URL
	srv.Close()

	_, err := NewManager(url).Has(context.Background(), "llama3.2")
	assert.Error(t, err)
}

func TestManager_PullProgress(t *testing.T) {
	srv := tagsServer(t)
	defer srv.Close()

	var seen []PullProgress
	err := NewManager(srv.URL).Pull(context.Background(), "llama3.2", func(p PullProgress) {
		seen = append(seen, p)
	})
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.InDelta(t, 50.0, seen[1].Percent, 0.001)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "llama3.2", Normalize(" ollama/llama3.2 "))
	assert.Equal(t, "qwen2.5:7b", Normalize("Qwen2.5-7B"))
	assert.Equal(t, "mistral:7b", Normalize("mistral:7b"))
	assert.Equal(t, "", Normalize(""))
}
