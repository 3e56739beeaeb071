// Package model manages the models served by a local Ollama daemon.
package model

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

// DefaultOllamaURL is where Ollama listens unless configured otherwise.
const DefaultOllamaURL = "http://localhost:11434"

type Manager struct {
	ollamaURL string
	client    *http.Client
}

// NewManager accepts either the daemon root or its OpenAI-compatible /v1
// endpoint.
func NewManager(ollamaURL string) *Manager {
	if ollamaURL == "" {
		ollamaURL = DefaultOllamaURL
	}
	ollamaURL = strings.TrimSuffix(strings.TrimRight(ollamaURL, "/"), "/v1")
	return &Manager{
		ollamaURL: ollamaURL,
		client:    &http.Client{},
	}
}

// URL returns the daemon root.
func (m *Manager) URL() string { return m.ollamaURL }

// List returns all locally available models from Ollama.
func (m *Manager) List(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", m.ollamaURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to Ollama at %s: %w", m.ollamaURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags: HTTP %d", resp.StatusCode)
	}

	var result struct {
		Models []struct {
			Name    string `json:"name"`
			Size    int64  `json:"size"`
			Digest  string `json:"digest"`
			Details struct {
				Family          string `json:"family"`
				ParameterSize   string `json:"parameter_size"`
				QuantizationLvl string `json:"quantization_level"`
			} `json:"details"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, len(result.Models))
	for i, rm := range result.Models {
		models[i] = ModelInfo{
			Name:       rm.Name,
			Size:       rm.Size,
			Digest:     rm.Digest,
			Family:     rm.Details.Family,
			Parameters: rm.Details.ParameterSize,
			Format:     rm.Details.QuantizationLvl,
		}
	}
	return models, nil
}

// Has reports whether name is available locally. A bare name matches its
// ":latest" tag.
func (m *Manager) Has(ctx context.Context, name string) (bool, error) {
	models, err := m.List(ctx)
	if err != nil {
		return false, err
	}
	for _, info := range models {
		if info.Name == name || info.Name == name+":latest" {
			return true, nil
		}
	}
	return false, nil
}

// Pull downloads a model. Supports:
//   - "llama3.2" -> Ollama registry
//   - "hf.co/user/repo" -> HuggingFace via Ollama
func (m *Manager) Pull(ctx context.Context, ref string, progress func(PullProgress)) error {
	payload, _ := json.Marshal(map[string]any{"name": ref, "stream": true})

	req, err := http.NewRequestWithContext(ctx, "POST", m.ollamaURL+"/api/pull", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot connect to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pull failed (%d): %s", resp.StatusCode, string(b))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var p PullProgress
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			continue
		}
		if p.Error != "" {
			return fmt.Errorf("pull %s: %s", ref, p.Error)
		}
		if p.Total > 0 {
			p.Percent = float64(p.Completed) / float64(p.Total) * 100
		}
		if progress != nil {
			progress(p)
		}
	}
	return scanner.Err()
}
