// Package health probes the services a session depends on.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeanpaul/jarvis/internal/provider"
)

// KindHTTP checks plain reachability of a URL.
const KindHTTP = "http"

const checkTimeout = 10 * time.Second

// Target is one dependency to probe.
type Target struct {
	Name    string
	Kind    string // provider.KindOpenAI, KindAnthropic, KindGoogle or KindHTTP
	BaseURL string
	APIKey  string
}

type Status struct {
	Name      string
	BaseURL   string
	Reachable bool
	Models    []string
	Error     string
	Latency   time.Duration
}

// Check verifies that a target is reachable and responding.
// OpenAI-compatible endpoints (Ollama, OpenAI) are asked for /models;
// Anthropic and Google get a lightweight authenticated listing.
func Check(ctx context.Context, t Target) Status {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var s Status
	switch t.Kind {
	case provider.KindOpenAI:
		s = checkOpenAICompat(ctx, t.BaseURL, t.APIKey)
	case provider.KindAnthropic:
		s = checkAnthropic(ctx, orDefault(t.BaseURL, "https://api.anthropic.com/v1"), t.APIKey)
	case provider.KindGoogle:
		s = checkGoogle(ctx, orDefault(t.BaseURL, "https://generativelanguage.googleapis.com/v1beta"), t.APIKey)
	case KindHTTP:
		s = checkHTTP(ctx, t.BaseURL)
	default:
		s.Error = fmt.Sprintf("unknown target kind: %s", t.Kind)
	}

	s.Name = t.Name
	s.BaseURL = t.BaseURL
	s.Latency = time.Since(start)
	return s
}

// CheckAll probes targets concurrently; results keep the input order.
func CheckAll(ctx context.Context, targets []Target) []Status {
	out := make([]Status, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = Check(ctx, t)
		}()
	}
	wg.Wait()
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return strings.TrimRight(s, "/")
}

func get(ctx context.Context, url string, header map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return http.DefaultClient.Do(req)
}

func checkOpenAICompat(ctx context.Context, baseURL, apiKey string) Status {
	s := Status{}
	header := map[string]string{}
	if apiKey != "" {
		header["Authorization"] = "Bearer " + apiKey
	}
	resp, err := get(ctx, strings.TrimRight(baseURL, "/")+"/models", header)
	if err != nil {
		s.Error = fmt.Sprintf("cannot reach %s: %s", baseURL, friendlyError(err))
		return s
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		s.Error = "authentication failed, check your API key"
		return s
	}
	if resp.StatusCode != http.StatusOK {
		s.Error = fmt.Sprintf("endpoint returned HTTP %d", resp.StatusCode)
		return s
	}

	s.Reachable = true
	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	// Some endpoints answer with non-standard JSON but are still usable.
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		for _, m := range result.Data {
			s.Models = append(s.Models, m.ID)
		}
	}
	return s
}

func checkAnthropic(ctx context.Context, baseURL, apiKey string) Status {
	s := Status{}
	if apiKey == "" {
		s.Error = "no API key configured"
		return s
	}
	resp, err := get(ctx, baseURL+"/models", map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		s.Error = fmt.Sprintf("cannot reach Anthropic API: %s", friendlyError(err))
		return s
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		s.Error = "invalid API key"
		return s
	}
	s.Reachable = true
	return s
}

func checkGoogle(ctx context.Context, baseURL, apiKey string) Status {
	s := Status{}
	if apiKey == "" {
		s.Error = "no API key configured"
		return s
	}
	resp, err := get(ctx, fmt.Sprintf("%s/models?key=%s&pageSize=1", baseURL, apiKey), nil)
	if err != nil {
		s.Error = fmt.Sprintf("cannot reach Google API: %s", friendlyError(err))
		return s
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		s.Error = "invalid API key"
		return s
	}
	s.Reachable = true
	return s
}

// checkHTTP treats any non-5xx answer as reachable.
func checkHTTP(ctx context.Context, url string) Status {
	s := Status{}
	resp, err := get(ctx, url, nil)
	if err != nil {
		s.Error = fmt.Sprintf("cannot reach %s: %s", url, friendlyError(err))
		return s
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		s.Error = fmt.Sprintf("endpoint returned HTTP %d", resp.StatusCode)
		return s
	}
	s.Reachable = true
	return s
}

func friendlyError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection refused (is the service running?)"
	case strings.Contains(msg, "no such host"):
		return "host not found (check the URL)"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "connection timed out"
	}
	return msg
}
