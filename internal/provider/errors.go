package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// parseProviderError extracts a human-readable error from provider API responses.
func parseProviderError(providerName string, statusCode int, body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		msg := errResp.Error.Message
		if msg == "" {
			msg = errResp.Message
		}
		if msg != "" {
			return fmt.Sprintf("HTTP %d: %s", statusCode, msg)
		}
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return "HTTP 401: authentication failed, check the " + providerName + " API key"
	case http.StatusForbidden:
		return "HTTP 403: access denied for this API key"
	case http.StatusNotFound:
		return "HTTP 404: model or endpoint not found"
	case http.StatusTooManyRequests:
		return "HTTP 429: rate limited"
	case http.StatusInternalServerError:
		return "HTTP 500: internal server error on the provider side"
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Sprintf("HTTP %d: provider temporarily unavailable", statusCode)
	case 529:
		return "HTTP 529: provider overloaded"
	}

	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return fmt.Sprintf("HTTP %d: %s", statusCode, s)
}

var networkHints = []struct{ match, hint string }{
	{"connection refused", "connection refused (is the service running?)"},
	{"no such host", "host not found (check the URL)"},
	{"timeout", "connection timed out"},
	{"EOF", "connection closed unexpectedly"},
	{"reset by peer", "connection reset by server"},
}

// friendlyProviderError converts common network errors to short messages.
func friendlyProviderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	msg := err.Error()
	for _, h := range networkHints {
		if strings.Contains(msg, h.match) {
			return h.hint
		}
	}
	return msg
}
