// Package memory is the assistant's long-lived text memory: an append-only
// list of free-text records searchable by keyword.
package memory

import (
	"fmt"
	"log/slog"
	"strings"
)

// Store defines persistent memory. Records are immutable once added and are
// returned in insertion order.
//
// Retrieve is a case-insensitive substring match, not semantic search. A
// backend that swaps in vector similarity must keep the contract: at most
// topK results, insertion order, never an error.
type Store interface {
	// Add appends text verbatim. A failed durable write is logged and the
	// record stays in memory for the rest of the session.
	Add(text string)

	// Retrieve returns up to topK records containing query.
	Retrieve(query string, topK int) []string

	// Clear drops every record.
	Clear()

	// Records returns a copy of all records.
	Records() []string

	Len() int
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend rooted at path.
func Open(backend, path string, logger *slog.Logger) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewFileStore(path, logger), nil
	case BackendSQLite:
		return NewSQLiteStore(path, logger)
	default:
		return nil, fmt.Errorf("memory: unknown backend %q", backend)
	}
}

// match implements the shared retrieval contract over an in-memory slice.
func match(records []string, query string, topK int) []string {
	if topK <= 0 {
		return []string{}
	}
	q := strings.ToLower(query)
	out := make([]string, 0, min(topK, len(records)))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r), q) {
			out = append(out, r)
			if len(out) == topK {
				break
			}
		}
	}
	return out
}
