// Package knowledge implements the assistant's knowledge sources. Every
// source answers with text or the empty string; an empty answer means "try
// the next source" and no source ever returns an error to its caller.
package knowledge

import (
	"context"
	"log/slog"
	"strings"
)

// Source is anything that can answer a query.
type Source interface {
	Name() string
	Answer(ctx context.Context, query string) string
}

// Func adapts a function to Source.
type Func struct {
	Label string
	Fn    func(ctx context.Context, query string) string
}

func (f Func) Name() string { return f.Label }

func (f Func) Answer(ctx context.Context, query string) string { return f.Fn(ctx, query) }

// Safe asks src and folds a nil source or a panic to "".
func Safe(ctx context.Context, src Source, query string, logger *slog.Logger) (answer string) {
	if src == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("knowledge source panicked", "source", src.Name(), "panic", r)
			}
			answer = ""
		}
	}()
	return strings.TrimSpace(src.Answer(ctx, query))
}
