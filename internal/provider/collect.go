package provider

import (
	"context"
	"strings"
)

// Collect sends msgs and drains the stream into the final answer text.
// Thinking output is discarded.
func Collect(ctx context.Context, p Provider, msgs []Message) (string, error) {
	ch, err := p.Chat(ctx, msgs)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				return strings.TrimSpace(b.String()), nil
			}
			if chunk.Error != nil {
				return "", chunk.Error
			}
			b.WriteString(chunk.Delta)
			if chunk.Done {
				return strings.TrimSpace(b.String()), nil
			}
		}
	}
}

// Prompt is a convenience for a single user turn.
func Prompt(text string) []Message {
	return []Message{{Role: RoleUser, Content: text}}
}

// sender returns a send function that gives up once ctx is done, so stream
// goroutines never block on a consumer that has gone away.
func sender(ctx context.Context, ch chan<- StreamChunk) func(StreamChunk) bool {
	return func(c StreamChunk) bool {
		select {
		case ch <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}
}
