// Package conversation holds the session transcript.
package conversation

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jeanpaul/jarvis/internal/provider"
)

// Log is an ordered, append-only transcript scoped to one session. It is
// never persisted and has no size bound.
type Log struct {
	mu        sync.RWMutex
	messages  []provider.Message
	gen       uint64
	sessionID string
	userID    string
}

func NewLog(userID string) *Log {
	return &Log{
		sessionID: uuid.NewString(),
		userID:    userID,
	}
}

func (l *Log) SessionID() string { return l.sessionID }

func (l *Log) UserID() string { return l.userID }

// Append adds a message with an explicit role.
func (l *Log) Append(role provider.Role, content string) {
	l.mu.Lock()
	l.messages = append(l.messages, provider.Message{Role: role, Content: content})
	l.mu.Unlock()
}

// AddText adds a system message.
func (l *Log) AddText(text string) {
	l.Append(provider.RoleSystem, text)
}

// Clear empties the log and starts a new generation.
func (l *Log) Clear() {
	l.mu.Lock()
	l.messages = nil
	l.gen++
	l.mu.Unlock()
}

// Mark is a read position within one generation of the log.
type Mark struct {
	Gen   uint64
	Index int
}

// After returns a copy of the messages past m together with the mark they
// start at. A mark from an earlier generation starts over at index 0.
func (l *Log) After(m Mark) ([]provider.Message, Mark) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	start := Mark{Gen: l.gen, Index: m.Index}
	if m.Gen != l.gen || m.Index < 0 || m.Index > len(l.messages) {
		start.Index = 0
	}
	out := make([]provider.Message, len(l.messages)-start.Index)
	copy(out, l.messages[start.Index:])
	return out, start
}

// Messages returns a point-in-time copy; later appends are not visible
// through it.
func (l *Log) Messages() []provider.Message {
	return l.Since(0)
}

// Since returns a copy of the messages from index i on.
func (l *Log) Since(i int) []provider.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 {
		i = 0
	}
	if i >= len(l.messages) {
		return []provider.Message{}
	}
	out := make([]provider.Message, len(l.messages)-i)
	copy(out, l.messages[i:])
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
