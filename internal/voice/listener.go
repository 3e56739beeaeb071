// Package voice holds the speech-in and speech-out collaborators of a
// session. Input is a typed prompt; output is styled console text plus an
// optional text-to-speech command.
package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// DefaultPrompt is printed before each read.
const DefaultPrompt = "You (type): "

// Listener captures one utterance.
type Listener interface {
	// Listen returns the next utterance, "" when nothing was heard before
	// the timeout, or io.EOF once input is exhausted.
	Listen(ctx context.Context) (string, error)
}

type line struct {
	text string
	err  error
}

// PromptListener reads lines from a reader. A single goroutine owns the
// reader so a timed-out Listen does not lose the line typed afterwards.
type PromptListener struct {
	out     io.Writer
	prompt  string
	timeout time.Duration

	once  sync.Once
	in    io.Reader
	lines chan line
}

// NewPromptListener reads from in and prints prompt to out. A zero timeout
// waits indefinitely.
func NewPromptListener(in io.Reader, out io.Writer, timeout time.Duration) *PromptListener {
	return &PromptListener{
		in:      in,
		out:     out,
		prompt:  DefaultPrompt,
		timeout: timeout,
		lines:   make(chan line),
	}
}

func (l *PromptListener) start() {
	go func() {
		sc := bufio.NewScanner(l.in)
		for sc.Scan() {
			l.lines <- line{text: sc.Text()}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		for {
			l.lines <- line{err: err}
		}
	}()
}

func (l *PromptListener) Listen(ctx context.Context) (string, error) {
	l.once.Do(l.start)
	if l.out != nil {
		fmt.Fprint(l.out, PromptStyle.Render(l.prompt))
	}

	var timeout <-chan time.Time
	if l.timeout > 0 {
		t := time.NewTimer(l.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timeout:
		return "", nil
	case ln := <-l.lines:
		if ln.err != nil {
			return "", ln.err
		}
		return strings.TrimSpace(ln.text), nil
	}
}
