// Package extract runs the background loop that promotes durable facts from
// the live conversation into persistent memory.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeanpaul/jarvis/internal/conversation"
	"github.com/jeanpaul/jarvis/internal/provider"
	"github.com/jeanpaul/jarvis/internal/textutil"
)

// ErrNotIdle is returned when starting a loop that already ran.
var ErrNotIdle = errors.New("extraction loop is not idle")

// DefaultInterval is the pause between passes.
const DefaultInterval = time.Second

type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source is the conversation the loop reads.
type Source interface {
	After(m conversation.Mark) ([]provider.Message, conversation.Mark)
}

// Sink receives extracted facts.
type Sink interface {
	Add(text string)
}

type Options struct {
	// Subject names the user in third-person facts. Defaults to "User".
	Subject string
	// Rules defaults to DefaultRules().
	Rules  []Rule
	Logger *slog.Logger
}

// Loop is a one-shot idle → running → stopped state machine.
type Loop struct {
	source  Source
	sink    Sink
	subject string
	rules   []Rule
	logger  *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	group  *errgroup.Group

	stop atomic.Bool

	passMu sync.Mutex
	mark   conversation.Mark
}

func New(source Source, sink Sink, opts Options) *Loop {
	if opts.Subject == "" {
		opts.Subject = "User"
	}
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Loop{
		source:  source,
		sink:    sink,
		subject: opts.Subject,
		rules:   opts.Rules,
		logger:  opts.Logger.With("component", "extract"),
	}
}

func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start launches the loop on its own goroutine. It fails with ErrNotIdle
// unless the loop has never been started or stopped.
func (l *Loop) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Idle {
		return fmt.Errorf("start: %w (state %s)", ErrNotIdle, l.state)
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.group = new(errgroup.Group)
	l.state = Running
	l.group.Go(func() error {
		defer l.finish()
		return l.loop(ctx, interval)
	})
	l.logger.Debug("started", "interval", interval)
	return nil
}

// Run is the blocking form of Start followed by Wait.
func (l *Loop) Run(ctx context.Context, interval time.Duration) error {
	if err := l.Start(ctx, interval); err != nil {
		return err
	}
	return l.Wait()
}

// Stop sets the stop flag and cancels the pending sleep. Stopping a loop
// that never started moves it straight to Stopped.
func (l *Loop) Stop() {
	l.stop.Store(true)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Idle {
		l.state = Stopped
	}
	if l.cancel != nil {
		l.cancel()
	}
}

// Wait joins the loop goroutine. Cancellation is the expected way for the
// loop to end and is not reported; any other error is.
func (l *Loop) Wait() error {
	l.mu.Lock()
	g := l.group
	l.mu.Unlock()
	if g == nil {
		return nil
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (l *Loop) finish() {
	l.mu.Lock()
	l.state = Stopped
	l.mu.Unlock()
	l.logger.Debug("stopped")
}

func (l *Loop) loop(ctx context.Context, interval time.Duration) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if l.stop.Load() {
			return nil
		}
		l.Pass(ctx)
		timer.Reset(interval)
	}
}

// Pass performs one extraction over messages added since the previous pass
// and returns how many facts it wrote.
func (l *Loop) Pass(ctx context.Context) int {
	l.passMu.Lock()
	defer l.passMu.Unlock()

	msgs, start := l.source.After(l.mark)
	if start.Gen != l.mark.Gen {
		l.logger.Debug("conversation cleared", "generation", start.Gen)
	}
	l.mark = start
	l.logger.Debug("conversation observed", "messages", start.Index+len(msgs))

	written := 0
	for _, m := range msgs {
		if ctx.Err() != nil {
			break
		}
		l.mark.Index++
		if m.Role != provider.RoleUser {
			continue
		}
		fact, ok := apply(l.rules, l.subject, textutil.Clean(m.Content))
		if !ok {
			continue
		}
		l.sink.Add(fact)
		written++
		l.logger.Info("fact extracted", "fact", fact)
	}
	return written
}
