// Package session runs the interactive turn loop: listen, answer, speak,
// while the extraction loop mines the conversation in the background.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jeanpaul/jarvis/internal/conversation"
	"github.com/jeanpaul/jarvis/internal/provider"
	"github.com/jeanpaul/jarvis/internal/resolver"
	"github.com/jeanpaul/jarvis/internal/voice"
	"github.com/jeanpaul/jarvis/internal/weather"
)

const (
	Greeting = "Hello, I'm Jarvis. How can I help?"
	Farewell = "Alright. Goodbye."
	Cleared  = "Memory cleared."
)

type Resolver interface {
	Resolve(ctx context.Context, query string) resolver.Answer
	Learn(query string, ans resolver.Answer) bool
}

type Weather interface {
	Current(ctx context.Context, city string) string
}

type Learner interface {
	Learn(ctx context.Context, target string) (int, error)
}

type Extractor interface {
	Start(ctx context.Context, interval time.Duration) error
	Stop()
	Wait() error
}

type Clearer interface {
	Clear()
}

// Deps are the collaborators of a session. Weather, Learner and Extractor
// may be nil.
type Deps struct {
	Listener  voice.Listener
	Speaker   voice.Speaker
	Log       *conversation.Log
	Memory    Clearer
	Resolver  Resolver
	Weather   Weather
	Learner   Learner
	Extractor Extractor
}

type Session struct {
	Deps
	interval time.Duration
	logger   *slog.Logger
}

func New(deps Deps, extractInterval time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		Deps:     deps,
		interval: extractInterval,
		logger:   logger.With("component", "session", "session_id", deps.Log.SessionID()),
	}
}

// Run drives the session until the user says goodbye, input ends or ctx is
// cancelled. The extraction loop is stopped and joined before Run returns.
func (s *Session) Run(ctx context.Context) (err error) {
	if s.Extractor != nil {
		if err := s.Extractor.Start(ctx, s.interval); err != nil {
			return fmt.Errorf("start extraction: %w", err)
		}
		defer func() {
			s.Extractor.Stop()
			if werr := s.Extractor.Wait(); werr != nil {
				err = errors.Join(err, fmt.Errorf("extraction loop: %w", werr))
			}
		}()
	}

	s.logger.Info("session started", "user", s.Log.UserID())
	s.Speaker.Speak(Greeting)
	for {
		text, err := s.Listener.Listen(ctx)
		switch {
		case errors.Is(err, io.EOF):
			s.Speaker.Speak(Farewell)
			return nil
		case errors.Is(err, context.Canceled):
			s.logger.Info("session interrupted")
			return nil
		case err != nil:
			return fmt.Errorf("listen: %w", err)
		}
		if text == "" {
			continue
		}
		if done := s.Turn(ctx, text); done {
			return nil
		}
	}
}

// Turn handles one utterance and reports whether the session should end.
func (s *Session) Turn(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	s.Log.Append(provider.RoleUser, text)
	u := strings.ToLower(text)

	switch {
	case u == "exit" || u == "quit" || u == "bye":
		s.Speaker.Speak(Farewell)
		return true

	case strings.Contains(u, "clear memory"):
		if s.Memory != nil {
			s.Memory.Clear()
		}
		s.Log.Clear()
		s.Speaker.Speak(Cleared)
		s.logger.Info("memory cleared")

	case strings.Contains(u, "weather") && s.Weather != nil:
		s.reply(s.Weather.Current(ctx, weather.CityFromUtterance(text)))

	case strings.HasPrefix(u, "learn ") && s.Learner != nil:
		target := strings.TrimSpace(text[len("learn "):])
		n, err := s.Learner.Learn(ctx, target)
		if err != nil {
			s.logger.Warn("learn failed", "target", target, "err", err)
			s.reply(fmt.Sprintf("I couldn't learn from %s.", target))
			break
		}
		s.reply(fmt.Sprintf("Learned %d passages from %s.", n, target))

	default:
		start := time.Now()
		ans := s.Resolver.Resolve(ctx, text)
		s.logger.Debug("answered", "stage", ans.Stage, "source", ans.Source, "took", time.Since(start))
		s.reply(ans.Text)
		s.Resolver.Learn(text, ans)
	}
	return false
}

func (s *Session) reply(text string) {
	s.Speaker.Speak(text)
	s.Log.Append(provider.RoleAssistant, text)
}
