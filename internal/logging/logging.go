// Package logging builds the *slog.Logger shared by every jarvis component.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Option configures a logger created with New.
type Option func(*options)

type options struct {
	level  slog.Level
	json   bool
	writer io.Writer
	prefix string
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithJSON switches to slog's JSON handler.
func WithJSON(json bool) Option {
	return func(o *options) { o.json = json }
}

// WithWriter overrides the output writer. Defaults to os.Stderr so log lines
// never mix with what the assistant says on stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithPrefix sets the pretty handler prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// New returns a logger. Pretty output goes through charmbracelet/log, JSON
// output through slog.NewJSONHandler.
func New(opts ...Option) *slog.Logger {
	o := options{level: slog.LevelInfo, writer: os.Stderr, prefix: "jarvis"}
	for _, opt := range opts {
		opt(&o)
	}

	if o.json {
		return slog.New(slog.NewJSONHandler(o.writer, &slog.HandlerOptions{Level: o.level}))
	}

	h := charmlog.NewWithOptions(o.writer, charmlog.Options{
		Level:           charmlog.Level(o.level),
		Prefix:          o.prefix,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	return slog.New(h)
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(100)}))
}
