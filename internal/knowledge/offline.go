package knowledge

import (
	"context"
	"log/slog"
	"time"

	"github.com/jeanpaul/jarvis/internal/model"
	"github.com/jeanpaul/jarvis/internal/provider"
)

// Availability is either Unavailable or Loaded.
type Availability interface {
	available() bool
}

// Unavailable means no local model can be used; Reason says why.
type Unavailable struct {
	Reason string
}

func (Unavailable) available() bool { return false }

// Loaded holds the provider serving the local model.
type Loaded struct {
	Provider provider.Provider
}

func (Loaded) available() bool { return true }

// OfflineOptions configures NewOffline.
type OfflineOptions struct {
	Model     string
	BaseURL   string // Ollama root or its /v1 endpoint
	MaxTokens int
	Pull      bool // pull the model when it is missing
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Offline answers with a locally served model.
type Offline struct {
	state   Availability
	timeout time.Duration
	logger  *slog.Logger
}

// NewOffline probes the local daemon. It never fails: an unset model name,
// an unreachable daemon or a missing model all produce an Unavailable source.
func NewOffline(ctx context.Context, opts OfflineOptions) *Offline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("source", "offline")
	return &Offline{
		state:   probe(ctx, opts, logger),
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// NewOfflineWith wraps an already resolved availability.
func NewOfflineWith(state Availability, timeout time.Duration, logger *slog.Logger) *Offline {
	if logger == nil {
		logger = slog.Default()
	}
	if state == nil {
		state = Unavailable{Reason: "no model"}
	}
	return &Offline{state: state, timeout: timeout, logger: logger.With("source", "offline")}
}

func probe(ctx context.Context, opts OfflineOptions, logger *slog.Logger) Availability {
	opts.Model = model.Normalize(opts.Model)
	if opts.Model == "" {
		return Unavailable{Reason: "no offline model configured"}
	}
	mgr := model.NewManager(opts.BaseURL)

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ok, err := mgr.Has(probeCtx, opts.Model)
	if err != nil {
		logger.Warn("offline model unavailable", "model", opts.Model, "err", err)
		return Unavailable{Reason: err.Error()}
	}
	if !ok && opts.Pull {
		logger.Info("pulling offline model", "model", opts.Model)
		err = mgr.Pull(ctx, opts.Model, func(p model.PullProgress) {
			logger.Debug("pull", "status", p.Status, "percent", int(p.Percent))
		})
		ok = err == nil
		if err != nil {
			logger.Warn("pulling offline model failed", "model", opts.Model, "err", err)
		}
	}
	if !ok {
		return Unavailable{Reason: "model " + opts.Model + " not found locally"}
	}

	logger.Info("offline model loaded", "model", opts.Model)
	p := provider.NewOpenAI("ollama", mgr.URL()+"/v1", "", opts.Model, provider.Options{
		MaxTokens:     opts.MaxTokens,
		Deterministic: true,
	})
	return Loaded{Provider: p}
}

func (o *Offline) Name() string { return "offline" }

// State reports whether a model is loaded.
func (o *Offline) State() Availability { return o.state }

func (o *Offline) Answer(ctx context.Context, query string) string {
	loaded, ok := o.state.(Loaded)
	if !ok {
		return ""
	}
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	text, err := provider.Collect(ctx, loaded.Provider, provider.Prompt(query))
	if err != nil {
		o.logger.Debug("offline generation failed", "err", err)
		return ""
	}
	return text
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
