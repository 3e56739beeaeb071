package knowledge

import (
	"context"
	"log/slog"
	"time"

	"github.com/jeanpaul/jarvis/internal/credential"
	"github.com/jeanpaul/jarvis/internal/provider"
)

// Cloud answers with a remote chat model, injecting the rotor's current
// credential into each call.
type Cloud struct {
	rotor   *credential.Rotor
	factory provider.Factory
	timeout time.Duration
	logger  *slog.Logger
}

func NewCloud(rotor *credential.Rotor, factory provider.Factory, timeout time.Duration, logger *slog.Logger) *Cloud {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cloud{
		rotor:   rotor,
		factory: factory,
		timeout: timeout,
		logger:  logger.With("source", "cloud"),
	}
}

func (c *Cloud) Name() string { return "cloud" }

// Answer makes one attempt. Any failure rotates the credential once and
// yields "", so the next call uses the next key.
func (c *Cloud) Answer(ctx context.Context, query string) string {
	if c.rotor == nil || c.factory == nil {
		return ""
	}
	key := c.rotor.Current()

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	text, err := provider.Collect(ctx, c.factory(key), provider.Prompt(query))
	if err != nil {
		next := c.rotor.Rotate()
		c.logger.Warn("cloud call failed, rotated credential",
			"err", err, "failed", credential.Mask(key), "next", credential.Mask(next))
		return ""
	}
	return text
}
