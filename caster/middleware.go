package caster

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/xmlcast/types"
)

// RateLimited wraps a Generator with a token-bucket limiter so retry
// loops cannot hammer a paid, rate-limited service. Waiting respects
// the caller's context; cancellation during the wait surfaces as a
// generation error.
func RateLimited(g Generator, rps float64, burst int) Generator {
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedGenerator{
		inner:   g,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type rateLimitedGenerator struct {
	inner   Generator
	limiter *rate.Limiter
}

func (g *rateLimitedGenerator) Generate(ctx context.Context, conv *types.Conversation) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return g.inner.Generate(ctx, conv)
}

// Logged wraps a Generator with request/response logging.
func Logged(g Generator, logger *zap.Logger) Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggedGenerator{inner: g, logger: logger}
}

type loggedGenerator struct {
	inner  Generator
	logger *zap.Logger
}

func (g *loggedGenerator) Generate(ctx context.Context, conv *types.Conversation) (string, error) {
	start := time.Now()
	raw, err := g.inner.Generate(ctx, conv)
	elapsed := time.Since(start)

	if err != nil {
		g.logger.Warn("generation request failed",
			zap.Int("messages", conv.Len()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", err
	}
	g.logger.Debug("generation request completed",
		zap.Int("messages", conv.Len()),
		zap.Int("response_bytes", len(raw)),
		zap.Duration("elapsed", elapsed),
	)
	return raw, nil
}
