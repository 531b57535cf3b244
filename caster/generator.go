// Package caster drives the generate-extract-decode-retry cycle that
// turns raw model output into typed values.
package caster

import (
	"context"

	"github.com/BaSui01/xmlcast/types"
)

// Generator is the external text-generation function. The caster
// treats it as opaque: it receives the full conversation context and
// returns the raw model text or an error. Any error it returns is
// surfaced to the caller as a request failure and is never retried by
// the cast loop; retries here correct format problems, not transport
// faults. Timeouts belong to the Generator boundary and must surface
// as errors rather than hang.
type Generator interface {
	Generate(ctx context.Context, conv *types.Conversation) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, conv *types.Conversation) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, conv *types.Conversation) (string, error) {
	return f(ctx, conv)
}
