// Package xmlcast turns Go type declarations into (a) a textual schema
// that instructs a generative model how to format its output as tagged
// XML, and (b) a tolerant decoder that converts the model's raw text
// back into a typed value, retrying with self-correction when the
// response is malformed.
//
// Usage:
//
//	import "github.com/BaSui01/xmlcast"
//
//	conv := xmlcast.NewConversation(
//	    xmlcast.NewUserMessage("Extract the person described in: ..."),
//	)
//	person, err := xmlcast.GenerateAs[Person](ctx, gen, conv,
//	    xmlcast.WithMaxRetries(2))
//
// This is a thin wrapper around [caster.New] and [caster.As]; use the
// subpackages directly when you need explicit cache injection or a
// long-lived Caster.
package xmlcast

import (
	"context"
	"reflect"

	"github.com/BaSui01/xmlcast/cache"
	"github.com/BaSui01/xmlcast/caster"
	"github.com/BaSui01/xmlcast/descriptor"
	"github.com/BaSui01/xmlcast/encode"
	"github.com/BaSui01/xmlcast/schema"
	"github.com/BaSui01/xmlcast/types"
)

// Option configures the Caster created by [GenerateAs].
type Option = caster.Option

// Generator is the opaque text-generation function consumed by the
// cast loop.
type Generator = caster.Generator

// GeneratorFunc adapts a plain function to [Generator].
type GeneratorFunc = caster.GeneratorFunc

// Conversation is the growing ordered message history exchanged with
// the generation function across retries.
type Conversation = types.Conversation

// Re-export caster options so callers never need to import caster/.

// WithMaxRetries sets the retry budget (0 = fail on first bad decode).
var WithMaxRetries = caster.WithMaxRetries

// WithStore injects a schema cache store.
var WithStore = caster.WithStore

// WithLogger sets a custom zap logger.
var WithLogger = caster.WithLogger

// WithDecodeOptions tunes decoder tolerance.
var WithDecodeOptions = caster.WithDecodeOptions

// WithExample supplies a known-valid document for correction turns.
var WithExample = caster.WithExample

// Re-export conversation constructors.

// NewConversation creates a conversation seeded with messages.
var NewConversation = types.NewConversation

// NewSystemMessage creates a system message.
var NewSystemMessage = types.NewSystemMessage

// NewUserMessage creates a user message.
var NewUserMessage = types.NewUserMessage

// NewAssistantMessage creates an assistant message.
var NewAssistantMessage = types.NewAssistantMessage

// SchemaFor returns the cached schema text for T, deriving and
// memoizing it on first use. The derivation runs at most once per type
// per process, even under concurrent first calls.
func SchemaFor[T any]() (string, error) {
	desc, err := descriptor.Of(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return "", err
	}
	return cache.Default().SchemaFor(context.Background(), desc.TypeKey(), func() (string, error) {
		return schema.Render(desc), nil
	})
}

// GenerateAs runs the full cast flow for T against gen: schema text is
// sent with the conversation, the response is extracted and decoded,
// and malformed responses are fed back for correction within the retry
// budget (default 3).
func GenerateAs[T any](ctx context.Context, gen Generator, conv *Conversation, opts ...Option) (T, error) {
	c := caster.New(gen, opts...)
	return caster.As[T](ctx, c, conv)
}

// Marshal renders v under the tag convention, root tag included. The
// output decodes back to an equal value and makes a good
// [WithExample] argument.
func Marshal(v any) (string, error) {
	return encode.Marshal(v)
}
