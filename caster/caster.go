package caster

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/xmlcast/cache"
	"github.com/BaSui01/xmlcast/decode"
	"github.com/BaSui01/xmlcast/descriptor"
	"github.com/BaSui01/xmlcast/encode"
	"github.com/BaSui01/xmlcast/internal/metrics"
	"github.com/BaSui01/xmlcast/schema"
	"github.com/BaSui01/xmlcast/tokenizer"
	"github.com/BaSui01/xmlcast/types"
)

// DefaultMaxRetries is the retry budget used when none is configured,
// matching the library's historical default.
const DefaultMaxRetries = 3

// Caster mediates between a Generator and the typed decoder. It is
// safe for concurrent use: each cast owns its conversation clone and
// the only shared mutable state is the schema cache.
type Caster struct {
	gen         Generator
	store       cache.Store
	decoder     *decode.Decoder
	logger      *zap.Logger
	collector   *metrics.Collector
	tracer      trace.Tracer
	counter     tokenizer.Counter
	maxRetries  int
	temperature float32
	withExample bool
	example     string
}

// Option configures a Caster.
type Option func(*Caster)

// WithMaxRetries sets the retry budget: the number of correction
// attempts after the first one. 0 means fail immediately on the first
// bad decode.
func WithMaxRetries(n int) Option {
	return func(c *Caster) { c.maxRetries = n }
}

// WithStore sets the schema cache store. Defaults to the process-wide
// memory store.
func WithStore(s cache.Store) Option {
	return func(c *Caster) { c.store = s }
}

// WithLogger sets the zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Caster) { c.logger = l }
}

// WithDecodeOptions replaces the tolerant decoder's options, e.g. to
// extend the boolean synonym table.
func WithDecodeOptions(opts decode.Options) Option {
	return func(c *Caster) { c.decoder = decode.NewDecoderWithOptions(opts) }
}

// WithMetrics registers cast-loop Prometheus metrics on reg. A nil reg
// uses the default registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Caster) { c.collector = metrics.NewCollector("xmlcast", reg) }
}

// WithTokenCounter attaches a token counter used to report how much
// correction turns grow the conversation.
func WithTokenCounter(t tokenizer.Counter) Option {
	return func(c *Caster) { c.counter = t }
}

// WithTemperature sets the sampling hint attached to conversations
// that do not already carry one.
func WithTemperature(t float32) Option {
	return func(c *Caster) { c.temperature = t }
}

// WithExample supplies a known-valid document appended to correction
// turns. When example is empty one is derived from the target type.
func WithExample(example string) Option {
	return func(c *Caster) {
		c.withExample = true
		c.example = example
	}
}

// WithoutExample disables the example on correction turns.
func WithoutExample() Option {
	return func(c *Caster) { c.withExample = false }
}

// New creates a Caster around the given Generator.
func New(gen Generator, opts ...Option) *Caster {
	c := &Caster{
		gen:         gen,
		store:       cache.Default(),
		decoder:     decode.NewDecoder(),
		logger:      zap.NewNop(),
		tracer:      otel.Tracer("xmlcast/caster"),
		counter:     tokenizer.NewEstimatorCounter(),
		maxRetries:  DefaultMaxRetries,
		temperature: 0.1,
		withExample: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// As runs the full cast flow for type T: derive (cached) schema text,
// send the conversation, extract the root-tagged substring, decode it,
// and on extraction or decode failure feed the error back to the model
// until the retry budget is exhausted.
//
// The caller's conversation is never mutated; each call works on its
// own clone.
func As[T any](ctx context.Context, c *Caster, conv *types.Conversation) (T, error) {
	var out T
	if err := c.CastInto(ctx, conv, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// SchemaFor returns the cached schema text for the given type key,
// deriving it on first use.
func (c *Caster) SchemaFor(ctx context.Context, desc *descriptor.Descriptor) (string, error) {
	return c.store.SchemaFor(ctx, desc.TypeKey(), func() (string, error) {
		if c.collector != nil {
			c.collector.RecordSchemaCompute()
		}
		return schema.Render(desc), nil
	})
}

// CastInto is the non-generic core of As: v must be a non-nil pointer
// to the target value.
func (c *Caster) CastInto(ctx context.Context, conv *types.Conversation, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &types.DescriptorError{Type: fmt.Sprintf("%T", v), Cause: "cast target must be a non-nil pointer"}
	}
	desc, err := descriptor.Of(rv.Type().Elem())
	if err != nil {
		return err
	}

	schemaText, err := c.SchemaFor(ctx, desc)
	if err != nil {
		return err
	}

	callID := uuid.NewString()
	logger := c.logger.With(
		zap.String("call_id", callID),
		zap.String("root", desc.Name),
	)

	ctx, span := c.tracer.Start(ctx, "xmlcast.cast",
		trace.WithAttributes(
			attribute.String("xmlcast.root", desc.Name),
			attribute.String("xmlcast.call_id", callID),
			attribute.Int("xmlcast.max_retries", c.maxRetries),
		))
	defer span.End()

	// The working context grows with correction turns; the caller's
	// conversation and the schema text are never mutated.
	work := conv.Clone()
	if work.Temperature == 0 {
		work.Temperature = c.temperature
	}
	work.Append(types.NewSystemMessage(fmt.Sprintf(
		"You must respond with a valid XML document (root name is %s) that adheres to the following schema:\n%s",
		desc.Name, schemaText)))

	var attemptErrs []error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return &types.RequestError{Cause: err}
		}

		value, attemptErr := c.attempt(ctx, desc, work, attempt, logger)
		if attemptErr == nil {
			rv.Elem().Set(value)
			c.recordCast(desc.Name, "success")
			span.SetAttributes(attribute.Int("xmlcast.attempts", attempt+1))
			logger.Debug("cast succeeded", zap.Int("attempts", attempt+1))
			return nil
		}

		if reqErr, ok := attemptErr.(*types.RequestError); ok {
			// Transport faults are not format problems; surface
			// immediately rather than burning budget on them.
			c.recordCast(desc.Name, "request_error")
			return reqErr
		}

		raw, cause := splitAttemptError(attemptErr)
		attemptErrs = append(attemptErrs, cause)
		if c.collector != nil {
			c.collector.RecordDecodeFailure(desc.Name, string(types.CodeOf(cause)))
		}

		if attempt >= c.maxRetries {
			c.recordCast(desc.Name, "retry_limit")
			if c.collector != nil {
				c.collector.RecordRetryExhausted()
			}
			logger.Warn("retry budget exhausted",
				zap.Int("attempts", attempt+1),
				zap.Error(cause),
			)
			return &types.RetryLimitError{
				Budget:   c.maxRetries,
				Last:     cause,
				Attempts: attemptErrs,
			}
		}

		c.appendCorrection(work, desc, schemaText, raw, cause)
		c.logConversationGrowth(logger, work, attempt)
	}
}

// attempt runs one request, extract and decode cycle and
// returns the decoded value or the attempt's error. The previous raw
// response needed by the correction turn is carried inside the error.
func (c *Caster) attempt(ctx context.Context, desc *descriptor.Descriptor, work *types.Conversation, attempt int, logger *zap.Logger) (reflect.Value, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "xmlcast.attempt",
		trace.WithAttributes(attribute.Int("xmlcast.attempt", attempt)))
	defer span.End()

	raw, err := c.gen.Generate(ctx, work)
	if err != nil {
		span.SetAttributes(attribute.String("xmlcast.result", "request_error"))
		c.recordAttempt(desc.Name, "request_error", time.Since(start))
		return reflect.Value{}, &types.RequestError{Cause: err}
	}

	doc, err := Extract(raw, desc.Name)
	if err != nil {
		span.SetAttributes(attribute.String("xmlcast.result", "extraction_error"))
		c.recordAttempt(desc.Name, "extraction_error", time.Since(start))
		logger.Debug("extraction failed", zap.Int("attempt", attempt), zap.Error(err))
		return reflect.Value{}, &attemptError{raw: raw, err: err}
	}

	target := reflect.New(desc.GoType)
	if err := c.decoder.Unmarshal(desc, doc, target.Interface()); err != nil {
		span.SetAttributes(attribute.String("xmlcast.result", "decode_error"))
		c.recordAttempt(desc.Name, "decode_error", time.Since(start))
		logger.Debug("decode failed", zap.Int("attempt", attempt), zap.Error(err))
		return reflect.Value{}, &attemptError{raw: raw, err: err}
	}

	span.SetAttributes(attribute.String("xmlcast.result", "success"))
	c.recordAttempt(desc.Name, "success", time.Since(start))
	return target.Elem(), nil
}

// Extract isolates the substring from the first occurrence of the root
// open tag through the last occurrence of the root close tag.
func Extract(raw, rootName string) (string, error) {
	openTag := schema.OpenTag(rootName)
	closeTag := schema.CloseTag(rootName)

	start := strings.Index(raw, openTag)
	end := strings.LastIndex(raw, closeTag)
	if start < 0 || end < 0 || end < start {
		return "", &types.ExtractionError{RootName: rootName, Raw: raw}
	}
	return raw[start : end+len(closeTag)], nil
}

// appendCorrection adds the previous invalid response as an assistant
// turn and the failure description as a user turn, so the next request
// lets the model see and repair its own mistake.
func (c *Caster) appendCorrection(work *types.Conversation, desc *descriptor.Descriptor, schemaText, raw string, cause error) {
	work.Append(types.NewAssistantMessage(raw))

	var b strings.Builder
	fmt.Fprintf(&b, "Your previous response could not be decoded: %v\n", cause)
	b.WriteString("Please ensure your response strictly follows the required XML format.\n")
	fmt.Fprintf(&b, "The format body is:\n%s", schemaText)
	if c.withExample {
		if example := c.exampleFor(desc); example != "" {
			fmt.Fprintf(&b, "\nHere is a valid example for your reference:\n%s", example)
		}
	}
	work.Append(types.NewUserMessage(b.String()))
}

// exampleFor returns the configured example, or derives one from a
// sample value of the target type.
func (c *Caster) exampleFor(desc *descriptor.Descriptor) string {
	if c.example != "" {
		return c.example
	}
	sample, ok := sampleValue(desc)
	if !ok || !sample.IsValid() {
		return ""
	}
	example, err := encode.MarshalDescriptor(desc, sample)
	if err != nil {
		return ""
	}
	return example
}

func (c *Caster) logConversationGrowth(logger *zap.Logger, work *types.Conversation, attempt int) {
	if c.counter == nil {
		return
	}
	tokens, err := tokenizer.CountConversation(c.counter, work)
	if err != nil {
		return
	}
	logger.Debug("conversation grew after correction",
		zap.Int("attempt", attempt),
		zap.Int("messages", work.Len()),
		zap.Int("estimated_tokens", tokens),
	)
}

func (c *Caster) recordCast(root, outcome string) {
	if c.collector != nil {
		c.collector.RecordCast(root, outcome)
	}
}

func (c *Caster) recordAttempt(root, result string, d time.Duration) {
	if c.collector != nil {
		c.collector.RecordAttempt(root, result, d)
	}
}

// attemptError pairs a recoverable extraction/decode failure with the
// raw response that produced it.
type attemptError struct {
	raw string
	err error
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

func splitAttemptError(err error) (raw string, cause error) {
	if ae, ok := err.(*attemptError); ok {
		return ae.raw, ae.err
	}
	return "", err
}

// sampleValue builds a minimal populated value for example rendering:
// unions choose the first variant that terminates, sequences hold a
// single item, maps a single entry, optionals stay absent. Descriptors
// on the current expansion path are never re-entered; a cycle collapses
// to an empty collection at the nearest enclosing sequence or map, so
// sampling terminates on recursive declarations the same way the
// schema renderer does. ok is false only when no finite sample exists,
// e.g. a union whose every variant leads back into itself.
func sampleValue(desc *descriptor.Descriptor) (v reflect.Value, ok bool) {
	s := &sampler{on: make(map[*descriptor.Descriptor]bool)}
	return s.value(desc)
}

type sampler struct {
	// on holds the record and union descriptors on the current
	// expansion path. The descriptor builder closes cycles on the
	// same pointer, so identity comparison is sufficient.
	on map[*descriptor.Descriptor]bool
}

func (s *sampler) value(desc *descriptor.Descriptor) (reflect.Value, bool) {
	switch desc.Kind {
	case descriptor.KindUnion:
		if s.on[desc] {
			return reflect.Value{}, false
		}
		s.on[desc] = true
		defer delete(s.on, desc)

		v := reflect.New(desc.GoType).Elem()
		for i := range desc.Variants {
			vt := desc.Variants[i]
			inner, ok := s.value(vt.Type)
			if !ok {
				continue
			}
			variant := reflect.New(vt.Type.GoType)
			variant.Elem().Set(inner)
			v.Field(vt.Index).Set(variant)
			return v, true
		}
		return reflect.Value{}, false

	case descriptor.KindRecord:
		if s.on[desc] {
			return reflect.Value{}, false
		}
		s.on[desc] = true
		defer delete(s.on, desc)

		v := reflect.New(desc.GoType).Elem()
		for _, f := range desc.Fields {
			if f.Type.Kind == descriptor.KindOptional {
				continue
			}
			fv, ok := s.value(f.Type)
			if !ok {
				return reflect.Value{}, false
			}
			v.Field(f.Index).Set(fv)
		}
		return v, true

	case descriptor.KindSequence:
		if desc.GoType.Kind() == reflect.Array {
			return reflect.New(desc.GoType).Elem(), true
		}
		elem, ok := s.value(desc.Elem)
		if !ok {
			// The cycle runs through this sequence; an empty series
			// is a finite, valid sample.
			return reflect.MakeSlice(desc.GoType, 0, 0), true
		}
		sl := reflect.MakeSlice(desc.GoType, 1, 1)
		sl.Index(0).Set(elem)
		return sl, true

	case descriptor.KindMap:
		key, okKey := s.value(desc.Key)
		val, okVal := s.value(desc.Value)
		if !okKey || !okVal {
			return reflect.MakeMapWithSize(desc.GoType, 0), true
		}
		m := reflect.MakeMapWithSize(desc.GoType, 1)
		m.SetMapIndex(key, val)
		return m, true

	default:
		return reflect.New(desc.GoType).Elem(), true
	}
}
