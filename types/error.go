package types

import (
	"fmt"
	"strings"
)

// ErrorCode classifies failures across the generate-extract-decode cycle.
type ErrorCode string

const (
	// ErrRequest marks a transport or service failure talking to the
	// generation function. Never retried by the cast loop.
	ErrRequest ErrorCode = "REQUEST"

	// ErrExtraction marks a response in which the root tag boundaries
	// could not be located.
	ErrExtraction ErrorCode = "EXTRACTION"

	// ErrDecode marks a per-field coercion failure inside an extracted
	// document.
	ErrDecode ErrorCode = "DECODE"

	// ErrRetryLimit marks a cast that exhausted its retry budget.
	ErrRetryLimit ErrorCode = "RETRY_LIMIT"

	// ErrDescriptor marks an unsupported or malformed type declaration.
	ErrDescriptor ErrorCode = "DESCRIPTOR"
)

// RequestError wraps a failure of the external generation function.
// It is surfaced to the caller immediately: retrying a transport fault
// would waste calls to a paid, rate-limited service.
type RequestError struct {
	Cause error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("[%s] generation request failed: %v", ErrRequest, e.Cause)
}

func (e *RequestError) Unwrap() error { return e.Cause }

// ExtractionError reports that a raw response did not contain the
// expected root tag pair.
type ExtractionError struct {
	RootName string
	Raw      string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("[%s] cannot find the root <%s> of the structure in response", ErrExtraction, e.RootName)
}

// DecodeError reports a coercion failure for one member of the
// document. Path addresses the member from the root, Raw is the
// offending text, and Cause is a short human-readable reason. This
// payload is what the orchestrator feeds back to the model on retry.
type DecodeError struct {
	Path  string
	Raw   string
	Cause string
}

func (e *DecodeError) Error() string {
	raw := e.Raw
	if len(raw) > 120 {
		raw = raw[:120] + "..."
	}
	return fmt.Sprintf("[%s] field %s: %s (got %q)", ErrDecode, e.Path, e.Cause, raw)
}

// NewDecodeError builds a DecodeError for the given member path.
func NewDecodeError(path, raw, cause string) *DecodeError {
	return &DecodeError{Path: path, Raw: raw, Cause: cause}
}

// Prefixed returns a copy of the error with the path extended from a
// parent member, e.g. "user" + "age" → "user.age".
func (e *DecodeError) Prefixed(parent string) *DecodeError {
	path := e.Path
	switch {
	case path == "":
		path = parent
	case parent != "":
		path = parent + "." + path
	}
	return &DecodeError{Path: path, Raw: e.Raw, Cause: e.Cause}
}

// RetryLimitError reports that the retry budget was exhausted. Last is
// the error observed on the final attempt; Attempts holds every
// extraction/decode error seen, in order, for diagnostics.
type RetryLimitError struct {
	Budget   int
	Last     error
	Attempts []error
}

func (e *RetryLimitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] retry limit exceeded after %d attempt(s): %v", ErrRetryLimit, len(e.Attempts), e.Last)
	return b.String()
}

func (e *RetryLimitError) Unwrap() error { return e.Last }

// DescriptorError reports an unsupported type declaration handed to
// the descriptor builder.
type DescriptorError struct {
	Type  string
	Cause string
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("[%s] type %s: %s", ErrDescriptor, e.Type, e.Cause)
}

// CodeOf extracts the error code from any xmlcast error, or "" for
// foreign errors.
func CodeOf(err error) ErrorCode {
	switch err.(type) {
	case *RequestError:
		return ErrRequest
	case *ExtractionError:
		return ErrExtraction
	case *DecodeError:
		return ErrDecode
	case *RetryLimitError:
		return ErrRetryLimit
	case *DescriptorError:
		return ErrDescriptor
	}
	return ""
}
