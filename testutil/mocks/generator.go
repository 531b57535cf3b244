// Package mocks provides test doubles for the xmlcast interfaces.
//
// MockGenerator supports scripted responses, error injection and call
// recording:
//
//	gen := mocks.NewMockGenerator().
//	    WithResponses("garbage", "<Person>...</Person>")
//	value, err := caster.As[Person](ctx, caster.New(gen), conv)
//	gen.Calls() // conversations observed per attempt
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/xmlcast/types"
)

// MockGenerator is a scripted Generator implementation.
type MockGenerator struct {
	mu sync.Mutex

	// Scripted responses, consumed in order. The last response
	// repeats once the script is exhausted.
	responses []string

	// Error injection.
	err       error
	errAtCall int // 1-based call index the error fires on; 0 = every call

	// Call recording.
	calls []*types.Conversation
}

// NewMockGenerator creates a mock with no scripted responses.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{errAtCall: 0}
}

// WithResponses scripts the responses returned by successive calls.
func (m *MockGenerator) WithResponses(responses ...string) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	return m
}

// WithError makes every call fail with err.
func (m *MockGenerator) WithError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithErrorAt makes only the n-th call (1-based) fail with err.
func (m *MockGenerator) WithErrorAt(n int, err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	m.errAtCall = n
	return m
}

// Generate implements caster.Generator.
func (m *MockGenerator) Generate(_ context.Context, conv *types.Conversation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Record a snapshot: the caster mutates its working conversation
	// between attempts.
	m.calls = append(m.calls, conv.Clone())
	n := len(m.calls)

	if m.err != nil && (m.errAtCall == 0 || m.errAtCall == n) {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", errors.New("mock generator has no scripted responses")
	}
	idx := n - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

// Calls returns the conversation snapshots observed so far, one per
// Generate call.
func (m *MockGenerator) Calls() []*types.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Conversation, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Generate calls observed.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
