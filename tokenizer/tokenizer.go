// Package tokenizer estimates the token footprint of conversations so
// the caster can report how much the correction turns grow the context
// across retry attempts.
package tokenizer

import (
	"github.com/BaSui01/xmlcast/types"
)

// Counter is the token counting interface.
type Counter interface {
	// CountTokens returns the token count for the given text.
	CountTokens(text string) (int, error)

	// Name returns the counter's name.
	Name() string
}

// CountConversation returns the total token count of a conversation,
// including a small per-message overhead for role markers and
// separators.
func CountConversation(c Counter, conv *types.Conversation) (int, error) {
	const perMessageOverhead = 4

	total := 0
	for _, m := range conv.Messages {
		n, err := c.CountTokens(m.Content)
		if err != nil {
			return 0, err
		}
		total += n + perMessageOverhead
	}
	return total, nil
}
