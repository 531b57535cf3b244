// Package types provides core types used across the xmlcast library.
// This package has ZERO dependencies on other xmlcast packages to avoid
// circular imports. All other packages should import types from here.
package types

import "time"

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents one turn of the exchange with the generative model.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewMessage creates a new message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// Conversation is the ordered message history exchanged with the
// generation function. It is owned by exactly one in-flight generation
// call; the orchestrator appends correction turns to it between retry
// attempts and it is never shared across concurrent calls.
type Conversation struct {
	// Messages in chronological order.
	Messages []Message `json:"messages"`

	// Temperature is a sampling hint for generator implementations
	// that honor it. Zero means "generator default".
	Temperature float32 `json:"temperature,omitempty"`

	// Metadata carries opaque per-call values for generator
	// implementations (model name, tenant, trace fields).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewConversation creates a conversation seeded with the given messages.
func NewConversation(messages ...Message) *Conversation {
	return &Conversation{Messages: messages}
}

// Append adds messages to the end of the conversation and returns the
// conversation for chaining.
func (c *Conversation) Append(messages ...Message) *Conversation {
	c.Messages = append(c.Messages, messages...)
	return c
}

// Clone returns a deep copy of the conversation. The orchestrator
// clones the caller's initial context so retries never mutate it.
func (c *Conversation) Clone() *Conversation {
	out := &Conversation{Temperature: c.Temperature}
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Len returns the number of messages in the conversation.
func (c *Conversation) Len() int { return len(c.Messages) }
