// Package model provides LLM provider adapters for the assistant agents.
//
// The ChatModel interface abstracts the differences between providers
// (OpenAI, Anthropic, Google) behind a unified chat API. Implementations:
//   - Handle provider-specific authentication.
//   - Convert the standard Message format to the provider's wire format.
//   - Parse provider responses back into ChatOut.
//   - Respect context cancellation and timeouts.
package model

import "context"

// ChatModel is the interface all LLM chat providers implement.
type ChatModel interface {
	// Chat sends the conversation to the LLM and returns its reply.
	// Returns provider errors, network errors, or context cancellation.
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message represents a single message in an LLM conversation.
//
// Typical conversation structure: an optional system message setting
// behavior, followed by alternating user and assistant messages.
type Message struct {
	// Role identifies the message sender. Use the Role* constants.
	Role string

	// Content contains the message text.
	Content string
}

// Standard role constants, aligned with the conventions of the major
// providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatOut is the output of one chat completion.
type ChatOut struct {
	// Text contains the LLM's generated response.
	Text string

	// TokensUsed is the total token count the provider reported for the
	// call, or zero when the provider does not report usage.
	TokensUsed int
}
