// Package llm defines the minimal language-model contract the call
// responder needs: given a system prompt and a short conversation history,
// produce one reply. Streaming, tool calling, and token accounting are
// deliberately out of the contract; an utterance on a phone call is spoken
// whole, after guardrails have seen all of it.
package llm

import "context"

// Message is one turn of the conversation history.
type Message struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the turn's text.
	Content string
}

// CompletionRequest carries everything the model needs for one reply.
type CompletionRequest struct {
	// SystemPrompt is the persona instruction injected before the history.
	SystemPrompt string

	// Messages is the ordered conversation history; the last entry is the
	// caller utterance driving the reply.
	Messages []Message

	// Temperature controls randomness. Zero means the backend default.
	Temperature float64

	// MaxTokens caps the reply length. Zero means the backend default.
	MaxTokens int
}

// Provider is the abstraction over any language-model backend.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Complete produces one reply for the request.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
