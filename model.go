package bookline

import "context"

// ModelRequest is a chat-style request to the provider.
type ModelRequest struct {
	Instructions string     `json:"instructions,omitempty"`
	Messages     []*Message `json:"messages"`
	Tools        []*Tool    `json:"tools,omitempty"`
}

// ModelResponse is a single assistant message as a result of generation.
// During streaming, intermediate responses carry StatusIncomplete deltas and
// the final response carries the fully accumulated StatusCompleted message.
type ModelResponse struct {
	Message *Message `json:"message"`
}

// ModelProvider is an interface for chat-style models.
type ModelProvider interface {
	// Name returns the provider's model name.
	Name() string
	// Generate executes the request and returns a single assistant response.
	Generate(context.Context, *ModelRequest) (*ModelResponse, error)
	// NewStreaming executes the request and returns a stream of assistant
	// responses: zero or more incomplete deltas followed by one completed
	// message.
	NewStreaming(context.Context, *ModelRequest) Generator[*ModelResponse, error]
}
