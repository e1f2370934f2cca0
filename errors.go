package bookline

import "errors"

var (
	// ErrModelProviderRequired is returned when an agent is built without a model.
	ErrModelProviderRequired = errors.New("bookline: model provider is required")
	// ErrMaxIterationsExceeded is returned when an agent exceeds the maximum allowed tool rounds.
	ErrMaxIterationsExceeded = errors.New("bookline: maximum iterations exceeded in agent execution")
	// ErrNoFinalResponse is returned when a model stream ends without a completed message.
	ErrNoFinalResponse = errors.New("bookline: stream ended without a final response")
)
