package bookline

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool represents a tool with a name, description, input schema, and a
// callable handler. The handler consumes the tool arguments serialized as a
// JSON string and returns the tool result, also as a string.
type Tool struct {
	Name        string                                        `json:"name"`
	Description string                                        `json:"description"`
	InputSchema *jsonschema.Schema                            `json:"inputSchema"`
	Handle      func(context.Context, string) (string, error) `json:"-"`
}
