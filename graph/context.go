package graph

import "context"

type ctxNodeKey struct{}

// NodeContext holds information about the current node in the graph.
type NodeContext struct {
	Name string
}

// NewNodeContext returns a new context with the given NodeContext.
func NewNodeContext(ctx context.Context, node *NodeContext) context.Context {
	return context.WithValue(ctx, ctxNodeKey{}, node)
}

// FromNodeContext retrieves the NodeContext from the context, if present.
func FromNodeContext(ctx context.Context) (*NodeContext, bool) {
	node, ok := ctx.Value(ctxNodeKey{}).(*NodeContext)
	return node, ok
}

// StreamWriter forwards one output fragment to the caller of Executor.Run.
type StreamWriter func(fragment string)

type ctxWriterKey struct{}

// NewWriterContext returns a new context carrying the stream writer.
func NewWriterContext(ctx context.Context, writer StreamWriter) context.Context {
	return context.WithValue(ctx, ctxWriterKey{}, writer)
}

// FromWriterContext retrieves the StreamWriter from the context, if present.
func FromWriterContext(ctx context.Context) (StreamWriter, bool) {
	writer, ok := ctx.Value(ctxWriterKey{}).(StreamWriter)
	return writer, ok
}

// Write forwards a fragment through the context's stream writer, if any.
// Node handlers use it to surface user-visible output.
func Write(ctx context.Context, fragment string) {
	if writer, ok := FromWriterContext(ctx); ok && fragment != "" {
		writer(fragment)
	}
}
