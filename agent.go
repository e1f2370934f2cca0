package bookline

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"
)

// OutputTool declares one structured terminal outcome of an agent. It is
// advertised to the model like a regular tool, but a call to it is never
// executed: it ends the run, and Parse turns the call arguments into the
// run's structured output. An agent may declare several output tools, one
// per outcome variant; plain assistant text remains the raw-string fallback
// variant.
type OutputTool struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Parse       func(ctx context.Context, arguments string) (any, error)
}

// AgentOption is an option for configuring the Agent.
type AgentOption func(*Agent)

// WithModel sets the model provider for the Agent.
func WithModel(model ModelProvider) AgentOption {
	return func(a *Agent) {
		a.model = model
	}
}

// WithInstructions sets the instructions for the Agent.
func WithInstructions(instructions string) AgentOption {
	return func(a *Agent) {
		a.instructions = instructions
	}
}

// WithTools sets the tools for the Agent.
func WithTools(tools ...*Tool) AgentOption {
	return func(a *Agent) {
		a.tools = tools
	}
}

// WithOutputTools sets the structured outcome variants for the Agent.
func WithOutputTools(outputs ...*OutputTool) AgentOption {
	return func(a *Agent) {
		a.outputs = outputs
	}
}

// WithMaxIterations sets the maximum number of tool rounds for the Agent.
// By default, it is set to 10.
func WithMaxIterations(n int) AgentOption {
	return func(a *Agent) {
		a.maxIterations = n
	}
}

// Agent is a single reasoning step: given an input, a decoded transcript
// history, and an optional dependency value, it drives the model (and its
// tools) to a terminal structured result, streaming content fragments along
// the way.
type Agent struct {
	name          string
	instructions  string
	maxIterations int
	model         ModelProvider
	tools         []*Tool
	outputs       []*OutputTool
}

// NewAgent creates a new Agent with the given name and options.
func NewAgent(name string, opts ...AgentOption) (*Agent, error) {
	a := &Agent{
		name:          name,
		maxIterations: 10,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.model == nil {
		return nil, ErrModelProviderRequired
	}
	return a, nil
}

// Name returns the name of the Agent.
func (a *Agent) Name() string {
	return a.name
}

// Request carries the inputs of one agent run.
type Request struct {
	// Input is the latest user text. May be empty for runs driven purely by
	// dependencies (e.g. finalization).
	Input string
	// History is the full decoded transcript visible to this run.
	History []*Message
	// Deps is an optional structured dependency. It is rendered into the
	// system context and made available to tool handlers via DepsFromContext.
	Deps any
}

// ToolActivity describes one executed tool call. It is never surfaced to the
// end user; it exists so callers can observe or log tool traffic.
type ToolActivity struct {
	ID        string
	Name      string
	Arguments string
	Result    string
}

// Result is the terminal outcome of an agent run.
type Result struct {
	// Output is the parsed outcome variant: a value produced by one of the
	// agent's output tools, or the final assistant text as a raw string.
	Output any
	// Text is the final assistant text, if any.
	Text string
	// NewMessages is the encoded transcript row holding every message this
	// run produced, ready to be appended to the conversation state.
	NewMessages []byte
}

// Event is one element of an agent run's output stream: exactly one of
// Content (user-visible fragment), Tool (filtered tool activity), or Result
// (terminal) is set.
type Event struct {
	Content string
	Tool    *ToolActivity
	Result  *Result
}

// Run drains Stream and returns the terminal result.
func (a *Agent) Run(ctx context.Context, req *Request) (*Result, error) {
	var result *Result
	for event, err := range a.Stream(ctx, req) {
		if err != nil {
			return nil, err
		}
		if event.Result != nil {
			result = event.Result
		}
	}
	if result == nil {
		return nil, ErrNoFinalResponse
	}
	return result, nil
}

// Stream executes the agent run, yielding content fragments and tool
// activity as they happen, terminated by a single Result event. Tool rounds
// fully resolve before any dependent content streams.
func (a *Agent) Stream(ctx context.Context, req *Request) Generator[*Event, error] {
	return func(yield func(*Event, error) bool) {
		if req.Deps != nil {
			ctx = NewDepsContext(ctx, req.Deps)
		}
		instructions, err := a.renderInstructions(req.Deps)
		if err != nil {
			yield(nil, err)
			return
		}
		mreq := &ModelRequest{
			Instructions: instructions,
			Messages:     slices.Clone(req.History),
			Tools:        a.requestTools(),
		}
		var newMessages []*Message
		if req.Input != "" {
			user := UserMessage(req.Input)
			mreq.Messages = append(mreq.Messages, user)
			newMessages = append(newMessages, user)
		}
		for i := 0; i < a.maxIterations; i++ {
			final, ok := a.streamRound(ctx, mreq, yield)
			if !ok {
				return
			}
			mreq.Messages = append(mreq.Messages, final)
			newMessages = append(newMessages, final)
			if output, done := a.findOutputCall(final); done {
				a.finish(ctx, output, final, newMessages, yield)
				return
			}
			if len(final.ToolCalls) > 0 {
				toolMessage, err := a.executeTools(ctx, final.ToolCalls)
				if err != nil {
					yield(nil, err)
					return
				}
				for _, call := range toolMessage.ToolCalls {
					activity := &ToolActivity{ID: call.ID, Name: call.Name, Arguments: call.Arguments, Result: call.Result}
					if !yield(&Event{Tool: activity}, nil) {
						return
					}
				}
				mreq.Messages = append(mreq.Messages, toolMessage)
				newMessages = append(newMessages, toolMessage)
				continue
			}
			a.finish(ctx, nil, final, newMessages, yield)
			return
		}
		yield(nil, ErrMaxIterationsExceeded)
	}
}

// streamRound streams one model turn, forwarding content deltas, and returns
// the completed message. ok is false when the run should stop (error or
// consumer cancellation already delivered through yield).
func (a *Agent) streamRound(ctx context.Context, mreq *ModelRequest, yield func(*Event, error) bool) (*Message, bool) {
	var final *Message
	for res, err := range a.model.NewStreaming(ctx, mreq) {
		if err != nil {
			yield(nil, err)
			return nil, false
		}
		if res.Message == nil {
			continue
		}
		if res.Message.Status == StatusCompleted {
			final = res.Message
			continue
		}
		if res.Message.Content != "" {
			if !yield(&Event{Content: res.Message.Content}, nil) {
				return nil, false
			}
		}
	}
	if final == nil {
		yield(nil, ErrNoFinalResponse)
		return nil, false
	}
	return final, true
}

// findOutputCall reports whether the completed message invokes one of the
// agent's output tools, returning the matching call.
func (a *Agent) findOutputCall(message *Message) (*outputCall, bool) {
	for _, call := range message.ToolCalls {
		for _, output := range a.outputs {
			if call.Name == output.Name {
				return &outputCall{tool: output, arguments: call.Arguments}, true
			}
		}
	}
	return nil, false
}

type outputCall struct {
	tool      *OutputTool
	arguments string
}

// finish parses the terminal outcome and yields the Result event. A parse
// failure is not an error: the raw text stands in as the unrecognized
// variant and downstream routing treats it as "not ready".
func (a *Agent) finish(ctx context.Context, call *outputCall, final *Message, newMessages []*Message, yield func(*Event, error) bool) {
	var output any = final.Content
	if call != nil {
		parsed, err := call.tool.Parse(ctx, call.arguments)
		if err == nil {
			output = parsed
		} else {
			output = call.arguments
		}
	}
	row, err := EncodeMessages(newMessages)
	if err != nil {
		yield(nil, err)
		return
	}
	yield(&Event{Result: &Result{Output: output, Text: final.Content, NewMessages: row}}, nil)
}

// requestTools combines the agent's callable tools with its output tool
// declarations for the model request.
func (a *Agent) requestTools() []*Tool {
	tools := slices.Clone(a.tools)
	for _, output := range a.outputs {
		tools = append(tools, &Tool{
			Name:        output.Name,
			Description: output.Description,
			InputSchema: output.Schema,
		})
	}
	return tools
}

// renderInstructions appends the JSON-rendered dependency value to the
// static instructions so the model can see the structured context.
func (a *Agent) renderInstructions(deps any) (string, error) {
	if deps == nil {
		return a.instructions, nil
	}
	b, err := json.Marshal(deps)
	if err != nil {
		return "", fmt.Errorf("bookline: rendering deps: %w", err)
	}
	var buf strings.Builder
	buf.WriteString(a.instructions)
	buf.WriteString("\n\nContext:\n")
	buf.Write(b)
	return buf.String(), nil
}

// executeTools executes the requested tool calls and returns the tool result
// message for the next model round.
func (a *Agent) executeTools(ctx context.Context, calls []*ToolCall) (*Message, error) {
	var (
		m       sync.Mutex
		results = make([]*ToolCall, 0, len(calls))
	)
	eg, ctx := errgroup.WithContext(ctx)
	for _, call := range calls {
		eg.Go(func() error {
			tool := a.findTool(call.Name)
			if tool == nil {
				return fmt.Errorf("bookline: tool %s not found", call.Name)
			}
			result, err := tool.Handle(ctx, call.Arguments)
			if err != nil {
				return err
			}
			m.Lock()
			results = append(results, &ToolCall{ID: call.ID, Name: call.Name, Arguments: call.Arguments, Result: result})
			m.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return ToolResultMessage(results...), nil
}

func (a *Agent) findTool(name string) *Tool {
	for _, tool := range a.tools {
		if tool.Name == name {
			return tool
		}
	}
	return nil
}
