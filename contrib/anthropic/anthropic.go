// Package anthropic provides a bookline.ModelProvider backed by the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/bookline-ai/bookline"
)

var _ bookline.ModelProvider = (*Provider)(nil)

// Option is a functional option for configuring the provider.
type Option func(*Options)

// Options holds configuration for the provider.
type Options struct {
	MaxOutputTokens int64
	Temperature     float64
	RequestOpts     []option.RequestOption
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.RequestOpts = append(o.RequestOpts, option.WithAPIKey(key))
	}
}

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.RequestOpts = append(o.RequestOpts, option.WithBaseURL(url))
	}
}

// WithMaxOutputTokens sets the maximum number of tokens to generate.
func WithMaxOutputTokens(n int64) Option {
	return func(o *Options) {
		o.MaxOutputTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.Temperature = t
	}
}

// WithRequestOptions appends raw SDK request options.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(o *Options) {
		o.RequestOpts = append(o.RequestOpts, opts...)
	}
}

// Provider provides a unified interface for Claude API access.
type Provider struct {
	model  string
	opts   Options
	client anthropic.Client
}

// NewProvider creates a new provider for the given model name.
func NewProvider(model string, opts ...Option) *Provider {
	opt := Options{MaxOutputTokens: 1024}
	for _, apply := range opts {
		apply(&opt)
	}
	return &Provider{
		model:  model,
		opts:   opt,
		client: anthropic.NewClient(opt.RequestOpts...),
	}
}

// Name returns the model name.
func (p *Provider) Name() string {
	return p.model
}

// Generate executes the request and returns a single assistant response.
func (p *Provider) Generate(ctx context.Context, req *bookline.ModelRequest) (*bookline.ModelResponse, error) {
	params, err := p.toParams(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: converting request: %w", err)
	}
	message, err := p.client.Messages.New(ctx, *params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: generating content: %w", err)
	}
	return convertMessage(message), nil
}

// NewStreaming executes the request and returns a stream of assistant
// responses: text deltas as incomplete messages, then the fully accumulated
// completed message. The SDK stream is drained on a separate goroutine
// through a StreamPipe.
func (p *Provider) NewStreaming(ctx context.Context, req *bookline.ModelRequest) bookline.Generator[*bookline.ModelResponse, error] {
	return func(yield func(*bookline.ModelResponse, error) bool) {
		params, err := p.toParams(req)
		if err != nil {
			yield(nil, fmt.Errorf("anthropic: converting request: %w", err))
			return
		}
		pipe := bookline.NewStreamPipe[*bookline.ModelResponse]()
		pipe.Go(func() error {
			streaming := p.client.Messages.NewStreaming(ctx, *params)
			defer streaming.Close()
			message := &anthropic.Message{}
			for streaming.Next() {
				event := streaming.Current()
				if err := message.Accumulate(event); err != nil {
					return err
				}
				if ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
					if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
						pipe.Send(&bookline.ModelResponse{Message: &bookline.Message{
							Role:    bookline.RoleAssistant,
							Content: delta.Text,
							Status:  bookline.StatusIncomplete,
						}})
					}
				}
			}
			if err := streaming.Err(); err != nil {
				return err
			}
			pipe.Send(convertMessage(message))
			return nil
		})
		for pipe.Next() {
			res, _ := pipe.Current()
			if !yield(res, nil) {
				return
			}
		}
		if _, err := pipe.Current(); err != nil {
			yield(nil, err)
		}
	}
}

// toParams converts a bookline request to Claude MessageNewParams.
func (p *Provider) toParams(req *bookline.ModelRequest) (*anthropic.MessageNewParams, error) {
	params := &anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.opts.MaxOutputTokens,
	}
	if p.opts.Temperature > 0 {
		params.Temperature = anthropic.Float(p.opts.Temperature)
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case bookline.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case bookline.RoleUser:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case bookline.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, json.RawMessage(call.Arguments), call.Name))
			}
			if len(blocks) > 0 {
				params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
			}
		case bookline.RoleTool:
			var blocks []anthropic.ContentBlockParamUnion
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolResultBlock(call.ID, call.Result, false))
			}
			if len(blocks) > 0 {
				params.Messages = append(params.Messages, anthropic.NewUserMessage(blocks...))
			}
		}
	}
	tools, err := convertTools(req.Tools)
	if err != nil {
		return nil, err
	}
	params.Tools = tools
	return params, nil
}

// convertTools converts bookline tools to Claude ToolParams.
func convertTools(tools []*bookline.Tool) ([]anthropic.ToolUnionParam, error) {
	var claudeTools []anthropic.ToolUnionParam
	for _, tool := range tools {
		var inputSchema anthropic.ToolInputSchemaParam
		schemaBytes, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshaling tool schema: %w", err)
		}
		if err := json.Unmarshal(schemaBytes, &inputSchema); err != nil {
			return nil, fmt.Errorf("unmarshaling tool schema: %w", err)
		}
		toolParam := anthropic.ToolParam{
			Name:        tool.Name,
			InputSchema: inputSchema,
		}
		if tool.Description != "" {
			toolParam.Description = anthropic.String(tool.Description)
		}
		claudeTools = append(claudeTools, anthropic.ToolUnionParam{
			OfTool: &toolParam,
		})
	}
	return claudeTools, nil
}

// convertMessage converts a completed Claude message to a bookline message.
func convertMessage(message *anthropic.Message) *bookline.ModelResponse {
	msg := &bookline.Message{Role: bookline.RoleAssistant, Status: bookline.StatusCompleted}
	var text strings.Builder
	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			msg.ToolCalls = append(msg.ToolCalls, &bookline.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: string(b.Input),
			})
		}
	}
	msg.Content = text.String()
	return &bookline.ModelResponse{Message: msg}
}
