package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
)

// Tool is one callable operation exposed over MCP.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`

	// Handler runs the tool. A returned error becomes an isError tool
	// result, never a transport failure.
	Handler Handler `json:"-"`
}

// Handler is a tool implementation.
type Handler func(ctx context.Context, call *CallContext) (any, error)

// CallContext is the invocation context the transport layer hands to a
// tool handler: the raw arguments plus a best-effort progress sink.
type CallContext struct {
	// Arguments is the raw JSON argument object of the tools/call request.
	Arguments json.RawMessage

	// notify receives informational progress lines. It may be nil.
	notify func(message string)
}

// NewCallContext builds a CallContext. notify may be nil.
func NewCallContext(arguments json.RawMessage, notify func(message string)) *CallContext {
	return &CallContext{Arguments: arguments, notify: notify}
}

// Info emits a progress line to the client-facing sink, if any. It never
// blocks the call and failures of the sink itself are ignored.
func (c *CallContext) Info(format string, args ...any) {
	if c.notify == nil {
		return
	}
	c.notify(fmt.Sprintf(format, args...))
}

// Bind decodes the call arguments into v.
func (c *CallContext) Bind(v any) error {
	if len(c.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.Arguments, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// Registry holds the tools exposed by this server. It is populated once
// at startup and read-only afterwards.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are a programming error.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool already registered: %s", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister is Register for init-time wiring.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolCallResult represents the result of a tool call.
type ToolCallResult struct {
	Content []json.RawMessage `json:"content"`
	IsError bool              `json:"isError,omitempty"`
}

// Call dispatches a tools/call request. Handler errors are mapped to an
// isError result; only an unknown tool name is a protocol-level error.
func (r *Registry) Call(ctx context.Context, name string, call *CallContext) (*ToolCallResult, *RPCError) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, ErrToolNotFound(name)
	}

	result, err := tool.Handler(ctx, call)
	if err != nil {
		log.Printf("Tool %s failed: %v", name, err)
		return errorResult(err.Error()), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, ErrInternalError(fmt.Sprintf("encode %s result: %v", name, err))
	}
	return textResult(string(data)), nil
}

// textResult creates a text content result.
func textResult(text string) *ToolCallResult {
	block, _ := json.Marshal(map[string]string{"type": "text", "text": text})
	return &ToolCallResult{
		Content: []json.RawMessage{block},
	}
}

// errorResult creates a text content result flagged as a tool error.
func errorResult(text string) *ToolCallResult {
	res := textResult(text)
	res.IsError = true
	return res
}
