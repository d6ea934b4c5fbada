package mcp

import (
	"context"
	"encoding/json"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/gateway"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

// Tool defines the behavior of a single MCP tool.
type Tool interface {
	Descriptor() protocol.ToolDescriptor
	Invoke(ctx context.Context, raw json.RawMessage) protocol.CallResult
}

// Toolbox stores and dispatches tools by name, keeping registration order.
type Toolbox struct {
	order []Tool
	tools map[string]Tool
}

// NewToolbox constructs a toolbox with the provided tools.
func NewToolbox(tools ...Tool) *Toolbox {
	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		desc := t.Descriptor()
		m[desc.Name] = t
	}
	return &Toolbox{order: tools, tools: m}
}

// GatewayTools exposes every registered operation as a tool.
func GatewayTools(g *gateway.Gateway) []Tool {
	ops := g.Registry().Operations()
	out := make([]Tool, 0, len(ops))
	for _, op := range ops {
		out = append(out, &operationTool{op: op, gateway: g})
	}
	return out
}

// Describe returns all tool descriptors in registration order.
func (tb *Toolbox) Describe() []protocol.ToolDescriptor {
	list := make([]protocol.ToolDescriptor, 0, len(tb.order))
	for _, t := range tb.order {
		list = append(list, t.Descriptor())
	}
	return list
}

// Call invokes a named tool. Unknown names yield an error result, not a
// protocol fault.
func (tb *Toolbox) Call(ctx context.Context, name string, args json.RawMessage) protocol.CallResult {
	tool, ok := tb.tools[name]
	if !ok {
		return gateway.InvokeError(&gateway.UnknownOperationError{Name: name})
	}
	return tool.Invoke(ctx, args)
}

type operationTool struct {
	op      *gateway.Operation
	gateway *gateway.Gateway
}

func (t *operationTool) Descriptor() protocol.ToolDescriptor {
	return t.op.Descriptor()
}

func (t *operationTool) Invoke(ctx context.Context, raw json.RawMessage) protocol.CallResult {
	return t.gateway.Invoke(ctx, t.op.Name, raw)
}
