package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/version"
)

// Server handles MCP JSON-RPC requests against a toolbox and a prompt set.
type Server struct {
	toolbox *Toolbox
	prompts *Prompts
	logger  *logrus.Entry
}

// NewServer wires a toolbox and prompts into an MCP server.
func NewServer(tb *Toolbox, prompts *Prompts, logger *logrus.Entry) *Server {
	return &Server{toolbox: tb, prompts: prompts, logger: logger}
}

// Handle routes a single request. Tool failures come back inside the
// result; only protocol faults become JSON-RPC errors.
func (s *Server) Handle(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if err := validateJSONRPC(req); err != nil {
		return protocol.Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Error: err}, nil
	}

	switch req.Method {
	case "initialize":
		info := version.Get()
		return result(req.ID, map[string]any{
			"protocolVersion": protocol.Version,
			"serverInfo": map[string]string{
				"name":    info.Name,
				"version": info.Version,
			},
			"capabilities": map[string]any{
				"tools":   map[string]any{},
				"prompts": map[string]any{},
			},
		}), nil
	case "ping":
		return result(req.ID, map[string]any{}), nil
	case "notifications/initialized", "notifications/cancelled":
		// Acknowledged by the transport; nothing is sent back.
		return protocol.Response{}, nil
	case "tools/list":
		return result(req.ID, protocol.ListResult{Tools: s.toolbox.Describe()}), nil
	case "tools/call":
		var params protocol.CallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return WriteError(req.ID, protocol.CodeInvalidParams, "invalid params", err), nil
		}
		if params.Name == "" {
			return WriteError(req.ID, protocol.CodeInvalidParams, "tool name required", nil), nil
		}
		return result(req.ID, s.toolbox.Call(ctx, params.Name, params.Args)), nil
	case "prompts/list":
		return result(req.ID, protocol.PromptListResult{Prompts: s.prompts.Describe()}), nil
	case "prompts/get":
		var params protocol.PromptGetParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return WriteError(req.ID, protocol.CodeInvalidParams, "invalid params", err), nil
		}
		rendered, err := s.prompts.Get(params.Name, params.Arguments)
		if err != nil {
			return WriteError(req.ID, protocol.CodeInvalidParams, err.Error(), nil), nil
		}
		return result(req.ID, rendered), nil
	default:
		s.logger.Debugf("method not found: %s", req.Method)
		return WriteError(req.ID, protocol.CodeMethodNotFound, "method not found", nil), nil
	}
}

func result(id any, v any) protocol.Response {
	return protocol.Response{JSONRPC: "2.0", ID: normalizeID(id), Result: v}
}

// WriteError builds a response with an error and wraps encode issues.
func WriteError(id any, code int, message string, err error) protocol.Response {
	detail := message
	if err != nil {
		detail = fmt.Sprintf("%s: %v", message, err)
	}
	return protocol.Response{JSONRPC: "2.0", ID: normalizeID(id), Error: &protocol.ResponseError{Code: code, Message: detail}}
}

func validateJSONRPC(req protocol.Request) *protocol.ResponseError {
	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		return &protocol.ResponseError{Code: protocol.CodeInvalidRequest, Message: "invalid jsonrpc version"}
	}
	if req.Method == "" {
		return &protocol.ResponseError{Code: protocol.CodeInvalidRequest, Message: "method required"}
	}
	return nil
}

func normalizeID(id any) any {
	if id == nil {
		return "0"
	}
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return v
	case json.Number:
		return v
	case int, int32, int64, uint32, uint64:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// idKey identifies a request in the in-flight table.
func idKey(id any) string {
	return fmt.Sprint(normalizeID(id))
}
