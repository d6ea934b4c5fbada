package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/gateway"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/logging"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/tools"
)

// stubSender answers every call with body, or blocks until the call is
// cancelled when block is set.
type stubSender struct {
	mu      sync.Mutex
	body    map[string]any
	block   bool
	started chan string
}

func (s *stubSender) Send(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
	if s.block {
		if s.started != nil {
			s.started <- req.Path
		}
		<-ctx.Done()
		return nil, &gateway.RemoteError{Kind: gateway.FailureTransport, Message: "Request cancelled"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	body := map[string]any{}
	for k, v := range s.body {
		body[k] = v
	}
	return &gateway.Response{StatusCode: http.StatusOK, Body: body}, nil
}

func newTestServer(t *testing.T, sender gateway.Sender) *Server {
	t.Helper()
	reg, err := tools.NewRegistry()
	require.NoError(t, err)
	g := gateway.New(reg, sender, logging.Discard())
	return NewServer(NewToolbox(GatewayTools(g)...), DefaultPrompts(), logging.Discard())
}

func handle(t *testing.T, s *Server, method string, params any) protocol.Response {
	t.Helper()
	req := protocol.Request{JSONRPC: "2.0", ID: float64(1), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		require.NoError(t, err)
		req.Params = raw
	}
	resp, err := s.Handle(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func TestInitialize(t *testing.T) {
	resp := handle(t, newTestServer(t, &stubSender{}), "initialize", map[string]any{})
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	assert.Equal(t, protocol.Version, result["protocolVersion"])
	info := result["serverInfo"].(map[string]string)
	assert.Equal(t, "databricks-mcp", info["name"])
	assert.Contains(t, result["capabilities"], "tools")
	assert.Contains(t, result["capabilities"], "prompts")
}

func TestToolsListInRegistrationOrder(t *testing.T) {
	resp := handle(t, newTestServer(t, &stubSender{}), "tools/list", nil)
	require.Nil(t, resp.Error)

	list := resp.Result.(protocol.ListResult)
	catalog := tools.Catalog()
	require.Len(t, list.Tools, len(catalog))
	for i, op := range catalog {
		assert.Equal(t, op.Name, list.Tools[i].Name)
		assert.Equal(t, "object", list.Tools[i].InputSchema.Type)
	}
}

func TestToolsCallSuccess(t *testing.T) {
	s := newTestServer(t, &stubSender{body: map[string]any{"cluster_id": "c-1", "state": "RUNNING"}})
	resp := handle(t, s, "tools/call", map[string]any{
		"name":      "get_cluster",
		"arguments": map[string]any{"cluster_id": "c-1"},
	})
	require.Nil(t, resp.Error)

	result := resp.Result.(protocol.CallResult)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"cluster_id":"c-1","state":"RUNNING"}`, result.Content[0].Text)
}

func TestToolsCallFailureIsAResult(t *testing.T) {
	s := newTestServer(t, &stubSender{})
	resp := handle(t, s, "tools/call", map[string]any{"name": "get_cluster", "arguments": map[string]any{}})
	require.Nil(t, resp.Error)

	result := resp.Result.(protocol.CallResult)
	assert.True(t, result.IsError)
	assert.JSONEq(t, `{"error":"missing required parameters: cluster_id"}`, result.Content[0].Text)
}

func TestToolsCallUnknownTool(t *testing.T) {
	resp := handle(t, newTestServer(t, &stubSender{}), "tools/call", map[string]any{"name": "format_disk"})
	require.Nil(t, resp.Error)

	result := resp.Result.(protocol.CallResult)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "unknown operation: format_disk")
}

func TestToolsCallBadParams(t *testing.T) {
	s := newTestServer(t, &stubSender{})

	resp := handle(t, s, "tools/call", map[string]any{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInvalidParams, resp.Error.Code)

	resp, err := s.Handle(context.Background(), protocol.Request{ID: float64(2), Method: "tools/call", Params: json.RawMessage(`"x"`)})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInvalidParams, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	resp := handle(t, newTestServer(t, &stubSender{}), "resources/list", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeMethodNotFound, resp.Error.Code)
}

func TestInvalidVersion(t *testing.T) {
	resp, err := newTestServer(t, &stubSender{}).Handle(context.Background(), protocol.Request{JSONRPC: "1.0", ID: "a", Method: "ping"})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "a", resp.ID)
}

func TestPing(t *testing.T) {
	resp := handle(t, newTestServer(t, &stubSender{}), "ping", nil)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{}, resp.Result)
}

func TestPromptsOverRPC(t *testing.T) {
	s := newTestServer(t, &stubSender{})

	resp := handle(t, s, "prompts/list", nil)
	require.Nil(t, resp.Error)
	prompts := resp.Result.(protocol.PromptListResult).Prompts
	require.Len(t, prompts, 1)
	assert.Equal(t, "create-databricks-cluster-configurations", prompts[0].Name)

	resp = handle(t, s, "prompts/get", map[string]any{
		"name":      "create-databricks-cluster-configurations",
		"arguments": map[string]string{"cluster_name": "etl", "node_type_id": "i3.xlarge", "spark_version": "13.3.x"},
	})
	require.Nil(t, resp.Error)
	got := resp.Result.(protocol.PromptGetResult)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content.Text, "Cluster name: etl")

	resp = handle(t, s, "prompts/get", map[string]any{"name": "create-databricks-cluster-configurations"})
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "cluster_name")
}
