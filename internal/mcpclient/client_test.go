package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

func fakeServer(t *testing.T, handle func(req protocol.Request) protocol.Response) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mcp" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req protocol.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(handle(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCallTool(t *testing.T) {
	var got protocol.CallParams
	srv := fakeServer(t, func(req protocol.Request) protocol.Response {
		assert.Equal(t, "tools/call", req.Method)
		assert.Equal(t, "2.0", req.JSONRPC)
		require.NoError(t, json.Unmarshal(req.Params, &got))
		return protocol.Response{JSONRPC: "2.0", ID: req.ID, Result: protocol.CallResult{
			Content: []protocol.ContentPart{{Type: "text", Text: `{"error":"not found"}`}},
			IsError: true,
		}}
	})

	res, err := New(srv.URL+"/").CallTool(context.Background(), "get_cluster", map[string]any{"cluster_id": "c-1"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, `{"error":"not found"}`, res.Content[0].Text)
	assert.Equal(t, "get_cluster", got.Name)
	assert.JSONEq(t, `{"cluster_id":"c-1"}`, string(got.Args))
}

func TestListTools(t *testing.T) {
	srv := fakeServer(t, func(req protocol.Request) protocol.Response {
		return protocol.Response{JSONRPC: "2.0", ID: req.ID, Result: protocol.ListResult{Tools: []protocol.ToolDescriptor{
			{Name: "list_clusters"}, {Name: "get_cluster"},
		}}}
	})

	list, err := New(srv.URL).ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "list_clusters", list[0].Name)
}

func TestRPCErrorIsReturned(t *testing.T) {
	srv := fakeServer(t, func(req protocol.Request) protocol.Response {
		return protocol.Response{JSONRPC: "2.0", ID: req.ID, Error: &protocol.ResponseError{Code: protocol.CodeMethodNotFound, Message: "method not found"}}
	})

	err := New(srv.URL).Ping(context.Background())
	var rpcErr *protocol.ResponseError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, protocol.CodeMethodNotFound, rpcErr.Code)
}

func TestHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListTools(context.Background())
	assert.EqualError(t, err, "mcp server returned status 503")
}

func TestRequestIDsIncrease(t *testing.T) {
	var ids []float64
	srv := fakeServer(t, func(req protocol.Request) protocol.Response {
		ids = append(ids, req.ID.(float64))
		return protocol.Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}}
	})

	c := New(srv.URL)
	require.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, []float64{1, 2}, ids)
}
