package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/config"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/logging"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

func testConfig(host string) *config.Config {
	return &config.Config{
		DatabricksHost:        host,
		DatabricksToken:       "dapi0123456789",
		Transport:             config.TransportStdio,
		RequestTimeoutSeconds: 5,
	}
}

func runStdio(t *testing.T, cfg *config.Config, lines ...string) map[float64]protocol.Response {
	t.Helper()
	var out strings.Builder
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, Run(context.Background(), cfg, in, &out, logging.Discard()))

	byID := map[float64]protocol.Response{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var resp protocol.Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		byID[resp.ID.(float64)] = resp
	}
	return byID
}

func callResult(t *testing.T, resp protocol.Response) protocol.CallResult {
	t.Helper()
	require.Nil(t, resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var out protocol.CallResult
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRunStdioAgainstFakeWorkspace(t *testing.T) {
	workspace := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer dapi0123456789", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/2.1/clusters/list":
			_, _ = w.Write([]byte(`{}`))
		case "/api/2.1/clusters/get":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":"INVALID_PARAMETER_VALUE","message":"not found"}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer workspace.Close()

	byID := runStdio(t, testConfig(workspace.URL),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"list_clusters","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_cluster","arguments":{"cluster_id":"missing"}}}`,
	)

	empty := callResult(t, byID[1])
	assert.False(t, empty.IsError)
	assert.Equal(t, "No clusters found in the workspace", empty.Content[0].Text)

	missing := callResult(t, byID[2])
	assert.True(t, missing.IsError)
	assert.JSONEq(t, `{"error":"not found"}`, missing.Content[0].Text)
}

func TestRunUnsupportedTransport(t *testing.T) {
	cfg := testConfig("https://example.cloud.databricks.com")
	cfg.Transport = "carrier-pigeon"
	err := Run(context.Background(), cfg, strings.NewReader(""), &strings.Builder{}, logging.Discard())
	assert.EqualError(t, err, `unsupported transport "carrier-pigeon"`)
}
