package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

// Client issues JSON-RPC calls to a running MCP server's /mcp endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	counter    uint64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// New builds a client for the server at baseURL (e.g. http://localhost:8000).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/mcp",
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) nextID() uint64 {
	return atomic.AddUint64(&c.counter, 1)
}

func (c *Client) do(ctx context.Context, method string, params any, out any) error {
	payload := protocol.Request{
		JSONRPC: "2.0",
		ID:      c.nextID(),
		Method:  method,
		Params:  mustRaw(params),
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call mcp server: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("mcp server returned status %d", httpResp.StatusCode)
	}

	var resp struct {
		Result json.RawMessage         `json:"result"`
		Error  *protocol.ResponseError `json:"error"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Ping checks the server is answering.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", map[string]any{}, nil)
}

// ListTools fetches the advertised tools from the MCP server.
func (c *Client) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	var result protocol.ListResult
	if err := c.do(ctx, "tools/list", map[string]any{}, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool. A tool-level failure is returned as a result
// with IsError set, not as an error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (protocol.CallResult, error) {
	var result protocol.CallResult
	err := c.do(ctx, "tools/call", protocol.CallParams{Name: name, Args: mustRaw(args)}, &result)
	return result, err
}

// ListPrompts fetches the advertised prompts.
func (c *Client) ListPrompts(ctx context.Context) ([]protocol.PromptDescriptor, error) {
	var result protocol.PromptListResult
	if err := c.do(ctx, "prompts/list", map[string]any{}, &result); err != nil {
		return nil, err
	}
	return result.Prompts, nil
}

// GetPrompt renders a prompt.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (protocol.PromptGetResult, error) {
	var result protocol.PromptGetResult
	err := c.do(ctx, "prompts/get", protocol.PromptGetParams{Name: name, Arguments: args}, &result)
	return result, err
}

func mustRaw(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage(`{}`)
	}
	b, _ := json.Marshal(v)
	return json.RawMessage(b)
}
