package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/config"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/logging"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc) *Transport {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &config.Config{
		DatabricksHost:        srv.URL,
		DatabricksToken:       "dapi-test-token",
		RequestTimeoutSeconds: 5,
	}
	return NewTransport(cfg, logging.Discard())
}

func remoteErr(t *testing.T, err error) *RemoteError {
	t.Helper()
	var remote *RemoteError
	require.True(t, errors.As(err, &remote), "expected *RemoteError, got %T", err)
	return remote
}

func TestSendPostsJSONWithAuth(t *testing.T) {
	var gotBody map[string]any
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/2.1/clusters/start", r.URL.Path)
		assert.Equal(t, "Bearer dapi-test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Contains(t, r.Header.Get("User-Agent"), "databricks-mcp/")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{}`))
	})

	resp, err := tr.Send(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/2.1/clusters/start",
		Body:   map[string]any{"cluster_id": "c-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{}, resp.Body)
	assert.Equal(t, map[string]any{"cluster_id": "c-1"}, gotBody)
}

func TestSendEncodesQuery(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "c-1", r.URL.Query().Get("cluster_id"))
		_, _ = w.Write([]byte(`{"cluster_id":"c-1","num_workers":2}`))
	})

	resp, err := tr.Send(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/api/2.1/clusters/get",
		Query:  url.Values{"cluster_id": {"c-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, json.Number("2"), resp.Body["num_workers"])
}

func TestSendEmptyBodyIsInvalidResponse(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	resp, err := tr.Send(context.Background(), Request{Method: http.MethodPost, Path: "/x", Body: map[string]any{}})
	assert.Nil(t, resp)

	remote := remoteErr(t, err)
	assert.Equal(t, FailureInvalidResponse, remote.Kind)
	assert.Equal(t, http.StatusOK, remote.StatusCode)
	assert.Contains(t, remote.Message, "Invalid JSON response from API")
}

func TestSendAPIErrorUsesRemoteMessage(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error_code":"RESOURCE_DOES_NOT_EXIST","message":"not found"}`))
	})
	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"})

	remote := remoteErr(t, err)
	assert.Equal(t, FailureAPI, remote.Kind)
	assert.Equal(t, http.StatusNotFound, remote.StatusCode)
	assert.Equal(t, "not found", remote.Message)
	assert.Equal(t, map[string]any{"error": "not found"}, Failure(err).Body)
}

func TestSendAPIErrorWithoutMessage(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})
	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"})

	remote := remoteErr(t, err)
	assert.Equal(t, FailureAPI, remote.Kind)
	assert.Equal(t, "Request failed with status 502", remote.Message)
	assert.Equal(t, "<html>bad gateway</html>", remote.RawBody)
}

func TestSendInvalidJSON(t *testing.T) {
	cases := map[string]string{
		"not json":  `hello`,
		"array":     `[1,2]`,
		"trailing":  `{"a":1}{"b":2}`,
		"truncated": `{"a":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
			remote := remoteErr(t, err)
			assert.Equal(t, FailureInvalidResponse, remote.Kind)
			assert.Contains(t, remote.Message, "Invalid JSON response from API")
		})
	}
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/slow", Timeout: 50 * time.Millisecond})
	remote := remoteErr(t, err)
	assert.Equal(t, FailureTimeout, remote.Kind)
	assert.Contains(t, remote.Message, "timed out")
}

func TestSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	tr := NewTransport(&config.Config{DatabricksHost: addr, DatabricksToken: "dapi-test-token", RequestTimeoutSeconds: 5}, logging.Discard())
	_, err := tr.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	remote := remoteErr(t, err)
	assert.Equal(t, FailureTransport, remote.Kind)
	assert.Contains(t, remote.Message, "HTTP error")
}

func TestSendCancelled(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := tr.Send(ctx, Request{Method: http.MethodGet, Path: "/x"})
	remote := remoteErr(t, err)
	assert.Equal(t, FailureTransport, remote.Kind)
	assert.Equal(t, "Request cancelled", remote.Message)
}
