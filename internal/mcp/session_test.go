package mcp

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/logging"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

func TestInflightDuplicateIDs(t *testing.T) {
	f := newInflight()
	ctxA, doneA := f.begin(context.Background(), 1)
	ctxB, doneB := f.begin(context.Background(), 1)
	defer doneB()

	doneA()
	require.Error(t, ctxA.Err())
	require.NoError(t, ctxB.Err())

	assert.True(t, f.cancel(1))
	assert.Error(t, ctxB.Err())
}

func TestInflightCancelReachesEveryCallWithTheID(t *testing.T) {
	f := newInflight()
	ctxA, doneA := f.begin(context.Background(), "x")
	ctxB, doneB := f.begin(context.Background(), "x")
	ctxC, doneC := f.begin(context.Background(), "y")
	defer doneC()

	assert.True(t, f.cancel("x"))
	assert.Error(t, ctxA.Err())
	assert.Error(t, ctxB.Err())
	assert.NoError(t, ctxC.Err())

	doneA()
	doneB()
	assert.False(t, f.cancel("x"))
}

func TestSessionRefusesRequestsAfterClose(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []protocol.Response
	)
	sess := newSession(newTestServer(t, &stubSender{}), func(resp protocol.Response) {
		mu.Lock()
		sent = append(sent, resp)
		mu.Unlock()
	}, logging.Discard())

	require.NoError(t, sess.accept(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))
	sess.close()

	err := sess.accept(context.Background(), []byte(`{"jsonrpc":"2.0","id":2,"method":"ping"}`))
	assert.ErrorIs(t, err, errSessionClosed)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 1)
}
