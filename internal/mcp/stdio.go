package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

const maxMessageBytes = 16 << 20

// ServeStdio reads newline-delimited JSON-RPC messages from in and writes
// one response line per request to out. It returns when in is exhausted
// (after pending requests finish) or when ctx is done (after cancelling
// them).
func ServeStdio(ctx context.Context, server *Server, in io.Reader, out io.Writer, logger *logrus.Entry) error {
	var mu sync.Mutex
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	send := func(resp protocol.Response) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(resp); err != nil {
			logger.Errorf("write response: %v", err)
		}
	}

	sess := newSession(server, send, logger)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxMessageBytes)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	logger.Info("serving MCP over stdio")
	for {
		select {
		case <-ctx.Done():
			sess.close()
			return nil
		case line, ok := <-lines:
			if !ok {
				sess.drain()
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			_ = sess.accept(ctx, line)
		}
	}
}
