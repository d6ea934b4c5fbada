package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

// inflight tracks cancel functions of running requests by id. Ids should be
// unique per session but clients reuse them; every call registered under an
// id is cancelled together and each removes only its own entry.
type inflight struct {
	mu    sync.Mutex
	seq   uint64
	calls map[string]map[uint64]context.CancelFunc
}

func newInflight() *inflight {
	return &inflight{calls: map[string]map[uint64]context.CancelFunc{}}
}

func (f *inflight) begin(ctx context.Context, id any) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	key := idKey(id)
	f.mu.Lock()
	f.seq++
	seq := f.seq
	if f.calls[key] == nil {
		f.calls[key] = map[uint64]context.CancelFunc{}
	}
	f.calls[key][seq] = cancel
	f.mu.Unlock()
	return ctx, func() {
		f.mu.Lock()
		if byID := f.calls[key]; byID != nil {
			delete(byID, seq)
			if len(byID) == 0 {
				delete(f.calls, key)
			}
		}
		f.mu.Unlock()
		cancel()
	}
}

func (f *inflight) cancel(id any) bool {
	f.mu.Lock()
	byID := f.calls[idKey(id)]
	cancels := make([]context.CancelFunc, 0, len(byID))
	for _, cancel := range byID {
		cancels = append(cancels, cancel)
	}
	f.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels) > 0
}

func (f *inflight) cancelAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, byID := range f.calls {
		for _, cancel := range byID {
			cancel()
		}
	}
}

var errSessionClosed = errors.New("session closed")

// session is one client connection. Requests run concurrently; responses
// leave through send, which must be safe for concurrent use.
type session struct {
	server *Server
	calls  *inflight
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	send   func(protocol.Response)
	logger *logrus.Entry
}

func newSession(server *Server, send func(protocol.Response), logger *logrus.Entry) *session {
	return &session{server: server, calls: newInflight(), send: send, logger: logger}
}

// accept decodes one message and dispatches it. Cancellation and other
// notifications are applied before accept returns, so a cancel that
// follows its request on the wire always finds it registered. Once the
// session is closed every message is refused with errSessionClosed.
func (s *session) accept(ctx context.Context, raw []byte) error {
	if s.isClosed() {
		return errSessionClosed
	}
	var req protocol.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.send(WriteError(nil, protocol.CodeParseError, "invalid JSON", err))
		return nil
	}

	if req.IsNotification() {
		if req.Method == "notifications/cancelled" {
			var params protocol.CancelledParams
			if err := json.Unmarshal(req.Params, &params); err == nil && params.RequestID != nil {
				if s.calls.cancel(params.RequestID) {
					s.logger.WithField("request_id", idKey(params.RequestID)).Info("request cancelled by client")
				}
			}
			return nil
		}
		if _, err := s.server.Handle(ctx, req); err != nil {
			s.logger.Warnf("notification %s: %v", req.Method, err)
		}
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSessionClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	callCtx, done := s.calls.begin(ctx, req.ID)
	go func() {
		defer s.wg.Done()
		defer done()
		resp, err := s.server.Handle(callCtx, req)
		if err != nil {
			resp = WriteError(req.ID, protocol.CodeInternalError, "internal error", err)
		}
		s.send(resp)
	}()
	return nil
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *session) shut() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// close refuses new requests, cancels outstanding ones and waits for them.
func (s *session) close() {
	s.shut()
	s.calls.cancelAll()
	s.wg.Wait()
}

// drain refuses new requests and waits for outstanding ones without
// cancelling them.
func (s *session) drain() {
	s.shut()
	s.wg.Wait()
}
