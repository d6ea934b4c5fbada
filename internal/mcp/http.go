package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

const (
	keepAliveInterval = 30 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// HTTPServer serves MCP over Server-Sent Events plus a synchronous
// JSON-RPC endpoint.
//
//	GET  /sse                      event stream; first event is "endpoint"
//	POST /messages?session_id=ID   one request, answered on the stream
//	POST /mcp                      one request, answered in the body
//	GET  /health                   liveness
type HTTPServer struct {
	server *Server
	logger *logrus.Entry

	mu       sync.RWMutex
	sessions map[string]*sseSession
}

type sseSession struct {
	*session
	ctx context.Context
	out chan protocol.Response
}

// NewHTTPServer wraps an MCP server for HTTP transports.
func NewHTTPServer(server *Server, logger *logrus.Entry) *HTTPServer {
	return &HTTPServer{server: server, logger: logger, sessions: map[string]*sseSession{}}
}

// Routes builds the router.
func (h *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/sse", h.handleStream)
	r.Post("/messages", h.handleMessage)
	r.Post("/mcp", h.handleCall)
	return r
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (h *HTTPServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.logger.Infof("serving MCP over SSE on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		h.closeSessions()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// RunHTTP starts an HTTP server for the MCP server on addr.
func RunHTTP(ctx context.Context, server *Server, addr string, logger *logrus.Entry) error {
	return NewHTTPServer(server, logger).Run(ctx, addr)
}

func (h *HTTPServer) handleStream(w http.ResponseWriter, r *http.Request) {
	stream, err := NewSSEWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	id := uuid.NewString()
	ctx := r.Context()
	sess := &sseSession{ctx: ctx, out: make(chan protocol.Response, 16)}
	log := h.logger.WithField("session", id)
	sess.session = newSession(h.server, func(resp protocol.Response) {
		select {
		case sess.out <- resp:
		case <-ctx.Done():
		}
	}, log)

	h.mu.Lock()
	h.sessions[id] = sess
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.sessions, id)
		h.mu.Unlock()
		sess.close()
		log.Info("SSE session closed")
	}()

	log.Info("SSE session opened")
	if err := stream.SendEvent("endpoint", []byte("/messages?session_id="+id)); err != nil {
		log.Warnf("send endpoint event: %v", err)
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case resp := <-sess.out:
			data, err := json.Marshal(resp)
			if err != nil {
				log.Errorf("encode response: %v", err)
				continue
			}
			if err := stream.SendEvent("message", data); err != nil {
				log.Warnf("send message event: %v", err)
				return
			}
		case <-ticker.C:
			if err := stream.Comment("keep-alive"); err != nil {
				return
			}
		}
	}
}

func (h *HTTPServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	h.mu.RLock()
	sess, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	// The call belongs to the stream, not to this POST.
	if sess.ctx.Err() != nil || sess.accept(sess.ctx, raw) != nil {
		http.Error(w, "session closed", http.StatusGone)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("Accepted"))
}

func (h *HTTPServer) handleCall(w http.ResponseWriter, r *http.Request) {
	var req protocol.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeJSON(w, WriteError(nil, protocol.CodeParseError, "invalid JSON", err), http.StatusBadRequest)
		return
	}

	resp, err := h.server.Handle(r.Context(), req)
	if err != nil {
		writeJSON(w, WriteError(req.ID, protocol.CodeInternalError, "internal error", err), http.StatusInternalServerError)
		return
	}
	if req.IsNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, resp, http.StatusOK)
}

func (h *HTTPServer) closeSessions() {
	h.mu.RLock()
	sessions := make([]*sseSession, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()
	for _, s := range sessions {
		s.calls.cancelAll()
	}
}

func (h *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("http request")
	})
}

func writeJSON(w http.ResponseWriter, resp protocol.Response, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}
