package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jpalmerr/uptimerobot/internal/errs"
	"github.com/jpalmerr/uptimerobot/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// Placeholder is the body served at "/".
	Placeholder = "This may be a Web UI for the uptimerobot in the future"
)

// Server exposes the in-memory status over HTTP.
//
// Routes:
//   - GET /: plain-text placeholder
//   - GET /api/status: all current statuses as JSON, sorted by name
//   - GET /api/status/{name}: one endpoint's status
//   - GET /api/sse: Server-Sent Events stream of status updates
//
// The server shuts down gracefully when the context passed to Start is cancelled.
type Server struct {
	store      store.Store
	addr       string
	httpServer *http.Server
	logger     *slog.Logger

	mu       sync.Mutex
	boundTo  net.Addr
	serveErr chan error
}

// NewServer creates a new HTTP [Server] that will listen on addr
// (e.g. ":8080" or "127.0.0.1:0").
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    st,
		addr:     addr,
		logger:   logger,
		serveErr: make(chan error, 1),
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware())

	r.Get("/", s.handleIndex)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/status/{name}", s.handleEndpoint)
	r.Get("/api/sse", s.handleSSE)
	return r
}

// corsMiddleware allows any origin to read the status API. Nothing it
// serves is writable or credentialed.
func corsMiddleware() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Cache-Control", "Last-Event-ID"},
		MaxAge:         300,
	})
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start returns once the listener is bound, so a port conflict is reported
// synchronously. The server runs until ctx is cancelled, then shuts down
// with a 5-second timeout.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errs.Wrap(err, errs.CodeServerStartFailure, "binding status server", errs.Field("addr", s.addr))
	}

	s.mu.Lock()
	s.boundTo = ln.Addr()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// all request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("status server listening", "addr", ln.Addr().String())

	go func() {
		err := httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
			s.serveErr <- err
		}
		close(s.serveErr)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundTo
}

// Done returns a channel that is closed once the server has stopped serving.
// A serve error, if any, is delivered before the close.
func (s *Server) Done() <-chan error {
	return s.serveErr
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := fmt.Fprint(w, Placeholder); err != nil {
		s.logger.Error("failed to write index response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.GetAll())
}

func (s *Server) handleEndpoint(w http.ResponseWriter, r *http.Request) {
	result, ok := s.store.Get(chi.URLParam(r, "name"))
	if !ok {
		http.Error(w, "endpoint not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

// handleSSE streams status updates via Server-Sent Events.
//
// Every write carries a deadline so that a stalled client cannot pin the
// handler goroutine past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// may not be supported by some ResponseWriter implementations
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// initial snapshot
	for _, status := range s.store.GetAll() {
		data, err := json.Marshal(status)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case result, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(result)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
