// Package api exposes the HTTP surface of the booking agent: the channel
// webhook (verification handshake plus event deliveries), a health check,
// and an optional debug view of live sessions.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slotline/slotline/internal/messaging"
	"github.com/slotline/slotline/internal/models"
	"github.com/slotline/slotline/internal/store"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// DefaultEventTimeout bounds the processing of one webhook delivery.
const DefaultEventTimeout = 30 * time.Second

// EventHandler processes one inbound event and returns the replies to send.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev models.Event) ([]models.OutboundMessage, error)
}

// Server wires the webhook, the conversation engine and the delivery channel.
type Server struct {
	addr         string
	engine       EventHandler
	msgService   messaging.Service
	st           store.Store
	debug        bool
	eventTimeout time.Duration
	httpSrv      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithDebugEndpoints enables the unauthenticated /debug/sessions/ view.
// Never enable this on an internet-facing deployment.
func WithDebugEndpoints() Option {
	return func(s *Server) { s.debug = true }
}

// WithEventTimeout overrides the per-delivery processing deadline.
func WithEventTimeout(d time.Duration) Option {
	return func(s *Server) { s.eventTimeout = d }
}

// NewServer creates the API server. st may be nil when the debug endpoint
// is disabled.
func NewServer(engine EventHandler, msgService messaging.Service, st store.Store, opts ...Option) *Server {
	s := &Server{
		addr:         DefaultAddr,
		engine:       engine,
		msgService:   msgService,
		st:           st,
		eventTimeout: DefaultEventTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	if s.debug {
		slog.Warn("Server.Handler: debug endpoints enabled")
		mux.HandleFunc("/debug/sessions/", s.debugSessionHandler)
	}
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Server.Run: shutting down")
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}
