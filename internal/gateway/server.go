package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pedezap/pedezap/internal/config"
	"github.com/pedezap/pedezap/internal/domain"
	"github.com/pedezap/pedezap/internal/logging"
	"github.com/pedezap/pedezap/internal/session"
)

// SessionController is the slice of the session manager the HTTP surface
// needs. The concrete implementation is session.Manager.
type SessionController interface {
	Start(ctx context.Context, tenantID string) (session.Status, error)
	Stop(ctx context.Context, tenantID string) error
	GetStatus(tenantID string) session.Status
	ScannableAuth(tenantID string) string
	Watch(tenantID string) (<-chan domain.StatusEvent, func())
	Count() int
}

// OrderReader lists finalized orders for the dashboard endpoints.
type OrderReader interface {
	ListOrders(ctx context.Context, tenantID string, limit int) ([]domain.FinalizedOrder, error)
}

// Server is the pedezap control HTTP + WebSocket server.
type Server struct {
	cfg      config.ServerConfig
	log      *logging.Logger
	sessions SessionController
	orders   OrderReader

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New creates a control server over the given session controller.
func New(cfg config.ServerConfig, sessions SessionController, orders OrderReader, log *logging.Logger) *Server {
	return &Server{
		cfg:      cfg,
		log:      log.Sub("gateway"),
		sessions: sessions,
		orders:   orders,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.AllowedOrigins),
		},
	}
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin
// headers. Requests without an Origin header (non-browser clients) are always
// allowed; browser origins must match the configured list.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Routes builds the full HTTP handler including the middleware chain.
// Exposed separately from Start so tests can drive it with httptest.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /start/{tenant}", s.handleStart)
	mux.HandleFunc("POST /disconnect/{tenant}", s.handleDisconnect)
	mux.HandleFunc("GET /status/{tenant}", s.handleStatus)
	mux.HandleFunc("GET /auth/{tenant}", s.handleAuth)
	mux.HandleFunc("GET /orders/{tenant}", s.handleOrders)
	mux.HandleFunc("GET /ws/{tenant}", s.handleStatusFeed)
	mux.HandleFunc("/", handleNotFound)

	return withMiddleware(mux, s.log, s.cfg.AuthToken, s.cfg.AllowedOrigins)
}

// Start begins listening for HTTP and WebSocket connections. It blocks until
// the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Bool("auth", s.cfg.AuthToken != "").
		Msg("control server starting")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down control server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}
