// Package server exposes sessions over WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"nhooyr.io/websocket"

	"github.com/kostyay/netpulse/internal/logging"
	"github.com/kostyay/netpulse/internal/session"
)

// DefaultReadLimit caps the size of an inbound frame.
const DefaultReadLimit = 64 << 10

const shutdownTimeout = 3 * time.Second

// SessionHandler runs one session on an accepted connection.
type SessionHandler interface {
	Serve(ctx context.Context, conn session.Conn) error
}

// Config configures a Server.
type Config struct {
	Listen         string   // host:port, port 0 picks a free port
	AllowedOrigins []string // extra Origin patterns accepted for upgrades
	ReadLimit      int64
	Logger         *log.Entry
}

// ReadyInfo describes the bound listener. It is printed once the server is
// accepting connections.
type ReadyInfo struct {
	Port    int    `json:"port"`
	Address string `json:"address"`
}

// NewReadyInfo builds a ReadyInfo from a listener address.
func NewReadyInfo(addr net.Addr) ReadyInfo {
	info := ReadyInfo{Address: addr.String()}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		info.Port = tcp.Port
	}
	return info
}

// Server accepts WebSocket upgrades on any path and hands each connection
// to the session handler. GET /healthz answers "ok".
type Server struct {
	cfg     Config
	handler SessionHandler
	logger  *log.Entry

	// ctx outlives individual requests; hijacked connections are not
	// cancelled by http.Server.Shutdown, so sessions watch this instead.
	ctx      context.Context
	mu       sync.Mutex
	closing  bool // set before sessions.Wait, guards sessions.Add
	sessions sync.WaitGroup
}

// New creates a server.
func New(handler SessionHandler, cfg Config) *Server {
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = DefaultReadLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Server{cfg: cfg, handler: handler, logger: cfg.Logger, ctx: context.Background()}
}

// ListenAndServe listens on the configured address, calls ready with the
// bound address and serves until ctx is cancelled. Running sessions are
// closed before it returns.
func (s *Server) ListenAndServe(ctx context.Context, ready func(ReadyInfo)) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln, ready)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, ready func(ReadyInfo)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Warn("shutdown did not complete cleanly")
		}
	}()

	info := NewReadyInfo(ln.Addr())
	s.logger.WithField("address", info.Address).Info("listening")
	if ready != nil {
		ready(info)
	}

	err := srv.Serve(ln)
	cancel()
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.sessions.Wait()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeHTTP routes upgrades, health checks and everything else.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case isWebSocketUpgrade(r):
		s.serveWebSocket(w, r)
	case r.URL.Path == "/healthz" && (r.Method == http.MethodGet || r.Method == http.MethodHead):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	default:
		http.NotFound(w, r)
	}
}

// beginSession registers a session unless the server is shutting down.
func (s *Server) beginSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions.Add(1)
	return true
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.beginSession() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.sessions.Done()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		s.logger.WithError(err).WithField("remote", r.RemoteAddr).Warn("websocket accept failed")
		return
	}
	c.SetReadLimit(s.cfg.ReadLimit)

	logger := s.logger.WithFields(log.Fields{"remote": r.RemoteAddr, "path": r.URL.Path})
	logger.Debug("client connected")

	if err := s.handler.Serve(s.ctx, &wsConn{c: c}); err != nil {
		logger.WithError(err).Warn("session ended with error")
		return
	}
	logger.Debug("client disconnected")
}

func isWebSocketUpgrade(r *http.Request) bool {
	for _, v := range r.Header.Values("Upgrade") {
		for _, token := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "websocket") {
				return true
			}
		}
	}
	return false
}
