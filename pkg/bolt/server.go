// Package bolt implements the Bolt wire protocol: PackStream-encoded,
// chunk-framed messages exchanged between a driver and a graph database
// server, wired to a pluggable Backend that actually executes queries.
package bolt

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Config holds the tunables for a Server.
type Config struct {
	Addr        string
	MaxSessions int           // 0 means unlimited.
	IdleTimeout time.Duration // 0 disables idle reaping.
	Auth        AuthValidator // nil accepts every LOGON.
	Logger      logr.Logger
}

// DefaultConfig returns a Config listening on localhost:7687 (the
// standard Bolt port) with no session limit, no idle reaping, and no
// authentication.
func DefaultConfig() Config {
	return Config{
		Addr:   "127.0.0.1:7687",
		Logger: logr.Discard(),
	}
}

// Option customizes a Config when passed to NewServer.
type Option func(*Config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithMaxSessions caps the number of concurrent sessions the server will
// register.
func WithMaxSessions(n int) Option {
	return func(c *Config) { c.MaxSessions = n }
}

// WithIdleTimeout enables a background reaper that closes sessions idle
// longer than d.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Config) { c.IdleTimeout = d }
}

// WithAuth configures credential validation for LOGON.
func WithAuth(auth AuthValidator) Option {
	return func(c *Config) { c.Auth = auth }
}

// WithLogger sets the logger the server and its connections report
// through.
func WithLogger(log logr.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// Server accepts TCP connections, negotiates the Bolt handshake on each,
// and hands them off to per-connection goroutines running against a
// shared Backend.
type Server struct {
	cfg     Config
	backend Backend
	sm      *SessionManager
	log     logr.Logger

	listener net.Listener
	wg       sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
}

// NewServer builds a Server around backend, applying opts over
// DefaultConfig.
func NewServer(backend Backend, opts ...Option) *Server {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		cfg:     cfg,
		backend: backend,
		sm:      NewSessionManager(cfg.MaxSessions),
		log:     cfg.Logger,
		closed:  make(chan struct{}),
	}
}

// ListenAndServe binds the configured address and accepts connections
// until ctx is canceled or Close is called. It blocks until the accept
// loop exits.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return IOError(err)
	}
	s.listener = ln
	s.log.Info("listening", "addr", ln.Addr().String())

	if s.cfg.IdleTimeout > 0 {
		s.wg.Add(1)
		go s.reapIdleSessions(ctx, s.cfg.IdleTimeout)
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-s.closed:
			_ = ln.Close()
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			case <-s.closed:
				s.wg.Wait()
				return nil
			default:
				s.log.Error(err, "accept failed")
				return IOError(err)
			}
		}

		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

// Close stops the accept loop and returns without waiting; ListenAndServe
// then waits for every in-flight connection to end before it returns.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	major, minor, err := ServerHandshake(conn)
	if err != nil {
		s.log.V(1).Info("handshake failed", "peer", conn.RemoteAddr().String(), "error", err.Error())
		return
	}
	s.log.V(1).Info("handshake complete", "peer", conn.RemoteAddr().String(), "major", major, "minor", minor)

	c := NewConnection(conn, s.backend, s.sm, s.cfg.Auth, s.log)
	c.Run(ctx)
}

func (s *Server) reapIdleSessions(ctx context.Context, timeout time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closed:
			return
		case <-ticker.C:
			for _, handle := range s.sm.ReapIdle(timeout) {
				if err := s.backend.CloseSession(ctx, handle); err != nil {
					s.log.V(1).Info("idle session close failed", "session", string(handle), "error", err.Error())
				}
			}
		}
	}
}
