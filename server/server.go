// File: server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lguibr/gonwayish/bollywood"
	"github.com/lguibr/gonwayish/field"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"
)

// ErrNotStarted is returned when serving before Start.
var ErrNotStarted = errors.New("server: broadcaster not started")

const (
	defaultBroadcastInterval = 100 * time.Millisecond
	readHeaderTimeout        = 5 * time.Second
)

// Source is the snapshot provider streamed to clients. *field.Field satisfies it.
type Source interface {
	Snapshot() field.Snapshot
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes gatherer on /metrics.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = gatherer }
}

// WithBroadcastInterval sets how often subscribers receive a snapshot.
func WithBroadcastInterval(interval time.Duration) Option {
	return func(s *Server) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// Server exposes a field over HTTP: one-shot snapshots, a websocket
// subscription pushing snapshots, and Prometheus metrics.
type Server struct {
	source        Source
	width, height int
	interval      time.Duration
	gatherer      prometheus.Gatherer
	logger        *slog.Logger
	engine        *bollywood.Engine

	mu             sync.RWMutex // Protects broadcaster and broadcasterPID
	broadcaster    *Broadcaster
	broadcasterPID *bollywood.PID
}

// New creates a server for a width x height source. Call Start before serving.
func New(source Source, width, height int, opts ...Option) *Server {
	s := &Server{
		source:   source,
		width:    width,
		height:   height,
		interval: defaultBroadcastInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = bollywood.NewEngine(s.logger)
	return s
}

// Start spawns the broadcaster actor. Calling it again is a no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broadcaster != nil {
		return nil
	}

	broadcaster := NewBroadcaster(s.message, s.interval, s.logger)
	pid, err := s.engine.Spawn(bollywood.NewProps(func() bollywood.Actor { return broadcaster }))
	if err != nil {
		return fmt.Errorf("spawning broadcaster: %w", err)
	}
	s.broadcaster = broadcaster
	s.broadcasterPID = pid
	s.logger.Info("broadcaster started", "pid", pid.String(), "interval", s.interval)
	return nil
}

// Close stops the broadcaster, closing every subscription.
func (s *Server) Close(timeout time.Duration) error {
	return s.engine.Shutdown(timeout)
}

func (s *Server) getBroadcaster() *Broadcaster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.broadcaster
}

// message builds the payload sent for the current state of the source.
func (s *Server) message() SnapshotMessage {
	return NewSnapshotMessage(s.source.Snapshot(), s.width, s.height, time.Now())
}

// Handler routes /snapshot, /subscribe and, with a gatherer, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.HandleSnapshot())
	mux.Handle("/subscribe", websocket.Handler(s.HandleSubscribe()))
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// ListenAndServe serves on addr until ctx is done, then closes every
// subscription and shuts the listener down.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	if err := s.Start(); err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.Close(shutdownTimeout)
		return fmt.Errorf("listening on %s: %w", addr, err)
	case <-ctx.Done():
	}

	// Subscriptions are hijacked connections; http.Server.Shutdown does not wait for them.
	closeErr := s.Close(shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("server stopped", "addr", addr)
	return closeErr
}
