package server

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/arcanaland/grimoire/internal/observability"
	"github.com/arcanaland/grimoire/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	TransportTCP = "tcp"
	TransportWS  = "ws"
)

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Limits       protocol.Limits
}

func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:60300",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Limits:       protocol.DefaultLimits(),
	}
}

// Server accepts one framed request per connection, answers it and closes.
type Server struct {
	cfg        Config
	dispatcher *Dispatcher

	mu       sync.Mutex
	ln       net.Listener
	conns    map[net.Conn]struct{}
	draining bool
	wg       sync.WaitGroup
}

func New(cfg Config, d *Dispatcher) *Server {
	def := DefaultConfig()
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = def.Addr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits = def.Limits
	}
	observability.RegisterMetrics()
	return &Server{
		cfg:        cfg,
		dispatcher: d,
		conns:      make(map[net.Conn]struct{}),
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop until ctx is cancelled. Peers still waiting
// to send their request are cut off; handlers already dispatching finish
// and Serve waits for them.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	log.Info().Str("addr", ln.Addr().String()).Msg("store server listening")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
			s.drain()
		case <-done:
		}
	}()

	defer s.wg.Wait()
	defer ln.Close()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info().Msg("store server stopped")
				return nil
			}
			return err
		}
		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(conn)
		}()
	}
}

// Addr returns the bound address once Serve has started
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	requestID := uuid.NewString()
	logger := log.With().Str("request_id", requestID).Str("remote", conn.RemoteAddr().String()).Logger()
	start := time.Now()

	req, err := protocol.ReadRequest(conn, s.cfg.Limits)

	var resp protocol.Response
	if err != nil && !req.Action.Known() {
		logger.Warn().Err(err).Msg("decode request")
		resp = protocol.ErrorResponse(err)
		if !protocol.IsDecodeError(err) {
			// peer vanished or timed out; nothing to answer
			return
		}
	} else {
		resp = s.dispatcher.Dispatch(req)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	sent, err := protocol.WriteResponse(conn, resp, s.cfg.Limits)
	if err != nil {
		logger.Warn().Err(err).Msg("write response")
	} else if sent.Code == protocol.CodeTooLarge {
		logger.Warn().Str("error", sent.Error).Msg("response replaced")
	}

	action := string(req.Action)
	if !req.Action.Known() {
		action = "unknown"
	}
	result := outcome(sent)
	if err != nil {
		result = string(protocol.CodeIO)
	}
	observability.RecordRequest(TransportTCP, action, result, time.Since(start))
	logger.Debug().
		Str("action", action).
		Str("outcome", result).
		Dur("duration", time.Since(start)).
		Msg("request served")
}

// track registers conn and arms its read deadline under the same lock
// drain takes, so a connection accepted during shutdown is cut off too.
func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
	if s.draining {
		_ = conn.SetReadDeadline(time.Now())
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
}

// drain expires the read deadline of every open connection. Handlers
// blocked on a request fail fast; a handler past the read keeps its
// write deadline and answers normally.
func (s *Server) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draining = true
	now := time.Now()
	for conn := range s.conns {
		_ = conn.SetReadDeadline(now)
	}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// Active reports the number of open connections
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
