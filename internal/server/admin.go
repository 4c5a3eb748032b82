package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/arcanaland/grimoire/internal/observability"
	"github.com/arcanaland/grimoire/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Admin is the optional HTTP surface: health, metrics and a websocket
// transport for action envelopes.
type Admin struct {
	Addr       string
	dispatcher *Dispatcher
	limits     protocol.Limits
	timeout    time.Duration
	router     *gin.Engine
	started    time.Time
}

func NewAdmin(addr string, d *Dispatcher, cfg Config) *Admin {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())

	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits = protocol.DefaultLimits()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultConfig().ReadTimeout
	}
	a := &Admin{
		Addr:       addr,
		dispatcher: d,
		limits:     cfg.Limits,
		timeout:    cfg.ReadTimeout,
		router:     r,
		started:    time.Now(),
	}
	a.registerRoutes()
	return a
}

func (a *Admin) Handler() http.Handler {
	return a.router
}

func (a *Admin) registerRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(a.started).String(),
			"version": Version,
		})
	})
	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	a.router.GET("/ws", a.serveWebSocket)
}

// serveWebSocket reads one request message, answers it and closes.
func (a *Admin) serveWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	logger := log.With().Str("request_id", uuid.NewString()).Str("remote", c.ClientIP()).Logger()
	start := time.Now()
	conn.SetReadLimit(int64(a.limits.MaxPayloadBytes))
	_ = conn.SetReadDeadline(time.Now().Add(a.timeout))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		logger.Warn().Err(err).Msg("websocket read")
		return
	}

	var resp protocol.Response
	req, err := protocol.DecodeRequest(raw)
	if err != nil && !req.Action.Known() {
		logger.Warn().Err(err).Msg("decode request")
		resp = protocol.ErrorResponse(err)
	} else {
		resp = a.dispatcher.Dispatch(req)
	}

	sent, payload, err := protocol.EncodeResponse(resp, a.limits)
	if err != nil {
		logger.Error().Err(err).Msg("encode response")
		return
	}
	if sent.Code == protocol.CodeTooLarge {
		logger.Warn().Str("error", sent.Error).Msg("response replaced")
	}
	_ = conn.SetWriteDeadline(time.Now().Add(a.timeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		logger.Warn().Err(err).Msg("websocket write")
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	action := string(req.Action)
	if !req.Action.Known() {
		action = "unknown"
	}
	observability.RecordRequest(TransportWS, action, outcome(sent), time.Since(start))
}

// Run serves HTTP until ctx is cancelled.
func (a *Admin) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Addr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

func (a *Admin) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("admin http listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
