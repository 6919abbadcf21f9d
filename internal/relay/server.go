package relay

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/internal/domain"
	"github.com/kapu/vn-en-translate-go/internal/util"
	apperrors "github.com/kapu/vn-en-translate-go/pkg/errors"
	"go.uber.org/zap"
)

// Translator is the relay's view of the translation service.
type Translator interface {
	TranslateRequest(ctx context.Context, req domain.SelectionRequest) (string, error)
	TranslateInteractive(ctx context.Context, req domain.SelectionRequest) (string, error)
}

// StatusReporter exposes model service health for /healthz. Ping is only
// called for deep checks.
type StatusReporter interface {
	GetCircuitStatus() util.CircuitBreakerStatus
	Ping(ctx context.Context) bool
}

type ServerOptions struct {
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	MaxConcurrency  int
	RequestTimeout  time.Duration
}

func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		WriteWait:       constants.WebSocketConfig.WriteWait,
		PongWait:        constants.WebSocketConfig.PongWait,
		PingPeriod:      constants.WebSocketConfig.PingPeriod,
		MaxMessageSize:  constants.WebSocketConfig.MaxMessageSize,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  32,
		MaxConcurrency:  4,
		RequestTimeout:  constants.OverlayTiming.RequestTimeout,
	}
}

// Server is the privileged side of the messaging channel. It is the only
// component that talks to the model service.
type Server struct {
	translator Translator
	status     StatusReporter
	options    ServerOptions
	logger     *zap.Logger
	engine     *gin.Engine
	upgrader   websocket.Upgrader

	httpServer *http.Server
	connsMu    sync.Mutex
	conns      map[*connection]struct{}
}

func NewServer(translator Translator, status StatusReporter, options ServerOptions, logger *zap.Logger) *Server {
	if options.MaxConcurrency <= 0 {
		options.MaxConcurrency = 1
	}
	if options.SendBufferSize <= 0 {
		options.SendBufferSize = 1
	}

	s := &Server{
		translator: translator,
		status:     status,
		options:    options,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  options.ReadBufferSize,
			WriteBufferSize: options.WriteBufferSize,
			// Pages on any origin host the overlay.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*connection]struct{}),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))
	engine.GET("/ws", s.serveWs)
	engine.POST("/translate", s.serveTranslate)
	engine.GET("/healthz", s.serveHealth)
	s.engine = engine
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.logger.Info("Relay listening", zap.String("addr", listener.Addr().String()))

	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes open channel connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.connsMu.Lock()
	for c := range s.conns {
		c.close()
	}
	s.connsMu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// Handle answers one request message. Failures collapse to the generic relay
// error; the detail is only logged.
func (s *Server) Handle(ctx context.Context, msg domain.Message) domain.Response {
	resp := domain.Response{ID: msg.ID}

	if msg.Action != domain.ActionTranslate && msg.Action != domain.ActionTranslateContextMenu {
		s.logger.Warn("Unknown relay action",
			zap.String("id", msg.ID),
			zap.String("action", msg.Action.String()),
		)
		resp.Error = constants.OverlayText.RelayFailure
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, s.options.RequestTimeout)
	defer cancel()

	translate := s.translator.TranslateRequest
	if msg.Interactive {
		translate = s.translator.TranslateInteractive
	}

	translation, err := translate(ctx, msg.Request())
	if err != nil {
		s.logger.Error("Translation failed",
			zap.String("id", msg.ID),
			zap.String("code", apperrors.CodeOf(err)),
			zap.String("source", msg.SourceLanguage.String()),
			zap.String("target", msg.TargetLanguage.String()),
			zap.Bool("interactive", msg.Interactive),
			zap.Int("text_length", len(msg.Text)),
			zap.Error(err),
		)
		resp.Error = constants.OverlayText.RelayFailure
		return resp
	}

	resp.Translation = translation
	return resp
}

func (s *Server) serveWs(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	ch := newConnection(s, conn)
	s.track(ch)

	go ch.writePump()
	go func() {
		ch.readPump()
		s.untrack(ch)
	}()
}

func (s *Server) serveTranslate(c *gin.Context) {
	var msg domain.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		s.logger.Warn("Invalid translate request", zap.Error(err))
		c.JSON(http.StatusBadRequest, domain.Response{Error: constants.OverlayText.RelayFailure})
		return
	}
	msg.Action = domain.ActionTranslate

	resp := s.Handle(c.Request.Context(), msg)
	if resp.Error != "" {
		c.JSON(http.StatusBadGateway, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// serveHealth reports circuit state. With ?deep=1 it also pings the model
// service, which costs a request upstream.
func (s *Server) serveHealth(c *gin.Context) {
	health := HealthResponse{Status: "ok", Circuit: util.CircuitStateClosed}
	if s.status == nil {
		c.JSON(http.StatusOK, health)
		return
	}

	status := s.status.GetCircuitStatus()
	health.Circuit = status.State
	health.ConsecutiveFailures = status.ConsecutiveFailures
	if status.State == util.CircuitStateOpen {
		health.Status = "degraded"
	}

	if deep, _ := strconv.ParseBool(c.Query("deep")); deep {
		reachable := s.status.Ping(c.Request.Context())
		health.Upstream = &reachable
		if !reachable {
			health.Status = "degraded"
		}
	}
	c.JSON(http.StatusOK, health)
}

func (s *Server) track(c *connection) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Server) untrack(c *connection) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, c)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
