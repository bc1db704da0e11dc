package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"TradeDeck/internal/analysis"
	"TradeDeck/internal/dashboard"
	"TradeDeck/internal/view"
)

const (
	writeTimeout = 5 * time.Second
	readLimit    = 4096
)

// Options configure the HTTP surface.
type Options struct {
	// Metrics serves /metrics; defaults to the global Prometheus registry.
	Metrics http.Handler
	// Mode is the gin mode (release, debug, test).
	Mode string
}

// Server exposes a dashboard.Service over HTTP and websocket.
type Server struct {
	svc      dashboard.Service
	hub      *Hub
	engine   *gin.Engine
	upgrader websocket.Upgrader
	// hubCtx bounds websocket goroutines to the hub lifetime.
	hubCtx context.Context
}

// New builds the router. hubCtx should be the context the hub runs under.
func New(hubCtx context.Context, svc dashboard.Service, hub *Hub, opts Options) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}
	s := &Server{
		svc:    svc,
		hub:    hub,
		hubCtx: hubCtx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": hub.Clients()})
	})
	r.GET("/metrics", gin.WrapH(opts.Metrics))
	r.GET("/ws", s.serveWS)

	api := r.Group("/api")
	api.GET("/state", s.getState)
	api.GET("/chart", s.getChart)
	api.POST("/stock", s.postStock)
	api.POST("/timeframe", s.postTimeframe)
	api.POST("/indicators/toggle", s.postToggleIndicator)
	api.POST("/sidebar/toggle", s.simple(svc.ToggleSidebar))
	api.POST("/chat/toggle", s.simple(svc.ToggleChat))
	api.POST("/chat/draft", s.postDraft)
	api.POST("/chat", s.postChat)
	api.POST("/analyze", s.postAnalyze)
	api.POST("/analysis/dismiss", s.simple(svc.DismissPopup))

	s.engine = r
	return s
}

// Handler returns the http.Handler of the router.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		evt := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			evt = log.Error()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	}
}

// writeError maps service errors onto status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dashboard.ErrUnknownStock),
		errors.Is(err, dashboard.ErrUnknownTimeframe),
		errors.Is(err, dashboard.ErrUnknownIndicator):
		status = http.StatusNotFound
	case errors.Is(err, analysis.ErrAnalysisInProgress):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) respondState(c *gin.Context) {
	c.JSON(http.StatusOK, view.Build(s.svc.State()))
}

func (s *Server) getState(c *gin.Context) { s.respondState(c) }

func (s *Server) getChart(c *gin.Context) {
	spec := s.svc.Chart()
	if spec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no chart rendered yet"})
		return
	}
	c.JSON(http.StatusOK, spec)
}

func (s *Server) simple(op func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := op(c.Request.Context()); err != nil {
			writeError(c, err)
			return
		}
		s.respondState(c)
	}
}

type stockRequest struct {
	Symbol string `json:"symbol" binding:"required,max=12"`
}

func (s *Server) postStock(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.SelectStock(c.Request.Context(), req.Symbol); err != nil {
		writeError(c, err)
		return
	}
	s.respondState(c)
}

type timeframeRequest struct {
	Label string `json:"label" binding:"required,max=8"`
}

func (s *Server) postTimeframe(c *gin.Context) {
	var req timeframeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.SelectTimeframe(c.Request.Context(), req.Label); err != nil {
		writeError(c, err)
		return
	}
	s.respondState(c)
}

type indicatorRequest struct {
	ID string `json:"id" binding:"required,max=16"`
}

func (s *Server) postToggleIndicator(c *gin.Context) {
	var req indicatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.ToggleIndicator(c.Request.Context(), req.ID); err != nil {
		writeError(c, err)
		return
	}
	s.respondState(c)
}

type draftRequest struct {
	Text string `json:"text" binding:"max=2000"`
}

func (s *Server) postDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.SetDraft(c.Request.Context(), req.Text); err != nil {
		writeError(c, err)
		return
	}
	s.respondState(c)
}

type chatRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

func (s *Server) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.SendChat(c.Request.Context(), req.Text); err != nil {
		writeError(c, err)
		return
	}
	s.respondState(c)
}

func (s *Server) postAnalyze(c *gin.Context) {
	p, err := s.svc.Analyze(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// serveWS streams state snapshots to the client and answers text commands.
func (s *Server) serveWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := s.hub.newClient()
	initial, err := encode(MessageState, view.Build(s.svc.State()))
	if err == nil {
		cl.send <- initial
	}
	if !s.hub.join(s.hubCtx, cl) {
		conn.Close()
		return
	}
	log.Debug().Str("client", cl.id).Msg("websocket client connected")

	go s.writePump(conn, cl)
	s.readPump(conn, cl)
}

func (s *Server) writePump(conn *websocket.Conn, cl *client) {
	defer conn.Close()
	for data := range cl.send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Str("client", cl.id).Msg("websocket write failed")
			s.hub.leave(s.hubCtx, cl)
			for range cl.send {
			}
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(writeTimeout))
}

func (s *Server) readPump(conn *websocket.Conn, cl *client) {
	defer s.hub.leave(s.hubCtx, cl)
	conn.SetReadLimit(readLimit)
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Str("client", cl.id).Msg("websocket client disconnected")
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		reply := s.svc.HandleCommand(s.hubCtx, string(msg))
		if reply == "" {
			continue
		}
		if data, err := encode(MessageReply, reply); err == nil {
			s.hub.sendTo(s.hubCtx, cl, data)
		}
	}
}
