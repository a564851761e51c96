package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/config"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
)

// Version reported by the /version endpoint
const Version = "1.0.0"

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

// Server exposes the scan pipeline and scan history over HTTP
type Server struct {
	service *core.ScanService
	store   core.ScanStore
	logger  *zap.Logger
	httpSrv *http.Server
}

// NewServer creates a new API server. store may be nil when
// persistence is disabled; the history endpoints then answer 503.
func NewServer(cfg *config.Config, service *core.ScanService, store core.ScanStore, logger *zap.Logger) *Server {
	if cfg.GetString("server.env") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		service: service,
		store:   store,
		logger:  logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version})
	})
	router.POST("/scan", s.handleScan)
	router.POST("/scan/file", s.handleScanFile)
	router.GET("/history", s.handleHistory)
	router.GET("/history/stats", s.handleStats)

	s.httpSrv = &http.Server{
		Addr:    cfg.GetString("server.listen_address"),
		Handler: router,
	}
	return s
}

// Start begins serving requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type scanRequest struct {
	RawEmail string `json:"raw_email"`
}

func (s *Server) handleScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.RawEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw_email cannot be empty"})
		return
	}

	result := s.service.Scan(c.Request.Context(), req.RawEmail)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleScanFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open file upload"})
		return
	}
	defer file.Close()

	var b strings.Builder
	if _, err := io.Copy(&b, file); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file upload"})
		return
	}

	// Uploaded bytes may be arbitrary; the parser decodes leniently
	result := s.service.Scan(c.Request.Context(), b.String())
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan history is not available"})
		return
	}

	filter := core.HistoryFilter{
		SenderDomain: c.Query("domain"),
		Verdict:      c.Query("verdict"),
		Limit:        intQuery(c, "limit", defaultHistoryLimit),
		Offset:       intQuery(c, "offset", 0),
	}
	if filter.Limit < 1 || filter.Limit > maxHistoryLimit {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	records, err := s.store.QueryHistory(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("Failed to query scan history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query scan history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(records),
		"results": records,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan history is not available"})
		return
	}

	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to query scan stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query scan stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// intQuery parses an integer query parameter, falling back to a
// default on absence or garbage.
func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// requestLogger logs one line per request with method, path, status
// and latency.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
