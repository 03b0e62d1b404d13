package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// Server defaults.
const (
	DefaultAddr       = ":8000"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second

	// MaxUploadBytes bounds a single uploaded file.
	MaxUploadBytes = 32 << 20
)

// Config configures the HTTP listener.
type Config struct {
	// Addr is the listen address (default ":8000").
	Addr string

	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string
}

// Server is the PulseIQ HTTP API.
type Server struct {
	services *Services
	cfg      Config
	engine   *gin.Engine
}

// NewServer creates the API server and registers its routes.
func NewServer(services *Services, cfg Config) (*Server, error) {
	if err := services.Validate(); err != nil {
		return nil, fmt.Errorf("validating services: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		services: services,
		cfg:      cfg,
		engine:   gin.New(),
	}
	s.engine.MaxMultipartMemory = MaxUploadBytes
	s.engine.Use(requestLogger(), gin.Recovery())
	if len(cfg.CORSOrigins) > 0 {
		s.engine.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	s.registerRoutes()
	return s, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Run serves the API until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown: %v", err)
		}
	}()

	logger.Info("PulseIQ API listening on %s", s.cfg.Addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/", s.handleRoot)
	handle(r, http.MethodGet, "/health", s.handleHealth)

	handle(r, http.MethodPost, "/chat", s.handleChat)
	handle(r, http.MethodPost, "/upload-medical-record", s.handleUploadMedicalRecord)
	handle(r, http.MethodPost, "/upload-global-medical-doc", s.handleUploadGlobalDoc)
	handle(r, http.MethodPost, "/save-chat", s.handleSaveChat)
	handle(r, http.MethodGet, "/digital-twin/:user_id", s.handleDigitalTwin)
	handle(r, http.MethodGet, "/chat-history/:user_id", s.handleChatHistory)
}

// handle registers path in both its bare and trailing-slash forms.
func handle(r *gin.Engine, method, path string, h gin.HandlerFunc) {
	r.Handle(method, path, h)
	r.Handle(method, path+"/", h)
}
