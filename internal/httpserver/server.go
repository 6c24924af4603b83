package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tinytelemetry/etlq/internal/duckdb"
	"github.com/tinytelemetry/etlq/internal/model"
	"github.com/tinytelemetry/etlq/internal/store"
)

// SQLStore is the narrow contract /api/sql and /api/health need from the mirror.
type SQLStore interface {
	ExecuteQuery(ctx context.Context, query string) (*duckdb.QueryResult, error)
	RecordCount(ctx context.Context) (int64, error)
}

// Options configures a Server.
type Options struct {
	Addr        string
	Records     *store.Store
	Mirror      SQLStore // nil disables /api/sql
	ServiceName string
	Logger      zerolog.Logger
}

// Server provides an HTTP API over the loaded validation records.
type Server struct {
	addr        string
	records     *store.Store
	mirror      SQLStore
	serviceName string
	logger      zerolog.Logger

	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	stopOnce  sync.Once
}

// NewServer creates a new HTTP API server.
func NewServer(opts Options) *Server {
	addr := opts.Addr
	if addr == "" {
		addr = model.DefaultAPIAddr
	}
	service := opts.ServiceName
	if service == "" {
		service = model.DefaultServiceName
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        addr,
		records:     opts.Records,
		mirror:      opts.Mirror,
		serviceName: service,
		logger:      opts.Logger,
		ctx:         ctx,
		cancel:      cancel,
		startTime:   time.Now(),
	}
}

// Handler builds the gin engine with every API route.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/query", s.handleQuery)
	api.POST("/sql", s.handleSQL)
	return r
}

// Start begins serving HTTP requests in the background.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("api server stopped")
		}
	}()
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("api server listening")
	return nil
}

// Addr returns the bound listen address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server. It is safe to call more than once.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.cancel()
		if s.server == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.server.Shutdown(ctx)
	})
	return err
}
