package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/typechain-client/ledgerClient/metrics"
)

// Server provides read-only HTTP endpoints over the cached ledger state
type Server struct {
	client  StateReader
	journal TransactionLister
	metrics *metrics.Metrics
	health  HealthChecker
	logger  zerolog.Logger
	server  *http.Server
}

// NewServer creates a new Server instance. journal and m may be nil.
func NewServer(client StateReader, journal TransactionLister, m *metrics.Metrics, logger zerolog.Logger, port int) *Server {
	s := &Server{
		client:  client,
		journal: journal,
		metrics: m,
		logger:  logger.With().Str("component", "query_server").Logger(),
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// WithHealthCheck makes /health report the ledger endpoint's health.
func (s *Server) WithHealthCheck(checker HealthChecker) *Server {
	s.health = checker
	return s
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("query server is nil")
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind to address %s: %w", s.server.Addr, err)
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("query server listening")

	go func() {
		err := s.server.Serve(ln)
		switch err {
		case nil:
			s.logger.Info().Msg("Query server stopped normally")
		case http.ErrServerClosed:
			s.logger.Info().Msg("Query server closed gracefully")
		default:
			s.logger.Error().Err(err).Msg("Query server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
