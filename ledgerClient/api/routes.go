package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API server
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// API v1 endpoints, registered with full paths so a wrong method gets 405
	r.HandleFunc("/api/v1/player", s.handlePlayer).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/contests", s.handleContests).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/contests/{address}", s.handleContest).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/transactions", s.handleTransactions).Methods(http.MethodGet)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}
