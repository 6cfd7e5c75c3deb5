package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
)

const defaultTransactionLimit = 50

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil && !s.health.IsHealthy(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("ledger endpoint unhealthy"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handlePlayer handles GET /api/v1/player
func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.client.Identity(); !ok {
		s.writeError(w, http.StatusServiceUnavailable, "no signer connected")
		return
	}

	snap, ok := s.client.CachedPlayer()
	if !ok {
		s.writeError(w, http.StatusNotFound, "player account not fetched yet")
		return
	}

	s.writeJSON(w, http.StatusOK, QueryResponse{
		Data:        NewAccountView(snap),
		LastFetched: snap.FetchedAt,
	})
}

// handleContests handles GET /api/v1/contests
func (s *Server) handleContests(w http.ResponseWriter, r *http.Request) {
	snaps := s.client.CachedContests()
	views := make([]AccountView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, NewAccountView(snap))
	}

	s.writeJSON(w, http.StatusOK, QueryResponse{
		Data:        views,
		LastFetched: s.client.ContestsUpdatedAt(),
	})
}

// handleContest handles GET /api/v1/contests/{address}
func (s *Server) handleContest(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	addr, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid contest address %q", raw))
		return
	}

	snap, ok := s.client.CachedContest(addr)
	if !ok {
		if msg := s.client.FetchError(addr); msg != "" {
			s.writeError(w, http.StatusBadGateway, fmt.Sprintf("last fetch of contest %s failed: %s", addr, msg))
			return
		}
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("contest %s not found", addr))
		return
	}

	s.writeJSON(w, http.StatusOK, QueryResponse{
		Data:        NewAccountView(snap),
		LastFetched: snap.FetchedAt,
	})
}

// handleTransactions handles GET /api/v1/transactions?status=<status>&limit=<n>
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusServiceUnavailable, "journal is disabled")
		return
	}

	limit := defaultTransactionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := s.journal.List(r.URL.Query().Get("status"), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list transactions")
		s.writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	views := make([]TransactionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, NewTransactionView(rec))
	}
	s.writeJSON(w, http.StatusOK, QueryResponse{Data: views})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
