package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"challengechain/core/types"
	"challengechain/crypto"
	"challengechain/native/challenge"
)

func (s *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "InvalidPayload", "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "InvalidPayload", "failed to read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, r, http.StatusBadRequest, "InvalidPayload", "request body required")
		return
	}
	var tx types.Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidPayload", "invalid transaction JSON: "+err.Error())
		return
	}
	receipt, err := s.backend.Apply(r.Context(), &tx)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) challengeParam(w http.ResponseWriter, r *http.Request) (*challenge.Challenge, bool) {
	id, err := challenge.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidPayload", err.Error())
		return nil, false
	}
	c, err := s.backend.Challenge(id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return nil, false
	}
	return c, true
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	c, ok := s.challengeParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newChallengeView(c))
}

func (s *Server) handleGetTally(w http.ResponseWriter, r *http.Request) {
	c, ok := s.challengeParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newTallyView(c))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, "addr"))
	if err != nil || addr == ([20]byte{}) {
		writeError(w, r, http.StatusBadRequest, "InvalidPayload", "invalid account address")
		return
	}
	acc, err := s.backend.Account(addr)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(addr, acc))
}

func (s *Server) handleGetTrackers(w http.ResponseWriter, r *http.Request) {
	trackers, err := s.backend.Trackers()
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trackers)
}

const (
	defaultRecentEvents = 100
	maxRecentEvents     = 1000
)

// handleRecentEvents returns the newest committed events, oldest first.
func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if s.recent == nil {
		writeError(w, r, http.StatusServiceUnavailable, "Unavailable", "event history disabled")
		return
	}
	limit := defaultRecentEvents
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "InvalidPayload", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxRecentEvents {
		limit = maxRecentEvents
	}
	out := make([]types.Event, 0, limit)
	for _, evt := range s.recent.Recent(limit) {
		if carrier, ok := evt.(interface{ Event() *types.Event }); ok && carrier.Event() != nil {
			out = append(out, *carrier.Event())
		}
	}
	writeJSON(w, http.StatusOK, out)
}
