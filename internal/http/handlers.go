package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/settings"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the storage backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.ready.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"checks": map[string]string{"storage": "failed: " + err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{"storage": "ok"},
	})
}

type balanceResponse struct {
	Balance   core.Money `json:"balance"`
	Formatted string     `json:"formatted"`
}

func newBalanceResponse(m core.Money) balanceResponse {
	return balanceResponse{Balance: m, Formatted: m.String()}
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.Balance(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, newBalanceResponse(balance))
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balance json.RawMessage `json:"balance"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, r, log.OpSetBalance, err)
		return
	}
	raw := rawAmount(req.Balance)
	if raw == "" || raw == "null" {
		writeError(w, r, log.OpSetBalance, &core.ValidationError{Field: "balance", Err: core.ErrMissingField})
		return
	}
	balance, err := core.ParseBalance(raw)
	if err != nil {
		writeError(w, r, log.OpSetBalance, &core.ValidationError{Field: "balance", Err: err})
		return
	}
	if err := s.ledger.SetBalance(r.Context(), balance); err != nil {
		writeError(w, r, log.OpSetBalance, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusOK, newBalanceResponse(balance.Round()))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	current, err := s.settings.Get(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := decodeJSONBody(w, r, &patch); err != nil {
		writeError(w, r, "update_settings", err)
		return
	}
	updated, err := s.settings.Apply(r.Context(), patch)
	if err != nil {
		writeError(w, r, "update_settings", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
