package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/report"
)

type transactionsResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
}

type createTransactionRequest struct {
	Type        string          `json:"type"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date,omitempty"`
	Time        string          `json:"time,omitempty"`
}

type createTransactionResponse struct {
	Transaction core.Transaction `json:"transaction"`
	Balance     core.Money       `json:"balance"`
}

// handleListTransactions serves the filtered month list: month, year, type
// (all, expense, income) and q for a description search.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, year, err := parseMonthParams(q, s.now().In(s.ledger.Location()))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	query := report.Query{Month: month, Year: year, Search: sanitizeInput(q.Get("q"))}
	if typ := strings.TrimSpace(q.Get("type")); typ != "" && !strings.EqualFold(typ, "all") {
		parsed, err := core.ParseTransactionType(typ)
		if err != nil {
			writeError(w, r, log.OpRead, badRequest("type", core.ErrInvalidType))
			return
		}
		query.Type = parsed
	}

	snap, err := s.ledger.ExportSnapshot(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	list := report.Filter(snap, query)
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: list, Count: len(list)})
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := countParam(r.URL.Query(), "n", report.DefaultRecent)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	snap, err := s.ledger.ExportSnapshot(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	list := report.RecentTransactions(snap, n)
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: list, Count: len(list)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, r, log.OpAdd, err)
		return
	}

	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		writeError(w, r, log.OpAdd, err)
		return
	}
	amount, err := core.ParseAmount(rawAmount(req.Amount))
	if err != nil {
		writeError(w, r, log.OpAdd, &core.ValidationError{Field: "amount", Err: err})
		return
	}
	loc := s.ledger.Location()
	occurredAt, err := parseOccurredAt(req.Date, req.Time, s.now(), loc)
	if err != nil {
		writeError(w, r, log.OpAdd, err)
		return
	}

	t, err := s.ledger.AddTransaction(r.Context(), typ, amount, sanitizeInput(req.Description), occurredAt)
	if err != nil {
		writeError(w, r, log.OpAdd, err)
		return
	}
	s.invalidate()

	balance, err := s.ledger.Balance(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTransactionResponse{Transaction: t, Balance: balance})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ts, err := parseTimestamp(r)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), ts); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	s.invalidate()
	w.WriteHeader(http.StatusNoContent)
}
