package http

import (
	"errors"
	"net/http"
	"strconv"

	"dompet/internal/core"
	"dompet/internal/ledger"
	"dompet/internal/log"
)

var (
	errNothingToExport      = errors.New("no transactions to export")
	errConfirmationRequired = errors.New("confirm=true is required to clear all data")
)

// handleExport downloads the ledger in the import file format. An empty
// transaction list is refused with 404.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.ExportSnapshot(r.Context())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	if len(snap.Transactions) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errNothingToExport.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.ExportFileName(s.now().In(s.ledger.Location()))+`"`)
	if err := core.EncodeSnapshot(w, snap); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to write export", log.FieldError, err)
	}
}

// handleImport replaces the ledger with an uploaded export file.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	snap, err := core.DecodeSnapshot(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	if err := s.ledger.ImportSnapshot(r.Context(), snap); err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": snap.Balance,
		"count":   len(snap.Transactions),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !ok {
		writeError(w, r, log.OpClear, badRequest("confirm", errConfirmationRequired))
		return
	}
	if err := s.ledger.ClearAll(r.Context()); err != nil {
		writeError(w, r, log.OpClear, err)
		return
	}
	s.invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// handlePrune drops transactions dated before the `before` parameter, or
// before the retention cutoff when it is absent.
func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	loc := s.ledger.Location()
	cutoff := ledger.RetentionCutoff(s.now(), loc)
	if v := r.URL.Query().Get("before"); v != "" {
		parsed, err := core.ParseDate(v)
		if err != nil {
			writeError(w, r, log.OpPrune, badRequest("before", err))
			return
		}
		cutoff = parsed
	}

	removed, err := s.ledger.PruneOlderThan(r.Context(), cutoff)
	if err != nil {
		writeError(w, r, log.OpPrune, err)
		return
	}
	if removed > 0 {
		s.invalidate()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"removed": removed,
		"cutoff":  cutoff,
	})
}
