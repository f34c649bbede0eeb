package http

import (
	"net/http"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/report"
)

type monthlyResponse struct {
	Months       []core.MonthBucket `json:"months"`
	TotalBalance core.Money         `json:"total_balance"`
}

func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	month, year, err := parseMonthParams(r.URL.Query(), s.now().In(s.ledger.Location()))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	key := core.MonthKey{Year: year, Month: month}.String()
	var gen uint64
	if s.reports != nil {
		gen = s.reports.Generation()
		if cached, ok := s.reports.Get(key); ok {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Month report cache hit",
				log.FieldYear, year,
				log.FieldMonth, month)
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	snap, err := s.ledger.ExportSnapshot(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	rep := report.BuildMonthReport(snap, month, year)
	// A mutation that purged the cache after the snapshot was read makes
	// rep stale; serve it once but do not keep it.
	if s.reports != nil && !s.reports.SetIfGeneration(gen, key, rep) {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Month report outdated before caching",
			log.FieldYear, year,
			log.FieldMonth, month)
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleMonthlySeries(w http.ResponseWriter, r *http.Request) {
	months, err := countParam(r.URL.Query(), "months", report.DefaultMonths)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	snap, err := s.ledger.ExportSnapshot(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, monthlyResponse{
		Months:       report.MonthlySeries(snap, months),
		TotalBalance: snap.Balance,
	})
}
