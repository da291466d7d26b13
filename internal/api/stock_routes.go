package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/kjannette/valuator-backend/internal/checklist"
	"github.com/kjannette/valuator-backend/internal/models"
	"github.com/kjannette/valuator-backend/internal/narrative"
	"github.com/kjannette/valuator-backend/internal/peers"
	"github.com/kjannette/valuator-backend/internal/valuation"
)

const (
	valuationOK               = "ok"
	valuationInsufficientData = "insufficient_data"
	valuationDegenerate       = "degenerate"
)

type valuationJSON struct {
	Status      string                `json:"status"`
	Assumptions valuation.Assumptions `json:"assumptions"`
	Result      *valuation.Result     `json:"result,omitempty"`
	Error       string                `json:"error,omitempty"`
}

type checklistJSON struct {
	Checks []checklist.Check `json:"checks"`
	Passed int               `json:"passed"`
	Total  int               `json:"total"`
}

type stockJSON struct {
	Record    *models.FinancialRecord `json:"record"`
	Checklist checklistJSON           `json:"checklist"`
	Peers     peers.Comparison        `json:"peers"`
	Valuation valuationJSON           `json:"valuation"`
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.fetch(w, r)
	if !ok {
		return
	}

	// A failed valuation is reported inside the payload; the record,
	// checklist and peers are still returned.
	a := s.defaultAssumptions(rec)
	v, err := s.value(rec, a)
	if err != nil {
		s.log.Warn().Err(err).Str("request_id", requestID(r.Context())).Str("symbol", rec.Profile.Symbol).Msg("default valuation failed")
		v = valuationJSON{Status: valuationDegenerate, Assumptions: a, Error: err.Error()}
	}

	writeJSON(w, http.StatusOK, stockJSON{
		Record:    rec,
		Checklist: newChecklistJSON(rec),
		Peers:     peers.Compare(rec.Peers, rec.Summary()),
		Valuation: v,
	})
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	exit, err := valuation.ParseExitModel(r.URL.Query().Get("exit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, ok := s.fetch(w, r)
	if !ok {
		return
	}

	a := applyOverrides(s.defaultAssumptions(rec), r.URL.Query())
	a.ExitModel = exit

	v, err := s.value(rec, a)
	if err != nil {
		writeError(w, valuationErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.fetch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newChecklistJSON(rec))
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.fetch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, peers.Compare(rec.Peers, rec.Summary()))
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analyst == nil || !s.deps.Analyst.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "AI analysis is not configured")
		return
	}

	rec, ok := s.fetch(w, r)
	if !ok {
		return
	}

	analysis, err := s.deps.Analyst.Analyze(r.Context(), rec)
	if err != nil {
		s.log.Warn().Err(err).Str("request_id", requestID(r.Context())).Str("symbol", rec.Profile.Symbol).Msg("analysis failed")
		msg := "AI analysis failed"
		if errors.Is(err, narrative.ErrEmptyResponse) {
			msg = "AI analysis returned no text"
		}
		writeError(w, http.StatusBadGateway, msg)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// --- helpers ---

func (s *Server) fetch(w http.ResponseWriter, r *http.Request) (*models.FinancialRecord, bool) {
	sym, ok := s.pathSymbol(w, r)
	if !ok {
		return nil, false
	}
	rec, err := s.deps.Stocks.Fetch(r.Context(), sym)
	if err != nil {
		s.writeLookupError(w, r, sym, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) defaultAssumptions(rec *models.FinancialRecord) valuation.Assumptions {
	a := valuation.DefaultAssumptions(rec)
	if s.opts.DefaultGrowthRate != 0 {
		a.EPSGrowthRate = s.opts.DefaultGrowthRate
	}
	if s.opts.DefaultDiscountRate != 0 {
		a.DiscountRate = s.opts.DefaultDiscountRate
	}
	return a
}

// value runs the projection. Insufficient data is a normal outcome, not an
// error.
func (s *Server) value(rec *models.FinancialRecord, a valuation.Assumptions) (valuationJSON, error) {
	res, err := valuation.Project(rec, a, s.deps.Now())
	if errors.Is(err, valuation.ErrInsufficientData) {
		return valuationJSON{Status: valuationInsufficientData, Assumptions: a}, nil
	}
	if err != nil {
		return valuationJSON{}, err
	}
	return valuationJSON{Status: valuationOK, Assumptions: a, Result: res}, nil
}

// applyOverrides replaces each assumption present in the query. Values that
// do not parse become 0.
func applyOverrides(a valuation.Assumptions, q url.Values) valuation.Assumptions {
	if q.Has("growth") {
		a.EPSGrowthRate = valuation.ParseRate(q.Get("growth"))
	}
	if q.Has("discount") {
		a.DiscountRate = valuation.ParseRate(q.Get("discount"))
	}
	if q.Has("multiple") {
		a.TerminalMultiple = valuation.ParseRate(q.Get("multiple"))
	}
	if q.Has("eps") {
		eps := valuation.ParseRate(q.Get("eps"))
		a.CurrentEPS = &eps
	}
	if q.Has("terminalGrowth") {
		a.TerminalGrowthRate = valuation.ParseRate(q.Get("terminalGrowth"))
	}
	return a
}

func newChecklistJSON(rec *models.FinancialRecord) checklistJSON {
	checks := checklist.Evaluate(rec)
	return checklistJSON{
		Checks: checks,
		Passed: checklist.PassedCount(checks),
		Total:  len(checks),
	}
}
