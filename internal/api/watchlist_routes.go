package api

import (
	"encoding/json"
	"net/http"

	"github.com/kjannette/valuator-backend/internal/lookup"
)

type watchlistRequest struct {
	Symbol string `json:"symbol" validate:"required,ticker"`
	Note   string `json:"note" validate:"max=280"`
}

func (s *Server) handleWatchlistList(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watchlist == nil {
		writeError(w, http.StatusServiceUnavailable, "watchlist storage is not configured")
		return
	}
	entries, err := s.deps.Watchlist.List(r.Context())
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("list watchlist")
		writeError(w, http.StatusInternalServerError, "failed to fetch watchlist")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watchlist == nil {
		writeError(w, http.StatusServiceUnavailable, "watchlist storage is not configured")
		return
	}

	var req watchlistRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Symbol = lookup.NormalizeSymbol(req.Symbol)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "symbol must be a valid ticker and note at most 280 characters")
		return
	}

	entry, err := s.deps.Watchlist.Add(r.Context(), req.Symbol, req.Note)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Str("symbol", req.Symbol).Msg("add to watchlist")
		writeError(w, http.StatusInternalServerError, "failed to add to watchlist")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watchlist == nil {
		writeError(w, http.StatusServiceUnavailable, "watchlist storage is not configured")
		return
	}
	sym, ok := s.pathSymbol(w, r)
	if !ok {
		return
	}

	removed, err := s.deps.Watchlist.Remove(r.Context(), sym)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Str("symbol", sym).Msg("remove from watchlist")
		writeError(w, http.StatusInternalServerError, "failed to remove from watchlist")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, sym+" is not on the watchlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
