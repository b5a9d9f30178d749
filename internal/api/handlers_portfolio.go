package api

import (
	"net/http"
	"strings"

	"github.com/pocketbroker/internal/service"
	"github.com/pocketbroker/internal/storage"
)

// handleGetPortfolios handles GET /api/portfolios
func (s *Server) handleGetPortfolios(w http.ResponseWriter, r *http.Request) {
	if hasID(r) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		p, err := s.svc.Portfolios.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
		return
	}

	q := r.URL.Query()
	userID, err := userIDFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := s.svc.Portfolios.List(r.Context(), storage.PortfolioFilter{
		UserID:        userID,
		WalletAddress: strings.TrimSpace(q.Get("walletAddress")),
		Page:          listPage(q),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ps)
}

// handleCreatePortfolio handles POST /api/portfolios
func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePortfolioInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.svc.Portfolios.Create(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// handleUpdatePortfolio handles PUT /api/portfolios?id=
func (s *Server) handleUpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req service.UpdatePortfolioInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.svc.Portfolios.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// handleDeletePortfolio handles DELETE /api/portfolios?id=
func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.svc.Portfolios.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   service.DeletedMessage("Portfolio"),
		"portfolio": p,
	})
}

// handleGetWatchlists handles GET /api/watchlists
func (s *Server) handleGetWatchlists(w http.ResponseWriter, r *http.Request) {
	if hasID(r) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		wl, err := s.svc.Watchlists.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, wl)
		return
	}

	q := r.URL.Query()
	userID, err := userIDFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lists, err := s.svc.Watchlists.List(r.Context(), storage.WatchlistFilter{
		UserID: userID,
		Search: strings.TrimSpace(q.Get("search")),
		Page:   listPage(q),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lists)
}

// handleCreateWatchlist handles POST /api/watchlists
func (s *Server) handleCreateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req service.CreateWatchlistInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	wl, err := s.svc.Watchlists.Create(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, wl)
}

// handleUpdateWatchlist handles PUT /api/watchlists?id=
func (s *Server) handleUpdateWatchlist(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req service.UpdateWatchlistInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	wl, err := s.svc.Watchlists.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wl)
}

// handleDeleteWatchlist handles DELETE /api/watchlists?id=
func (s *Server) handleDeleteWatchlist(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	wl, err := s.svc.Watchlists.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   service.DeletedMessage("Watchlist"),
		"watchlist": wl,
	})
}
