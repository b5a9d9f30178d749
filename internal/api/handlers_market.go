package api

import (
	"net/http"

	"github.com/pocketbroker/internal/swap"
)

// handleMarketStats handles GET /api/market/stats
func (s *Server) handleMarketStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Market.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// handleMarketTrending handles GET /api/market/trending
func (s *Server) handleMarketTrending(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.svc.Market.Trending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tokens)
}

// handleMarketMovers handles GET /api/market/movers
func (s *Server) handleMarketMovers(w http.ResponseWriter, r *http.Request) {
	movers, err := s.svc.Market.Movers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, movers)
}

// handleSwapQuote handles POST /api/swap/quote
func (s *Server) handleSwapQuote(w http.ResponseWriter, r *http.Request) {
	var req swap.QuoteRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	quote, err := s.svc.Quoter.Quote(r.Context(), &req, RequestIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// handleSwapQuoteGet answers GET /api/swap/quote with a pointer to POST
func (s *Server) handleSwapQuoteGet(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"message": "Use POST method to get swap quotes",
	})
}
