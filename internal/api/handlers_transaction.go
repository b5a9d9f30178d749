package api

import (
	"net/http"
	"strings"

	"github.com/pocketbroker/internal/service"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
)

// handleGetTransactions handles GET /api/transactions: one transaction by
// ?id or ?txHash, otherwise a filtered page
func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if hasID(r) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		tx, err := s.svc.Transactions.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, tx)
		return
	}

	if hash := strings.TrimSpace(q.Get("txHash")); hash != "" {
		tx, err := s.svc.Transactions.GetByHash(r.Context(), hash)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, tx)
		return
	}

	filter := storage.TransactionFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Page:   listPage(q),
	}
	var err error
	if filter.UserID, err = userIDFilter(q); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.PortfolioID, err = optionalInt64(q, "portfolioId", "INVALID_PORTFOLIO_ID", "portfolioId must be a valid integer"); err != nil {
		writeError(w, r, err)
		return
	}
	if raw := optionalString(q, "status"); raw != nil {
		st := types.TransactionStatus(*raw)
		filter.Status = &st
	}
	if raw := optionalString(q, "type"); raw != nil {
		t := types.TransactionType(*raw)
		filter.Type = &t
	}

	txs, err := s.svc.Transactions.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txs)
}

// handleCreateTransaction handles POST /api/transactions
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTransactionInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.svc.Transactions.Create(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

// handleUpdateTransaction handles PUT /api/transactions?id=
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req service.UpdateTransactionInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.svc.Transactions.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

// handleDeleteTransaction handles DELETE /api/transactions?id=
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.svc.Transactions.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     service.DeletedMessage("Transaction"),
		"transaction": tx,
	})
}
