package api

import (
	"net/http"

	"github.com/pocketbroker/internal/service"
)

// handleAdminAnalytics handles GET /api/admin/analytics
func (s *Server) handleAdminAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Analytics.Report(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// handleAdminAlerts handles GET /api/admin/alerts
func (s *Server) handleAdminAlerts(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Alerts.Report(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// handleAdminStats handles GET /api/admin/stats
func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Admin.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// handleAdminRecentActivity handles GET /api/admin/recent-activity
func (s *Server) handleAdminRecentActivity(w http.ResponseWriter, r *http.Request) {
	activities, err := s.svc.Admin.RecentActivity(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if activities == nil {
		activities = []service.Activity{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}

// handleAdminSubscriptions handles GET /api/admin/subscriptions
func (s *Server) handleAdminSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.Admin.Subscriptions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, subs)
}

// handleAdminUsers handles GET /api/admin/users?page=
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	page, err := service.ParsePageParam(r.URL.Query().Get("page"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	users, err := s.svc.Admin.Users(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// handleAdminTransactions handles GET /api/admin/transactions?page=
func (s *Server) handleAdminTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := service.ParsePageParam(r.URL.Query().Get("page"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.svc.Admin.Transactions(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txs)
}

// handleAdminUserListing handles GET /api/admin/users/list and its
// /api/admin/users-management alias
func (s *Server) handleAdminUserListing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseUserListing(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, limit := adminPaging(q)
	listing, err := s.svc.Admin.UserListings(r.Context(), filter, page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

// handleAdminTransactionListing handles GET /api/admin/transactions/list and
// its /api/admin/transactions-management alias
func (s *Server) handleAdminTransactionListing(w http.ResponseWriter, r *http.Request) {
	query, err := parseTransactionListing(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	listing, err := s.svc.Admin.TransactionListings(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}
