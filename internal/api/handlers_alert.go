package api

import (
	"net/http"
	"strings"

	"github.com/pocketbroker/internal/service"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
)

// handleGetPriceAlerts handles GET /api/price-alerts
func (s *Server) handleGetPriceAlerts(w http.ResponseWriter, r *http.Request) {
	if hasID(r) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		alert, err := s.svc.PriceAlerts.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, alert)
		return
	}

	q := r.URL.Query()
	userID, err := userIDFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	alerts, err := s.svc.PriceAlerts.List(r.Context(), storage.PriceAlertFilter{
		UserID:    userID,
		Search:    strings.TrimSpace(q.Get("search")),
		Triggered: optionalBool(q, "triggered"),
		Notified:  optionalBool(q, "notified"),
		Page:      listPage(q),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// handleCreatePriceAlert handles POST /api/price-alerts
func (s *Server) handleCreatePriceAlert(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePriceAlertInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	alert, err := s.svc.PriceAlerts.Create(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, alert)
}

// handleUpdatePriceAlert handles PUT /api/price-alerts?id=
func (s *Server) handleUpdatePriceAlert(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req service.UpdatePriceAlertInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	alert, err := s.svc.PriceAlerts.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

// handleDeletePriceAlert handles DELETE /api/price-alerts?id=
func (s *Server) handleDeletePriceAlert(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	alert, err := s.svc.PriceAlerts.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": service.DeletedMessage("Price alert"),
		"alert":   alert,
	})
}

// handleGetSubscriptions handles GET /api/subscriptions: one subscription by
// ?id, ?stripeCustomerId or ?stripeSubscriptionId, otherwise a filtered page
func (s *Server) handleGetSubscriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	if hasID(r) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		sub, err := s.svc.Subscriptions.Get(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sub)
		return
	}
	if customer := strings.TrimSpace(q.Get("stripeCustomerId")); customer != "" {
		sub, err := s.svc.Subscriptions.GetByStripeCustomer(ctx, customer)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sub)
		return
	}
	if subID := strings.TrimSpace(q.Get("stripeSubscriptionId")); subID != "" {
		sub, err := s.svc.Subscriptions.GetByStripeSubscription(ctx, subID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sub)
		return
	}

	userID, err := userIDFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := storage.SubscriptionFilter{UserID: userID, Page: listPage(q)}
	if raw := optionalString(q, "status"); raw != nil {
		st := types.SubscriptionStatus(*raw)
		filter.Status = &st
	}
	if raw := optionalString(q, "plan"); raw != nil {
		plan := types.SubscriptionPlan(*raw)
		filter.Plan = &plan
	}

	subs, err := s.svc.Subscriptions.List(ctx, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, subs)
}

// handleCreateSubscription handles POST /api/subscriptions
func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSubscriptionInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := s.svc.Subscriptions.Create(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

// handleUpdateSubscription handles PUT /api/subscriptions?id=
func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req service.UpdateSubscriptionInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := s.svc.Subscriptions.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// handleDeleteSubscription handles DELETE /api/subscriptions?id=
func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := s.svc.Subscriptions.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      service.DeletedMessage("Subscription"),
		"subscription": sub,
	})
}
