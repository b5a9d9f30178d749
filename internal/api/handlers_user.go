package api

import (
	"net/http"
	"strings"

	"github.com/pocketbroker/internal/service"
	"github.com/pocketbroker/internal/storage"
)

// handleGetUsers handles GET /api/users: one user by ?id or ?walletAddress,
// otherwise a page filtered by ?search on email
func (s *Server) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if hasID(r) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		user, err := s.svc.Users.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, user)
		return
	}

	if wallet := strings.TrimSpace(q.Get("walletAddress")); wallet != "" {
		user, err := s.svc.Users.GetByWallet(r.Context(), wallet)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, user)
		return
	}

	users, err := s.svc.Users.List(r.Context(), storage.UserFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Page:   listPage(q),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// handleCreateUser handles POST /api/users
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.svc.Users.Create(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// handleUpdateUser handles PUT /api/users?id=
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req service.UpdateUserInput
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.svc.Users.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// handleDeleteUser handles DELETE /api/users?id=
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.svc.Users.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": service.DeletedMessage("User"),
		"user":    user,
	})
}
