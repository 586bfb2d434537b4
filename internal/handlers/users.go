package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vente/apiserver/internal/auth"
	"github.com/vente/apiserver/internal/services"
	"github.com/vente/apiserver/types"
)

// UserHandler provides account management endpoints.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes. Every route requires authentication.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Use(authMiddleware)
	r.With(RequireSuperuser).Get("/", handler.ListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.With(RequireActive).Get("/", handler.GetUser)
		r.With(RequireActive).Put("/", handler.UpdateUser)
		r.With(RequireSuperuser).Delete("/", handler.DeleteUser)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	users, err := h.userService.List(r.Context(), skip, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []types.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser returns the caller's own record, or any record for a superuser.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	caller, id, err := h.authorizeTarget(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if caller.ID == id {
		writeJSON(w, http.StatusOK, caller)
		return
	}
	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUser applies a partial update. Only superusers may change the
// is_active and is_superuser flags.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, id, err := h.authorizeTarget(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req types.UserUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.ChangesPrivileges() {
		if err := auth.RequireSuperuser(caller); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	user, err := h.userService.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.userService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) authorizeTarget(r *http.Request) (types.User, int, error) {
	caller, err := currentUser(r)
	if err != nil {
		return types.User{}, 0, err
	}
	id, err := parseIDParam(r, "userID")
	if err != nil {
		return types.User{}, 0, err
	}
	if err := auth.RequireSelfOrSuperuser(caller, id); err != nil {
		return types.User{}, 0, err
	}
	return caller, id, nil
}
