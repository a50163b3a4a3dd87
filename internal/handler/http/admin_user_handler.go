package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
)

type UpdateRoleRequest struct {
	Role user.Role `json:"role" validate:"required"`
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// AdminUserHandler serves user management for admins.
type AdminUserHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewAdminUserHandler(service user.Service) *AdminUserHandler {
	return &AdminUserHandler{service: service, validate: newValidator()}
}

func (h *AdminUserHandler) RegisterRoutes(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(RequireRole(user.RoleAdmin))
		r.Get("/admin/users", h.handleListUsers)
		r.Get("/admin/users/{id}", h.handleGetUser)
		r.Put("/admin/users/{id}/role", h.handleUpdateRole)
		r.Put("/admin/users/{id}/status", h.handleUpdateStatus)
	})
}

func (h *AdminUserHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, total, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list users")
		return
	}

	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, newUserResponse(&users[i]))
	}
	respondWithData(w, http.StatusOK, pageResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *AdminUserHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	u, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get user")
		return
	}
	respondWithData(w, http.StatusOK, newUserResponse(u))
}

func (h *AdminUserHandler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	targetID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	actor := session.FromContext(r.Context())
	if err := h.service.UpdateRole(r.Context(), actor.Role, targetID, req.Role); err != nil {
		respondWithServiceError(w, r, err, "Failed to update role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminUserHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	targetID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	actor := session.FromContext(r.Context())
	if err := h.service.SetActive(r.Context(), actor.Role, targetID, *req.IsActive); err != nil {
		respondWithServiceError(w, r, err, "Failed to update user status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
