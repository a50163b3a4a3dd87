package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/settings"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
)

type SettingsHandler struct {
	service settings.Service
}

func NewSettingsHandler(service settings.Service) *SettingsHandler {
	return &SettingsHandler{service: service}
}

func (h *SettingsHandler) RegisterRoutes(router chi.Router) {
	router.Get("/settings", h.handlePublicSettings)

	router.Group(func(r chi.Router) {
		r.Use(RequireRole(user.RoleAdmin))
		r.Get("/admin/settings", h.handleAllSettings)
		r.Put("/admin/settings", h.handleUpdateSettings)
	})
}

func (h *SettingsHandler) handlePublicSettings(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.All(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load settings")
		return
	}
	respondWithData(w, http.StatusOK, values.Public())
}

func (h *SettingsHandler) handleAllSettings(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.All(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load settings")
		return
	}
	respondWithData(w, http.StatusOK, values)
}

// handleUpdateSettings accepts a flat key/value object. Keys are checked by
// the service.
func (h *SettingsHandler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var values settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		log.Warn().Err(err).Msg("handler: failed to decode settings payload")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(values) == 0 {
		respondWithError(w, http.StatusBadRequest, "No settings provided")
		return
	}

	updated, err := h.service.Update(r.Context(), values)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update settings")
		return
	}
	respondWithData(w, http.StatusOK, updated)
}
