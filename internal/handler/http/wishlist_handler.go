package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/wishlist"
)

type AddToWishlistRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

type WishlistCheckResponse struct {
	IsInWishlist bool `json:"isInWishlist"`
}

type WishlistHandler struct {
	service  wishlist.Service
	validate *validator.Validate
}

func NewWishlistHandler(service wishlist.Service) *WishlistHandler {
	return &WishlistHandler{service: service, validate: newValidator()}
}

func (h *WishlistHandler) RegisterRoutes(router chi.Router) {
	router.Get("/wishlist/check/{productId}", h.handleCheck)

	router.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Get("/wishlist", h.handleList)
		r.Post("/wishlist", h.handleAdd)
		r.Delete("/wishlist/{productId}", h.handleRemove)
	})
}

func (h *WishlistHandler) handleList(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	items, err := h.service.List(r.Context(), id.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load wishlist")
		return
	}
	respondWithData(w, http.StatusOK, items)
}

func (h *WishlistHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req AddToWishlistRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	id := session.FromContext(r.Context())
	item, err := h.service.Add(r.Context(), id.UserID, req.ProductID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add to wishlist")
		return
	}
	respondWithData(w, http.StatusCreated, item)
}

func (h *WishlistHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "productId")
	if !ok {
		return
	}

	id := session.FromContext(r.Context())
	if err := h.service.Remove(r.Context(), id.UserID, productID); err != nil {
		respondWithServiceError(w, r, err, "Failed to remove from wishlist")
		return
	}
	respondWithData(w, http.StatusOK, map[string]uuid.UUID{"product_id": productID})
}

// handleCheck answers for anonymous callers too; they get false.
func (h *WishlistHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "productId")
	if !ok {
		return
	}

	in, err := h.service.Check(r.Context(), session.FromContext(r.Context()), productID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to check wishlist")
		return
	}
	respondWithData(w, http.StatusOK, WishlistCheckResponse{IsInWishlist: in})
}
