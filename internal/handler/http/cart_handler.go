package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/cart"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
)

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size" validate:"max=32"`
	Color     string    `json:"color" validate:"max=32"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{service: service, validate: newValidator()}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Post("/cart", h.handleAddToCart)
	router.Delete("/cart", h.handleClearCart)
	router.Put("/cart/{id}", h.handleUpdateItem)
	router.Delete("/cart/{id}", h.handleRemoveItem)
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.List(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load cart")
		return
	}
	respondWithData(w, http.StatusOK, summary)
}

func (h *CartHandler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	owner := session.FromContext(r.Context()).Owner()
	line, err := h.service.Add(r.Context(), owner, cart.AddInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add to cart")
		return
	}
	respondWithData(w, http.StatusOK, line)
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	owner := session.FromContext(r.Context()).Owner()
	line, err := h.service.UpdateQuantity(r.Context(), owner, lineID, req.Quantity)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update cart item")
		return
	}
	respondWithData(w, http.StatusOK, line)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	owner := session.FromContext(r.Context()).Owner()
	if err := h.service.Remove(r.Context(), owner, lineID); err != nil {
		respondWithServiceError(w, r, err, "Failed to remove cart item")
		return
	}
	respondWithData(w, http.StatusOK, map[string]uuid.UUID{"id": lineID})
}

func (h *CartHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	owner := session.FromContext(r.Context()).Owner()
	n, err := h.service.Clear(r.Context(), owner)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to clear cart")
		return
	}
	respondWithData(w, http.StatusOK, map[string]int{"deleted": n})
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Warn().Err(err).Str(name, raw).Msg("handler: failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}
