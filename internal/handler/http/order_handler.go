package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/cart"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/order"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
)

type OrderItemRequest struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name" validate:"required"`
	SKU       string          `json:"sku"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CreateOrderRequest carries the checkout form. When Items is empty the
// caller's server-side cart is used and cleared afterwards.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"dive"`
	CustomerName    string             `json:"customer_name" validate:"required,max=120"`
	CustomerPhone   string             `json:"customer_phone" validate:"required,max=20"`
	CustomerEmail   string             `json:"customer_email" validate:"omitempty,email"`
	ShippingAddress string             `json:"shipping_address" validate:"max=500"`
	Notes           string             `json:"notes" validate:"max=1000"`
	ClearCart       bool               `json:"clear_cart"`
}

type UpdateOrderStatusRequest struct {
	Status order.Status `json:"status" validate:"required,oneof=sent received confirmed cancelled completed"`
}

type OrderHandler struct {
	orders   order.Service
	cart     cart.Service
	validate *validator.Validate
}

func NewOrderHandler(orders order.Service, carts cart.Service) *OrderHandler {
	return &OrderHandler{orders: orders, cart: carts, validate: newValidator()}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/whatsapp/order", h.handleCreateOrder)
	router.Get("/whatsapp/order/{orderId}", h.handleGetOrder)
	router.With(RequireRole(user.RoleStaff)).Put("/whatsapp/order/{orderId}", h.handleUpdateStatus)
	router.With(RequireAuth).Get("/orders/mine", h.handleListMine)
	router.With(RequireRole(user.RoleStaff)).Get("/admin/orders", h.handleListOrders)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	id := session.FromContext(r.Context())
	in := order.CreateInput{
		Customer: order.Customer{
			Name:    req.CustomerName,
			Phone:   req.CustomerPhone,
			Email:   req.CustomerEmail,
			Address: req.ShippingAddress,
			Notes:   req.Notes,
		},
		ClearCart: req.ClearCart,
	}

	if len(req.Items) == 0 {
		items, err := h.cartItems(r.Context(), id)
		if err != nil {
			respondWithServiceError(w, r, err, "Failed to load cart")
			return
		}
		in.Items = items
		in.ClearCart = true
	} else {
		in.Items = make([]order.ItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			in.Items = append(in.Items, order.ItemInput{
				ProductID: item.ProductID,
				Name:      item.Name,
				SKU:       item.SKU,
				Size:      item.Size,
				Color:     item.Color,
				Price:     item.Price,
				Quantity:  item.Quantity,
			})
		}
	}

	placed, err := h.orders.Create(r.Context(), id, in)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create order")
		return
	}
	respondWithData(w, http.StatusCreated, placed)
}

// cartItems snapshots the caller's cart as order items at price-at-time.
func (h *OrderHandler) cartItems(ctx context.Context, id session.Identity) ([]order.ItemInput, error) {
	summary, err := h.cart.List(ctx, id)
	if err != nil {
		return nil, err
	}
	items := make([]order.ItemInput, 0, len(summary.Items))
	for _, it := range summary.Items {
		items = append(items, order.ItemInput{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			SKU:       it.ProductSKU,
			Size:      it.Size,
			Color:     it.Color,
			Price:     it.PriceAtTime,
			Quantity:  it.Quantity,
		})
	}
	return items, nil
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get order")
		return
	}
	respondWithData(w, http.StatusOK, o)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update order status")
		return
	}
	respondWithData(w, http.StatusOK, o)
}

func (h *OrderHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	orders, err := h.orders.ListByUser(r.Context(), id.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list orders")
		return
	}
	respondWithData(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	page, err := h.orders.List(r.Context(), order.ListFilter{
		Status: order.Status(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list orders")
		return
	}
	respondWithData(w, http.StatusOK, pageResponse{Items: page.Items, Total: page.Total, Limit: limit, Offset: offset})
}
