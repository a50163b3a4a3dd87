package http_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/cart"
	orderHandler "github.com/vasiliy-maslov/ethnic-storefront/internal/handler/http"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/order"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
)

func placedOrder() *order.Placed {
	return &order.Placed{
		Order: &order.Order{
			ID:          uuid.Must(uuid.NewV4()),
			OrderNumber: "ORD-1718000000000-AB12CD",
			Status:      order.StatusSent,
			TotalAmount: decimal.RequireFromString("2998.00"),
		},
		WhatsAppURL: "https://wa.me/919876543210?text=Hello",
	}
}

func TestOrderHandler_CreateOrder_WithItems(t *testing.T) {
	mockOrders := new(MockOrderService)
	mockCart := new(MockCartService)
	id := guestIdentity()
	router := newTestRouter(id, orderHandler.NewOrderHandler(mockOrders, mockCart))

	productID := uuid.Must(uuid.NewV4())
	body := fmt.Sprintf(`{
		"items":[{"product_id":%q,"name":"Silk Dupatta","sku":"DUP-7","size":"","color":"Teal","price":"1499.00","quantity":2}],
		"customer_name":"Meera",
		"customer_phone":"+91 98765 43210",
		"shipping_address":"12 MG Road, Pune"
	}`, productID)

	placed := placedOrder()
	mockOrders.On("Create", mock.Anything, id, mock.MatchedBy(func(in order.CreateInput) bool {
		return len(in.Items) == 1 &&
			in.Items[0].ProductID == productID &&
			in.Items[0].Price.Equal(decimal.RequireFromString("1499")) &&
			in.Items[0].Quantity == 2 &&
			in.Customer.Name == "Meera" &&
			in.Customer.Address == "12 MG Road, Pune" &&
			!in.ClearCart
	})).Return(placed, nil).Once()

	rr := serve(router, http.MethodPost, "/whatsapp/order", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got order.Placed
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &got))
	assert.Equal(t, placed.WhatsAppURL, got.WhatsAppURL)
	assert.Equal(t, placed.Order.OrderNumber, got.Order.OrderNumber)
	mockOrders.AssertExpectations(t)
	mockCart.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestOrderHandler_CreateOrder_FromServerCart(t *testing.T) {
	mockOrders := new(MockOrderService)
	mockCart := new(MockCartService)
	id := userIdentity(user.RoleCustomer)
	router := newTestRouter(id, orderHandler.NewOrderHandler(mockOrders, mockCart))

	productID := uuid.Must(uuid.NewV4())
	mockCart.On("List", mock.Anything, id).Return(&cart.Summary{Items: []cart.Item{{
		Line:        cart.Line{ProductID: productID, Quantity: 3, Size: "L", PriceAtTime: decimal.NewFromInt(800)},
		ProductName: "Cotton Kurta",
		ProductSKU:  "KUR-9",
	}}}, nil).Once()

	mockOrders.On("Create", mock.Anything, id, mock.MatchedBy(func(in order.CreateInput) bool {
		return in.ClearCart && len(in.Items) == 1 &&
			in.Items[0].Name == "Cotton Kurta" &&
			in.Items[0].SKU == "KUR-9" &&
			in.Items[0].Price.Equal(decimal.NewFromInt(800)) &&
			in.Items[0].Quantity == 3
	})).Return(placedOrder(), nil).Once()

	rr := serve(router, http.MethodPost, "/whatsapp/order", `{"customer_name":"Ravi","customer_phone":"9876543210"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	mockOrders.AssertExpectations(t)
	mockCart.AssertExpectations(t)
}

func TestOrderHandler_CreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing_contact",
			body:       `{"items":[{"name":"Saree","price":"10","quantity":1}],"customer_name":"","customer_phone":""}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Validation failed",
		},
		{
			name:       "empty_order",
			body:       `{"items":[{"name":"Saree","price":"10","quantity":1}],"customer_name":"A","customer_phone":"1"}`,
			serviceErr: order.ErrEmptyOrder,
			wantStatus: http.StatusBadRequest,
			wantError:  order.ErrEmptyOrder.Error(),
		},
		{
			name:       "unknown_product",
			body:       `{"items":[{"product_id":"7b0e5c36-2f4e-4d8b-9a55-0d3b7d2f1c11","name":"Saree","price":"10","quantity":1}],"customer_name":"A","customer_phone":"1"}`,
			serviceErr: fmt.Errorf("%w: unknown product 7b0e5c36-2f4e-4d8b-9a55-0d3b7d2f1c11", order.ErrInvalidItem),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid order item: unknown product 7b0e5c36-2f4e-4d8b-9a55-0d3b7d2f1c11",
		},
		{
			name:       "not_configured",
			body:       `{"items":[{"name":"Saree","price":"10","quantity":1}],"customer_name":"A","customer_phone":"1"}`,
			serviceErr: fmt.Errorf("service: %w", order.ErrConfiguration),
			wantStatus: http.StatusInternalServerError,
			wantError:  order.ErrConfiguration.Error(),
		},
		{
			name:       "storage_failure",
			body:       `{"items":[{"name":"Saree","price":"10","quantity":1}],"customer_name":"A","customer_phone":"1"}`,
			serviceErr: fmt.Errorf("service: failed to create order: %w", assert.AnError),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to create order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOrders := new(MockOrderService)
			router := newTestRouter(guestIdentity(), orderHandler.NewOrderHandler(mockOrders, new(MockCartService)))
			if tt.serviceErr != nil {
				mockOrders.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.serviceErr).Once()
			}

			rr := serve(router, http.MethodPost, "/whatsapp/order", tt.body)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, tt.wantError, decodeEnvelope(t, rr).Error)
			mockOrders.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_GetOrder_PublicByNumber(t *testing.T) {
	mockOrders := new(MockOrderService)
	router := newTestRouter(session.Identity{}, orderHandler.NewOrderHandler(mockOrders, new(MockCartService)))

	o := placedOrder().Order
	mockOrders.On("Get", mock.Anything, o.OrderNumber).Return(o, nil).Once()
	mockOrders.On("Get", mock.Anything, "ORD-missing").Return(nil, order.ErrOrderNotFound).Once()

	rr := serve(router, http.MethodGet, "/whatsapp/order/"+o.OrderNumber, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(router, http.MethodGet, "/whatsapp/order/ORD-missing", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	mockOrders.AssertExpectations(t)
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	const ref = "ORD-1718000000000-AB12CD"

	tests := []struct {
		name       string
		id         session.Identity
		body       string
		setup      func(m *MockOrderService)
		wantStatus int
	}{
		{
			name:       "anonymous",
			id:         guestIdentity(),
			body:       `{"status":"confirmed"}`,
			setup:      func(m *MockOrderService) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "customer",
			id:         userIdentity(user.RoleCustomer),
			body:       `{"status":"confirmed"}`,
			setup:      func(m *MockOrderService) {},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "staff_confirms",
			id:   userIdentity(user.RoleStaff),
			body: `{"status":"confirmed"}`,
			setup: func(m *MockOrderService) {
				m.On("UpdateStatus", mock.Anything, ref, order.StatusConfirmed).
					Return(&order.Order{OrderNumber: ref, Status: order.StatusConfirmed}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "terminal_order",
			id:   userIdentity(user.RoleManager),
			body: `{"status":"received"}`,
			setup: func(m *MockOrderService) {
				m.On("UpdateStatus", mock.Anything, ref, order.StatusReceived).
					Return(nil, fmt.Errorf("%w: completed to received", order.ErrInvalidStatusTransition)).Once()
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unknown_status",
			id:         userIdentity(user.RoleAdmin),
			body:       `{"status":"shipped"}`,
			setup:      func(m *MockOrderService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOrders := new(MockOrderService)
			tt.setup(mockOrders)
			router := newTestRouter(tt.id, orderHandler.NewOrderHandler(mockOrders, new(MockCartService)))

			rr := serve(router, http.MethodPut, "/whatsapp/order/"+ref, tt.body)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			mockOrders.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_ListOrders(t *testing.T) {
	mockOrders := new(MockOrderService)
	router := newTestRouter(userIdentity(user.RoleStaff), orderHandler.NewOrderHandler(mockOrders, new(MockCartService)))

	mockOrders.On("List", mock.Anything, order.ListFilter{Status: order.StatusSent, Limit: 10, Offset: 20}).
		Return(&order.Page{Items: []order.Order{{OrderNumber: "ORD-1"}}, Total: 21}, nil).Once()

	rr := serve(router, http.MethodGet, "/admin/orders?status=sent&limit=10&page=3", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var page struct {
		Items []order.Order `json:"items"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &page))
	assert.Equal(t, 21, page.Total)
	require.Len(t, page.Items, 1)
	mockOrders.AssertExpectations(t)
}

func TestOrderHandler_ListMine_RequiresUser(t *testing.T) {
	mockOrders := new(MockOrderService)
	router := newTestRouter(guestIdentity(), orderHandler.NewOrderHandler(mockOrders, new(MockCartService)))

	rr := serve(router, http.MethodGet, "/orders/mine", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	id := userIdentity(user.RoleCustomer)
	router = newTestRouter(id, orderHandler.NewOrderHandler(mockOrders, new(MockCartService)))
	mockOrders.On("ListByUser", mock.Anything, id.UserID).Return([]order.Order{}, nil).Once()

	rr = serve(router, http.MethodGet, "/orders/mine", "")
	require.Equal(t, http.StatusOK, rr.Code)
	mockOrders.AssertExpectations(t)
}
