package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSent      Status = "sent"
	StatusReceived  Status = "received"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusSent: {
		StatusReceived:  true,
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusReceived: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
	StatusCancelled: {},
	StatusCompleted: {},
}

// CanTransition reports whether an order in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	return allowedTransitions[s][next]
}

// timestampColumn is the column stamped when an order enters s.
func (s Status) timestampColumn() string {
	switch s {
	case StatusReceived:
		return "received_at"
	case StatusConfirmed:
		return "confirmed_at"
	case StatusCancelled:
		return "cancelled_at"
	case StatusCompleted:
		return "completed_at"
	}
	return ""
}

type Line struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID   uuid.NullUUID   `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	SKU         string          `json:"sku" db:"sku"`
	Size        string          `json:"size" db:"size"`
	Color       string          `json:"color" db:"color"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity    int             `json:"quantity" db:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total" db:"line_total"`
}

type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrderNumber     string          `json:"order_number" db:"order_number"`
	UserID          uuid.NullUUID   `json:"user_id" db:"user_id"`
	CustomerName    string          `json:"customer_name" db:"customer_name"`
	CustomerPhone   string          `json:"customer_phone" db:"customer_phone"`
	CustomerEmail   string          `json:"customer_email" db:"customer_email"`
	ShippingAddress string          `json:"shipping_address" db:"shipping_address"`
	Notes           string          `json:"notes" db:"notes"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status          Status          `json:"status" db:"status"`
	WhatsAppMessage string          `json:"whatsapp_message" db:"whatsapp_message"`
	Lines           []Line          `json:"items" db:"-"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
	ReceivedAt      *time.Time      `json:"received_at,omitempty" db:"received_at"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

func (o *Order) ItemCount() int {
	n := 0
	for i := range o.Lines {
		n += o.Lines[i].Quantity
	}
	return n
}

// ItemInput is a cart-line-shaped order entry supplied at checkout.
type ItemInput struct {
	ProductID uuid.UUID
	Name      string
	SKU       string
	Size      string
	Color     string
	Price     decimal.Decimal
	Quantity  int
}

type Customer struct {
	Name    string
	Phone   string
	Email   string
	Address string
	Notes   string
}

type CreateInput struct {
	Items    []ItemInput
	Customer Customer
	// ClearCart empties the caller's cart after a guest checkout too.
	// Authenticated carts are always cleared.
	ClearCart bool
}

// Placed is the result of a checkout: the persisted order and the link that
// opens the prefilled WhatsApp chat.
type Placed struct {
	Order       *Order `json:"order"`
	WhatsAppURL string `json:"whatsapp_url"`
	CartCleared int    `json:"cart_cleared,omitempty"`
}

type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}
