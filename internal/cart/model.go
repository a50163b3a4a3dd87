package cart

import (
	"database/sql"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/catalog"
)

// Line is a persisted cart row. Exactly one of UserID and SessionID is set.
type Line struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.NullUUID   `json:"-" db:"user_id"`
	SessionID   sql.NullString  `json:"-" db:"session_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	Size        string          `json:"size" db:"size"`
	Color       string          `json:"color" db:"color"`
	Quantity    int             `json:"quantity" db:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time" db:"price_at_time"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// LineTotal is price-at-time times quantity.
func (l *Line) LineTotal() decimal.Decimal {
	return l.PriceAtTime.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Item is a cart line joined with the current product state.
type Item struct {
	Line
	ProductName   string               `json:"product_name" db:"product_name"`
	ProductSlug   string               `json:"product_slug" db:"product_slug"`
	ProductSKU    string               `json:"product_sku" db:"product_sku"`
	ProductImage  string               `json:"product_image" db:"product_image"`
	CurrentPrice  decimal.Decimal      `json:"current_price" db:"current_price"`
	StockQuantity int                  `json:"stock_quantity" db:"stock_quantity"`
	Availability  catalog.Availability `json:"availability" db:"availability"`
}

type Summary struct {
	Items     []Item          `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
	// Reconciled reports how many guest lines were folded in on this read.
	Reconciled int `json:"reconciled,omitempty"`
}

func newSummary(items []Item) *Summary {
	s := &Summary{Items: items, Subtotal: decimal.Zero}
	for i := range items {
		s.Subtotal = s.Subtotal.Add(items[i].LineTotal())
		s.ItemCount += items[i].Quantity
	}
	return s
}

type ReconcileResult struct {
	Merged int `json:"merged"`
	Moved  int `json:"moved"`
}

func (r ReconcileResult) Total() int {
	return r.Merged + r.Moved
}

// mergeQuantity sums two line quantities, capping at stock when the product
// tracks stock.
func mergeQuantity(a, b, stock int) int {
	q := a + b
	if stock > 0 && q > stock {
		return stock
	}
	return q
}
