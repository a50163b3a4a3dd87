package wishlist

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/catalog"
)

type Item struct {
	ID           uuid.UUID            `json:"id" db:"id"`
	UserID       uuid.UUID            `json:"-" db:"user_id"`
	ProductID    uuid.UUID            `json:"product_id" db:"product_id"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
	ProductName  string               `json:"product_name" db:"product_name"`
	ProductSlug  string               `json:"product_slug" db:"product_slug"`
	ProductImage string               `json:"product_image" db:"product_image"`
	Price        decimal.Decimal      `json:"price" db:"price"`
	Availability catalog.Availability `json:"availability" db:"availability"`
}
