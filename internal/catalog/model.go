package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Availability string

const (
	AvailabilityInStock      Availability = "in_stock"
	AvailabilityOutOfStock   Availability = "out_of_stock"
	AvailabilityPreOrder     Availability = "pre_order"
	AvailabilityDiscontinued Availability = "discontinued"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityInStock, AvailabilityOutOfStock, AvailabilityPreOrder, AvailabilityDiscontinued:
		return true
	}
	return false
}

type Product struct {
	ID            uuid.UUID           `json:"id" db:"id"`
	CategoryID    uuid.NullUUID       `json:"category_id" db:"category_id"`
	Name          string              `json:"name" db:"name"`
	Slug          string              `json:"slug" db:"slug"`
	SKU           string              `json:"sku" db:"sku"`
	Description   string              `json:"description" db:"description"`
	Price         decimal.Decimal     `json:"price" db:"price"`
	ComparePrice  decimal.NullDecimal `json:"compare_price" db:"compare_price"`
	StockQuantity int                 `json:"stock_quantity" db:"stock_quantity"`
	IsActive      bool                `json:"is_active" db:"is_active"`
	IsFeatured    bool                `json:"is_featured" db:"is_featured"`
	Availability  Availability        `json:"availability" db:"availability"`
	Sizes         pq.StringArray      `json:"sizes" db:"sizes"`
	Colors        pq.StringArray      `json:"colors" db:"colors"`
	Images        pq.StringArray      `json:"images" db:"images"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// TracksStock reports whether stock limits apply to this product. A zero
// stock quantity means stock is not tracked.
func (p *Product) TracksStock() bool {
	return p.StockQuantity > 0
}

// Purchasable reports whether the product may be added to a cart.
func (p *Product) Purchasable() bool {
	return p.IsActive && p.Availability != AvailabilityOutOfStock && p.Availability != AvailabilityDiscontinued
}

// PrimaryImage returns the first image or an empty string.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortName      SortOrder = "name"
)

// ProductFilter narrows product listings. Zero values mean "no filter".
type ProductFilter struct {
	CategorySlug    string
	Search          string
	Featured        *bool
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	Sort            SortOrder
	IncludeInactive bool
	Limit           int
	Offset          int
}

type ProductPage struct {
	Items []Product `json:"items"`
	Total int       `json:"total"`
}
