package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
)

type ProductRequest struct {
	CategoryID    *uuid.UUID           `json:"category_id"`
	Name          string               `json:"name" validate:"required,max=200"`
	Slug          string               `json:"slug" validate:"max=200"`
	SKU           string               `json:"sku" validate:"required,max=64"`
	Description   string               `json:"description"`
	Price         decimal.Decimal      `json:"price"`
	ComparePrice  *decimal.Decimal     `json:"compare_price"`
	StockQuantity int                  `json:"stock_quantity" validate:"gte=0"`
	IsActive      *bool                `json:"is_active"`
	IsFeatured    bool                 `json:"is_featured"`
	Availability  catalog.Availability `json:"availability" validate:"omitempty,oneof=in_stock out_of_stock pre_order discontinued"`
	Sizes         []string             `json:"sizes"`
	Colors        []string             `json:"colors"`
	Images        []string             `json:"images" validate:"dive,url"`
}

func (p ProductRequest) toProduct(id uuid.UUID) *catalog.Product {
	product := &catalog.Product{
		ID:            id,
		Name:          p.Name,
		Slug:          p.Slug,
		SKU:           p.SKU,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive == nil || *p.IsActive,
		IsFeatured:    p.IsFeatured,
		Availability:  p.Availability,
		Sizes:         p.Sizes,
		Colors:        p.Colors,
		Images:        p.Images,
	}
	if p.CategoryID != nil {
		product.CategoryID = uuid.NullUUID{UUID: *p.CategoryID, Valid: true}
	}
	if p.ComparePrice != nil {
		product.ComparePrice = decimal.NewNullDecimal(*p.ComparePrice)
	}
	return product
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Slug        string `json:"slug" validate:"max=120"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
}

func (c CategoryRequest) toCategory(id uuid.UUID) *catalog.Category {
	return &catalog.Category{
		ID:          id,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		IsActive:    c.IsActive == nil || *c.IsActive,
		SortOrder:   c.SortOrder,
	}
}

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service, validate: newValidator()}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.handleListProducts)
	router.Get("/products/{slug}", h.handleGetProduct)
	router.Get("/categories", h.handleListCategories)

	router.Group(func(r chi.Router) {
		r.Use(RequireRole(user.RoleManager))

		r.Get("/admin/products", h.handleAdminListProducts)
		r.Post("/admin/products", h.handleCreateProduct)
		r.Get("/admin/products/{id}", h.handleAdminGetProduct)
		r.Put("/admin/products/{id}", h.handleUpdateProduct)
		r.Delete("/admin/products/{id}", h.handleDeleteProduct)

		r.Get("/admin/categories", h.handleAdminListCategories)
		r.Post("/admin/categories", h.handleCreateCategory)
		r.Put("/admin/categories/{id}", h.handleUpdateCategory)
		r.Delete("/admin/categories/{id}", h.handleDeleteCategory)
	})
}

// productFilter reads listing filters from the query string. Malformed
// numeric values are ignored.
func productFilter(r *http.Request) catalog.ProductFilter {
	q := r.URL.Query()
	limit, offset := pagination(r)
	f := catalog.ProductFilter{
		CategorySlug: q.Get("category"),
		Search:       q.Get("search"),
		Sort:         catalog.SortOrder(q.Get("sort")),
		Limit:        limit,
		Offset:       offset,
	}
	if raw := q.Get("featured"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			f.Featured = &v
		}
	}
	if v, err := decimal.NewFromString(q.Get("min_price")); err == nil {
		f.MinPrice = &v
	}
	if v, err := decimal.NewFromString(q.Get("max_price")); err == nil {
		f.MaxPrice = &v
	}
	return f
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request, f catalog.ProductFilter) {
	page, err := h.service.ListProducts(r.Context(), f)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list products")
		return
	}
	respondWithData(w, http.StatusOK, pageResponse{Items: page.Items, Total: page.Total, Limit: f.Limit, Offset: f.Offset})
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, productFilter(r))
}

func (h *CatalogHandler) handleAdminListProducts(w http.ResponseWriter, r *http.Request) {
	f := productFilter(r)
	f.IncludeInactive = true
	h.listProducts(w, r, f)
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get product")
		return
	}
	respondWithData(w, http.StatusOK, p)
}

func (h *CatalogHandler) handleAdminGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get product")
		return
	}
	respondWithData(w, http.StatusOK, p)
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	p, err := h.service.CreateProduct(r.Context(), req.toProduct(uuid.Nil))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create product")
		return
	}
	respondWithData(w, http.StatusCreated, p)
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), req.toProduct(id))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update product")
		return
	}
	respondWithData(w, http.StatusOK, p)
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context(), true)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list categories")
		return
	}
	respondWithData(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleAdminListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context(), false)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list categories")
		return
	}
	respondWithData(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	c, err := h.service.CreateCategory(r.Context(), req.toCategory(uuid.Nil))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create category")
		return
	}
	respondWithData(w, http.StatusCreated, c)
}

func (h *CatalogHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	c, err := h.service.UpdateCategory(r.Context(), req.toCategory(id))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update category")
		return
	}
	respondWithData(w, http.StatusOK, c)
}

func (h *CatalogHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
