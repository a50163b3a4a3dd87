package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidProduct = errors.New("invalid product")

type Service interface {
	ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) (*Product, error)
	UpdateProduct(ctx context.Context, p *Product) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context, activeOnly bool) ([]Category, error)
	CreateCategory(ctx context.Context, c *Category) (*Category, error)
	UpdateCategory(ctx context.Context, c *Category) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return &ProductPage{Items: items, Total: total}, nil
}

func (s *service) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("service: failed to get product %s: %w", id, err)
	}
	return p, nil
}

// GetProductBySlug returns an active product. Inactive products are reported
// as not found to public callers.
func (s *service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	p, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("service: failed to get product by slug %q: %w", slug, err)
	}
	if !p.IsActive {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *service) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	if err := normalizeProduct(p); err != nil {
		return nil, err
	}
	p.ID = uuid.Nil

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, ErrSlugExists) || errors.Is(err, ErrSKUExists) || errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("slug", p.Slug).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", p.ID).Str("slug", p.Slug).Msg("service: product created")
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, p *Product) (*Product, error) {
	if err := normalizeProduct(p); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrSlugExists) ||
			errors.Is(err, ErrSKUExists) || errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("product_id", p.ID).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("service: failed to delete product %s: %w", id, err)
	}
	log.Info().Stringer("product_id", id).Msg("service: product deleted")
	return nil
}

func (s *service) ListCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *service) CreateCategory(ctx context.Context, c *Category) (*Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	c.ID = uuid.Nil

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrSlugExists) {
			return nil, ErrSlugExists
		}
		return nil, fmt.Errorf("service: failed to create category: %w", err)
	}
	return c, nil
}

func (s *service) UpdateCategory(ctx context.Context, c *Category) (*Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrSlugExists) || errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to update category: %w", err)
	}
	return c, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrCategoryInUse) {
			return err
		}
		return fmt.Errorf("service: failed to delete category %s: %w", id, err)
	}
	return nil
}

func normalizeProduct(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	if p.Availability == "" {
		p.Availability = AvailabilityInStock
	}

	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Slug == "":
		return fmt.Errorf("%w: slug is required", ErrInvalidProduct)
	case p.SKU == "":
		return fmt.Errorf("%w: sku is required", ErrInvalidProduct)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidProduct)
	case p.StockQuantity < 0:
		return fmt.Errorf("%w: stock quantity cannot be negative", ErrInvalidProduct)
	case !p.Availability.Valid():
		return fmt.Errorf("%w: unknown availability %q", ErrInvalidProduct, p.Availability)
	case p.ComparePrice.Valid && p.ComparePrice.Decimal.LessThan(p.Price):
		return fmt.Errorf("%w: compare price must not be below price", ErrInvalidProduct)
	}

	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	if p.Colors == nil {
		p.Colors = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
