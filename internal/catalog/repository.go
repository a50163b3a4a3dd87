package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/db"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrSlugExists       = errors.New("slug already exists")
	ErrSKUExists        = errors.New("sku already exists")
	ErrCategoryInUse    = errors.New("category still has products")
)

type Repository interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context, activeOnly bool) ([]Category, error)
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const productColumns = `p.id, p.category_id, p.name, p.slug, p.sku, p.description, p.price, p.compare_price,
	p.stock_quantity, p.is_active, p.is_featured, p.availability, p.sizes, p.colors, p.images,
	p.created_at, p.updated_at`

var productOrder = map[SortOrder]string{
	SortNewest:    "p.created_at DESC",
	SortPriceAsc:  "p.price ASC, p.created_at DESC",
	SortPriceDesc: "p.price DESC, p.created_at DESC",
	SortName:      "p.name ASC",
}

func buildProductWhere(f ProductFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !f.IncludeInactive {
		conds = append(conds, "p.is_active = TRUE")
	}
	if f.CategorySlug != "" {
		add("c.slug = $%d", f.CategorySlug)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(p.name ILIKE $%d OR p.sku ILIKE $%d)", n, n))
	}
	if f.Featured != nil {
		add("p.is_featured = $%d", *f.Featured)
	}
	if f.MinPrice != nil {
		add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d", *f.MaxPrice)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *repository) ListProducts(ctx context.Context, f ProductFilter) ([]Product, int, error) {
	where, args := buildProductWhere(f)
	from := ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+from+where, args...); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count products: %w", err)
	}

	order, ok := productOrder[f.Sort]
	if !ok {
		order = productOrder[SortNewest]
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, from, where, order, len(args)-1, len(args))

	products := make([]Product, 0)
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to list products: %w", err)
	}
	return products, total, nil
}

func (r *repository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return r.getProduct(ctx, `p.id = $1`, id)
}

func (r *repository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return r.getProduct(ctx, `p.slug = $1`, slug)
}

func (r *repository) getProduct(ctx context.Context, cond string, arg interface{}) (*Product, error) {
	var p Product
	err := r.db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products p WHERE `+cond, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product: %w", err)
	}
	return &p, nil
}

func (r *repository) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product id: %w", err)
		}
		p.ID = id
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	query := `INSERT INTO products (id, category_id, name, slug, sku, description, price, compare_price,
			stock_quantity, is_active, is_featured, availability, sizes, colors, images, created_at, updated_at)
		VALUES (:id, :category_id, :name, :slug, :sku, :description, :price, :compare_price,
			:stock_quantity, :is_active, :is_featured, :availability, :sizes, :colors, :images, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return mapProductWriteErr(err)
	}
	return nil
}

func (r *repository) UpdateProduct(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `UPDATE products SET category_id = :category_id, name = :name, slug = :slug, sku = :sku,
			description = :description, price = :price, compare_price = :compare_price,
			stock_quantity = :stock_quantity, is_active = :is_active, is_featured = :is_featured,
			availability = :availability, sizes = :sizes, colors = :colors, images = :images,
			updated_at = :updated_at
		WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return mapProductWriteErr(err)
	}
	return affected(res, ErrProductNotFound)
}

func (r *repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	return affected(res, ErrProductNotFound)
}

func mapProductWriteErr(err error) error {
	switch {
	case db.IsUniqueViolation(err, "products_slug_key"):
		return ErrSlugExists
	case db.IsUniqueViolation(err, "products_sku_key"):
		return ErrSKUExists
	case db.IsForeignKeyViolation(err):
		return ErrCategoryNotFound
	}
	return fmt.Errorf("repository: failed to write product: %w", err)
}

const categoryColumns = `id, name, slug, description, is_active, sort_order, created_at, updated_at`

func (r *repository) ListCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order ASC, name ASC`

	categories := make([]Category, 0)
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("repository: failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *repository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := r.db.GetContext(ctx, &c, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category %s: %w", id, err)
	}
	return &c, nil
}

func (r *repository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate category id: %w", err)
		}
		c.ID = id
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	query := `INSERT INTO categories (` + categoryColumns + `)
		VALUES (:id, :name, :slug, :description, :is_active, :sort_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		if db.IsUniqueViolation(err, "categories_slug_key") {
			return ErrSlugExists
		}
		return fmt.Errorf("repository: failed to insert category: %w", err)
	}
	return nil
}

func (r *repository) UpdateCategory(ctx context.Context, c *Category) error {
	c.UpdatedAt = time.Now().UTC()
	query := `UPDATE categories SET name = :name, slug = :slug, description = :description,
			is_active = :is_active, sort_order = :sort_order, updated_at = :updated_at
		WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		if db.IsUniqueViolation(err, "categories_slug_key") {
			return ErrSlugExists
		}
		return fmt.Errorf("repository: failed to update category %s: %w", c.ID, err)
	}
	return affected(res, ErrCategoryNotFound)
}

func (r *repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrCategoryInUse
		}
		return fmt.Errorf("repository: failed to delete category %s: %w", id, err)
	}
	return affected(res, ErrCategoryNotFound)
}

func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
