package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/db"
)

var (
	ErrNotFound       = errors.New("wishlist item not found")
	ErrAlreadyExists  = errors.New("product already in wishlist")
	ErrUnknownProduct = errors.New("product not found")
)

type Repository interface {
	List(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Add(ctx context.Context, userID, productID uuid.UUID) (*Item, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	query := `SELECT w.id, w.user_id, w.product_id, w.created_at,
			p.name AS product_name, p.slug AS product_slug, COALESCE(p.images[1], '') AS product_image,
			p.price, p.availability
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC`

	items := make([]Item, 0)
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("repository: failed to list wishlist for user %s: %w", userID, err)
	}
	return items, nil
}

func (r *repository) Add(ctx context.Context, userID, productID uuid.UUID) (*Item, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate wishlist id: %w", err)
	}
	item := &Item{ID: id, UserID: userID, ProductID: productID, CreatedAt: time.Now().UTC()}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO wishlist_items (id, user_id, product_id, created_at) VALUES ($1, $2, $3, $4)`,
		item.ID, item.UserID, item.ProductID, item.CreatedAt)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, "wishlist_items_user_product_key"):
			return nil, ErrAlreadyExists
		case db.IsForeignKeyViolation(err):
			return nil, ErrUnknownProduct
		}
		return nil, fmt.Errorf("repository: failed to insert wishlist item: %w", err)
	}
	return item, nil
}

func (r *repository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete wishlist item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM wishlist_items WHERE user_id = $1 AND product_id = $2)`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check wishlist: %w", err)
	}
	return exists, nil
}
