package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/db"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
)

var ErrNotFound = errors.New("cart item not found")

type Repository interface {
	List(ctx context.Context, owner session.Owner) ([]Item, error)
	GetLine(ctx context.Context, owner session.Owner, id uuid.UUID) (*Line, error)
	Upsert(ctx context.Context, owner session.Owner, line *Line) error
	UpdateQuantity(ctx context.Context, owner session.Owner, id uuid.UUID, quantity int, price decimal.Decimal) error
	Delete(ctx context.Context, owner session.Owner, id uuid.UUID) error
	Clear(ctx context.Context, owner session.Owner) (int, error)
	Reconcile(ctx context.Context, guestToken string, userID uuid.UUID) (ReconcileResult, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// ownerCond returns the owner filter bound to placeholder $n.
func ownerCond(owner session.Owner, n int) (string, interface{}) {
	if owner.IsUser() {
		return fmt.Sprintf("user_id = $%d", n), owner.UserID
	}
	return fmt.Sprintf("session_id = $%d", n), owner.GuestToken
}

const lineColumns = `id, user_id, session_id, product_id, size, color, quantity, price_at_time, created_at, updated_at`

func (r *repository) List(ctx context.Context, owner session.Owner) ([]Item, error) {
	cond, arg := ownerCond(owner, 1)
	query := `SELECT ci.id, ci.user_id, ci.session_id, ci.product_id, ci.size, ci.color, ci.quantity,
			ci.price_at_time, ci.created_at, ci.updated_at,
			p.name AS product_name, p.slug AS product_slug, p.sku AS product_sku,
			COALESCE(p.images[1], '') AS product_image, p.price AS current_price,
			p.stock_quantity, p.availability
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.` + cond + `
		ORDER BY ci.created_at ASC`

	items := make([]Item, 0)
	if err := r.db.SelectContext(ctx, &items, query, arg); err != nil {
		return nil, fmt.Errorf("repository: failed to list cart for %s: %w", owner, err)
	}
	return items, nil
}

func (r *repository) GetLine(ctx context.Context, owner session.Owner, id uuid.UUID) (*Line, error) {
	cond, arg := ownerCond(owner, 2)
	var line Line
	err := r.db.GetContext(ctx, &line, `SELECT `+lineColumns+` FROM cart_items WHERE id = $1 AND `+cond, id, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart item %s: %w", id, err)
	}
	return &line, nil
}

// Upsert inserts the line or, when the owner already has a line for the same
// product, size and color, replaces its quantity and price. line is updated
// with the stored row.
func (r *repository) Upsert(ctx context.Context, owner session.Owner, line *Line) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate cart item id: %w", err)
	}
	now := time.Now().UTC()

	var (
		ownerCol, conflict string
		ownerArg           interface{}
	)
	if owner.IsUser() {
		ownerCol, ownerArg = "user_id", owner.UserID
		conflict = "(user_id, product_id, size, color) WHERE user_id IS NOT NULL"
	} else {
		ownerCol, ownerArg = "session_id", owner.GuestToken
		conflict = "(session_id, product_id, size, color) WHERE session_id IS NOT NULL"
	}

	query := `INSERT INTO cart_items (id, ` + ownerCol + `, product_id, size, color, quantity, price_at_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT ` + conflict + ` DO UPDATE
			SET quantity = EXCLUDED.quantity, price_at_time = EXCLUDED.price_at_time, updated_at = EXCLUDED.updated_at
		RETURNING ` + lineColumns

	err = r.db.GetContext(ctx, line, query,
		id, ownerArg, line.ProductID, line.Size, line.Color, line.Quantity, line.PriceAtTime, now)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("repository: failed to upsert cart item: %w", err)
	}
	return nil
}

func (r *repository) UpdateQuantity(ctx context.Context, owner session.Owner, id uuid.UUID, quantity int, price decimal.Decimal) error {
	cond, arg := ownerCond(owner, 5)
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $1, price_at_time = $2, updated_at = $3 WHERE id = $4 AND `+cond,
		quantity, price, time.Now().UTC(), id, arg)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart item %s: %w", id, err)
	}
	return affected(res)
}

func (r *repository) Delete(ctx context.Context, owner session.Owner, id uuid.UUID) error {
	cond, arg := ownerCond(owner, 2)
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1 AND `+cond, id, arg)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %s: %w", id, err)
	}
	return affected(res)
}

func (r *repository) Clear(ctx context.Context, owner session.Owner) (int, error) {
	cond, arg := ownerCond(owner, 1)
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE `+cond, arg)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to clear cart for %s: %w", owner, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repository: failed to read affected rows: %w", err)
	}
	return int(n), nil
}

type guestLine struct {
	ID        uuid.UUID       `db:"id"`
	ProductID uuid.UUID       `db:"product_id"`
	Size      string          `db:"size"`
	Color     string          `db:"color"`
	Quantity  int             `db:"quantity"`
	Price     decimal.Decimal `db:"price"`
	Stock     int             `db:"stock_quantity"`
}

type userLine struct {
	ID       uuid.UUID `db:"id"`
	Quantity int       `db:"quantity"`
}

// Reconcile moves every guest line to the user inside one transaction. Lines
// that collide with an existing user line are merged into it.
func (r *repository) Reconcile(ctx context.Context, guestToken string, userID uuid.UUID) (ReconcileResult, error) {
	var result ReconcileResult

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var guest []guestLine
		err := tx.SelectContext(ctx, &guest, `SELECT ci.id, ci.product_id, ci.size, ci.color, ci.quantity,
				p.price, p.stock_quantity
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.session_id = $1
			ORDER BY ci.created_at ASC
			FOR UPDATE OF ci`, guestToken)
		if err != nil {
			return fmt.Errorf("failed to select guest lines: %w", err)
		}

		now := time.Now().UTC()
		for _, g := range guest {
			var existing userLine
			err := tx.GetContext(ctx, &existing, `SELECT id, quantity FROM cart_items
				WHERE user_id = $1 AND product_id = $2 AND size = $3 AND color = $4
				FOR UPDATE`, userID, g.ProductID, g.Size, g.Color)

			switch {
			case err == nil:
				qty := mergeQuantity(existing.Quantity, g.Quantity, g.Stock)
				if _, err := tx.ExecContext(ctx,
					`UPDATE cart_items SET quantity = $1, price_at_time = $2, updated_at = $3 WHERE id = $4`,
					qty, g.Price, now, existing.ID); err != nil {
					return fmt.Errorf("failed to merge cart item %s: %w", existing.ID, err)
				}
				if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, g.ID); err != nil {
					return fmt.Errorf("failed to drop merged guest item %s: %w", g.ID, err)
				}
				result.Merged++
			case errors.Is(err, sql.ErrNoRows):
				if _, err := tx.ExecContext(ctx,
					`UPDATE cart_items SET user_id = $1, session_id = NULL, updated_at = $2 WHERE id = $3`,
					userID, now, g.ID); err != nil {
					return fmt.Errorf("failed to move guest item %s: %w", g.ID, err)
				}
				result.Moved++
			default:
				return fmt.Errorf("failed to look up user item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("repository: failed to reconcile guest cart: %w", err)
	}
	return result, nil
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
