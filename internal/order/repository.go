package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/db"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNumberConflict = errors.New("order number already exists")
)

type Repository interface {
	// Create stores the order and its lines in one transaction.
	Create(ctx context.Context, o *Order) error
	GetByNumber(ctx context.Context, number string) (*Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `id, order_number, user_id, customer_name, customer_phone, customer_email, shipping_address,
	notes, total_amount, status, whatsapp_message, created_at, updated_at,
	received_at, confirmed_at, cancelled_at, completed_at`

func (r *repository) Create(ctx context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order id: %w", err)
		}
		o.ID = id
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO orders (id, order_number, user_id, customer_name, customer_phone,
				customer_email, shipping_address, notes, total_amount, status, whatsapp_message, created_at, updated_at)
			VALUES (:id, :order_number, :user_id, :customer_name, :customer_phone,
				:customer_email, :shipping_address, :notes, :total_amount, :status, :whatsapp_message, :created_at, :updated_at)`, o)
		if err != nil {
			if db.IsUniqueViolation(err, "orders_order_number_key") {
				return ErrOrderNumberConflict
			}
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range o.Lines {
			line := &o.Lines[i]
			lineID, err := uuid.NewV4()
			if err != nil {
				return fmt.Errorf("failed to generate order item id: %w", err)
			}
			line.ID = lineID
			line.OrderID = o.ID

			_, err = tx.NamedExecContext(ctx, `INSERT INTO order_items (id, order_id, product_id, product_name, sku,
					size, color, unit_price, quantity, line_total)
				VALUES (:id, :order_id, :product_id, :product_name, :sku, :size, :color, :unit_price, :quantity, :line_total)`, line)
			if err != nil {
				if db.IsForeignKeyViolation(err, "order_items_product_id_fkey") {
					return fmt.Errorf("%w: unknown product %s", ErrInvalidItem, line.ProductID.UUID)
				}
				return fmt.Errorf("failed to insert order item for order %s: %w", o.OrderNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNumberConflict) {
			return ErrOrderNumberConflict
		}
		if errors.Is(err, ErrInvalidItem) {
			return err
		}
		log.Warn().Err(err).Str("order_number", o.OrderNumber).Msg("repository: order transaction rolled back")
		return fmt.Errorf("repository: failed to create order: %w", err)
	}
	return nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return r.get(ctx, `order_number = $1`, number)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.get(ctx, `id = $1`, id)
}

func (r *repository) get(ctx context.Context, cond string, arg interface{}) (*Order, error) {
	var o Order
	if err := r.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE `+cond, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order: %w", err)
	}

	lines := make([]Line, 0)
	err := r.db.SelectContext(ctx, &lines, `SELECT id, order_id, product_id, product_name, sku, size, color,
			unit_price, quantity, line_total
		FROM order_items WHERE order_id = $1 ORDER BY product_name ASC, size ASC, color ASC`, o.ID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to select items for order %s: %w", o.OrderNumber, err)
	}
	o.Lines = lines
	return &o, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	where := ""
	args := []interface{}{}
	if f.Status != "" {
		where = ` WHERE status = $1`
		args = append(args, f.Status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count orders: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))

	orders := make([]Order, 0)
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders := make([]Order, 0)
	err := r.db.SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// UpdateStatus moves the order from one status to another and stamps the
// matching timestamp. The update is conditional on the current status so a
// concurrent change is reported as not found.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	set := `status = $1, updated_at = $2`
	if col := to.timestampColumn(); col != "" {
		set += `, ` + col + ` = $2`
	}

	res, err := r.db.ExecContext(ctx, `UPDATE orders SET `+set+` WHERE id = $3 AND status = $4`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("repository: failed to update status of order %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}
