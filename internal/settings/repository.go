package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/db"
)

type Repository interface {
	GetAll(ctx context.Context) (Settings, error)
	Upsert(ctx context.Context, values Settings) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

type row struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

func (r *repository) GetAll(ctx context.Context) (Settings, error) {
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, `SELECT key, value FROM settings`); err != nil {
		return nil, fmt.Errorf("repository: failed to select settings: %w", err)
	}

	out := make(Settings, len(rows))
	for _, rw := range rows {
		out[rw.Key] = rw.Value
	}
	return out, nil
}

func (r *repository) Upsert(ctx context.Context, values Settings) error {
	now := time.Now().UTC()
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for key, value := range values {
			_, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
				key, value, now)
			if err != nil {
				return fmt.Errorf("failed to upsert setting %q: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	return nil
}
