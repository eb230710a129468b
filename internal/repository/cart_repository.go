package repository

import (
	"context"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/bakery-cart/internal/db"
	"github.com/nikolayk812/bakery-cart/internal/domain"
	"github.com/nikolayk812/bakery-cart/internal/migrations"
	"github.com/nikolayk812/bakery-cart/internal/port"
	"io/fs"
	"sort"
)

type cartRepository struct {
	q    *db.Queries
	pool *pgxpool.Pool
}

// NewPostgres stores one row per line item, ordered by position.
func NewPostgres(pool *pgxpool.Pool) port.CartRepository {
	return &cartRepository{
		q:    db.New(pool),
		pool: pool,
	}
}

func NewPostgresWithTx(tx pgx.Tx) port.CartRepository {
	return &cartRepository{
		q:    db.New(tx),
		pool: nil, // use provided transaction instead
	}
}

// MigratePostgres applies the embedded schema files in name order.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	names, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("fs.Glob: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("fs.ReadFile[%s]: %w", name, err)
		}

		if _, err := pool.Exec(ctx, string(script)); err != nil {
			return fmt.Errorf("pool.Exec[%s]: %w", name, err)
		}
	}

	return nil
}

func (r *cartRepository) GetCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, domain.ErrOwnerIDEmpty
	}

	dbCartItems, err := r.q.GetCart(ctx, ownerID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("q.GetCart: %w", err)
	}

	cart := domain.Cart{
		OwnerID: ownerID,
		Items:   mapGetCartRowsToDomain(dbCartItems),
	}

	if err := cart.Validate(); err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %w", domain.ErrCorruptState, err)
	}

	return cart, nil
}

// SaveCart replaces all rows of the owner in one transaction.
func (r *cartRepository) SaveCart(ctx context.Context, cart domain.Cart) error {
	if cart.OwnerID == "" {
		return domain.ErrOwnerIDEmpty
	}

	_, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (struct{}, error) {
		if err := q.LockOwner(ctx, cart.OwnerID); err != nil {
			return struct{}{}, fmt.Errorf("q.LockOwner: %w", err)
		}

		if _, err := q.DeleteCart(ctx, cart.OwnerID); err != nil {
			return struct{}{}, fmt.Errorf("q.DeleteCart: %w", err)
		}

		for i, item := range cart.Items {
			err := q.AddItem(ctx, db.AddItemParams{
				OwnerID:     cart.OwnerID,
				Position:    int32(i),
				Name:        item.Name,
				PriceAmount: item.UnitPrice,
				Quantity:    int32(item.Quantity),
			})
			if err != nil {
				return struct{}{}, fmt.Errorf("q.AddItem[%s]: %w", item.Name, err)
			}
		}

		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("withTx: %w", err)
	}

	return nil
}

func mapGetCartRowToDomain(row db.GetCartRow) domain.CartItem {
	return domain.CartItem{
		Name:      row.Name,
		UnitPrice: row.PriceAmount,
		Quantity:  int(row.Quantity),
	}
}

func mapGetCartRowsToDomain(rows []db.GetCartRow) []domain.CartItem {
	var items []domain.CartItem

	for _, row := range rows {
		items = append(items, mapGetCartRowToDomain(row))
	}

	return items
}
