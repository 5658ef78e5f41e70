// Package cartrepo manages repository layer of carts.
package cartrepo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/dbpkg"
	"github.com/go-petr/game-market/pkg/errorspkg"
)

// RepoPGS facilitates cart repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewRepoPGS returns cart RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const createQuery = `
INSERT INTO
    carts (id, buyer_id, status, version)
VALUES
    ($1, $2, $3, 1)
RETURNING id, buyer_id, status, version, created_at
`

// Create persists a new empty cart and returns the stored record.
func (r *RepoPGS) Create(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, cart.ID, cart.BuyerID, cart.Status)

	stored := cart

	err := row.Scan(
		&stored.ID,
		&stored.BuyerID,
		&stored.Status,
		&stored.Version,
		&stored.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()
		return stored, errorspkg.ErrInternal
	}

	stored.Items = []domain.CartItem{}

	return stored, nil
}

const getQuery = `
SELECT
	id, buyer_id, status, version, created_at
FROM carts
WHERE id = $1
`

// Get returns the cart with the given id including its items.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Cart, error) {
	return r.get(ctx, getQuery, id)
}

const getActiveByBuyerQuery = `
SELECT
	id, buyer_id, status, version, created_at
FROM carts
WHERE buyer_id = $1 AND status = 'ACTIVE'
`

// GetActiveByBuyer returns the buyer's single active cart.
func (r *RepoPGS) GetActiveByBuyer(ctx context.Context, buyerID string) (domain.Cart, error) {
	return r.get(ctx, getActiveByBuyerQuery, buyerID)
}

func (r *RepoPGS) get(ctx context.Context, query string, arg interface{}) (domain.Cart, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, query, arg)

	var c domain.Cart

	err := row.Scan(
		&c.ID,
		&c.BuyerID,
		&c.Status,
		&c.Version,
		&c.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return c, domain.ErrCartNotFound
		}

		return c, errorspkg.ErrInternal
	}

	if c.Items, err = r.items(ctx, c.ID); err != nil {
		return c, err
	}

	if c.Total, err = domain.CartTotal(c.Items); err != nil {
		l.Error().Err(err).Send()
		return c, errorspkg.ErrInternal
	}

	return c, nil
}

const getItemsQuery = `
SELECT
	catalog_entry_id, quantity, unit_price_amount, unit_price_currency
FROM cart_items
WHERE cart_id = $1
ORDER BY catalog_entry_id
`

func (r *RepoPGS) items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, getItemsQuery, cartID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.CartItem{}

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.CatalogEntryID,
			&item.Quantity,
			&item.UnitPrice.Amount,
			&item.UnitPrice.Currency,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const updateCartQuery = `
UPDATE carts
SET status = $2, version = version + 1
WHERE id = $1 AND version = $3
RETURNING id, buyer_id, status, version, created_at
`

const deleteItemsQuery = `
DELETE FROM cart_items
WHERE cart_id = $1
`

const insertItemQuery = `
INSERT INTO
    cart_items (cart_id, catalog_entry_id, quantity, unit_price_amount, unit_price_currency)
VALUES
    ($1, $2, $3, $4, $5)
`

// Update replaces the cart's items and status in a single transaction guarded
// by the version the caller read.
func (r *RepoPGS) Update(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	l := zerolog.Ctx(ctx)

	var stored domain.Cart

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return stored, errorspkg.ErrInternal
	}

	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, updateCartQuery, cart.ID, cart.Status, cart.Version)

	err = row.Scan(
		&stored.ID,
		&stored.BuyerID,
		&stored.Status,
		&stored.Version,
		&stored.CreatedAt,
	)

	if err != nil {
		if err != sql.ErrNoRows {
			l.Error().Err(err).Send()
			return stored, errorspkg.ErrInternal
		}

		if _, err := r.Get(ctx, cart.ID); err != nil {
			return stored, err
		}

		return stored, domain.ErrConcurrentModification
	}

	if _, err := tx.ExecContext(ctx, deleteItemsQuery, cart.ID); err != nil {
		l.Error().Err(err).Send()
		return stored, errorspkg.ErrInternal
	}

	for _, item := range cart.Items {
		if _, err := tx.ExecContext(ctx, insertItemQuery,
			cart.ID,
			item.CatalogEntryID,
			item.Quantity,
			item.UnitPrice.Amount,
			item.UnitPrice.Currency,
		); err != nil {
			l.Error().Err(err).Send()
			return stored, errorspkg.ErrInternal
		}
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return stored, errorspkg.ErrInternal
	}

	stored.Items = cart.Items
	stored.Total = cart.Total

	return stored, nil
}
