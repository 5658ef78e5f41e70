// Package orderrepo manages repository layer of orders.
package orderrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/dbpkg"
	"github.com/go-petr/game-market/pkg/errorspkg"
)

// RepoPGS facilitates order repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns order RepoPGS bound to an open transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns order RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const createOrderQuery = `
INSERT INTO
    orders (id, buyer_id, status, version)
VALUES
    ($1, $2, $3, 1)
RETURNING id, buyer_id, status, version, created_at
`

const createLineQuery = `
INSERT INTO
    order_lines (order_id, catalog_entry_id, quantity, unit_price_amount, unit_price_currency)
VALUES
    ($1, $2, $3, $4, $5)
`

// Create persists the order with its lines in a single transaction and
// returns the stored order.
func (r *RepoPGS) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Order{}, errorspkg.ErrInternal
	}

	defer func() {
		_ = tx.Rollback()
	}()

	var stored domain.Order

	row := tx.QueryRowContext(ctx, createOrderQuery, order.ID, order.BuyerID, order.Status)

	if err := row.Scan(
		&stored.ID,
		&stored.BuyerID,
		&stored.Status,
		&stored.Version,
		&stored.CreatedAt,
	); err != nil {
		l.Error().Err(err).Send()
		return domain.Order{}, errorspkg.ErrInternal
	}

	for _, line := range order.Lines {
		if _, err := tx.ExecContext(ctx, createLineQuery,
			order.ID,
			line.CatalogEntryID,
			line.Quantity,
			line.UnitPriceAtPurchase.Amount,
			line.UnitPriceAtPurchase.Currency,
		); err != nil {
			l.Error().Err(err).Send()
			return domain.Order{}, errorspkg.ErrInternal
		}
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.Order{}, errorspkg.ErrInternal
	}

	stored.Lines = order.Lines
	stored.Total = order.Total

	return stored, nil
}

const getOrderQuery = `
SELECT
	id, buyer_id, status, version, created_at
FROM orders
WHERE id = $1
`

const getLinesQuery = `
SELECT
	catalog_entry_id, quantity, unit_price_amount, unit_price_currency
FROM order_lines
WHERE order_id = $1
ORDER BY catalog_entry_id
`

// Get returns the order with the given id including its lines.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	l := zerolog.Ctx(ctx)

	var o domain.Order

	row := r.db.QueryRowContext(ctx, getOrderQuery, id)

	err := row.Scan(
		&o.ID,
		&o.BuyerID,
		&o.Status,
		&o.Version,
		&o.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return o, domain.ErrOrderNotFound
		}

		return o, errorspkg.ErrInternal
	}

	if o.Lines, err = r.lines(ctx, id); err != nil {
		return o, err
	}

	if o.Total, err = domain.OrderTotal(o.Lines); err != nil {
		l.Error().Err(err).Send()
		return o, errorspkg.ErrInternal
	}

	return o, nil
}

func (r *RepoPGS) lines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, getLinesQuery, orderID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	lines := []domain.OrderLine{}

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.CatalogEntryID,
			&line.Quantity,
			&line.UnitPriceAtPurchase.Amount,
			&line.UnitPriceAtPurchase.Currency,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return lines, nil
}

const updateStatusQuery = `
UPDATE orders
SET status = $2, version = version + 1
WHERE id = $1 AND version = $3
RETURNING id, buyer_id, status, version, created_at
`

// UpdateStatus persists a status transition guarded by the version the
// caller read. A version mismatch fails with ErrConcurrentModification.
func (r *RepoPGS) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, expectedVersion int32) (domain.Order, error) {
	l := zerolog.Ctx(ctx)

	var o domain.Order

	row := r.db.QueryRowContext(ctx, updateStatusQuery, id, status, expectedVersion)

	err := row.Scan(
		&o.ID,
		&o.BuyerID,
		&o.Status,
		&o.Version,
		&o.CreatedAt,
	)

	if err == nil {
		if o.Lines, err = r.lines(ctx, id); err != nil {
			return o, err
		}

		if o.Total, err = domain.OrderTotal(o.Lines); err != nil {
			l.Error().Err(err).Send()
			return o, errorspkg.ErrInternal
		}

		return o, nil
	}

	if err != sql.ErrNoRows {
		l.Error().Err(err).Send()
		return o, errorspkg.ErrInternal
	}

	// No row matched: either the order is missing or the version is stale.
	if _, err := r.Get(ctx, id); err != nil {
		return o, err
	}

	return o, domain.ErrConcurrentModification
}

const listByBuyerQuery = `
SELECT
	id, buyer_id, status, version, created_at
FROM orders
WHERE buyer_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

// ListByBuyer returns the specified page of the buyer's orders with lines.
func (r *RepoPGS) ListByBuyer(ctx context.Context, buyerID string, limit, offset int32) ([]domain.Order, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByBuyerQuery, buyerID, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	orders := []domain.Order{}

	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.BuyerID,
			&o.Status,
			&o.Version,
			&o.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	for i := range orders {
		if orders[i].Lines, err = r.lines(ctx, orders[i].ID); err != nil {
			return nil, err
		}

		if orders[i].Total, err = domain.OrderTotal(orders[i].Lines); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}
	}

	return orders, nil
}

const listStaleAwaitingQuery = `
SELECT id
FROM orders
WHERE status = $1 AND created_at < $2
ORDER BY created_at
LIMIT $3
`

// ListStaleAwaiting returns ids of orders stuck in AwaitingPayment since
// before the cutoff. The expiry scheduler drives the actual transitions.
func (r *RepoPGS) ListStaleAwaiting(ctx context.Context, cutoff time.Time, limit int32) ([]uuid.UUID, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listStaleAwaitingQuery, domain.OrderStatusAwaitingPayment, cutoff, limit)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	ids := []uuid.UUID{}

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return ids, nil
}
