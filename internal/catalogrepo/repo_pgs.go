// Package catalogrepo manages repository layer of catalog entries.
package catalogrepo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/dbpkg"
	"github.com/go-petr/game-market/pkg/errorspkg"
)

// RepoPGS facilitates catalog repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns catalog RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    catalog_entries (id, title, unit_price_amount, unit_price_currency, available_stock)
VALUES
    ($1, $2, $3, $4, $5)
RETURNING id, title, unit_price_amount, unit_price_currency, available_stock, created_at
`

// Create creates the catalog entry and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateCatalogEntryParams) (domain.CatalogEntry, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		uuid.New(),
		arg.Title,
		arg.UnitPrice.Amount,
		arg.UnitPrice.Currency,
		arg.AvailableStock,
	)

	var e domain.CatalogEntry

	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.UnitPrice.Amount,
		&e.UnitPrice.Currency,
		&e.AvailableStock,
		&e.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "catalog_entries_title_key":
				return e, domain.ErrTitleAlreadyExists
			case "catalog_entries_available_stock_check":
				return e, domain.ErrNegativeStock
			}
		}

		return e, errorspkg.ErrInternal
	}

	return e, nil
}

const getQuery = `
SELECT
	id, title, unit_price_amount, unit_price_currency, available_stock, created_at
FROM catalog_entries
WHERE id = $1
`

// Get returns the catalog entry with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.CatalogEntry, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	var e domain.CatalogEntry

	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.UnitPrice.Amount,
		&e.UnitPrice.Currency,
		&e.AvailableStock,
		&e.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return e, domain.ErrEntryNotFound
		}

		return e, errorspkg.ErrInternal
	}

	return e, nil
}

const listQuery = `
SELECT
	id, title, unit_price_amount, unit_price_currency, available_stock, created_at
FROM catalog_entries
ORDER BY title
LIMIT $1 OFFSET $2
`

// List returns the specified page of catalog entries.
func (r *RepoPGS) List(ctx context.Context, limit, offset int32) ([]domain.CatalogEntry, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.CatalogEntry{}

	for rows.Next() {
		var e domain.CatalogEntry
		if err := rows.Scan(
			&e.ID,
			&e.Title,
			&e.UnitPrice.Amount,
			&e.UnitPrice.Currency,
			&e.AvailableStock,
			&e.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, e)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const reserveStockQuery = `
UPDATE catalog_entries
SET available_stock = available_stock - $2
WHERE id = $1 AND available_stock >= $2
RETURNING id
`

// ReserveStock atomically decrements the available stock of the entry.
//
// The decrement and the availability check are one conditional statement so
// concurrent checkouts for the same entry can never oversell.
func (r *RepoPGS) ReserveStock(ctx context.Context, id uuid.UUID, quantity int32) error {
	l := zerolog.Ctx(ctx)

	var reserved uuid.UUID

	err := r.db.QueryRowContext(ctx, reserveStockQuery, id, quantity).Scan(&reserved)
	if err == nil {
		return nil
	}

	if err != sql.ErrNoRows {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	// No row matched: either the entry is missing or the stock is short.
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	return domain.ErrInsufficientStock
}

const releaseStockQuery = `
UPDATE catalog_entries
SET available_stock = available_stock + $2
WHERE id = $1
RETURNING id
`

// ReleaseStock returns previously reserved stock back to the entry.
func (r *RepoPGS) ReleaseStock(ctx context.Context, id uuid.UUID, quantity int32) error {
	l := zerolog.Ctx(ctx)

	var released uuid.UUID

	err := r.db.QueryRowContext(ctx, releaseStockQuery, id, quantity).Scan(&released)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return domain.ErrEntryNotFound
		}

		return errorspkg.ErrInternal
	}

	return nil
}
