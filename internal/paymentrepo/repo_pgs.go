// Package paymentrepo manages repository layer of payments.
package paymentrepo

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

// RepoPGS facilitates payment repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns payment RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    payments (id, order_id, status, provider_ref, amount, currency, version)
VALUES
    ($1, $2, $3, $4, $5, $6, 1)
RETURNING id, order_id, status, provider_ref, amount, currency, version, created_at
`

// Create persists an initiated payment and returns the stored record.
func (r *RepoPGS) Create(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		payment.ID,
		payment.OrderID,
		payment.Status,
		payment.ProviderRef,
		payment.Amount.Amount,
		payment.Amount.Currency,
	)

	var p domain.Payment

	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Status,
		&p.ProviderRef,
		&p.Amount.Amount,
		&p.Amount.Currency,
		&p.Version,
		&p.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "payments_order_id_fkey":
				return p, domain.ErrOrderNotFound
			case "payments_order_succeeded_key":
				return p, domain.ErrConflictingOutcome
			}
		}

		return p, errorspkg.ErrInternal
	}

	return p, nil
}

const getQuery = `
SELECT
	id, order_id, status, provider_ref, amount, currency, version, created_at
FROM payments
WHERE id = $1
`

// Get returns the payment with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	return r.get(ctx, getQuery, id)
}

const getByProviderRefQuery = `
SELECT
	id, order_id, status, provider_ref, amount, currency, version, created_at
FROM payments
WHERE provider_ref = $1
`

// GetByProviderRef returns the payment correlated with the gateway reference.
func (r *RepoPGS) GetByProviderRef(ctx context.Context, providerRef string) (domain.Payment, error) {
	return r.get(ctx, getByProviderRefQuery, providerRef)
}

func (r *RepoPGS) get(ctx context.Context, query string, arg interface{}) (domain.Payment, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, query, arg)

	var p domain.Payment

	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Status,
		&p.ProviderRef,
		&p.Amount.Amount,
		&p.Amount.Currency,
		&p.Version,
		&p.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return p, domain.ErrPaymentNotFound
		}

		return p, errorspkg.ErrInternal
	}

	return p, nil
}

const updateStatusQuery = `
UPDATE payments
SET status = $2, version = version + 1
WHERE id = $1 AND version = $3
RETURNING id, order_id, status, provider_ref, amount, currency, version, created_at
`

// UpdateStatus persists a payment transition guarded by the version the
// caller read.
//
// The partial unique index on succeeded payments backs the at-most-one
// successful payment per order invariant even under concurrent callbacks.
func (r *RepoPGS) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, expectedVersion int32) (domain.Payment, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, updateStatusQuery, id, status, expectedVersion)

	var p domain.Payment

	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Status,
		&p.ProviderRef,
		&p.Amount.Amount,
		&p.Amount.Currency,
		&p.Version,
		&p.CreatedAt,
	)

	if err == nil {
		return p, nil
	}

	if err != sql.ErrNoRows {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "payments_order_succeeded_key" {
				return p, domain.ErrConflictingOutcome
			}
		}

		return p, errorspkg.ErrInternal
	}

	if _, err := r.Get(ctx, id); err != nil {
		return p, err
	}

	return p, domain.ErrConcurrentModification
}

const orderHasSucceededQuery = `
SELECT EXISTS (
	SELECT 1 FROM payments
	WHERE order_id = $1 AND status = $2 AND id != $3
)
`

// OrderHasSucceeded reports whether any payment other than the given one has
// already succeeded for the order.
func (r *RepoPGS) OrderHasSucceeded(ctx context.Context, orderID, exceptPaymentID uuid.UUID) (bool, error) {
	l := zerolog.Ctx(ctx)

	var exists bool

	err := r.db.QueryRowContext(ctx, orderHasSucceededQuery, orderID, domain.PaymentStatusSucceeded, exceptPaymentID).Scan(&exists)
	if err != nil {
		l.Error().Err(err).Send()
		return false, errorspkg.ErrInternal
	}

	return exists, nil
}

const listByOrderQuery = `
SELECT
	id, order_id, status, provider_ref, amount, currency, version, created_at
FROM payments
WHERE order_id = $1
ORDER BY created_at
`

// ListByOrder returns all payment attempts for the order.
func (r *RepoPGS) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByOrderQuery, orderID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	payments := []domain.Payment{}

	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID,
			&p.OrderID,
			&p.Status,
			&p.ProviderRef,
			&p.Amount.Amount,
			&p.Amount.Currency,
			&p.Version,
			&p.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return payments, nil
}
