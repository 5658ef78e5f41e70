// Package reconcilerepo manages the transactional persistence of
// payment/order reconciliation.
package reconcilerepo

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/catalogrepo"
	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/internal/orderrepo"
	"github.com/go-petr/game-market/internal/paymentrepo"
	"github.com/go-petr/game-market/pkg/errorspkg"
)

// RepoPGS facilitates reconcile repository layer logic.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns reconcile RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		conn: db,
	}
}

// ApplyOutcome persists the payment transition and, when requested, the order
// transition and the stock release within a single dbpkg transaction.
//
// Either all of them commit or none does. Optimistic version checks run
// inside the transaction, so a concurrent writer surfaces as
// domain.ErrConcurrentModification and the caller retries from a fresh read.
func (r *RepoPGS) ApplyOutcome(ctx context.Context, arg domain.ReconcileTxParams) (domain.ReconcileTxResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.ReconcileTxResult

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	defer func() {
		_ = tx.Rollback()
	}()

	paymentRepo := paymentrepo.NewRepoPGS(tx)
	orderRepo := orderrepo.NewTxRepoPGS(tx)
	catalogRepo := catalogrepo.NewRepoPGS(tx)

	result.Payment, err = paymentRepo.UpdateStatus(ctx, arg.Payment.ID, arg.Payment.Status, arg.Payment.Version)
	if err != nil {
		l.Error().Err(err).Send()
		return result, err
	}

	result.Order = arg.Order

	if arg.UpdateOrder {
		result.Order, err = orderRepo.UpdateStatus(ctx, arg.Order.ID, arg.Order.Status, arg.Order.Version)
		if err != nil {
			l.Error().Err(err).Send()
			return result, err
		}
	}

	if arg.ReleaseStock {
		for _, line := range arg.Order.Lines {
			if err := catalogRepo.ReleaseStock(ctx, line.CatalogEntryID, line.Quantity); err != nil {
				l.Error().Err(err).Send()
				return result, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	return result, nil
}
