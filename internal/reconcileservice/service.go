// Package reconcileservice manages business logic layer of payment
// reconciliation.
package reconcileservice

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/domain"
)

// maxConflictRetries bounds retries after optimistic version conflicts.
const maxConflictRetries = 3

// PaymentRepo provides payment reads needed by the reconcile service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package reconcileservice
type PaymentRepo interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Payment, error)
	GetByProviderRef(ctx context.Context, providerRef string) (domain.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, expectedVersion int32) (domain.Payment, error)
	OrderHasSucceeded(ctx context.Context, orderID, exceptPaymentID uuid.UUID) (bool, error)
}

// OrderRepo provides order reads needed by the reconcile service layer.
type OrderRepo interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
}

// TxRepo provides the transactional reconciliation persistence.
type TxRepo interface {
	ApplyOutcome(ctx context.Context, arg domain.ReconcileTxParams) (domain.ReconcileTxResult, error)
}

// Gateway provides the payment provider interface needed for refunds.
type Gateway interface {
	RefundCharge(ctx context.Context, providerRef string) error
}

// Verifier authenticates gateway callbacks.
type Verifier interface {
	VerifySignature(payload []byte, signature string) bool
}

// Service facilitates reconcile service layer logic.
type Service struct {
	paymentRepo PaymentRepo
	orderRepo   OrderRepo
	txRepo      TxRepo
	gateway     Gateway
	verifier    Verifier
}

// New returns reconcile service struct to manage reconciliation bussines logic.
func New(pr PaymentRepo, or OrderRepo, tr TxRepo, gw Gateway, v Verifier) *Service {
	return &Service{
		paymentRepo: pr,
		orderRepo:   or,
		txRepo:      tr,
		gateway:     gw,
		verifier:    v,
	}
}

// Callback is the payload the gateway signs and posts when a charge settles.
type Callback struct {
	Reference string                `json:"reference"`
	Outcome   domain.PaymentOutcome `json:"outcome"`
	Amount    int64                 `json:"amount"`
	Currency  string                `json:"currency"`
}

// HandleCallback authenticates a gateway callback and reconciles the payment
// and its order.
//
// Redelivered callbacks are no-ops returning the current state; a callback
// conflicting with an already reached terminal status fails with
// domain.ErrConflictingOutcome. Payment, order and stock changes commit in one
// transaction, retried from a fresh read on version conflicts.
func (s *Service) HandleCallback(ctx context.Context, payload []byte, signature string) (domain.ReconcileTxResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.ReconcileTxResult

	if !s.verifier.VerifySignature(payload, signature) {
		l.Warn().Msg("rejected callback with bad signature")
		return result, domain.ErrInvalidSignature
	}

	var cb Callback
	if err := json.Unmarshal(payload, &cb); err != nil {
		l.Error().Err(err).Send()
		return result, domain.ErrInvalidSignature
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		payment, err := s.paymentRepo.GetByProviderRef(ctx, cb.Reference)
		if err != nil {
			return result, err
		}

		if cb.Amount != payment.Amount.Amount || cb.Currency != payment.Amount.Currency {
			l.Warn().
				Str("payment_id", payment.ID.String()).
				Int64("callback_amount", cb.Amount).
				Msg("callback amount differs from payment")

			return result, domain.ErrAmountMismatch
		}

		changed, err := payment.ApplyOutcome(cb.Outcome)
		if err != nil {
			return result, err
		}

		if !changed {
			order, err := s.orderRepo.Get(ctx, payment.OrderID)
			if err != nil {
				return result, err
			}

			result.Payment = payment
			result.Order = order

			return result, nil
		}

		if payment.Status == domain.PaymentStatusSucceeded {
			succeeded, err := s.paymentRepo.OrderHasSucceeded(ctx, payment.OrderID, payment.ID)
			if err != nil {
				return result, err
			}

			if succeeded {
				return result, domain.ErrConflictingOutcome
			}
		}

		arg, err := s.buildTxParams(ctx, payment)
		if err != nil {
			return result, err
		}

		result, err = s.txRepo.ApplyOutcome(ctx, arg)
		if err == domain.ErrConcurrentModification {
			continue
		}

		return result, err
	}

	return result, domain.ErrConflictRetryExhausted
}

// buildTxParams pairs the transitioned payment with the order transition it
// implies. Orders no longer awaiting payment keep their status; a failed
// payment for such an order must not release stock twice.
func (s *Service) buildTxParams(ctx context.Context, payment domain.Payment) (domain.ReconcileTxParams, error) {
	order, err := s.orderRepo.Get(ctx, payment.OrderID)
	if err != nil {
		return domain.ReconcileTxParams{}, err
	}

	// The stored payment row still holds the version read before ApplyOutcome,
	// which is exactly what the optimistic check needs.
	arg := domain.ReconcileTxParams{
		Payment: payment,
		Order:   order,
	}

	if order.Status != domain.OrderStatusAwaitingPayment {
		return arg, nil
	}

	switch payment.Status {
	case domain.PaymentStatusSucceeded:
		if err := arg.Order.MarkPaid(); err != nil {
			return arg, err
		}

		arg.UpdateOrder = true
	case domain.PaymentStatusFailed:
		if err := arg.Order.MarkFailed(); err != nil {
			return arg, err
		}

		arg.UpdateOrder = true
		arg.ReleaseStock = true
	}

	return arg, nil
}

// Refund refunds a succeeded payment with the provider and records it.
// Refunding an already refunded payment is a no-op. The order keeps its Paid
// status; goods already delivered are handled outside this service.
func (s *Service) Refund(ctx context.Context, paymentID uuid.UUID) (domain.Payment, error) {
	l := zerolog.Ctx(ctx)

	payment, err := s.paymentRepo.Get(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}

	if payment.Status == domain.PaymentStatusRefunded {
		return payment, nil
	}

	if err := payment.MarkRefunded(); err != nil {
		return domain.Payment{}, err
	}

	// The provider is asked once, outside the retry loop: version conflicts
	// below only re-persist the transition, they never re-send the refund.
	if err := s.gateway.RefundCharge(ctx, payment.ProviderRef); err != nil {
		l.Error().Err(err).Str("payment_id", paymentID.String()).Msg("provider refund failed")
		return domain.Payment{}, err
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		updated, err := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusRefunded, payment.Version)
		if err == nil {
			return updated, nil
		}

		if err != domain.ErrConcurrentModification {
			return domain.Payment{}, err
		}

		if payment, err = s.paymentRepo.Get(ctx, paymentID); err != nil {
			return domain.Payment{}, err
		}

		if payment.Status == domain.PaymentStatusRefunded {
			return payment, nil
		}

		if err := payment.MarkRefunded(); err != nil {
			return domain.Payment{}, err
		}
	}

	return domain.Payment{}, domain.ErrConflictRetryExhausted
}
