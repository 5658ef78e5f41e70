package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/go-petr/game-market/pkg/moneypkg"
)

var (
	// ErrPaymentNotFound indicates that the payment is not found.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrConflictingOutcome indicates a gateway outcome conflicting with an
	// already reached terminal payment status.
	ErrConflictingOutcome = errors.New("conflicting payment outcome")
	// ErrAmountMismatch indicates that the payment amount differs from the order total.
	ErrAmountMismatch = errors.New("payment amount differs from order total")
	// ErrPaymentGateway indicates a payment gateway failure.
	ErrPaymentGateway = errors.New("payment gateway failure")
	// ErrInvalidSignature indicates a callback with a bad signature.
	ErrInvalidSignature = errors.New("invalid callback signature")
)

// PaymentStatus represents the lifecycle state of a payment attempt.
type PaymentStatus string

// All payment statuses. Succeeded, Failed and Refunded are terminal;
// Refunded is reachable only from Succeeded.
const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// PaymentOutcome is the result the gateway reports for a charge.
type PaymentOutcome string

// All gateway outcomes.
const (
	PaymentOutcomeSucceeded PaymentOutcome = "SUCCEEDED"
	PaymentOutcomeFailed    PaymentOutcome = "FAILED"
)

// Payment is one charge attempt tied to a single order. Retries create new
// payments rather than reviving old ones.
type Payment struct {
	ID          uuid.UUID      `json:"id"`
	OrderID     uuid.UUID      `json:"order_id"`
	Status      PaymentStatus  `json:"status"`
	ProviderRef string         `json:"provider_ref"`
	Amount      moneypkg.Money `json:"amount"`
	Version     int32          `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewPayment initiates a payment for the full order total.
func NewPayment(order Order, providerRef string) (Payment, error) {
	if order.Status != OrderStatusAwaitingPayment {
		return Payment{}, ErrInvalidTransition
	}

	return Payment{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Status:      PaymentStatusInitiated,
		ProviderRef: providerRef,
		Amount:      order.Total,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ApplyOutcome applies a gateway outcome to the payment.
//
// Re-applying the outcome that already produced the current terminal status
// is a no-op and reports changed=false. A different terminal outcome fails
// with ErrConflictingOutcome and must never be silently overwritten.
func (p *Payment) ApplyOutcome(outcome PaymentOutcome) (changed bool, err error) {
	var target PaymentStatus

	switch outcome {
	case PaymentOutcomeSucceeded:
		target = PaymentStatusSucceeded
	case PaymentOutcomeFailed:
		target = PaymentStatusFailed
	default:
		return false, ErrConflictingOutcome
	}

	switch p.Status {
	case PaymentStatusInitiated:
		p.Status = target
		return true, nil
	case target:
		return false, nil
	default:
		return false, ErrConflictingOutcome
	}
}

// MarkRefunded transitions the payment from Succeeded to the terminal Refunded status.
func (p *Payment) MarkRefunded() error {
	if p.Status != PaymentStatusSucceeded {
		return ErrInvalidTransition
	}

	p.Status = PaymentStatusRefunded

	return nil
}
