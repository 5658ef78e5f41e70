package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/go-petr/game-market/pkg/moneypkg"
)

var (
	// ErrOrderNotFound indicates that the order is not found.
	ErrOrderNotFound = errors.New("order not found")
	// ErrEmptyOrder indicates an attempt to create an order without lines.
	ErrEmptyOrder = errors.New("order has no lines")
	// ErrInvalidQuantity indicates a line quantity outside (0, MaxLineQuantity].
	ErrInvalidQuantity = errors.New("invalid line quantity")
	// ErrInvalidTransition indicates an illegal order or payment state transition.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrOrderOwnerMismatch indicates that the order belongs to another buyer.
	ErrOrderOwnerMismatch = errors.New("order belongs to another buyer")
	// ErrConcurrentModification indicates that the persisted version changed since it was read.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrConflictRetryExhausted indicates that retrying after version conflicts did not help.
	ErrConflictRetryExhausted = errors.New("conflict retries exhausted")
)

// MaxLineQuantity caps the quantity of a single order line.
const MaxLineQuantity = 100

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

// All order statuses. Paid, Failed and Cancelled are terminal.
const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusFailed          OrderStatus = "FAILED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// RequestedLine is the input of a checkout: what to buy and how many.
type RequestedLine struct {
	CatalogEntryID uuid.UUID `json:"catalog_entry_id"`
	Quantity       int32     `json:"quantity"`
}

// OrderLine holds one purchased position with the price frozen at purchase time.
type OrderLine struct {
	CatalogEntryID      uuid.UUID      `json:"catalog_entry_id"`
	Quantity            int32          `json:"quantity"`
	UnitPriceAtPurchase moneypkg.Money `json:"unit_price_at_purchase"`
}

// Subtotal returns quantity times the frozen unit price.
func (l OrderLine) Subtotal() (moneypkg.Money, error) {
	return l.UnitPriceAtPurchase.Mul(l.Quantity)
}

// Order is the aggregate root of a purchase.
//
// Later catalog price changes never affect an existing order: every line
// carries the unit price frozen at creation and Total is derived from them.
type Order struct {
	ID        uuid.UUID      `json:"id"`
	BuyerID   string         `json:"buyer_id"`
	Lines     []OrderLine    `json:"lines"`
	Status    OrderStatus    `json:"status"`
	Total     moneypkg.Money `json:"total"`
	Version   int32          `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewOrder builds a Pending order from lines with already frozen prices.
func NewOrder(buyerID string, lines []OrderLine) (Order, error) {
	total, err := OrderTotal(lines)
	if err != nil {
		return Order{}, err
	}

	return Order{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		Lines:     lines,
		Status:    OrderStatusPending,
		Total:     total,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// OrderTotal sums line subtotals enforcing quantity bounds and a single currency.
func OrderTotal(lines []OrderLine) (moneypkg.Money, error) {
	if len(lines) == 0 {
		return moneypkg.Money{}, ErrEmptyOrder
	}

	var total moneypkg.Money

	for i, l := range lines {
		if l.Quantity <= 0 || l.Quantity > MaxLineQuantity {
			return moneypkg.Money{}, ErrInvalidQuantity
		}

		subtotal, err := l.Subtotal()
		if err != nil {
			return moneypkg.Money{}, err
		}

		if i == 0 {
			total = subtotal
			continue
		}

		total, err = total.Add(subtotal)
		if err != nil {
			return moneypkg.Money{}, err
		}
	}

	return total, nil
}

// MarkAwaitingPayment transitions the order from Pending to AwaitingPayment.
func (o *Order) MarkAwaitingPayment() error {
	if o.Status != OrderStatusPending {
		return ErrInvalidTransition
	}

	o.Status = OrderStatusAwaitingPayment

	return nil
}

// MarkPaid transitions the order from AwaitingPayment to the terminal Paid status.
func (o *Order) MarkPaid() error {
	if o.Status != OrderStatusAwaitingPayment {
		return ErrInvalidTransition
	}

	o.Status = OrderStatusPaid

	return nil
}

// MarkFailed transitions the order from AwaitingPayment to the terminal Failed
// status. The caller is responsible for releasing the reserved stock.
func (o *Order) MarkFailed() error {
	if o.Status != OrderStatusAwaitingPayment {
		return ErrInvalidTransition
	}

	o.Status = OrderStatusFailed

	return nil
}

// Cancel transitions the order to the terminal Cancelled status. An order
// awaiting payment can only be cancelled while no payment has succeeded.
func (o *Order) Cancel(hasSucceededPayment bool) error {
	switch o.Status {
	case OrderStatusPending:
	case OrderStatusAwaitingPayment:
		if hasSucceededPayment {
			return ErrInvalidTransition
		}
	default:
		return ErrInvalidTransition
	}

	o.Status = OrderStatusCancelled

	return nil
}
