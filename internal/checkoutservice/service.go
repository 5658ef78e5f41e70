// Package checkoutservice manages business logic layer of order checkout.
package checkoutservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/moneypkg"
)

// maxConflictRetries bounds retries after optimistic version conflicts.
const maxConflictRetries = 3

// OrderRepo provides data access layer interface needed by checkout service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package checkoutservice
type OrderRepo interface {
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, expectedVersion int32) (domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID string, limit, offset int32) ([]domain.Order, error)
	ListStaleAwaiting(ctx context.Context, cutoff time.Time, limit int32) ([]uuid.UUID, error)
}

// PaymentRepo provides payment persistence needed by checkout service layer.
type PaymentRepo interface {
	Create(ctx context.Context, payment domain.Payment) (domain.Payment, error)
	OrderHasSucceeded(ctx context.Context, orderID, exceptPaymentID uuid.UUID) (bool, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error)
}

// Catalog provides catalog service layer interface needed by checkout.
type Catalog interface {
	GetPrice(ctx context.Context, id uuid.UUID) (moneypkg.Money, error)
	ReserveStock(ctx context.Context, id uuid.UUID, quantity int32) error
	ReleaseStock(ctx context.Context, id uuid.UUID, quantity int32) error
}

// Gateway provides the payment provider interface needed by checkout.
type Gateway interface {
	CreateCharge(ctx context.Context, orderID uuid.UUID, amount moneypkg.Money) (string, error)
}

// Service facilitates checkout service layer logic.
type Service struct {
	orderRepo   OrderRepo
	paymentRepo PaymentRepo
	catalog     Catalog
	gateway     Gateway
}

// New returns checkout service struct to manage checkout bussines logic.
func New(or OrderRepo, pr PaymentRepo, cs Catalog, gw Gateway) *Service {
	return &Service{
		orderRepo:   or,
		paymentRepo: pr,
		catalog:     cs,
		gateway:     gw,
	}
}

// Checkout creates an order for the requested lines and initiates its payment.
//
// Stock reservation is all-or-nothing: a failure on any line releases every
// line reserved before it. A gateway failure after the order reached
// AwaitingPayment is compensated by failing the order and releasing stock,
// so the system never keeps an order awaiting payment without a payment
// record.
func (s *Service) Checkout(ctx context.Context, buyerID string, requested []domain.RequestedLine) (domain.CheckoutResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.CheckoutResult

	if len(requested) == 0 {
		return result, domain.ErrEmptyOrder
	}

	for _, line := range requested {
		if line.Quantity <= 0 || line.Quantity > domain.MaxLineQuantity {
			return result, domain.ErrInvalidQuantity
		}
	}

	lines, err := s.reserveAll(ctx, requested)
	if err != nil {
		return result, err
	}

	order, err := domain.NewOrder(buyerID, lines)
	if err != nil {
		s.releaseAll(ctx, lines)
		return result, err
	}

	order, err = s.orderRepo.Create(ctx, order)
	if err != nil {
		s.releaseAll(ctx, lines)
		return result, err
	}

	orderID := order.ID

	order, err = s.transition(ctx, orderID, func(o *domain.Order) error {
		return o.MarkAwaitingPayment()
	})
	if err != nil {
		s.cancelAbandoned(ctx, orderID)
		return result, err
	}

	providerRef, err := s.gateway.CreateCharge(ctx, order.ID, order.Total)
	if err != nil {
		l.Error().Err(err).Str("order_id", order.ID.String()).Msg("charge creation failed, compensating")
		s.compensate(ctx, order)

		return result, domain.ErrPaymentGateway
	}

	payment, err := domain.NewPayment(order, providerRef)
	if err != nil {
		s.compensate(ctx, order)
		return result, err
	}

	payment, err = s.paymentRepo.Create(ctx, payment)
	if err != nil {
		l.Error().Err(err).Str("order_id", order.ID.String()).Msg("payment persist failed, compensating")
		s.compensate(ctx, order)

		return result, err
	}

	result.Order = order
	result.Payment = payment

	return result, nil
}

// reserveAll freezes current catalog prices and reserves stock line by line,
// releasing everything reserved so far on the first failure.
func (s *Service) reserveAll(ctx context.Context, requested []domain.RequestedLine) ([]domain.OrderLine, error) {
	reserved := make([]domain.OrderLine, 0, len(requested))

	for _, line := range requested {
		price, err := s.catalog.GetPrice(ctx, line.CatalogEntryID)
		if err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}

		if err := s.catalog.ReserveStock(ctx, line.CatalogEntryID, line.Quantity); err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}

		reserved = append(reserved, domain.OrderLine{
			CatalogEntryID:      line.CatalogEntryID,
			Quantity:            line.Quantity,
			UnitPriceAtPurchase: price,
		})
	}

	return reserved, nil
}

func (s *Service) releaseAll(ctx context.Context, lines []domain.OrderLine) {
	l := zerolog.Ctx(ctx)

	for _, line := range lines {
		if err := s.catalog.ReleaseStock(ctx, line.CatalogEntryID, line.Quantity); err != nil {
			l.Error().Err(err).Str("catalog_entry_id", line.CatalogEntryID.String()).Msg("stock release failed")
		}
	}
}

// cancelAbandoned cancels an order stuck in Pending and returns its stock.
//
// The order must reach a terminal state before the stock goes back: a Pending
// order left behind would still accept Cancel, which would release the same
// reservation a second time.
func (s *Service) cancelAbandoned(ctx context.Context, orderID uuid.UUID) {
	l := zerolog.Ctx(ctx)

	cancelled, err := s.transition(ctx, orderID, func(o *domain.Order) error {
		return o.Cancel(false)
	})
	if err != nil {
		l.Error().Err(err).Str("order_id", orderID.String()).Msg("cancelling abandoned order failed")
		return
	}

	s.releaseAll(ctx, cancelled.Lines)
}

// compensate fails an order awaiting payment and returns its stock.
func (s *Service) compensate(ctx context.Context, order domain.Order) {
	l := zerolog.Ctx(ctx)

	failed, err := s.transition(ctx, order.ID, func(o *domain.Order) error {
		return o.MarkFailed()
	})
	if err != nil {
		l.Error().Err(err).Str("order_id", order.ID.String()).Msg("compensating transition failed")
		return
	}

	s.releaseAll(ctx, failed.Lines)
}

// transition applies a state change to a freshly read order and persists it,
// retrying from a new read on optimistic version conflicts.
func (s *Service) transition(ctx context.Context, orderID uuid.UUID, apply func(*domain.Order) error) (domain.Order, error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		order, err := s.orderRepo.Get(ctx, orderID)
		if err != nil {
			return domain.Order{}, err
		}

		if err := apply(&order); err != nil {
			return domain.Order{}, err
		}

		updated, err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, order.Version)
		if err == domain.ErrConcurrentModification {
			continue
		}

		if err != nil {
			return domain.Order{}, err
		}

		return updated, nil
	}

	return domain.Order{}, domain.ErrConflictRetryExhausted
}

// Get returns the buyer's order with the given id.
func (s *Service) Get(ctx context.Context, buyerID string, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if order.BuyerID != buyerID {
		return domain.Order{}, domain.ErrOrderOwnerMismatch
	}

	return order, nil
}

// List returns the requested page of the buyer's orders.
func (s *Service) List(ctx context.Context, buyerID string, pageSize, pageID int32) ([]domain.Order, error) {
	limit := pageSize
	offset := (pageID - 1) * pageSize

	return s.orderRepo.ListByBuyer(ctx, buyerID, limit, offset)
}

// Cancel cancels the buyer's order and releases its reserved stock. An order
// awaiting payment can only be cancelled while no payment has succeeded.
func (s *Service) Cancel(ctx context.Context, buyerID string, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if order.BuyerID != buyerID {
		return domain.Order{}, domain.ErrOrderOwnerMismatch
	}

	hasSucceeded, err := s.paymentRepo.OrderHasSucceeded(ctx, orderID, uuid.Nil)
	if err != nil {
		return domain.Order{}, err
	}

	cancelled, err := s.transition(ctx, orderID, func(o *domain.Order) error {
		return o.Cancel(hasSucceeded)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.releaseAll(ctx, cancelled.Lines)

	return cancelled, nil
}

// FailExpired fails orders stuck in AwaitingPayment since before the cutoff
// and returns their stock. The scheduler invoking it is external.
func (s *Service) FailExpired(ctx context.Context, cutoff time.Time, limit int32) (int, error) {
	l := zerolog.Ctx(ctx)

	ids, err := s.orderRepo.ListStaleAwaiting(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	failed := 0

	for _, id := range ids {
		expired, err := s.transition(ctx, id, func(o *domain.Order) error {
			return o.MarkFailed()
		})
		if err != nil {
			// A concurrent callback may have finished the order first.
			l.Info().Err(err).Str("order_id", id.String()).Msg("skipping expired order")
			continue
		}

		s.releaseAll(ctx, expired.Lines)
		failed++
	}

	return failed, nil
}
