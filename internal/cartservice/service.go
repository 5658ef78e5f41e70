// Package cartservice manages business logic layer of buyer carts.
package cartservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/domain"
)

// maxConflictRetries bounds retries after optimistic version conflicts.
const maxConflictRetries = 3

// Repo provides data access layer interface needed by cart service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package cartservice
type Repo interface {
	Create(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Cart, error)
	GetActiveByBuyer(ctx context.Context, buyerID string) (domain.Cart, error)
	Update(ctx context.Context, cart domain.Cart) (domain.Cart, error)
}

// Catalog provides catalog reads needed by the cart service layer.
type Catalog interface {
	Get(ctx context.Context, id uuid.UUID) (domain.CatalogEntry, error)
}

// Checkout turns a cart into an order with an initiated payment.
type Checkout interface {
	Checkout(ctx context.Context, buyerID string, requested []domain.RequestedLine) (domain.CheckoutResult, error)
}

// Service facilitates cart service layer logic.
type Service struct {
	repo     Repo
	catalog  Catalog
	checkout Checkout
}

// New returns cart service struct to manage cart bussines logic.
func New(cr Repo, cs Catalog, co Checkout) *Service {
	return &Service{
		repo:     cr,
		catalog:  cs,
		checkout: co,
	}
}

// GetOrCreate returns the buyer's active cart, creating one if none exists.
func (s *Service) GetOrCreate(ctx context.Context, buyerID string) (domain.Cart, error) {
	cart, err := s.repo.GetActiveByBuyer(ctx, buyerID)
	if err == nil {
		return cart, nil
	}

	if err != domain.ErrCartNotFound {
		return domain.Cart{}, err
	}

	return s.repo.Create(ctx, domain.NewCart(buyerID))
}

// AddItem puts a catalog entry into the buyer's cart at its current price.
func (s *Service) AddItem(ctx context.Context, buyerID string, catalogEntryID uuid.UUID, quantity int32) (domain.Cart, error) {
	entry, err := s.catalog.Get(ctx, catalogEntryID)
	if err != nil {
		return domain.Cart{}, err
	}

	return s.mutate(ctx, buyerID, func(c *domain.Cart) error {
		return c.AddItem(domain.CartItem{
			CatalogEntryID: entry.ID,
			Quantity:       quantity,
			UnitPrice:      entry.UnitPrice,
		})
	})
}

// SetQuantity replaces the quantity of a cart position.
func (s *Service) SetQuantity(ctx context.Context, buyerID string, catalogEntryID uuid.UUID, quantity int32) (domain.Cart, error) {
	return s.mutate(ctx, buyerID, func(c *domain.Cart) error {
		return c.SetQuantity(catalogEntryID, quantity)
	})
}

// RemoveItem deletes a position from the buyer's cart.
func (s *Service) RemoveItem(ctx context.Context, buyerID string, catalogEntryID uuid.UUID) (domain.Cart, error) {
	return s.mutate(ctx, buyerID, func(c *domain.Cart) error {
		return c.RemoveItem(catalogEntryID)
	})
}

// Clear removes all items from the buyer's cart.
func (s *Service) Clear(ctx context.Context, buyerID string) (domain.Cart, error) {
	return s.mutate(ctx, buyerID, func(c *domain.Cart) error {
		return c.Clear()
	})
}

// Checkout turns the buyer's active cart into an order with an initiated
// payment and freezes the cart.
//
// Item prices are not carried over from the cart: the order freezes the
// catalog price current at checkout time, which may have changed since the
// item was added.
func (s *Service) Checkout(ctx context.Context, buyerID string) (domain.CheckoutResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.CheckoutResult

	cart, err := s.repo.GetActiveByBuyer(ctx, buyerID)
	if err != nil {
		return result, err
	}

	if len(cart.Items) == 0 {
		return result, domain.ErrEmptyCart
	}

	result, err = s.checkout.Checkout(ctx, buyerID, cart.RequestedLines())
	if err != nil {
		return result, err
	}

	if _, err := s.mutate(ctx, buyerID, func(c *domain.Cart) error {
		return c.MarkOrdered()
	}); err != nil {
		// The order exists either way; the stale cart is recoverable.
		l.Error().Err(err).Str("cart_id", cart.ID.String()).Msg("freezing ordered cart failed")
	}

	return result, nil
}

// mutate applies a change to a freshly read active cart and persists it,
// retrying from a new read on optimistic version conflicts.
func (s *Service) mutate(ctx context.Context, buyerID string, apply func(*domain.Cart) error) (domain.Cart, error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		cart, err := s.repo.GetActiveByBuyer(ctx, buyerID)
		if err != nil {
			return domain.Cart{}, err
		}

		if err := apply(&cart); err != nil {
			return domain.Cart{}, err
		}

		updated, err := s.repo.Update(ctx, cart)
		if err == domain.ErrConcurrentModification {
			continue
		}

		if err != nil {
			return domain.Cart{}, err
		}

		return updated, nil
	}

	return domain.Cart{}, domain.ErrConflictRetryExhausted
}
