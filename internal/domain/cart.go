package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/go-petr/game-market/pkg/currencypkg"
	"github.com/go-petr/game-market/pkg/moneypkg"
)

var (
	// ErrCartNotFound indicates that the cart is not found.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartNotActive indicates a mutation of a cart that is no longer active.
	ErrCartNotActive = errors.New("cart is not active")
	// ErrCartCheckoutInProgress indicates a mutation while a checkout holds the cart.
	ErrCartCheckoutInProgress = errors.New("cart checkout in progress")
	// ErrCartItemNotFound indicates that the item is not in the cart.
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrEmptyCart indicates a checkout attempt with an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
)

// CartStatus represents the lifecycle state of a cart.
type CartStatus string

// All cart statuses. Only an Active cart may be mutated.
const (
	CartStatusActive    CartStatus = "ACTIVE"
	CartStatusOrdered   CartStatus = "ORDERED"
	CartStatusCancelled CartStatus = "CANCELLED"
	CartStatusExpired   CartStatus = "EXPIRED"
)

// CartItem is one position of a cart. Unlike order lines its quantity may
// still change before checkout.
type CartItem struct {
	CatalogEntryID uuid.UUID      `json:"catalog_entry_id"`
	Quantity       int32          `json:"quantity"`
	UnitPrice      moneypkg.Money `json:"unit_price"`
}

// Subtotal returns quantity times the current unit price.
func (i CartItem) Subtotal() (moneypkg.Money, error) {
	return i.UnitPrice.Mul(i.Quantity)
}

// Cart collects items before checkout. All items share one currency which is
// fixed by the first item added.
type Cart struct {
	ID        uuid.UUID      `json:"id"`
	BuyerID   string         `json:"buyer_id"`
	Status    CartStatus     `json:"status"`
	Items     []CartItem     `json:"items"`
	Total     moneypkg.Money `json:"total"`
	Version   int32          `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewCart returns an empty active cart for the buyer.
func NewCart(buyerID string) Cart {
	zero, _ := moneypkg.Zero(currencypkg.DefaultCurrency)

	return Cart{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		Status:    CartStatusActive,
		Items:     []CartItem{},
		Total:     zero,
		CreatedAt: time.Now().UTC(),
	}
}

func (c *Cart) ensureActive() error {
	if c.Status != CartStatusActive {
		return ErrCartNotActive
	}

	return nil
}

func (c *Cart) recalculateTotal() error {
	total, err := CartTotal(c.Items)
	if err != nil {
		return err
	}

	c.Total = total

	return nil
}

// CartTotal sums item subtotals. An empty cart totals zero in the default
// currency.
func CartTotal(items []CartItem) (moneypkg.Money, error) {
	if len(items) == 0 {
		return moneypkg.Zero(currencypkg.DefaultCurrency)
	}

	total, err := items[0].Subtotal()
	if err != nil {
		return moneypkg.Money{}, err
	}

	for _, item := range items[1:] {
		subtotal, err := item.Subtotal()
		if err != nil {
			return moneypkg.Money{}, err
		}

		total, err = total.Add(subtotal)
		if err != nil {
			return moneypkg.Money{}, err
		}
	}

	return total, nil
}

// AddItem puts an item into the cart, merging it with an existing position
// for the same entry and unit price.
func (c *Cart) AddItem(item CartItem) error {
	if err := c.ensureActive(); err != nil {
		return err
	}

	if item.Quantity <= 0 || item.Quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}

	if len(c.Items) > 0 {
		if err := c.Items[0].UnitPrice.SameCurrency(item.UnitPrice); err != nil {
			return err
		}
	}

	merged := false

	for i := range c.Items {
		if c.Items[i].CatalogEntryID == item.CatalogEntryID && c.Items[i].UnitPrice.Equal(item.UnitPrice) {
			if c.Items[i].Quantity+item.Quantity > MaxLineQuantity {
				return ErrInvalidQuantity
			}

			c.Items[i].Quantity += item.Quantity
			merged = true

			break
		}
	}

	if !merged {
		c.Items = append(c.Items, item)
	}

	return c.recalculateTotal()
}

// SetQuantity replaces the quantity of an existing position.
func (c *Cart) SetQuantity(catalogEntryID uuid.UUID, quantity int32) error {
	if err := c.ensureActive(); err != nil {
		return err
	}

	if quantity <= 0 || quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].CatalogEntryID == catalogEntryID {
			c.Items[i].Quantity = quantity
			return c.recalculateTotal()
		}
	}

	return ErrCartItemNotFound
}

// RemoveItem deletes a position from the cart.
func (c *Cart) RemoveItem(catalogEntryID uuid.UUID) error {
	if err := c.ensureActive(); err != nil {
		return err
	}

	for i := range c.Items {
		if c.Items[i].CatalogEntryID == catalogEntryID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return c.recalculateTotal()
		}
	}

	return ErrCartItemNotFound
}

// Clear removes all items from an active cart.
func (c *Cart) Clear() error {
	if err := c.ensureActive(); err != nil {
		return err
	}

	c.Items = c.Items[:0]

	return c.recalculateTotal()
}

// MarkOrdered freezes the cart after a successful checkout.
func (c *Cart) MarkOrdered() error {
	if err := c.ensureActive(); err != nil {
		return err
	}

	if len(c.Items) == 0 {
		return ErrEmptyCart
	}

	c.Status = CartStatusOrdered

	return nil
}

// RequestedLines converts cart items into checkout requests. Prices are not
// carried over: checkout freezes the catalog price current at order time.
func (c *Cart) RequestedLines() []RequestedLine {
	lines := make([]RequestedLine, 0, len(c.Items))

	for _, item := range c.Items {
		lines = append(lines, RequestedLine{
			CatalogEntryID: item.CatalogEntryID,
			Quantity:       item.Quantity,
		})
	}

	return lines
}
