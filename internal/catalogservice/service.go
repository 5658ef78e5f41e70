// Package catalogservice manages business logic layer of the game catalog.
package catalogservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/currencypkg"
	"github.com/go-petr/game-market/pkg/moneypkg"
)

// Repo provides data access layer interface needed by catalog service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package catalogservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateCatalogEntryParams) (domain.CatalogEntry, error)
	Get(ctx context.Context, id uuid.UUID) (domain.CatalogEntry, error)
	List(ctx context.Context, limit, offset int32) ([]domain.CatalogEntry, error)
	ReserveStock(ctx context.Context, id uuid.UUID, quantity int32) error
	ReleaseStock(ctx context.Context, id uuid.UUID, quantity int32) error
}

// Service facilitates catalog service layer logic.
type Service struct {
	repo Repo
}

// New returns catalog service struct to manage catalog bussines logic.
func New(cr Repo) *Service {
	return &Service{repo: cr}
}

// Create validates and lists a new game in the catalog.
func (s *Service) Create(ctx context.Context, arg domain.CreateCatalogEntryParams) (domain.CatalogEntry, error) {
	if _, err := moneypkg.New(arg.UnitPrice.Amount, arg.UnitPrice.Currency); err != nil {
		return domain.CatalogEntry{}, err
	}

	if !currencypkg.IsSupportedCurrency(arg.UnitPrice.Currency) {
		return domain.CatalogEntry{}, moneypkg.ErrInvalidCurrency
	}

	if arg.AvailableStock < 0 {
		return domain.CatalogEntry{}, domain.ErrNegativeStock
	}

	return s.repo.Create(ctx, arg)
}

// Get returns the catalog entry with the given id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.CatalogEntry, error) {
	return s.repo.Get(ctx, id)
}

// GetPrice returns the current unit price of the entry.
func (s *Service) GetPrice(ctx context.Context, id uuid.UUID) (moneypkg.Money, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return moneypkg.Money{}, err
	}

	return entry.UnitPrice, nil
}

// List returns the requested page of catalog entries.
func (s *Service) List(ctx context.Context, pageSize, pageID int32) ([]domain.CatalogEntry, error) {
	limit := pageSize
	offset := (pageID - 1) * pageSize

	return s.repo.List(ctx, limit, offset)
}

// ReserveStock atomically reserves stock for a checkout.
func (s *Service) ReserveStock(ctx context.Context, id uuid.UUID, quantity int32) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	return s.repo.ReserveStock(ctx, id, quantity)
}

// ReleaseStock returns reserved stock after a failed or cancelled order.
func (s *Service) ReleaseStock(ctx context.Context, id uuid.UUID, quantity int32) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	return s.repo.ReleaseStock(ctx, id, quantity)
}
