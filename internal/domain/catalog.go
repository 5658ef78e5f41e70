// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/go-petr/game-market/pkg/moneypkg"
)

var (
	// ErrEntryNotFound indicates that the catalog entry is not found.
	ErrEntryNotFound = errors.New("catalog entry not found")
	// ErrInsufficientStock indicates that the catalog entry has less stock than requested.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrTitleAlreadyExists indicates that a catalog entry with the given title already exists.
	ErrTitleAlreadyExists = errors.New("catalog entry title already exists")
	// ErrNegativeStock indicates a negative stock value.
	ErrNegativeStock = errors.New("negative stock")
)

// CatalogEntry holds a game listing available for purchase.
type CatalogEntry struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	UnitPrice      moneypkg.Money `json:"unit_price"`
	AvailableStock int32          `json:"available_stock"`
	CreatedAt      time.Time      `json:"created_at"`
}

// CreateCatalogEntryParams is the input data to list a new game.
type CreateCatalogEntryParams struct {
	Title          string         `json:"title"`
	UnitPrice      moneypkg.Money `json:"unit_price"`
	AvailableStock int32          `json:"available_stock"`
}
