// Package test provides shared test helpers.
package test

import (
	"context"
	"testing"

	"github.com/go-petr/game-market/internal/catalogrepo"
	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/dbpkg"
	"github.com/go-petr/game-market/pkg/moneypkg"
	"github.com/go-petr/game-market/pkg/randompkg"
)

// SeedCatalogEntry creates a random catalog entry with the given stock.
func SeedCatalogEntry(t *testing.T, db dbpkg.SQLInterface, stock int32) domain.CatalogEntry {
	t.Helper()

	price, err := moneypkg.New(randompkg.AmountBetween(1_000, 10_000), "USD")
	if err != nil {
		t.Fatalf("moneypkg.New returned error: %v", err)
	}

	arg := domain.CreateCatalogEntryParams{
		Title:          randompkg.GameTitle(),
		UnitPrice:      price,
		AvailableStock: stock,
	}

	catalogRepo := catalogrepo.NewRepoPGS(db)

	entry, err := catalogRepo.Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("catalogRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return entry
}

var flushTables = []string{
	"cart_items",
	"carts",
	"payments",
	"order_lines",
	"orders",
	"catalog_entries",
}

// Flush removes all rows seeded by an integration test.
func Flush(t *testing.T, db dbpkg.SQLInterface) {
	t.Helper()

	for _, table := range flushTables {
		if _, err := db.ExecContext(context.Background(), "DELETE FROM "+table); err != nil {
			t.Fatalf("flushing %v returned error: %v", table, err)
		}
	}
}
