package cartrepo

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/game-market/internal/catalogrepo"
	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/configpkg"
	"github.com/go-petr/game-market/pkg/moneypkg"
	"github.com/go-petr/game-market/pkg/randompkg"

	_ "github.com/lib/pq"
)

var (
	testRepo        *RepoPGS
	testCatalogRepo *catalogrepo.RepoPGS
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	testDB, err := sql.Open(config.DBDriver, config.DBSource)
	if err != nil {
		log.Fatal("cannot connect to db:", err)
	}

	testRepo = NewRepoPGS(testDB)
	testCatalogRepo = catalogrepo.NewRepoPGS(testDB)

	os.Exit(m.Run())
}

func createRandomCart(t *testing.T) domain.Cart {
	cart := domain.NewCart(randompkg.Owner())

	stored, err := testRepo.Create(context.Background(), cart)
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	require.Equal(t, cart.ID, stored.ID)
	require.Equal(t, cart.BuyerID, stored.BuyerID)
	require.Equal(t, domain.CartStatusActive, stored.Status)
	require.Empty(t, stored.Items)

	require.Equal(t, int32(1), stored.Version)
	require.NotZero(t, stored.CreatedAt)

	return stored
}

func createRandomItem(t *testing.T) domain.CartItem {
	price, err := moneypkg.New(randompkg.AmountBetween(1_000, 10_000), "USD")
	require.NoError(t, err)

	entry, err := testCatalogRepo.Create(context.Background(), domain.CreateCatalogEntryParams{
		Title:          randompkg.GameTitle(),
		UnitPrice:      price,
		AvailableStock: 100,
	})
	require.NoError(t, err)

	return domain.CartItem{
		CatalogEntryID: entry.ID,
		Quantity:       randompkg.Int32Between(1, 10),
		UnitPrice:      entry.UnitPrice,
	}
}

func TestCreate(t *testing.T) {
	createRandomCart(t)
}

func TestGet(t *testing.T) {
	testCart := createRandomCart(t)

	cart2, err := testRepo.Get(context.Background(), testCart.ID)
	require.NoError(t, err)

	require.Equal(t, testCart.ID, cart2.ID)
	require.Equal(t, testCart.BuyerID, cart2.BuyerID)
	require.Equal(t, testCart.Status, cart2.Status)
	require.Empty(t, cart2.Items)
	require.True(t, cart2.Total.IsZero())
}

func TestGetNotFound(t *testing.T) {
	cart, err := testRepo.Get(context.Background(), uuid.New())
	require.EqualError(t, err, domain.ErrCartNotFound.Error())
	require.Empty(t, cart)
}

func TestGetActiveByBuyer(t *testing.T) {
	testCart := createRandomCart(t)

	cart2, err := testRepo.GetActiveByBuyer(context.Background(), testCart.BuyerID)
	require.NoError(t, err)
	require.Equal(t, testCart.ID, cart2.ID)

	_, err = testRepo.GetActiveByBuyer(context.Background(), randompkg.Owner())
	require.EqualError(t, err, domain.ErrCartNotFound.Error())
}

func TestUpdate(t *testing.T) {
	testCart := createRandomCart(t)

	err := testCart.AddItem(createRandomItem(t))
	require.NoError(t, err)

	cart2, err := testRepo.Update(context.Background(), testCart)
	require.NoError(t, err)

	require.Equal(t, testCart.Items, cart2.Items)
	require.Equal(t, testCart.Total, cart2.Total)
	require.Equal(t, testCart.Version+1, cart2.Version)

	cart3, err := testRepo.Get(context.Background(), testCart.ID)
	require.NoError(t, err)
	require.Equal(t, cart2.Items, cart3.Items)
	require.Equal(t, cart2.Total, cart3.Total)
}

func TestUpdateStaleVersion(t *testing.T) {
	testCart := createRandomCart(t)

	err := testCart.AddItem(createRandomItem(t))
	require.NoError(t, err)

	_, err = testRepo.Update(context.Background(), testCart)
	require.NoError(t, err)

	// Writing with the version read before the first update must fail.
	_, err = testRepo.Update(context.Background(), testCart)
	require.EqualError(t, err, domain.ErrConcurrentModification.Error())
}

func TestUpdateNotFound(t *testing.T) {
	cart := domain.NewCart(randompkg.Owner())

	_, err := testRepo.Update(context.Background(), cart)
	require.EqualError(t, err, domain.ErrCartNotFound.Error())
}

func TestUpdateFreezesOrderedCart(t *testing.T) {
	testCart := createRandomCart(t)

	err := testCart.AddItem(createRandomItem(t))
	require.NoError(t, err)

	stored, err := testRepo.Update(context.Background(), testCart)
	require.NoError(t, err)

	err = stored.MarkOrdered()
	require.NoError(t, err)

	frozen, err := testRepo.Update(context.Background(), stored)
	require.NoError(t, err)
	require.Equal(t, domain.CartStatusOrdered, frozen.Status)

	// A frozen cart no longer shows up as the buyer's active cart.
	_, err = testRepo.GetActiveByBuyer(context.Background(), testCart.BuyerID)
	require.EqualError(t, err, domain.ErrCartNotFound.Error())
}
