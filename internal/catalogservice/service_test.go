package catalogservice

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/moneypkg"
	"github.com/go-petr/game-market/pkg/randompkg"
)

func newService(t *testing.T) (*Service, *MockRepo) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)

	return New(repo), repo
}

func randomEntry(t *testing.T) domain.CatalogEntry {
	price, err := moneypkg.New(randompkg.AmountBetween(1_000, 10_000), randompkg.Currency())
	require.NoError(t, err)

	return domain.CatalogEntry{
		Title:          randompkg.GameTitle(),
		UnitPrice:      price,
		AvailableStock: randompkg.Int32Between(1, 100),
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	testEntry := randomEntry(t)

	testCases := []struct {
		name          string
		arg           domain.CreateCatalogEntryParams
		buildStubs    func(repo *MockRepo)
		checkResponse func(t *testing.T, entry domain.CatalogEntry, err error)
	}{
		{
			name: "OK",
			arg: domain.CreateCatalogEntryParams{
				Title:          testEntry.Title,
				UnitPrice:      testEntry.UnitPrice,
				AvailableStock: testEntry.AvailableStock,
			},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Times(1).
					Return(testEntry, nil)
			},
			checkResponse: func(t *testing.T, entry domain.CatalogEntry, err error) {
				require.NoError(t, err)
				require.Equal(t, testEntry, entry)
			},
		},
		{
			name: "NegativeAmount",
			arg: domain.CreateCatalogEntryParams{
				Title:          testEntry.Title,
				UnitPrice:      moneypkg.Money{Amount: -1, Currency: testEntry.UnitPrice.Currency},
				AvailableStock: testEntry.AvailableStock,
			},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(t *testing.T, entry domain.CatalogEntry, err error) {
				require.EqualError(t, err, moneypkg.ErrNegativeAmount.Error())
			},
		},
		{
			name: "UnsupportedCurrency",
			arg: domain.CreateCatalogEntryParams{
				Title:          testEntry.Title,
				UnitPrice:      moneypkg.Money{Amount: testEntry.UnitPrice.Amount, Currency: "XYZ"},
				AvailableStock: testEntry.AvailableStock,
			},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(t *testing.T, entry domain.CatalogEntry, err error) {
				require.EqualError(t, err, moneypkg.ErrInvalidCurrency.Error())
			},
		},
		{
			name: "NegativeStock",
			arg: domain.CreateCatalogEntryParams{
				Title:          testEntry.Title,
				UnitPrice:      testEntry.UnitPrice,
				AvailableStock: -1,
			},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(t *testing.T, entry domain.CatalogEntry, err error) {
				require.EqualError(t, err, domain.ErrNegativeStock.Error())
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			service, repo := newService(t)
			tc.buildStubs(repo)

			entry, err := service.Create(context.Background(), tc.arg)

			tc.checkResponse(t, entry, err)
		})
	}
}

func TestGetPrice(t *testing.T) {
	t.Parallel()

	service, repo := newService(t)

	testEntry := randomEntry(t)

	repo.EXPECT().
		Get(gomock.Any(), testEntry.ID).
		Times(1).
		Return(testEntry, nil)

	price, err := service.GetPrice(context.Background(), testEntry.ID)
	require.NoError(t, err)
	require.Equal(t, testEntry.UnitPrice, price)
}

func TestGetPriceNotFound(t *testing.T) {
	t.Parallel()

	service, repo := newService(t)

	testEntry := randomEntry(t)

	repo.EXPECT().
		Get(gomock.Any(), testEntry.ID).
		Times(1).
		Return(domain.CatalogEntry{}, domain.ErrEntryNotFound)

	_, err := service.GetPrice(context.Background(), testEntry.ID)
	require.EqualError(t, err, domain.ErrEntryNotFound.Error())
}

func TestList(t *testing.T) {
	t.Parallel()

	service, repo := newService(t)

	entries := []domain.CatalogEntry{randomEntry(t), randomEntry(t)}

	// Page 3 of size 2 translates to limit 2 offset 4.
	repo.EXPECT().
		List(gomock.Any(), int32(2), int32(4)).
		Times(1).
		Return(entries, nil)

	got, err := service.List(context.Background(), 2, 3)
	require.NoError(t, err)
	require.Equal(t, entries, got)
}

func TestReserveStock(t *testing.T) {
	t.Parallel()

	service, repo := newService(t)

	testEntry := randomEntry(t)

	repo.EXPECT().
		ReserveStock(gomock.Any(), testEntry.ID, int32(5)).
		Times(1).
		Return(nil)

	err := service.ReserveStock(context.Background(), testEntry.ID, 5)
	require.NoError(t, err)

	err = service.ReserveStock(context.Background(), testEntry.ID, 0)
	require.EqualError(t, err, domain.ErrInvalidQuantity.Error())
}

func TestReleaseStock(t *testing.T) {
	t.Parallel()

	service, repo := newService(t)

	testEntry := randomEntry(t)

	repo.EXPECT().
		ReleaseStock(gomock.Any(), testEntry.ID, int32(5)).
		Times(1).
		Return(nil)

	err := service.ReleaseStock(context.Background(), testEntry.ID, 5)
	require.NoError(t, err)

	err = service.ReleaseStock(context.Background(), testEntry.ID, -1)
	require.EqualError(t, err, domain.ErrInvalidQuantity.Error())
}
