package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/game-market/pkg/currencypkg"
	"github.com/go-petr/game-market/pkg/moneypkg"
	"github.com/go-petr/game-market/pkg/randompkg"
)

func testLine(t *testing.T, amount int64, currency string, quantity int32) OrderLine {
	t.Helper()

	price, err := moneypkg.New(amount, currency)
	require.NoError(t, err)

	return OrderLine{
		CatalogEntryID:      uuid.New(),
		Quantity:            quantity,
		UnitPriceAtPurchase: price,
	}
}

func TestNewOrder(t *testing.T) {
	t.Parallel()

	buyer := randompkg.Owner()

	testCases := []struct {
		name    string
		lines   func(t *testing.T) []OrderLine
		want    int64
		wantErr error
	}{
		{
			name: "OK",
			lines: func(t *testing.T) []OrderLine {
				return []OrderLine{
					testLine(t, 1000, currencypkg.USD, 2),
					testLine(t, 500, currencypkg.USD, 1),
				}
			},
			want: 2500,
		},
		{
			name:    "EmptyOrder",
			lines:   func(t *testing.T) []OrderLine { return nil },
			wantErr: ErrEmptyOrder,
		},
		{
			name: "ZeroQuantity",
			lines: func(t *testing.T) []OrderLine {
				return []OrderLine{testLine(t, 1000, currencypkg.USD, 0)}
			},
			wantErr: ErrInvalidQuantity,
		},
		{
			name: "QuantityAboveCap",
			lines: func(t *testing.T) []OrderLine {
				return []OrderLine{testLine(t, 1000, currencypkg.USD, MaxLineQuantity+1)}
			},
			wantErr: ErrInvalidQuantity,
		},
		{
			name: "MixedCurrencies",
			lines: func(t *testing.T) []OrderLine {
				return []OrderLine{
					testLine(t, 1000, currencypkg.USD, 1),
					testLine(t, 1000, currencypkg.EUR, 1),
				}
			},
			wantErr: moneypkg.ErrCurrencyMismatch,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			order, err := NewOrder(buyer, tc.lines(t))

			if tc.wantErr != nil {
				require.EqualError(t, err, tc.wantErr.Error())
				return
			}

			require.NoError(t, err)
			require.Equal(t, buyer, order.BuyerID)
			require.Equal(t, OrderStatusPending, order.Status)
			require.Equal(t, tc.want, order.Total.Amount)
			require.NotZero(t, order.ID)
			require.NotZero(t, order.CreatedAt)
		})
	}
}

// Totals are frozen at creation: changing the catalog price afterwards must
// not affect an existing order.
func TestOrderTotalConservation(t *testing.T) {
	t.Parallel()

	line := testLine(t, 1000, currencypkg.USD, 3)

	order, err := NewOrder(randompkg.Owner(), []OrderLine{line})
	require.NoError(t, err)
	require.Equal(t, int64(3000), order.Total.Amount)

	// Simulate a later catalog price change.
	newPrice, err := moneypkg.New(9999, currencypkg.USD)
	require.NoError(t, err)

	_ = newPrice

	total, err := OrderTotal(order.Lines)
	require.NoError(t, err)
	require.True(t, order.Total.Equal(total))
}

func TestOrderTransitions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		from    OrderStatus
		apply   func(o *Order) error
		want    OrderStatus
		wantErr error
	}{
		{
			name:  "PendingToAwaitingPayment",
			from:  OrderStatusPending,
			apply: func(o *Order) error { return o.MarkAwaitingPayment() },
			want:  OrderStatusAwaitingPayment,
		},
		{
			name:    "PaidToAwaitingPayment",
			from:    OrderStatusPaid,
			apply:   func(o *Order) error { return o.MarkAwaitingPayment() },
			wantErr: ErrInvalidTransition,
		},
		{
			name:  "AwaitingPaymentToPaid",
			from:  OrderStatusAwaitingPayment,
			apply: func(o *Order) error { return o.MarkPaid() },
			want:  OrderStatusPaid,
		},
		{
			name:    "PendingToPaid",
			from:    OrderStatusPending,
			apply:   func(o *Order) error { return o.MarkPaid() },
			wantErr: ErrInvalidTransition,
		},
		{
			name:  "AwaitingPaymentToFailed",
			from:  OrderStatusAwaitingPayment,
			apply: func(o *Order) error { return o.MarkFailed() },
			want:  OrderStatusFailed,
		},
		{
			name:    "PendingToFailed",
			from:    OrderStatusPending,
			apply:   func(o *Order) error { return o.MarkFailed() },
			wantErr: ErrInvalidTransition,
		},
		{
			name:  "PendingCancel",
			from:  OrderStatusPending,
			apply: func(o *Order) error { return o.Cancel(false) },
			want:  OrderStatusCancelled,
		},
		{
			name:  "AwaitingPaymentCancelNoSuccess",
			from:  OrderStatusAwaitingPayment,
			apply: func(o *Order) error { return o.Cancel(false) },
			want:  OrderStatusCancelled,
		},
		{
			name:    "AwaitingPaymentCancelAfterSuccess",
			from:    OrderStatusAwaitingPayment,
			apply:   func(o *Order) error { return o.Cancel(true) },
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "PaidCancel",
			from:    OrderStatusPaid,
			apply:   func(o *Order) error { return o.Cancel(false) },
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "FailedIsTerminal",
			from:    OrderStatusFailed,
			apply:   func(o *Order) error { return o.MarkPaid() },
			wantErr: ErrInvalidTransition,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			order, err := NewOrder(randompkg.Owner(), []OrderLine{testLine(t, 1000, currencypkg.USD, 1)})
			require.NoError(t, err)

			order.Status = tc.from

			err = tc.apply(&order)

			if tc.wantErr != nil {
				require.EqualError(t, err, tc.wantErr.Error())
				require.Equal(t, tc.from, order.Status)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, order.Status)
		})
	}
}
