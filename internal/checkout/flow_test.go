package checkout

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newTestFlow(t *testing.T, recorder SaleRecorder) (*Flow, *cart.Store) {
	t.Helper()
	store := cart.NewStore()
	n := 0
	flow := NewFlow(store, recorder,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return "sale-" + strconv.Itoa(n)
		}),
	)
	return flow, store
}

func fillCart(store *cart.Store) {
	store.AddItem(domain.CartLineItem{ID: "1", Name: "Coca-Cola 2L", Price: decimal.RequireFromString("8.99"), Quantity: 2})
	store.AddItem(domain.CartLineItem{ID: "2", Name: "Arroz 5kg", Price: decimal.RequireFromString("25.90"), Quantity: 1})
}

func TestNewFlow_StartsIdleWithCash(t *testing.T) {
	flow, _ := newTestFlow(t, &mockRecorder{})

	assert.Equal(t, StateIdle, flow.State())
	assert.Equal(t, domain.PaymentMethodCash, flow.PaymentMethod())
	assert.Empty(t, flow.PendingSaleID())
}

func TestStart_EmptyCart(t *testing.T) {
	flow, _ := newTestFlow(t, &mockRecorder{})

	err := flow.Start()

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StateIdle, flow.State())
}

func TestStart_MovesToReviewing(t *testing.T) {
	flow, store := newTestFlow(t, &mockRecorder{})
	fillCart(store)

	require.NoError(t, flow.Start())

	assert.Equal(t, StateReviewing, flow.State())
	assert.Equal(t, domain.PaymentMethodCash, flow.PaymentMethod())
	assert.Equal(t, "sale-1", flow.PendingSaleID())
}

func TestStart_WhileReviewingKeepsPendingSale(t *testing.T) {
	flow, store := newTestFlow(t, &mockRecorder{})
	fillCart(store)
	require.NoError(t, flow.Start())
	require.NoError(t, flow.SelectPaymentMethod(domain.PaymentMethodPix))

	require.NoError(t, flow.Start())

	assert.Equal(t, "sale-1", flow.PendingSaleID())
	assert.Equal(t, domain.PaymentMethodPix, flow.PaymentMethod())
}

func TestSelectPaymentMethod(t *testing.T) {
	flow, store := newTestFlow(t, &mockRecorder{})
	fillCart(store)

	assert.ErrorIs(t, flow.SelectPaymentMethod(domain.PaymentMethodCard), ErrIllegalTransition)

	require.NoError(t, flow.Start())
	require.NoError(t, flow.SelectPaymentMethod(domain.PaymentMethodCard))
	assert.Equal(t, domain.PaymentMethodCard, flow.PaymentMethod())

	assert.ErrorIs(t, flow.SelectPaymentMethod("cheque"), ErrInvalidPaymentMethod)
	assert.Equal(t, domain.PaymentMethodCard, flow.PaymentMethod())
}

func TestCancel_LeavesCartUntouched(t *testing.T) {
	flow, store := newTestFlow(t, &mockRecorder{})
	fillCart(store)
	require.NoError(t, flow.Start())
	require.NoError(t, flow.SelectPaymentMethod(domain.PaymentMethodCard))

	flow.Cancel()

	assert.Equal(t, StateIdle, flow.State())
	assert.Equal(t, domain.PaymentMethodCash, flow.PaymentMethod())
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, "43.88", store.Total().StringFixed(2))
}

func TestCancel_WhenIdleIsNoop(t *testing.T) {
	flow, _ := newTestFlow(t, &mockRecorder{})
	flow.Cancel()
	assert.Equal(t, StateIdle, flow.State())
}

func TestConfirm_RecordsSaleAndClearsCart(t *testing.T) {
	recorder := &mockRecorder{}
	flow, store := newTestFlow(t, recorder)
	fillCart(store)
	require.NoError(t, flow.Start())
	require.NoError(t, flow.SelectPaymentMethod(domain.PaymentMethodPix))
	customer := "customer-7"

	sale, err := flow.Confirm(context.Background(), "operator-1", &customer)
	require.NoError(t, err)

	assert.Equal(t, "43.88", sale.Total.StringFixed(2))
	assert.Equal(t, "sale-1", sale.ID)
	assert.Equal(t, "sale-1", sale.IdempotencyKey)
	assert.Equal(t, domain.PaymentMethodPix, sale.PaymentMethod)
	assert.Equal(t, "operator-1", sale.OperatorID)
	assert.Equal(t, &customer, sale.CustomerID)
	assert.Equal(t, fixedNow, sale.CreatedAt)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, "1", sale.Items[0].ProductID)
	assert.Equal(t, "17.98", sale.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "2", sale.Items[1].ProductID)

	assert.Equal(t, StateIdle, flow.State())
	assert.True(t, store.IsEmpty())
	assert.True(t, store.Total().IsZero())
	require.Len(t, recorder.sales, 1)
	assert.Same(t, sale, recorder.sales[0])
}

func TestConfirm_WhenIdle(t *testing.T) {
	recorder := &mockRecorder{}
	flow, store := newTestFlow(t, recorder)
	fillCart(store)

	_, err := flow.Confirm(context.Background(), "", nil)

	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, 0, recorder.callCount)
	assert.Equal(t, 2, store.Len())
}

func TestConfirm_RecorderFailureKeepsReviewing(t *testing.T) {
	recorder := &mockRecorder{err: errors.New("db unavailable")}
	flow, store := newTestFlow(t, recorder)
	fillCart(store)
	require.NoError(t, flow.Start())

	_, err := flow.Confirm(context.Background(), "", nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "db unavailable")
	assert.Equal(t, StateReviewing, flow.State())
	assert.Equal(t, 2, store.Len())

	recorder.err = nil
	sale, err := flow.Confirm(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "sale-1", sale.ID, "retry must reuse the pending sale id")
	assert.Equal(t, 2, recorder.callCount)
	assert.True(t, store.IsEmpty())
}

func TestConfirm_CartEmptiedWhileReviewing(t *testing.T) {
	recorder := &mockRecorder{}
	flow, store := newTestFlow(t, recorder)
	fillCart(store)
	require.NoError(t, flow.Start())
	store.ClearCart()

	_, err := flow.Confirm(context.Background(), "", nil)

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StateIdle, flow.State())
	assert.Equal(t, 0, recorder.callCount)
}

func TestConfirm_UsesCartAtConfirmTime(t *testing.T) {
	recorder := &mockRecorder{}
	flow, store := newTestFlow(t, recorder)
	fillCart(store)
	require.NoError(t, flow.Start())
	store.UpdateQuantity("2", 0)

	sale, err := flow.Confirm(context.Background(), "", nil)

	require.NoError(t, err)
	assert.Len(t, sale.Items, 1)
	assert.Equal(t, "17.98", sale.Total.StringFixed(2))
}

func TestSecondCheckoutGetsNewSaleID(t *testing.T) {
	flow, store := newTestFlow(t, &mockRecorder{})
	fillCart(store)
	require.NoError(t, flow.Start())
	first, err := flow.Confirm(context.Background(), "", nil)
	require.NoError(t, err)

	fillCart(store)
	require.NoError(t, flow.Start())
	second, err := flow.Confirm(context.Background(), "", nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestSaleRecorderFunc(t *testing.T) {
	var got *domain.Sale
	recorder := SaleRecorderFunc(func(_ context.Context, sale *domain.Sale) error {
		got = sale
		return nil
	})
	flow, store := newTestFlow(t, recorder)
	fillCart(store)
	require.NoError(t, flow.Start())

	sale, err := flow.Confirm(context.Background(), "", nil)

	require.NoError(t, err)
	assert.Same(t, sale, got)
}
