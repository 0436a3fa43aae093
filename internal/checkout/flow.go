package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/google/uuid"
)

// SaleRecorder receives finished sales. Implementations must treat a repeated
// IdempotencyKey as the same sale.
type SaleRecorder interface {
	RecordSale(ctx context.Context, sale *domain.Sale) error
}

// SaleRecorderFunc adapts a function to SaleRecorder.
type SaleRecorderFunc func(ctx context.Context, sale *domain.Sale) error

func (f SaleRecorderFunc) RecordSale(ctx context.Context, sale *domain.Sale) error {
	return f(ctx, sale)
}

type Option func(*Flow)

// WithClock overrides time.Now for sale timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// WithIDGenerator overrides how sale ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(f *Flow) { f.newID = newID }
}

// Flow drives a cart from review to a recorded sale. Like the cart it wraps,
// it expects a single caller at a time.
type Flow struct {
	cart     *cart.Store
	recorder SaleRecorder
	now      func() time.Time
	newID    func() string

	state         State
	paymentMethod domain.PaymentMethod
	pendingSaleID string
}

func NewFlow(c *cart.Store, recorder SaleRecorder, opts ...Option) *Flow {
	f := &Flow{
		cart:          c,
		recorder:      recorder,
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
		state:         StateIdle,
		paymentMethod: domain.PaymentMethodCash,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flow) State() State {
	return f.state
}

func (f *Flow) PaymentMethod() domain.PaymentMethod {
	return f.paymentMethod
}

// PendingSaleID is the id the next confirmed sale will carry. Empty when idle.
func (f *Flow) PendingSaleID() string {
	return f.pendingSaleID
}

// Start opens the review step. An empty cart keeps the flow idle.
func (f *Flow) Start() error {
	if f.state == StateReviewing {
		return nil
	}
	if f.cart.IsEmpty() {
		return ErrEmptyCart
	}
	f.state = StateReviewing
	f.paymentMethod = domain.PaymentMethodCash
	f.pendingSaleID = f.newID()
	return nil
}

func (f *Flow) SelectPaymentMethod(m domain.PaymentMethod) error {
	if f.state != StateReviewing {
		return ErrIllegalTransition
	}
	if !m.Valid() {
		return ErrInvalidPaymentMethod
	}
	f.paymentMethod = m
	return nil
}

// Cancel closes the review step without touching the cart.
func (f *Flow) Cancel() {
	f.reset()
}

// Confirm records the sale and clears the cart. When the recorder fails the
// flow stays in review with the cart intact, so Confirm can be retried and
// the retry carries the same sale id.
func (f *Flow) Confirm(ctx context.Context, operatorID string, customerID *string) (*domain.Sale, error) {
	if f.state != StateReviewing {
		return nil, ErrIllegalTransition
	}

	snapshot := f.cart.Snapshot()
	if len(snapshot.Items) == 0 {
		f.reset()
		return nil, ErrEmptyCart
	}

	sale := &domain.Sale{
		ID:             f.pendingSaleID,
		IdempotencyKey: f.pendingSaleID,
		Items:          domain.SaleItemsFromCart(snapshot.Items),
		Total:          snapshot.Total,
		PaymentMethod:  f.paymentMethod,
		CustomerID:     customerID,
		OperatorID:     operatorID,
		CreatedAt:      f.now().UTC(),
	}

	if err := f.recorder.RecordSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	f.cart.ClearCart()
	f.reset()
	return sale, nil
}

func (f *Flow) reset() {
	f.state = StateIdle
	f.paymentMethod = domain.PaymentMethodCash
	f.pendingSaleID = ""
}
