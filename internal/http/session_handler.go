package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/catalog"
	"github.com/fjod/go_pos/internal/checkout"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/logger"
	"github.com/fjod/go_pos/internal/metrics"
	"github.com/fjod/go_pos/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// SessionStore is the part of session.Registry the handlers use.
type SessionStore interface {
	Create(ctx context.Context) *session.Session
	Get(ctx context.Context, id string) (*session.Session, error)
	Persist(ctx context.Context, s *session.Session)
	End(ctx context.Context, id string) error
}

// SessionHandler exposes one POS terminal's cart and checkout flow.
type SessionHandler struct {
	sessions SessionStore
	products catalog.Source
	metrics  *metrics.Metrics
	timeout  time.Duration
}

func NewSessionHandler(sessions SessionStore, products catalog.Source, m *metrics.Metrics, timeout time.Duration) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		products: products,
		metrics:  m,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type PaymentMethodRequestDTO struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

type ConfirmRequestDTO struct {
	CustomerID *string `json:"customer_id,omitempty"`
}

type CartLineResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	SessionID string             `json:"session_id"`
	Items     []CartLineResponse `json:"items"`
	Total     decimal.Decimal    `json:"total"`
}

type CheckoutResponse struct {
	SessionID     string               `json:"session_id"`
	State         checkout.State       `json:"state"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	PendingSaleID string               `json:"pending_sale_id,omitempty"`
	Cart          CartResponse         `json:"cart"`
}

type ConfirmResponse struct {
	Sale    *domain.Sale `json:"sale"`
	Receipt string       `json:"receipt"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create(r.Context())
	respondJSON(w, http.StatusCreated, toCartResponse(s.ID, s.Snapshot()))
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.sessions.End(ctx, chi.URLParam(r, "sid")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.sessions.Get(ctx, chi.URLParam(r, "sid"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(s.ID, s.Snapshot()))
}

// AddItem copies the product's name and price into the cart. Adding a product
// already in the cart raises its quantity.
func (h *SessionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}

	s, err := h.sessions.Get(ctx, chi.URLParam(r, "sid"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	product, err := h.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	h.mutateCart(ctx, w, s, "add", http.StatusCreated, func(c *cart.Store) {
		c.AddItem(domain.CartLineItem{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Quantity: req.Quantity,
		})
	})
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
func (h *SessionHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s, err := h.sessions.Get(ctx, chi.URLParam(r, "sid"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	productID := chi.URLParam(r, "product_id")
	h.mutateCart(ctx, w, s, "update", http.StatusOK, func(c *cart.Store) {
		c.UpdateQuantity(productID, req.Quantity)
	})
}

func (h *SessionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.sessions.Get(ctx, chi.URLParam(r, "sid"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	productID := chi.URLParam(r, "product_id")
	h.mutateCart(ctx, w, s, "remove", http.StatusOK, func(c *cart.Store) {
		c.RemoveItem(productID)
	})
}

func (h *SessionHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.sessions.Get(ctx, chi.URLParam(r, "sid"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	h.mutateCart(ctx, w, s, "clear", http.StatusOK, func(c *cart.Store) {
		c.ClearCart()
	})
}

func (h *SessionHandler) mutateCart(ctx context.Context, w http.ResponseWriter, s *session.Session, op string, status int, fn func(c *cart.Store)) {
	var snapshot domain.CartSnapshot
	s.Update(func(c *cart.Store, _ *checkout.Flow) {
		fn(c)
		snapshot = c.Snapshot()
	})
	h.sessions.Persist(ctx, s)
	h.metrics.CartMutation(op)

	respondJSON(w, status, toCartResponse(s.ID, snapshot))
}

func (h *SessionHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.sessions.Get(ctx, chi.URLParam(r, "sid"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	var resp CheckoutResponse
	s.View(func(c *cart.Store, f *checkout.Flow) {
		resp = toCheckoutResponse(s.ID, c, f)
	})
	respondJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, "start", func(f *checkout.Flow) error {
		return f.Start()
	})
}

func (h *SessionHandler) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req PaymentMethodRequestDTO
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.checkoutAction(w, r, "select_payment_method", func(f *checkout.Flow) error {
		return f.SelectPaymentMethod(req.PaymentMethod)
	})
}

func (h *SessionHandler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	h.checkoutAction(w, r, "cancel", func(f *checkout.Flow) error {
		f.Cancel()
		return nil
	})
}

func (h *SessionHandler) checkoutAction(w http.ResponseWriter, r *http.Request, action string, fn func(f *checkout.Flow) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.sessions.Get(ctx, chi.URLParam(r, "sid"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	var resp CheckoutResponse
	err = s.Do(func(c *cart.Store, f *checkout.Flow) error {
		if err := fn(f); err != nil {
			return err
		}
		resp = toCheckoutResponse(s.ID, c, f)
		return nil
	})
	h.metrics.CheckoutAction(action, err)
	if err != nil {
		handleError(w, r, err)
		return
	}

	h.sessions.Persist(ctx, s)
	respondJSON(w, http.StatusOK, resp)
}

// ConfirmCheckout records the sale under review and empties the cart. A
// failed attempt leaves the cart and review untouched for a retry.
func (h *SessionHandler) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ConfirmRequestDTO
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s, err := h.sessions.Get(ctx, chi.URLParam(r, "sid"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	operatorID := OperatorFromContext(r.Context())
	var sale *domain.Sale
	err = s.Do(func(_ *cart.Store, f *checkout.Flow) error {
		var err error
		sale, err = f.Confirm(ctx, operatorID, req.CustomerID)
		return err
	})
	h.metrics.CheckoutAction("confirm", err)
	if err != nil {
		handleError(w, r, err)
		return
	}

	h.sessions.Persist(ctx, s)
	h.metrics.ObserveSale(sale)
	logger.FromContext(r.Context()).Info().
		Str("session_id", s.ID).
		Str("sale_id", sale.ID).
		Str("payment_method", sale.PaymentMethod.String()).
		Str("total", sale.Total.StringFixed(2)).
		Msg("sale confirmed")

	respondJSON(w, http.StatusCreated, ConfirmResponse{Sale: sale, Receipt: sale.Receipt()})
}

func toCartResponse(sessionID string, snapshot domain.CartSnapshot) CartResponse {
	lines := make([]CartLineResponse, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		lines = append(lines, CartLineResponse{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Subtotal: item.Subtotal(),
		})
	}
	return CartResponse{SessionID: sessionID, Items: lines, Total: snapshot.Total}
}

func toCheckoutResponse(sessionID string, c *cart.Store, f *checkout.Flow) CheckoutResponse {
	return CheckoutResponse{
		SessionID:     sessionID,
		State:         f.State(),
		PaymentMethod: f.PaymentMethod(),
		PendingSaleID: f.PendingSaleID(),
		Cart:          toCartResponse(sessionID, c.Snapshot()),
	}
}
