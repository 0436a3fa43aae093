package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/catalog"
	"github.com/fjod/go_pos/internal/checkout"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/logger"
	"github.com/fjod/go_pos/internal/metrics"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type SalesHandler struct {
	sales    repository.SaleRepository
	products catalog.Source
	metrics  *metrics.Metrics
	timeout  time.Duration
	now      func() time.Time
}

func NewSalesHandler(sales repository.SaleRepository, products catalog.Source, m *metrics.Metrics, timeout time.Duration) *SalesHandler {
	return &SalesHandler{
		sales:    sales,
		products: products,
		metrics:  m,
		timeout:  timeout,
		now:      time.Now,
	}
}

type SalesResponse struct {
	Sales []*domain.Sale `json:"sales"`
}

func (h *SalesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sales, err := h.sales.ListSales(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if sales == nil {
		sales = []*domain.Sale{}
	}

	respondJSON(w, http.StatusOK, &SalesResponse{Sales: sales})
}

func (h *SalesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sale, err := h.sales.GetSale(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sale)
}

// Create records a sale submitted in one request. Names and prices come from
// the catalog, never from the client. Replaying an Idempotency-Key returns the
// sale stored the first time.
func (h *SalesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key := r.Header.Get(IdempotencyKeyHeader)
	if key == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key header is required")
		return
	}

	var req domain.CreateSaleInput
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentMethodCash
	}
	if !req.PaymentMethod.Valid() {
		handleError(w, r, checkout.ErrInvalidPaymentMethod)
		return
	}
	if len(req.Items) == 0 {
		handleError(w, r, checkout.ErrEmptyCart)
		return
	}

	c := cart.NewStore()
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
			return
		}
		product, err := h.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		c.AddItem(domain.CartLineItem{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Quantity: item.Quantity,
		})
	}

	sale := &domain.Sale{
		ID:             uuid.New().String(),
		IdempotencyKey: key,
		Items:          domain.SaleItemsFromCart(c.Items()),
		Total:          c.Total(),
		PaymentMethod:  req.PaymentMethod,
		CustomerID:     req.CustomerID,
		OperatorID:     OperatorFromContext(r.Context()),
		CreatedAt:      h.now().UTC(),
	}

	err := h.sales.CreateSale(ctx, sale)
	if errors.Is(err, repository.ErrDuplicateSale) {
		existing, getErr := h.sales.GetSaleByIdempotencyKey(ctx, key)
		if getErr != nil {
			handleError(w, r, getErr)
			return
		}
		respondJSON(w, http.StatusOK, existing)
		return
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	h.metrics.ObserveSale(sale)
	logger.FromContext(r.Context()).Info().
		Str("sale_id", sale.ID).
		Str("payment_method", sale.PaymentMethod.String()).
		Str("total", sale.Total.StringFixed(2)).
		Msg("sale recorded")
	respondJSON(w, http.StatusCreated, sale)
}
