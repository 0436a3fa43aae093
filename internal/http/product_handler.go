package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_pos/internal/catalog"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/logger"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	products repository.ProductRepository
	timeout  time.Duration
}

func NewProductHandler(products repository.ProductRepository, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
	}
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

// List returns the catalog, narrowed by ?q= on name or barcode.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := catalog.Search(ctx, h.products, r.URL.Query().Get("q"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.CreateProductInput
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if code, msg := validateProduct(&req); code != "" {
		respondError(w, http.StatusBadRequest, code, msg)
		return
	}

	product, err := h.products.CreateProduct(ctx, req)
	if err != nil {
		handleError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info().Str("product_id", product.ID).Msg("product created")
	respondJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.CreateProductInput
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if code, msg := validateProduct(&req); code != "" {
		respondError(w, http.StatusBadRequest, code, msg)
		return
	}

	product, err := h.products.UpdateProduct(ctx, chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.products.DeleteProduct(ctx, id); err != nil {
		handleError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info().Str("product_id", id).Msg("product deleted")
	w.WriteHeader(http.StatusNoContent)
}

// validateProduct trims the input in place and returns an error code when it
// is not acceptable.
func validateProduct(in *domain.CreateProductInput) (string, string) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return "invalid_name", "name is required"
	}
	if in.Price.IsNegative() {
		return "invalid_price", "price must not be negative"
	}
	if in.Stock < 0 {
		return "invalid_stock", "stock must not be negative"
	}
	if in.Barcode != nil {
		barcode := strings.TrimSpace(*in.Barcode)
		if barcode == "" {
			in.Barcode = nil
		} else {
			in.Barcode = &barcode
		}
	}
	return "", ""
}
