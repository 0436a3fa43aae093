package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productIDs(products []*domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestListProducts_All(t *testing.T) {
	srv := setupServer(t)

	recorder := srv.do(http.MethodGet, "/api/v1/products", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decode[ProductsResponse](t, recorder)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, productIDs(resp.Products))
}

func TestListProducts_SearchByName(t *testing.T) {
	srv := setupServer(t)

	recorder := srv.do(http.MethodGet, "/api/v1/products?q=COCA", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decode[ProductsResponse](t, recorder)
	assert.Equal(t, []string{"1"}, productIDs(resp.Products))
}

func TestListProducts_SearchByBarcode(t *testing.T) {
	srv := setupServer(t)

	recorder := srv.do(http.MethodGet, "/api/v1/products?q=789490003", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decode[ProductsResponse](t, recorder)
	assert.Equal(t, []string{"3"}, productIDs(resp.Products))
}

func TestListProducts_NoMatchIsEmptyArray(t *testing.T) {
	srv := setupServer(t)

	recorder := srv.do(http.MethodGet, "/api/v1/products?q=chocolate", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"products":[]}`, recorder.Body.String())
}

func TestListProducts_RepositoryError(t *testing.T) {
	srv := setupServer(t)
	srv.products.err = errors.New("database is locked")

	recorder := srv.do(http.MethodGet, "/api/v1/products", nil)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	resp := decode[ErrorResponse](t, recorder)
	assert.Equal(t, "internal_error", resp.Code)
	assert.NotContains(t, resp.Error, "locked")
}

func TestGetProduct(t *testing.T) {
	srv := setupServer(t)

	recorder := srv.do(http.MethodGet, "/api/v1/products/2", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	product := decode[domain.Product](t, recorder)
	assert.Equal(t, "Arroz 5kg", product.Name)
	assert.Equal(t, "25.90", product.Price.StringFixed(2))
}

func TestGetProduct_NotFound(t *testing.T) {
	srv := setupServer(t)

	recorder := srv.do(http.MethodGet, "/api/v1/products/999", nil)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "product_not_found", decode[ErrorResponse](t, recorder).Code)
}

func TestCreateProduct(t *testing.T) {
	srv := setupServer(t)

	recorder := srv.do(http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":     "  Pão Francês ",
		"price":    "0.75",
		"stock":    200,
		"category": "Padaria",
		"barcode":  " ",
	})

	require.Equal(t, http.StatusCreated, recorder.Code)
	product := decode[domain.Product](t, recorder)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "Pão Francês", product.Name)
	assert.Equal(t, "0.75", product.Price.StringFixed(2))
	assert.Nil(t, product.Barcode)

	recorder = srv.do(http.MethodGet, "/api/v1/products?q=p%C3%A3o", nil)
	assert.Equal(t, []string{product.ID}, productIDs(decode[ProductsResponse](t, recorder).Products))
}

func TestCreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{"invalid json", `{"name":`, "invalid_request"},
		{"missing name", map[string]interface{}{"name": " ", "price": "1"}, "invalid_name"},
		{"negative price", map[string]interface{}{"name": "x", "price": "-1"}, "invalid_price"},
		{"negative stock", map[string]interface{}{"name": "x", "price": "1", "stock": -1}, "invalid_stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupServer(t)

			recorder := srv.do(http.MethodPost, "/api/v1/products", tt.body)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, recorder).Code)
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	srv := setupServer(t)

	recorder := srv.do(http.MethodPut, "/api/v1/products/1", map[string]interface{}{
		"name":    "Coca-Cola 2L",
		"price":   "9.49",
		"stock":   10,
		"barcode": "7894900011111",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "9.49", decode[domain.Product](t, recorder).Price.StringFixed(2))
}

func TestUpdateProduct_NotFound(t *testing.T) {
	srv := setupServer(t)

	recorder := srv.do(http.MethodPut, "/api/v1/products/999", map[string]interface{}{"name": "x", "price": "1"})

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestDeleteProduct(t *testing.T) {
	srv := setupServer(t)

	recorder := srv.do(http.MethodDelete, "/api/v1/products/5", nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = srv.do(http.MethodGet, "/api/v1/products/5", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = srv.do(http.MethodDelete, "/api/v1/products/5", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
