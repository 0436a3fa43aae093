package http

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

type ProductRepoMock struct {
	mu       sync.Mutex
	products []*domain.Product
	err      error
}

func newProductRepoMock() *ProductRepoMock {
	return &ProductRepoMock{products: []*domain.Product{
		{ID: "1", Name: "Coca-Cola 2L", Price: decimal.RequireFromString("8.99"), Stock: 50, Category: "Bebidas", Barcode: strPtr("7894900011111")},
		{ID: "2", Name: "Arroz 5kg", Price: decimal.RequireFromString("25.90"), Stock: 30, Category: "Alimentos", Barcode: strPtr("7894900022222")},
		{ID: "3", Name: "Feijão 1kg", Price: decimal.RequireFromString("9.50"), Stock: 40, Category: "Alimentos", Barcode: strPtr("7894900033333")},
		{ID: "4", Name: "Sabão em Pó 1kg", Price: decimal.RequireFromString("12.90"), Stock: 25, Category: "Limpeza", Barcode: strPtr("7894900044444")},
		{ID: "5", Name: "Água 500ml", Price: decimal.RequireFromString("2.50"), Stock: 100, Category: "Bebidas", Barcode: strPtr("7894900055555")},
	}}
}

func (m *ProductRepoMock) ListProducts(context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]*domain.Product(nil), m.products...), nil
}

func (m *ProductRepoMock) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *ProductRepoMock) CreateProduct(_ context.Context, in domain.CreateProductInput) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p := &domain.Product{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
		Barcode:     in.Barcode,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	m.products = append(m.products, p)
	return p, nil
}

func (m *ProductRepoMock) UpdateProduct(_ context.Context, id string, in domain.CreateProductInput) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			p.Name, p.Description, p.Price, p.Stock, p.Category, p.Barcode = in.Name, in.Description, in.Price, in.Stock, in.Category, in.Barcode
			p.UpdatedAt = time.Now().UTC()
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *ProductRepoMock) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.products {
		if p.ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return repository.ErrProductNotFound
}

// SaleRepoMock keeps sales in memory and honours idempotency keys the way the
// SQL repository does.
type SaleRepoMock struct {
	mu          sync.Mutex
	sales       []*domain.Sale
	createErr   error
	createCalls int
}

func (m *SaleRepoMock) CreateSale(_ context.Context, sale *domain.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	for _, s := range m.sales {
		if s.IdempotencyKey == sale.IdempotencyKey {
			return repository.ErrDuplicateSale
		}
	}
	m.sales = append(m.sales, sale)
	return nil
}

func (m *SaleRepoMock) RecordSale(ctx context.Context, sale *domain.Sale) error {
	err := m.CreateSale(ctx, sale)
	if err == repository.ErrDuplicateSale {
		return nil
	}
	return err
}

func (m *SaleRepoMock) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sales {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrSaleNotFound
}

func (m *SaleRepoMock) GetSaleByIdempotencyKey(_ context.Context, key string) (*domain.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sales {
		if s.IdempotencyKey == key {
			return s, nil
		}
	}
	return nil, repository.ErrSaleNotFound
}

func (m *SaleRepoMock) ListSales(context.Context) ([]*domain.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Sale, 0, len(m.sales))
	for i := len(m.sales) - 1; i >= 0; i-- {
		out = append(out, m.sales[i])
	}
	return out, nil
}

func (m *SaleRepoMock) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales)
}
