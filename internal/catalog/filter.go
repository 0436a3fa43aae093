package catalog

import (
	"context"
	"strings"

	"github.com/fjod/go_pos/internal/domain"
	"golang.org/x/text/cases"
)

// Source supplies the read-only product list.
type Source interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// Filter returns the products whose name contains term (case-folded) or whose
// barcode contains term as a literal substring. Order is preserved and an
// empty term matches everything.
func Filter(products []*domain.Product, term string) []*domain.Product {
	if term == "" {
		out := make([]*domain.Product, len(products))
		copy(out, products)
		return out
	}

	// cases.Caser keeps state, so a fresh one per call.
	folder := cases.Fold()
	needle := folder.String(term)

	out := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(folder.String(p.Name), needle) ||
			(p.Barcode != nil && strings.Contains(*p.Barcode, term)) {
			out = append(out, p)
		}
	}
	return out
}

// Search loads the catalog from src and filters it by term.
func Search(ctx context.Context, src Source, term string) ([]*domain.Product, error) {
	products, err := src.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(products, term), nil
}
