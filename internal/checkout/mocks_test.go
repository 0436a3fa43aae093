package checkout

import (
	"context"

	"github.com/fjod/go_pos/internal/domain"
)

type mockRecorder struct {
	err       error
	sales     []*domain.Sale
	callCount int
}

func (m *mockRecorder) RecordSale(_ context.Context, sale *domain.Sale) error {
	m.callCount++
	if m.err != nil {
		return m.err
	}
	m.sales = append(m.sales, sale)
	return nil
}
