package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodPix  PaymentMethod = "pix"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodPix:
		return true
	}
	return false
}

// String representation (for logging)
func (m PaymentMethod) String() string {
	return string(m)
}

type SaleItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Sale struct {
	ID             string          `json:"id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Items          []SaleItem      `json:"items"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	CustomerID     *string         `json:"customer_id,omitempty"`
	OperatorID     string          `json:"operator_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SaleItemsFromCart converts cart lines into sale items, keeping cart order.
func SaleItemsFromCart(lines []CartLineItem) []SaleItem {
	items := make([]SaleItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, SaleItem{
			ProductID:   line.ID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			Price:       line.Price,
			Subtotal:    line.Subtotal(),
		})
	}
	return items
}

// Receipt renders the completion summary shown to the operator.
func (s *Sale) Receipt() string {
	var b strings.Builder
	b.WriteString("Venda finalizada!\n")
	for _, item := range s.Items {
		fmt.Fprintf(&b, "%dx %s  R$ %s\n", item.Quantity, item.ProductName, item.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: R$ %s\n", s.Total.StringFixed(2))
	fmt.Fprintf(&b, "Forma de pagamento: %s", s.PaymentMethod)
	return b.String()
}

type SaleItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateSaleInput is the body accepted by the sales endpoint.
type CreateSaleInput struct {
	Items         []SaleItemInput `json:"items"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	CustomerID    *string         `json:"customerId,omitempty"`
}
