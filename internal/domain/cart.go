package domain

import "github.com/shopspring/decimal"

// CartLineItem is one product entry in a cart. Name and Price are copied from
// the catalog when the line is first added.
type CartLineItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartSnapshot is a copy of the cart state at a point in time.
type CartSnapshot struct {
	Items []CartLineItem  `json:"items"`
	Total decimal.Decimal `json:"total"`
}
