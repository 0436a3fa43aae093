package cart

import (
	"github.com/fjod/go_pos/internal/domain"
	"github.com/shopspring/decimal"
)

// Store holds one in-progress sale. It is not safe for concurrent use; the
// owner serializes access.
type Store struct {
	items []domain.CartLineItem
}

func NewStore() *Store {
	return &Store{}
}

// AddItem appends a new line, or adds item.Quantity to the line that already
// has the same ID. Negative quantities are clamped to zero and a zero add
// changes nothing.
func (s *Store) AddItem(item domain.CartLineItem) {
	if item.Quantity <= 0 {
		return
	}
	if i := s.indexOf(item.ID); i >= 0 {
		s.items[i].Quantity += item.Quantity
		return
	}
	s.items = append(s.items, item)
}

func (s *Store) RemoveItem(id string) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
}

// UpdateQuantity sets the quantity of an existing line. A quantity <= 0
// removes the line.
func (s *Store) UpdateQuantity(id string, quantity int) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	if quantity <= 0 {
		s.RemoveItem(id)
		return
	}
	s.items[i].Quantity = quantity
}

func (s *Store) ClearCart() {
	s.items = nil
}

// Total is computed on every call from the current lines.
func (s *Store) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (s *Store) Items() []domain.CartLineItem {
	items := make([]domain.CartLineItem, len(s.items))
	copy(items, s.items)
	return items
}

func (s *Store) Item(id string) (domain.CartLineItem, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return domain.CartLineItem{}, false
}

func (s *Store) Len() int {
	return len(s.items)
}

func (s *Store) IsEmpty() bool {
	return len(s.items) == 0
}

func (s *Store) Snapshot() domain.CartSnapshot {
	return domain.CartSnapshot{
		Items: s.Items(),
		Total: s.Total(),
	}
}

// Restore replaces the cart contents with the lines of a snapshot. Lines go
// through AddItem so a malformed snapshot cannot break the one-line-per-ID
// rule.
func (s *Store) Restore(snapshot domain.CartSnapshot) {
	s.ClearCart()
	for _, item := range snapshot.Items {
		s.AddItem(item)
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
