package session

import (
	"sync"
	"time"

	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/checkout"
	"github.com/fjod/go_pos/internal/domain"
)

// Session is one POS terminal's sale in progress. Every access goes through
// the session mutex, so the cart and checkout flow inside only ever see one
// caller. Reads and writes both count as terminal activity.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	cart         *cart.Store
	checkout     *checkout.Flow
	clock        func() time.Time
	lastActivity time.Time

	// version advances on every successful write; stored is the last version
	// the cache accepted. They match when the cache holds the current cart.
	version uint64
	stored  uint64
}

func newSession(id string, recorder checkout.SaleRecorder, clock func() time.Time) *Session {
	c := cart.NewStore()
	now := clock()
	return &Session{
		ID:           id,
		CreatedAt:    now.UTC(),
		cart:         c,
		checkout:     checkout.NewFlow(c, recorder),
		clock:        clock,
		lastActivity: now,
		version:      1,
	}
}

// Do runs fn with exclusive access to the session's cart and checkout flow
// and returns its error. A failed fn must leave the session unchanged.
func (s *Session) Do(fn func(c *cart.Store, f *checkout.Flow) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.cart, s.checkout)
	s.touch(err == nil)
	return err
}

// Update is Do for changes that cannot fail.
func (s *Session) Update(fn func(c *cart.Store, f *checkout.Flow)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(true)
	fn(s.cart, s.checkout)
}

// View gives fn read access. It keeps the session alive but leaves the
// cached copy current.
func (s *Session) View(fn func(c *cart.Store, f *checkout.Flow)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(false)
	fn(s.cart, s.checkout)
}

func (s *Session) Snapshot() domain.CartSnapshot {
	var snapshot domain.CartSnapshot
	s.View(func(c *cart.Store, _ *checkout.Flow) {
		snapshot = c.Snapshot()
	})
	return snapshot
}

func (s *Session) CheckoutState() (checkout.State, domain.PaymentMethod) {
	var (
		state  checkout.State
		method domain.PaymentMethod
	)
	s.View(func(_ *cart.Store, f *checkout.Flow) {
		state, method = f.State(), f.PaymentMethod()
	})
	return state, method
}

// touch must be called with mu held.
func (s *Session) touch(write bool) {
	s.lastActivity = s.clock()
	if write {
		s.version++
	}
}

// pending returns the cart to write to the cache along with its version.
// It does not count as activity.
func (s *Session) pending() (domain.CartSnapshot, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot(), s.version
}

func (s *Session) markStored(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version > s.stored {
		s.stored = version
	}
}

// evictable reports whether the session may leave memory at now. A session
// in review keeps checkout state the cache does not hold, and one with
// unstored writes would come back stale.
func (s *Session) evictable(now time.Time, idleTimeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastActivity) <= idleTimeout {
		return false
	}
	if s.checkout.State() == checkout.StateReviewing {
		return false
	}
	return s.stored == s.version
}
