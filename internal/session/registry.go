package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/checkout"
	"github.com/fjod/go_pos/internal/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultIdleTimeout is how long an untouched session stays in memory
	// when the caller passes no timeout of its own.
	DefaultIdleTimeout = 30 * time.Minute

	// CleanupInterval is how often idle sessions are evicted
	CleanupInterval = time.Minute
)

var ErrSessionNotFound = errors.New("session not found")

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cache       cache.CartCache
	durable     bool // false for NopCache: nothing evicted could come back
	recorder    checkout.SaleRecorder
	idleTimeout time.Duration
	now         func() time.Time
	sfg         singleflight.Group // one cache restore per session id
	log         zerolog.Logger

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewRegistry(c cache.CartCache, recorder checkout.SaleRecorder, log zerolog.Logger, idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	r := &Registry{
		sessions:    make(map[string]*Session),
		cache:       c,
		durable:     isDurable(c),
		recorder:    recorder,
		idleTimeout: idleTimeout,
		now:         time.Now,
		log:         log,
		stopCleanup: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop()

	return r
}

func isDurable(c cache.CartCache) bool {
	switch c.(type) {
	case nil, cache.NopCache, *cache.NopCache:
		return false
	}
	return true
}

// Create opens a session and stores its empty cart, so the session can be
// restored even if no item is ever added.
func (r *Registry) Create(ctx context.Context) *Session {
	s := newSession(uuid.New().String(), r.recorder, r.now)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.Persist(ctx, s)
	logger.FromContext(ctx).Info().Str("session_id", s.ID).Msg("pos session opened")
	return s
}

// Get returns a live session, restoring it from the cache when it is not in
// memory. Unknown ids yield ErrSessionNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err, _ := r.sfg.Do(id, func() (interface{}, error) {
		r.mu.RLock()
		s, ok := r.sessions[id]
		r.mu.RUnlock()
		if ok {
			return s, nil
		}

		snapshot, err := r.cache.Get(ctx, id)
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("restore session %s: %w", id, err)
		}

		s = newSession(id, r.recorder, r.now)
		s.cart.Restore(*snapshot)
		s.markStored(s.version)

		r.mu.Lock()
		r.sessions[id] = s
		r.mu.Unlock()

		logger.FromContext(ctx).Info().
			Str("session_id", id).
			Int("lines", s.cart.Len()).
			Msg("pos session restored from cache")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Persist writes the session's cart to the cache, empty carts included.
// Cache failures are logged and otherwise ignored: the in-memory cart stays
// authoritative and the session is not evicted until a later write lands.
func (r *Registry) Persist(ctx context.Context, s *Session) {
	snapshot, version := s.pending()

	if err := r.cache.Set(ctx, s.ID, &snapshot); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("session_id", s.ID).Msg("cart cache write failed")
		return
	}
	s.markStored(version)
}

// End drops the session from memory and cache.
func (r *Registry) End(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if err := r.cache.Delete(ctx, id); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("session_id", id).Msg("cart cache delete failed")
	}
	if !ok {
		return ErrSessionNotFound
	}

	logger.FromContext(ctx).Info().Str("session_id", id).Msg("pos session closed")
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle(time.Now())
		case <-r.stopCleanup:
			return
		}
	}
}

// evictIdle drops sessions untouched for longer than the idle timeout whose
// cart the cache can give back. Without a durable cache nothing is evicted.
func (r *Registry) evictIdle(now time.Time) {
	if !r.durable {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.evictable(now, r.idleTimeout) {
			delete(r.sessions, id)
			r.log.Debug().Str("session_id", id).Msg("idle pos session evicted")
		}
	}
}

// Close stops the background cleanup and waits for it to finish
func (r *Registry) Close() error {
	close(r.stopCleanup)
	r.wg.Wait()
	return nil
}

