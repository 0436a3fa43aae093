package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/redis/go-redis/v9"
)

// maxTTLJitter spreads expiry so carts opened together do not expire together.
const maxTTLJitter = 5 * time.Minute

// RedisCache keeps one cart per POS session. Expiry slides: every read or
// write pushes it out by the session TTL, so a terminal in use never loses
// its cart.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, sessionTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: sessionTTL}
}

// storedCart is the value kept under a session key.
type storedCart struct {
	SessionID string              `json:"session_id"`
	SavedAt   time.Time           `json:"saved_at"`
	Cart      domain.CartSnapshot `json:"cart"`
}

func (r *RedisCache) Get(ctx context.Context, sessionID string) (*domain.CartSnapshot, error) {
	raw, err := r.client.GetEx(ctx, sessionCartKey(sessionID), r.expiry()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("load session %s cart: %w", sessionID, err)
	}

	var stored storedCart
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode session %s cart: %w", sessionID, err)
	}
	if stored.SessionID != sessionID {
		return nil, fmt.Errorf("decode session %s cart: stored under session %q", sessionID, stored.SessionID)
	}
	return &stored.Cart, nil
}

// Set stores the cart, empty carts included, so the session itself stays
// restorable.
func (r *RedisCache) Set(ctx context.Context, sessionID string, cart *domain.CartSnapshot) error {
	raw, err := json.Marshal(storedCart{
		SessionID: sessionID,
		SavedAt:   time.Now().UTC(),
		Cart:      *cart,
	})
	if err != nil {
		return fmt.Errorf("encode session %s cart: %w", sessionID, err)
	}

	if err := r.client.Set(ctx, sessionCartKey(sessionID), raw, r.expiry()).Err(); err != nil {
		return fmt.Errorf("store session %s cart: %w", sessionID, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionCartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("drop session %s cart: %w", sessionID, err)
	}
	return nil
}

func (r *RedisCache) expiry() time.Duration {
	return r.ttl + rand.N(maxTTLJitter)
}

// sessionCartKey hash-tags the session id so every key of one session lands
// on the same cluster slot.
func sessionCartKey(sessionID string) string {
	return "pos:session:{" + sessionID + "}:cart"
}
