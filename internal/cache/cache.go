package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_pos/internal/domain"
)

// CartCache keeps the last known cart of a POS session so the session can be
// restored after a restart.
type CartCache interface {
	Get(ctx context.Context, sessionID string) (*domain.CartSnapshot, error)
	Set(ctx context.Context, sessionID string, cart *domain.CartSnapshot) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache is used when no Redis is configured. Every Get is a miss, so
// sessions must stay in memory for as long as they are open.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*domain.CartSnapshot, error) {
	return nil, ErrCacheMiss
}

func (NopCache) Set(context.Context, string, *domain.CartSnapshot) error {
	return nil
}

func (NopCache) Delete(context.Context, string) error {
	return nil
}
