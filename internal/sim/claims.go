package sim

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClaimRegistry enforces the single-claim constraint: exactly one driver
// may claim an order. This registry, not the clients, is the source of
// truth for who got there first.
type ClaimRegistry interface {
	// Claim records driver as the claimant of orderID. It returns the
	// winning driver, which is the caller on success and the earlier
	// claimant when the order was already taken.
	Claim(ctx context.Context, orderID, driver string) (winner string, won bool, err error)
}

type MemoryClaims struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewMemoryClaims() *MemoryClaims {
	return &MemoryClaims{owners: make(map[string]string)}
}

func (m *MemoryClaims) Claim(ctx context.Context, orderID, driver string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.owners[orderID]; ok {
		return owner, owner == driver, nil
	}
	m.owners[orderID] = driver
	return driver, true, nil
}

// RedisClaims uses SETNX so claims stay atomic across simserver replicas.
type RedisClaims struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClaims(addr, password string) *RedisClaims {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisClaims{client: c, ttl: 24 * time.Hour}
}

func claimKey(orderID string) string { return "order:claim:" + orderID }

func (r *RedisClaims) Claim(ctx context.Context, orderID, driver string) (string, bool, error) {
	won, err := r.client.SetNX(ctx, claimKey(orderID), driver, r.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if won {
		return driver, true, nil
	}
	owner, err := r.client.Get(ctx, claimKey(orderID)).Result()
	if err != nil {
		return "", false, err
	}
	return owner, owner == driver, nil
}
