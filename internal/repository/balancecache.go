package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrBalanceNotCached indicates the balance is not present in the cache
var ErrBalanceNotCached = errors.New("balance not found in cache")

// BalanceCache is a cache-aside layer over account balances. It is a read
// optimization only: the ledger remains the source of truth and every
// mutation invalidates or rewrites the cached value after commit.
type BalanceCache interface {
	Get(ctx context.Context, accountID uuid.UUID) (int64, error)
	Set(ctx context.Context, accountID uuid.UUID, balance int64) error
	Invalidate(ctx context.Context, accountID uuid.UUID) error
}

type balanceCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewBalanceCache creates a redis-backed BalanceCache
func NewBalanceCache(client *redis.Client, ttl time.Duration) BalanceCache {
	return &balanceCache{
		client: client,
		prefix: "balance:",
		ttl:    ttl,
	}
}

func (c *balanceCache) Get(ctx context.Context, accountID uuid.UUID) (int64, error) {
	value, err := c.client.Get(ctx, c.key(accountID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrBalanceNotCached
		}
		return 0, fmt.Errorf("failed to get balance from cache: %w", err)
	}

	balance, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse cached balance: %w", err)
	}

	return balance, nil
}

func (c *balanceCache) Set(ctx context.Context, accountID uuid.UUID, balance int64) error {
	err := c.client.Set(ctx, c.key(accountID), strconv.FormatInt(balance, 10), c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set balance in cache: %w", err)
	}
	return nil
}

func (c *balanceCache) Invalidate(ctx context.Context, accountID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(accountID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached balance: %w", err)
	}
	return nil
}

func (c *balanceCache) key(accountID uuid.UUID) string {
	return c.prefix + accountID.String()
}
