// Package ledger holds the circulating supply the curve engine prices
// against. The engine itself never stores supply; this is the settlement
// collaborator that feeds it and applies its outputs.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/redis/go-redis/v9"

	"github.com/hamza-akhtar-dev/bondcurve/internal/constants"
)

// ErrNegativeSupply is returned when a delta would burn more tokens than
// exist. The supply is left untouched.
var ErrNegativeSupply = errors.New("ledger: delta would make supply negative")

// maxApplyRetries bounds the optimistic-locking loop under contention.
const maxApplyRetries = 16

// Store keeps the supply in Redis as a WAD decimal integer string and
// applies deltas with optimistic locking so concurrent trades never lose
// updates.
type Store struct {
	client *redis.Client
}

// NewStore wraps an existing Redis client.
func NewStore(client *redis.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

// Supply returns the current circulating supply. A missing key reads as zero.
func (s *Store) Supply(ctx context.Context) (*big.Int, error) {
	val, err := s.client.Get(ctx, constants.RedisKeySupply).Result()
	if err == redis.Nil {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get supply: %w", err)
	}
	return parseSupply(val)
}

// ApplyDelta atomically moves the supply by delta and returns the new value.
// Positive deltas mint, negative deltas burn. Fails with ErrNegativeSupply
// when a burn exceeds the current supply.
func (s *Store) ApplyDelta(ctx context.Context, delta *big.Int) (*big.Int, error) {
	var updated *big.Int

	txn := func(tx *redis.Tx) error {
		cur := big.NewInt(0)
		val, err := tx.Get(ctx, constants.RedisKeySupply).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("get supply: %w", err)
		}
		if err == nil {
			cur, err = parseSupply(val)
			if err != nil {
				return err
			}
		}

		next := new(big.Int).Add(cur, delta)
		if next.Sign() < 0 {
			return ErrNegativeSupply
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, constants.RedisKeySupply, next.String(), 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	}

	for i := 0; i < maxApplyRetries; i++ {
		err := s.client.Watch(ctx, txn, constants.RedisKeySupply)
		if err == redis.TxFailedErr {
			continue // another writer raced us, retry on fresh state
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("apply delta: too many concurrent supply updates")
}

func parseSupply(val string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(val, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt supply value %q", val)
	}
	return n, nil
}
