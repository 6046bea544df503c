package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hamza-akhtar-dev/bondcurve/internal/constants"
	"github.com/hamza-akhtar-dev/bondcurve/internal/models"
)

// RedisCache keeps the hot quote data: a capped list of recent quote events,
// the last computed price, and a pub/sub channel for live subscribers.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisCacheFromClient wraps an existing Redis client.
func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// AddRecentQuote pushes the event onto the recent list and trims it to the
// configured cap.
func (r *RedisCache) AddRecentQuote(ctx context.Context, q *models.QuoteEvent) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentQuotes, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentQuotes, 0, constants.MaxRecentQuotes-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push recent quote: %w", err)
	}
	return nil
}

// GetRecentQuotes returns up to limit events, newest first.
func (r *RedisCache) GetRecentQuotes(ctx context.Context, limit int64) ([]*models.QuoteEvent, error) {
	if limit <= 0 || limit > constants.MaxRecentQuotes {
		limit = constants.MaxRecentQuotes
	}

	raw, err := r.client.LRange(ctx, constants.RedisKeyRecentQuotes, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent quotes: %w", err)
	}

	out := make([]*models.QuoteEvent, 0, len(raw))
	for _, item := range raw {
		var q models.QuoteEvent
		if err := json.Unmarshal([]byte(item), &q); err != nil {
			r.logger.WithError(err).Warn("skipping malformed quote event in cache")
			continue
		}
		out = append(out, &q)
	}
	return out, nil
}

// UpdateLastPrice stores the latest computed price as a WAD decimal string.
func (r *RedisCache) UpdateLastPrice(ctx context.Context, price string) error {
	if err := r.client.Set(ctx, constants.RedisKeyLastPrice, price, 0).Err(); err != nil {
		return fmt.Errorf("set last price: %w", err)
	}
	return nil
}

// GetLastPrice returns the latest computed price, or empty when none exists.
func (r *RedisCache) GetLastPrice(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, constants.RedisKeyLastPrice).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get last price: %w", err)
	}
	return val, nil
}

// PublishQuote broadcasts the event on the live channel, plus a per-operation
// channel so subscribers can filter by op without client-side decoding.
func (r *RedisCache) PublishQuote(ctx context.Context, q *models.QuoteEvent) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Publish(ctx, constants.PubSubChannelQuotes, data)
	pipe.Publish(ctx, fmt.Sprintf("%s:%s", constants.PubSubChannelQuotes, q.Op), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish quote: %w", err)
	}
	return nil
}

// SubscribeQuotes delivers live quote events until the context is cancelled.
func (r *RedisCache) SubscribeQuotes(ctx context.Context) (<-chan *models.QuoteEvent, error) {
	pubsub := r.client.Subscribe(ctx, constants.PubSubChannelQuotes)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe quotes: %w", err)
	}

	out := make(chan *models.QuoteEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var q models.QuoteEvent
				if err := json.Unmarshal([]byte(msg.Payload), &q); err != nil {
					r.logger.WithError(err).Warn("skipping malformed quote event on pubsub")
					continue
				}
				select {
				case out <- &q:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
