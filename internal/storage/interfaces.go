package storage

import (
	"context"
	"io"
	"math/big"

	"github.com/hamza-akhtar-dev/bondcurve/internal/models"
)

// QuoteCache defines the interface for the hot quote-event cache.
type QuoteCache interface {
	// AddRecentQuote pushes a quote event onto the recent-quotes list.
	AddRecentQuote(ctx context.Context, q *models.QuoteEvent) error

	// GetRecentQuotes returns the most recent quote events, newest first.
	GetRecentQuotes(ctx context.Context, limit int64) ([]*models.QuoteEvent, error)

	// UpdateLastPrice stores the most recently computed price (WAD string).
	UpdateLastPrice(ctx context.Context, price string) error

	// GetLastPrice returns the most recently computed price (WAD string).
	GetLastPrice(ctx context.Context) (string, error)

	// PublishQuote broadcasts a quote event to live subscribers.
	PublishQuote(ctx context.Context, q *models.QuoteEvent) error

	// Ping checks if the cache is reachable.
	Ping(ctx context.Context) error

	io.Closer
}

// QuoteStore defines the interface for durable quote-event history.
type QuoteStore interface {
	// InsertQuote appends a quote event to the history table.
	InsertQuote(ctx context.Context, q *models.QuoteEvent) error

	// Ping checks if the store is reachable.
	Ping(ctx context.Context) error

	io.Closer
}

// SupplyLedger defines the interface for the demo settlement collaborator:
// it owns the circulating supply the engine prices against.
type SupplyLedger interface {
	// Supply returns the current circulating supply in WAD.
	Supply(ctx context.Context) (*big.Int, error)

	// ApplyDelta moves the supply by delta (positive mints, negative burns)
	// and returns the new supply. The update is atomic.
	ApplyDelta(ctx context.Context, delta *big.Int) (*big.Int, error)
}
