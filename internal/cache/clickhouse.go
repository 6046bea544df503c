package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/hamza-akhtar-dev/bondcurve/internal/models"
)

// ClickHouseStore persists the full quote history, accepted and rejected,
// for offline analytics. WAD values are stored as decimal strings to keep
// them exact.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

// ClickHouseConfig holds connection settings for the quote history store.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// NewClickHouseStore connects and verifies the connection.
func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping ClickHouse: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")
	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

// InsertQuote appends one quote event to the history table.
func (c *ClickHouseStore) InsertQuote(ctx context.Context, q *models.QuoteEvent) error {
	query := `
		INSERT INTO quotes (
			id, timestamp, op, supply, amount, funds,
			price, impact_bps, accepted, reject_code, reject_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		q.ID,
		q.Timestamp,
		q.Op,
		q.Supply,
		q.Amount,
		q.Funds,
		q.Price,
		q.ImpactBps,
		q.Accepted,
		q.RejectCode,
		q.RejectReason,
	)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close releases the connection.
func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
