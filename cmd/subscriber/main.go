package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hamza-akhtar-dev/bondcurve/internal/cache"
	"github.com/hamza-akhtar-dev/bondcurve/internal/config"
)

// cmd/subscriber tails the live quote feed: every priced or rejected request
// published by the API is printed as it happens.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer rclient.Close()

	quoteCache := cache.NewRedisCacheFromClient(rclient, logger)

	events, err := quoteCache.SubscribeQuotes(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe to quote feed")
	}

	logger.Info("subscriber running, press Ctrl+C to stop")

	for {
		select {
		case <-sigCh:
			logger.Info("shutting down subscriber")
			return
		case ev, ok := <-events:
			if !ok {
				logger.Info("quote feed closed")
				return
			}
			fields := logrus.Fields{
				"op":       ev.Op,
				"supply":   ev.Supply,
				"accepted": ev.Accepted,
			}
			if ev.Amount != "" {
				fields["amount"] = ev.Amount
			}
			if ev.Funds != "" {
				fields["funds"] = ev.Funds
			}
			if ev.Price != "" {
				fields["price"] = ev.Price
			}
			if ev.RejectCode != "" {
				fields["reject_code"] = ev.RejectCode
			}
			logger.WithFields(fields).Info("quote event")
		}
	}
}
