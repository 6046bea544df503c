package constants

// Redis keys
const (
	RedisKeyRecentQuotes = "quotes:recent"
	RedisKeyLastPrice    = "price:last"
	RedisKeySupply       = "ledger:supply"
)

// Redis Pub/Sub channels
const (
	PubSubChannelQuotes = "quotes:live"
)

// Limits
const (
	MaxRecentQuotes = 100
)
