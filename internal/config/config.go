package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/hamza-akhtar-dev/bondcurve/internal/curve"
	"github.com/hamza-akhtar-dev/bondcurve/pkg/wad"
)

type Config struct {
	// Curve parameters, parsed from decimal strings (e.g. "0.000001").
	CurveA *big.Int
	CurveB *big.Int

	// Safety limits, all optional overrides of curve.DefaultLimits.
	MaxSupply          *big.Int
	MaxTxSize          *big.Int
	MinRemainingSupply *big.Int
	MaxExpValue        *big.Int

	// HTTP API settings
	APIAddr     string
	APIKey      string
	DevMode     bool
	HTTPTimeout time.Duration

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// LLM settings (optional, enables the analytics agent)
	OpenRouterAPIKey string
	AIModel          string
}

func Load() (*Config, error) {
	cfg := &Config{
		APIAddr:     getEnv("API_ADDR", ":8090"),
		APIKey:      getEnv("API_KEY", ""),
		DevMode:     getBoolEnv("DEV_MODE", false),
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 10*time.Second),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "curve"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", "openai/gpt-4.1-mini"),
	}

	var err error
	if cfg.CurveA, err = getWadEnv("CURVE_A", "1"); err != nil {
		return nil, err
	}
	if cfg.CurveB, err = getWadEnv("CURVE_B", "0.000001"); err != nil {
		return nil, err
	}

	defaults := curve.DefaultLimits()
	if cfg.MaxSupply, err = getWadEnvBig("CURVE_MAX_SUPPLY", defaults.MaxSupply); err != nil {
		return nil, err
	}
	if cfg.MaxTxSize, err = getWadEnvBig("CURVE_MAX_TX_SIZE", defaults.MaxTxSize); err != nil {
		return nil, err
	}
	if cfg.MinRemainingSupply, err = getWadEnvBig("CURVE_MIN_REMAINING_SUPPLY", defaults.MinRemainingSupply); err != nil {
		return nil, err
	}
	if cfg.MaxExpValue, err = getWadEnvBig("CURVE_MAX_EXP_VALUE", defaults.MaxExpValue); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the engine constructor would refuse, so
// misconfiguration fails at boot rather than on the first request.
func (c *Config) Validate() error {
	_, err := curve.New(
		curve.Params{A: c.CurveA, B: c.CurveB},
		c.Limits(),
	)
	if err != nil {
		return fmt.Errorf("curve configuration: %w", err)
	}
	if c.APIAddr == "" {
		return fmt.Errorf("API_ADDR must not be empty")
	}
	return nil
}

// Limits assembles the configured safety bounds.
func (c *Config) Limits() curve.Limits {
	return curve.Limits{
		MaxSupply:          c.MaxSupply,
		MaxTxSize:          c.MaxTxSize,
		MinRemainingSupply: c.MinRemainingSupply,
		MaxExpValue:        c.MaxExpValue,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getWadEnv(key, defaultVal string) (*big.Int, error) {
	val := getEnv(key, defaultVal)
	v, err := wad.Parse(val)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid decimal %q: %w", key, val, err)
	}
	return v, nil
}

func getWadEnvBig(key string, defaultVal *big.Int) (*big.Int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	v, err := wad.Parse(val)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid decimal %q: %w", key, val, err)
	}
	return v, nil
}
