package models

import "time"

// Operation names recorded with every quote event.
const (
	OpPrice     = "price"
	OpSellQuote = "sell_quote"
	OpBuyQuote  = "buy_quote"
	OpCostQuote = "cost_quote"
	OpImpact    = "impact"
	OpTradeBuy  = "trade_buy"
	OpTradeSell = "trade_sell"
)

// QuoteEvent is one priced (or rejected) request against the curve. Numeric
// fields are WAD values rendered as decimal strings so downstream consumers
// never see float rounding. The engine itself emits nothing; events are
// assembled by the API layer around each call.
type QuoteEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Op        string    `json:"op"`

	Supply string `json:"supply"`           // circulating supply the call was made at
	Amount string `json:"amount,omitempty"` // token delta, when the op has one
	Funds  string `json:"funds,omitempty"`  // reserve-asset delta, when the op has one

	Price     string `json:"price,omitempty"`      // price at Supply
	ImpactBps string `json:"impact_bps,omitempty"` // basis points, impact ops only

	Accepted     bool   `json:"accepted"`
	RejectCode   string `json:"reject_code,omitempty"`
	RejectReason string `json:"reject_reason,omitempty"`
}
