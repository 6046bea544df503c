package server

// ErrorResponse is the standardized error envelope. RejectCode is set for
// curve rejections so settlement callers can branch without string matching.
type ErrorResponse struct {
	Error      string `json:"error"`                 // Human-readable error message
	Code       int    `json:"code"`                  // HTTP status code
	RejectCode string `json:"reject_code,omitempty"` // Machine-readable curve rejection
	Details    any    `json:"details,omitempty"`     // Additional error details (dev mode only)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// CurveInfoResponse exposes the engine's parameters and safety limits for
// caller-side pre-flight checks. All values are decimal strings.
type CurveInfoResponse struct {
	A                  string `json:"a"`
	B                  string `json:"b"`
	MaxSupply          string `json:"max_supply"`
	MaxTxSize          string `json:"max_tx_size"`
	MinRemainingSupply string `json:"min_remaining_supply"`
	MaxExpValue        string `json:"max_exp_value"`
}

// PriceResponse is the result of a spot price lookup.
type PriceResponse struct {
	Supply   string `json:"supply"`
	Price    string `json:"price"`     // decimal string
	PriceWad string `json:"price_wad"` // raw 18-decimal integer
}

// QuoteResponse is the result of a sell, buy, or cost quote.
type QuoteResponse struct {
	Op        string `json:"op"`
	Supply    string `json:"supply"`
	Amount    string `json:"amount"`     // token delta (decimal string)
	Funds     string `json:"funds"`      // reserve-asset delta (decimal string)
	AmountWad string `json:"amount_wad"` // raw 18-decimal integer
	FundsWad  string `json:"funds_wad"`  // raw 18-decimal integer
}

// ImpactResponse is the result of a simulated price impact.
type ImpactResponse struct {
	Supply    string `json:"supply"`
	Amount    string `json:"amount"`
	ImpactBps string `json:"impact_bps"`
}

// SupplyResponse reports the ledger's circulating supply.
type SupplyResponse struct {
	Supply string `json:"supply"`
}

// TradeRequest is the body of a buy or sell against the ledger. Exactly one
// of the two fields is used: funds for buys, amount for sells.
type TradeRequest struct {
	Funds  string `json:"funds,omitempty"`  // reserve to spend (buy)
	Amount string `json:"amount,omitempty"` // tokens to sell
}

// TradeResponse reports the applied trade and the resulting supply.
type TradeResponse struct {
	Op        string `json:"op"`
	Amount    string `json:"amount"`
	Funds     string `json:"funds"`
	NewSupply string `json:"new_supply"`
}

// AIAskRequest represents a natural language query over quote history.
type AIAskRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"` // Optional model override
}

// AIAskResponse represents the response from an AI query.
type AIAskResponse struct {
	SQL    string `json:"sql"`
	Answer string `json:"answer"`
	TookMs int64  `json:"took_ms"`
}
