package ai

// quotesSchemaDescription describes the ClickHouse schema used for NL→SQL
// prompting. Keep it in sync with the table the API layer writes to.
const quotesSchemaDescription = `
Database: curve
Table: quotes

Columns:
  - id            String    -- Unique quote identifier
  - timestamp     DateTime  -- When the quote was computed (UTC)
  - op            String    -- One of: price, sell_quote, buy_quote, cost_quote, impact, trade_buy, trade_sell
  - supply        String    -- Circulating supply at quote time (decimal string)
  - amount        String    -- Token delta, empty for price/impact lookups (decimal string)
  - funds         String    -- Reserve-asset delta, empty when not applicable (decimal string)
  - price         String    -- Computed price at supply (decimal string)
  - impact_bps    String    -- Price impact in basis points, impact ops only
  - accepted      UInt8     -- 1 when the engine accepted the request, 0 when it was rejected
  - reject_code   String    -- Machine-readable rejection, e.g. "transaction_too_large"
  - reject_reason String    -- Human-readable rejection message

Notes:
  - Rejected requests have accepted = 0 and a non-empty reject_code.
  - Cast decimal-string columns with toFloat64() before SUM/AVG.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`
