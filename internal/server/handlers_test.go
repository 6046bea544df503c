package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamza-akhtar-dev/bondcurve/internal/curve"
	"github.com/hamza-akhtar-dev/bondcurve/internal/models"
	"github.com/hamza-akhtar-dev/bondcurve/internal/storage"
	"github.com/hamza-akhtar-dev/bondcurve/pkg/wad"
)

// fakeCache is an in-memory QuoteCache for handler tests.
type fakeCache struct {
	mu        sync.Mutex
	events    []*models.QuoteEvent
	published []*models.QuoteEvent
	lastPrice string
}

var _ storage.QuoteCache = (*fakeCache)(nil)

func (f *fakeCache) AddRecentQuote(ctx context.Context, q *models.QuoteEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append([]*models.QuoteEvent{q}, f.events...)
	return nil
}

func (f *fakeCache) GetRecentQuotes(ctx context.Context, limit int64) ([]*models.QuoteEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if int64(len(f.events)) < limit {
		limit = int64(len(f.events))
	}
	out := make([]*models.QuoteEvent, limit)
	copy(out, f.events[:limit])
	return out, nil
}

func (f *fakeCache) UpdateLastPrice(ctx context.Context, price string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPrice = price
	return nil
}

func (f *fakeCache) GetLastPrice(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPrice, nil
}

func (f *fakeCache) PublishQuote(ctx context.Context, q *models.QuoteEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, q)
	return nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }

func (f *fakeCache) newest() *models.QuoteEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	return f.events[0]
}

// fakeLedger is an in-memory SupplyLedger for handler tests.
type fakeLedger struct {
	mu     sync.Mutex
	supply *big.Int
}

var _ storage.SupplyLedger = (*fakeLedger)(nil)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{supply: new(big.Int)}
}

func (f *fakeLedger) Supply(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.supply), nil
}

func (f *fakeLedger) ApplyDelta(ctx context.Context, delta *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supply.Add(f.supply, delta)
	return new(big.Int).Set(f.supply), nil
}

func newTestEcho(t *testing.T, cfg ServerConfig) (*echo.Echo, *fakeCache, *fakeLedger) {
	t.Helper()

	// A = 1.0, B = 0.001 per token.
	a := new(big.Int).Set(wad.Scale)
	b := big.NewInt(1_000_000_000_000_000)
	engine, err := curve.New(curve.Params{A: a, B: b}, curve.DefaultLimits())
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cacheFake := &fakeCache{}
	ledgerFake := newFakeLedger()

	h := &Handlers{
		Engine:  engine,
		Cache:   cacheFake,
		Ledger:  ledgerFake,
		DevMode: true,
		Logger:  logger,
	}

	e := echo.New()
	RegisterRoutes(e, h, cfg)
	return e, cacheFake, ledgerFake
}

func doRequest(t *testing.T, e *echo.Echo, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	rec := doRequest(t, e, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[HealthResponse](t, rec)
	assert.True(t, resp.OK)
}

func TestCurveInfo(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	rec := doRequest(t, e, http.MethodGet, "/v1/curve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[CurveInfoResponse](t, rec)
	assert.Equal(t, "1", resp.A)
	assert.Equal(t, "0.001", resp.B)
	assert.Equal(t, "1000000000", resp.MaxSupply)
	assert.Equal(t, "10000000", resp.MaxTxSize)
	assert.Equal(t, "1000", resp.MinRemainingSupply)
}

func TestPrice(t *testing.T) {
	e, cacheFake, _ := newTestEcho(t, ServerConfig{})

	rec := doRequest(t, e, http.MethodGet, "/v1/price?supply=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[PriceResponse](t, rec)
	assert.Equal(t, "1", resp.Price)
	assert.Equal(t, wad.Scale.String(), resp.PriceWad)

	ev := cacheFake.newest()
	require.NotNil(t, ev)
	assert.Equal(t, models.OpPrice, ev.Op)
	assert.True(t, ev.Accepted)
	assert.NotEmpty(t, ev.ID)
}

func TestPriceValidation(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	rec := doRequest(t, e, http.MethodGet, "/v1/price", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/v1/price?supply=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/v1/price?supply=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceRejection(t *testing.T) {
	e, cacheFake, _ := newTestEcho(t, ServerConfig{})

	// Supply above the configured maximum.
	rec := doRequest(t, e, http.MethodGet, "/v1/price?supply=1000000001", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeJSON[ErrorResponse](t, rec)
	assert.Equal(t, "supply_exceeds_maximum", resp.RejectCode)

	ev := cacheFake.newest()
	require.NotNil(t, ev)
	assert.False(t, ev.Accepted)
	assert.Equal(t, "supply_exceeds_maximum", ev.RejectCode)
	assert.NotEmpty(t, ev.RejectReason)
}

func TestQuoteSell(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	rec := doRequest(t, e, http.MethodGet, "/v1/quote/sell?supply=1000&amount=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[QuoteResponse](t, rec)
	assert.Equal(t, models.OpSellQuote, resp.Op)
	assert.Equal(t, "1000", resp.Supply)
	assert.Equal(t, "10", resp.Amount)
	assert.NotEmpty(t, resp.Funds)

	funds, err := wad.Parse(resp.Funds)
	require.NoError(t, err)
	assert.Positive(t, funds.Sign())
}

func TestQuoteSellRejections(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	cases := []struct {
		name       string
		target     string
		rejectCode string
	}{
		{"amount exceeds tx cap", "/v1/quote/sell?supply=50000000&amount=10000001", "transaction_too_large"},
		{"amount exceeds supply", "/v1/quote/sell?supply=5&amount=10", "invalid_range"},
		{"supply over maximum", "/v1/quote/sell?supply=1000000001&amount=10", "supply_exceeds_maximum"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, e, http.MethodGet, tc.target, nil)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			resp := decodeJSON[ErrorResponse](t, rec)
			assert.Equal(t, tc.rejectCode, resp.RejectCode)
		})
	}
}

func TestQuoteBuy(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	rec := doRequest(t, e, http.MethodGet, "/v1/quote/buy?supply=0&funds=1000", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[QuoteResponse](t, rec)
	assert.Equal(t, models.OpBuyQuote, resp.Op)

	amount, err := wad.Parse(resp.Amount)
	require.NoError(t, err)
	assert.Positive(t, amount.Sign())
}

func TestQuoteBuyHeadroomRejection(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	// Remaining supply below the minimum threshold.
	rec := doRequest(t, e, http.MethodGet, "/v1/quote/buy?supply=999999500&funds=1", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeJSON[ErrorResponse](t, rec)
	assert.Equal(t, "insufficient_remaining_supply", resp.RejectCode)
}

func TestQuoteCostMatchesMirrorSell(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	cost := doRequest(t, e, http.MethodGet, "/v1/quote/cost?supply=1000&amount=10", nil)
	require.Equal(t, http.StatusOK, cost.Code)
	costResp := decodeJSON[QuoteResponse](t, cost)

	sell := doRequest(t, e, http.MethodGet, "/v1/quote/sell?supply=1010&amount=10", nil)
	require.Equal(t, http.StatusOK, sell.Code)
	sellResp := decodeJSON[QuoteResponse](t, sell)

	assert.Equal(t, sellResp.FundsWad, costResp.FundsWad)
}

func TestImpact(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	rec := doRequest(t, e, http.MethodGet, "/v1/impact?supply=1000&amount=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[ImpactResponse](t, rec)
	assert.Equal(t, "0", resp.ImpactBps)

	rec = doRequest(t, e, http.MethodGet, "/v1/impact?supply=0&amount=1000", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp = decodeJSON[ImpactResponse](t, rec)
	bps, ok := new(big.Int).SetString(resp.ImpactBps, 10)
	require.True(t, ok)
	assert.Positive(t, bps.Sign())
}

func TestRecentQuotes(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	// Seed a couple of events through the API.
	doRequest(t, e, http.MethodGet, "/v1/price?supply=0", nil)
	doRequest(t, e, http.MethodGet, "/v1/quote/sell?supply=1000&amount=10", nil)

	rec := doRequest(t, e, http.MethodGet, "/v1/quotes/recent", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []*models.QuoteEvent `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, models.OpSellQuote, resp.Items[0].Op)
	assert.Equal(t, models.OpPrice, resp.Items[1].Op)

	rec = doRequest(t, e, http.MethodGet, "/v1/quotes/recent?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/v1/quotes/recent?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSupplyAndTrades(t *testing.T) {
	e, _, ledgerFake := newTestEcho(t, ServerConfig{})

	rec := doRequest(t, e, http.MethodGet, "/v1/supply", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", decodeJSON[SupplyResponse](t, rec).Supply)

	// Spend 1000 reserve units at supply 0. With A=1 and B=0.001 the
	// position lands at ln(2)/0.001 tokens.
	rec = doRequest(t, e, http.MethodPost, "/v1/trade/buy", TradeRequest{Funds: "1000"})
	require.Equal(t, http.StatusOK, rec.Code)

	buy := decodeJSON[TradeResponse](t, rec)
	assert.Equal(t, models.OpTradeBuy, buy.Op)

	bought, err := wad.Parse(buy.Amount)
	require.NoError(t, err)
	assert.Positive(t, bought.Sign())
	assert.Equal(t, buy.Amount, buy.NewSupply)

	supply, err := ledgerFake.Supply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bought, supply)

	// Sell part of the position back.
	rec = doRequest(t, e, http.MethodPost, "/v1/trade/sell", TradeRequest{Amount: "100"})
	require.Equal(t, http.StatusOK, rec.Code)

	sell := decodeJSON[TradeResponse](t, rec)
	assert.Equal(t, models.OpTradeSell, sell.Op)

	proceeds, err := wad.Parse(sell.Funds)
	require.NoError(t, err)
	assert.Positive(t, proceeds.Sign())

	newSupply, err := wad.Parse(sell.NewSupply)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Sub(bought, wadTokens(100)), newSupply)
}

func TestTradeValidation(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	rec := doRequest(t, e, http.MethodPost, "/v1/trade/buy", TradeRequest{Funds: "-5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, e, http.MethodPost, "/v1/trade/buy", TradeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, e, http.MethodPost, "/v1/trade/sell", TradeRequest{Amount: "not-a-number"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Selling more than the circulating supply is an engine rejection.
	rec = doRequest(t, e, http.MethodPost, "/v1/trade/sell", TradeRequest{Amount: "10"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_range", decodeJSON[ErrorResponse](t, rec).RejectCode)
}

func TestAPIKeyAuth(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{APIKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	e, _, _ := newTestEcho(t, ServerConfig{})

	rec := doRequest(t, e, http.MethodGet, "/v1/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeJSON[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

// wadTokens converts a whole token count to WAD.
func wadTokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), wad.Scale)
}
