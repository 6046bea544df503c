package server

import (
	"context"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/hamza-akhtar-dev/bondcurve/internal/ai"
	"github.com/hamza-akhtar-dev/bondcurve/internal/curve"
	"github.com/hamza-akhtar-dev/bondcurve/internal/models"
	"github.com/hamza-akhtar-dev/bondcurve/internal/storage"
	"github.com/hamza-akhtar-dev/bondcurve/pkg/wad"
)

// Handlers contains all dependencies for API endpoint handlers. Cache, Store,
// Ledger, and AI are optional; endpoints that need a missing dependency
// report it instead of panicking.
type Handlers struct {
	Engine       *curve.Engine        // The pricing engine (required)
	Cache        storage.QuoteCache   // Redis-backed recent quotes + pub/sub
	Store        storage.QuoteStore   // ClickHouse quote history
	Ledger       storage.SupplyLedger // Redis-backed circulating supply
	AI           *ai.Agent            // Analytics agent for NL queries
	AIBaseConfig ai.AgentConfig       // Base configuration for AI agents
	DevMode      bool                 // Enable detailed error responses
	Logger       *logrus.Logger       // Structured logger
}

// err returns a standardized JSON error response. In dev mode it includes
// additional details for debugging.
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// rejected maps a curve rejection to 422 with its machine-readable code, and
// records the rejected request in the quote log.
func (h *Handlers) rejected(c echo.Context, ev *models.QuoteEvent, err error) error {
	ev.Accepted = false
	ev.RejectCode = curve.Code(err)
	ev.RejectReason = err.Error()
	h.record(c.Request().Context(), ev)

	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:      err.Error(),
		Code:       http.StatusUnprocessableEntity,
		RejectCode: ev.RejectCode,
	})
}

// record writes a quote event to the cache, pub/sub channel, and history
// store. All sinks are best-effort: a telemetry failure never fails a quote.
func (h *Handlers) record(ctx context.Context, ev *models.QuoteEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if h.Cache != nil {
		if err := h.Cache.AddRecentQuote(ctx, ev); err != nil {
			h.Logger.WithError(err).Warn("failed to cache quote event")
		}
		if err := h.Cache.PublishQuote(ctx, ev); err != nil {
			h.Logger.WithError(err).Warn("failed to publish quote event")
		}
		if ev.Price != "" {
			if err := h.Cache.UpdateLastPrice(ctx, ev.Price); err != nil {
				h.Logger.WithError(err).Warn("failed to update last price")
			}
		}
	}
	if h.Store != nil {
		if err := h.Store.InsertQuote(ctx, ev); err != nil {
			h.Logger.WithError(err).Warn("failed to store quote event")
		}
	}
}

func newEvent(op string) *models.QuoteEvent {
	return &models.QuoteEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Op:        op,
		Accepted:  true,
	}
}

// wadQuery parses a required decimal query parameter into a WAD value.
func (h *Handlers) wadQuery(c echo.Context, name string) (*big.Int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, h.err(c, http.StatusBadRequest, "invalid "+name, map[string]any{name: "required"})
	}
	v, err := wad.Parse(raw)
	if err != nil {
		return nil, h.err(c, http.StatusBadRequest, "invalid "+name, map[string]any{name: "must be a decimal number"})
	}
	if v.Sign() < 0 {
		return nil, h.err(c, http.StatusBadRequest, "invalid "+name, map[string]any{name: "must be non-negative"})
	}
	return v, nil
}

// Health returns a simple health check.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// CurveInfo exposes the engine parameters and safety limits so settlement
// callers can run pre-flight checks against the same bounds the engine
// enforces.
func (h *Handlers) CurveInfo(c echo.Context) error {
	params := h.Engine.Params()
	limits := h.Engine.Limits()
	return c.JSON(http.StatusOK, CurveInfoResponse{
		A:                  wad.Format(params.A),
		B:                  wad.Format(params.B),
		MaxSupply:          wad.Format(limits.MaxSupply),
		MaxTxSize:          wad.Format(limits.MaxTxSize),
		MinRemainingSupply: wad.Format(limits.MinRemainingSupply),
		MaxExpValue:        wad.Format(limits.MaxExpValue),
	})
}

// Price returns the instantaneous price at the supplied supply.
func (h *Handlers) Price(c echo.Context) error {
	supply, err := h.wadQuery(c, "supply")
	if err != nil {
		return err
	}

	ev := newEvent(models.OpPrice)
	ev.Supply = wad.Format(supply)

	price, perr := h.Engine.CurrentPrice(supply)
	if perr != nil {
		return h.rejected(c, ev, perr)
	}

	ev.Price = wad.Format(price)
	h.record(c.Request().Context(), ev)

	return c.JSON(http.StatusOK, PriceResponse{
		Supply:   ev.Supply,
		Price:    ev.Price,
		PriceWad: price.String(),
	})
}

// QuoteSell quotes the reserve funds released by selling amount tokens at
// the given supply.
func (h *Handlers) QuoteSell(c echo.Context) error {
	supply, err := h.wadQuery(c, "supply")
	if err != nil {
		return err
	}
	amount, err := h.wadQuery(c, "amount")
	if err != nil {
		return err
	}

	ev := newEvent(models.OpSellQuote)
	ev.Supply = wad.Format(supply)
	ev.Amount = wad.Format(amount)

	funds, qerr := h.Engine.FundsReceived(supply, amount)
	if qerr != nil {
		return h.rejected(c, ev, qerr)
	}

	ev.Funds = wad.Format(funds)
	h.record(c.Request().Context(), ev)

	return c.JSON(http.StatusOK, QuoteResponse{
		Op:        models.OpSellQuote,
		Supply:    ev.Supply,
		Amount:    ev.Amount,
		Funds:     ev.Funds,
		AmountWad: amount.String(),
		FundsWad:  funds.String(),
	})
}

// QuoteBuy quotes the tokens obtainable for spending funds at the given
// supply.
func (h *Handlers) QuoteBuy(c echo.Context) error {
	supply, err := h.wadQuery(c, "supply")
	if err != nil {
		return err
	}
	funds, err := h.wadQuery(c, "funds")
	if err != nil {
		return err
	}

	ev := newEvent(models.OpBuyQuote)
	ev.Supply = wad.Format(supply)
	ev.Funds = wad.Format(funds)

	amount, qerr := h.Engine.AmountOut(supply, funds)
	if qerr != nil {
		return h.rejected(c, ev, qerr)
	}

	ev.Amount = wad.Format(amount)
	h.record(c.Request().Context(), ev)

	return c.JSON(http.StatusOK, QuoteResponse{
		Op:        models.OpBuyQuote,
		Supply:    ev.Supply,
		Amount:    ev.Amount,
		Funds:     ev.Funds,
		AmountWad: amount.String(),
		FundsWad:  funds.String(),
	})
}

// QuoteCost quotes the reserve cost of minting amount tokens at the given
// supply.
func (h *Handlers) QuoteCost(c echo.Context) error {
	supply, err := h.wadQuery(c, "supply")
	if err != nil {
		return err
	}
	amount, err := h.wadQuery(c, "amount")
	if err != nil {
		return err
	}

	ev := newEvent(models.OpCostQuote)
	ev.Supply = wad.Format(supply)
	ev.Amount = wad.Format(amount)

	funds, qerr := h.Engine.CostToBuy(supply, amount)
	if qerr != nil {
		return h.rejected(c, ev, qerr)
	}

	ev.Funds = wad.Format(funds)
	h.record(c.Request().Context(), ev)

	return c.JSON(http.StatusOK, QuoteResponse{
		Op:        models.OpCostQuote,
		Supply:    ev.Supply,
		Amount:    ev.Amount,
		Funds:     ev.Funds,
		AmountWad: amount.String(),
		FundsWad:  funds.String(),
	})
}

// Impact simulates the price impact of buying amount tokens at the given
// supply, in basis points.
func (h *Handlers) Impact(c echo.Context) error {
	supply, err := h.wadQuery(c, "supply")
	if err != nil {
		return err
	}
	amount, err := h.wadQuery(c, "amount")
	if err != nil {
		return err
	}

	ev := newEvent(models.OpImpact)
	ev.Supply = wad.Format(supply)
	ev.Amount = wad.Format(amount)

	bps, ierr := h.Engine.SimulatePriceImpact(supply, amount)
	if ierr != nil {
		return h.rejected(c, ev, ierr)
	}

	ev.ImpactBps = bps.String()
	h.record(c.Request().Context(), ev)

	return c.JSON(http.StatusOK, ImpactResponse{
		Supply:    ev.Supply,
		Amount:    ev.Amount,
		ImpactBps: bps.String(),
	})
}

// RecentQuotes returns the most recent quote events from the cache.
// Accepts limit query parameter (default: 100, range: 1-100).
func (h *Handlers) RecentQuotes(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusBadRequest, "quote cache is not configured", nil)
	}

	limit := 100
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 100 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentQuotes(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get quotes", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Supply reports the ledger's circulating supply.
func (h *Handlers) Supply(c echo.Context) error {
	if h.Ledger == nil {
		return h.err(c, http.StatusBadRequest, "ledger is not configured", nil)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	supply, err := h.Ledger.Supply(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get supply", nil)
	}
	return c.JSON(http.StatusOK, SupplyResponse{Supply: wad.Format(supply)})
}

// TradeBuy spends funds against the curve at the ledger's current supply and
// mints the resulting tokens.
func (h *Handlers) TradeBuy(c echo.Context) error {
	if h.Ledger == nil {
		return h.err(c, http.StatusBadRequest, "ledger is not configured", nil)
	}

	var req TradeRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	funds, err := wad.Parse(strings.TrimSpace(req.Funds))
	if err != nil || funds.Sign() < 0 {
		return h.err(c, http.StatusBadRequest, "invalid funds", map[string]any{"funds": "must be a non-negative decimal"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	supply, err := h.Ledger.Supply(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get supply", nil)
	}

	ev := newEvent(models.OpTradeBuy)
	ev.Supply = wad.Format(supply)
	ev.Funds = wad.Format(funds)

	amount, qerr := h.Engine.AmountOut(supply, funds)
	if qerr != nil {
		return h.rejected(c, ev, qerr)
	}

	newSupply, err := h.Ledger.ApplyDelta(ctx, amount)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to apply trade", nil)
	}

	ev.Amount = wad.Format(amount)
	h.record(c.Request().Context(), ev)

	return c.JSON(http.StatusOK, TradeResponse{
		Op:        models.OpTradeBuy,
		Amount:    ev.Amount,
		Funds:     ev.Funds,
		NewSupply: wad.Format(newSupply),
	})
}

// TradeSell sells tokens against the curve at the ledger's current supply and
// burns them.
func (h *Handlers) TradeSell(c echo.Context) error {
	if h.Ledger == nil {
		return h.err(c, http.StatusBadRequest, "ledger is not configured", nil)
	}

	var req TradeRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	amount, err := wad.Parse(strings.TrimSpace(req.Amount))
	if err != nil || amount.Sign() < 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a non-negative decimal"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	supply, err := h.Ledger.Supply(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get supply", nil)
	}

	ev := newEvent(models.OpTradeSell)
	ev.Supply = wad.Format(supply)
	ev.Amount = wad.Format(amount)

	funds, qerr := h.Engine.FundsReceived(supply, amount)
	if qerr != nil {
		return h.rejected(c, ev, qerr)
	}

	newSupply, err := h.Ledger.ApplyDelta(ctx, new(big.Int).Neg(amount))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to apply trade", nil)
	}

	ev.Funds = wad.Format(funds)
	h.record(c.Request().Context(), ev)

	return c.JSON(http.StatusOK, TradeResponse{
		Op:        models.OpTradeSell,
		Amount:    ev.Amount,
		Funds:     ev.Funds,
		NewSupply: wad.Format(newSupply),
	})
}

// AIAsk answers natural language questions about quote history. Supports an
// optional model override for one-off requests.
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	agent := h.AI
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		tmp, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		defer func() {
			_ = tmp.Close()
		}()
		agent = tmp
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}
