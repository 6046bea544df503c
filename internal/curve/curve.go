// Package curve prices a continuously-issued token against a reserve asset
// with the exponential relationship P(x) = A * e^(B*x), where x is the
// circulating supply. All quantities are WAD fixed-point values and every
// operation is a pure function of the construction-time parameters and the
// call inputs, so concurrent use needs no synchronization.
package curve

import (
	"fmt"
	"math/big"

	"github.com/hamza-akhtar-dev/bondcurve/pkg/wad"
)

// basisPoints is the denominator for price-impact results (1/10000).
var basisPoints = big.NewInt(10000)

// Params are the immutable curve coefficients: A is the starting price,
// B the growth rate, both in WAD.
type Params struct {
	A *big.Int
	B *big.Int
}

// Limits are the tunable economic and numeric safety bounds, all in WAD.
// They are configuration, not derived values, and are inspectable by callers
// for pre-flight checks.
type Limits struct {
	// MaxSupply is the largest circulating supply the curve serves.
	MaxSupply *big.Int
	// MaxTxSize caps the token delta of a single call.
	MaxTxSize *big.Int
	// MinRemainingSupply is the headroom below MaxSupply under which any
	// further purchase is rejected.
	MinRemainingSupply *big.Int
	// MaxExpValue caps B*x before the exponential kernel is invoked. It must
	// stay at or below the kernel's own domain so a rejection is always
	// attributable to this named rule rather than an opaque overflow.
	MaxExpValue *big.Int
}

// DefaultLimits returns the reference safety profile: one billion tokens of
// maximum supply, ten million tokens per transaction, one thousand tokens of
// required headroom, and an exponent cap of 130 (inside the kernel's 135).
func DefaultLimits() Limits {
	return Limits{
		MaxSupply:          tokens(1_000_000_000),
		MaxTxSize:          tokens(10_000_000),
		MinRemainingSupply: tokens(1_000),
		MaxExpValue:        new(big.Int).Mul(big.NewInt(130), wad.Scale),
	}
}

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), wad.Scale)
}

// Engine evaluates the curve. It holds no mutable state: supply is always
// passed in by the caller and never stored here.
type Engine struct {
	params Params
	limits Limits
}

// New validates the parameters and limits and returns an engine. A and B must
// be strictly positive: a zero starting price or zero growth rate makes the
// curve degenerate. Limits must be strictly positive and MaxExpValue must not
// exceed the kernel's exponent domain.
func New(params Params, limits Limits) (*Engine, error) {
	one := big.NewInt(1)
	if params.A == nil || params.A.Sign() <= 0 {
		return nil, &ParameterOutOfRangeError{Name: "A", Value: zeroIfNil(params.A), Min: one, Max: wad.MaxValue}
	}
	if params.B == nil || params.B.Sign() <= 0 {
		return nil, &ParameterOutOfRangeError{Name: "B", Value: zeroIfNil(params.B), Min: one, Max: wad.MaxValue}
	}
	for _, l := range []struct {
		name  string
		value *big.Int
		max   *big.Int
	}{
		{"MaxSupply", limits.MaxSupply, wad.MaxValue},
		{"MaxTxSize", limits.MaxTxSize, wad.MaxValue},
		{"MinRemainingSupply", limits.MinRemainingSupply, wad.MaxValue},
		{"MaxExpValue", limits.MaxExpValue, wad.MaxExpInput},
	} {
		if l.value == nil || l.value.Sign() <= 0 || l.value.Cmp(l.max) > 0 {
			return nil, &ParameterOutOfRangeError{Name: l.name, Value: zeroIfNil(l.value), Min: one, Max: l.max}
		}
	}

	return &Engine{
		params: Params{A: new(big.Int).Set(params.A), B: new(big.Int).Set(params.B)},
		limits: Limits{
			MaxSupply:          new(big.Int).Set(limits.MaxSupply),
			MaxTxSize:          new(big.Int).Set(limits.MaxTxSize),
			MinRemainingSupply: new(big.Int).Set(limits.MinRemainingSupply),
			MaxExpValue:        new(big.Int).Set(limits.MaxExpValue),
		},
	}, nil
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Params returns a copy of the curve coefficients.
func (e *Engine) Params() Params {
	return Params{A: new(big.Int).Set(e.params.A), B: new(big.Int).Set(e.params.B)}
}

// Limits returns a copy of the safety bounds.
func (e *Engine) Limits() Limits {
	return Limits{
		MaxSupply:          new(big.Int).Set(e.limits.MaxSupply),
		MaxTxSize:          new(big.Int).Set(e.limits.MaxTxSize),
		MinRemainingSupply: new(big.Int).Set(e.limits.MinRemainingSupply),
		MaxExpValue:        new(big.Int).Set(e.limits.MaxExpValue),
	}
}

// exponent computes B*x and gates it against MaxExpValue.
func (e *Engine) exponent(supply *big.Int) (*big.Int, error) {
	exp, err := wad.Mul(e.params.B, supply)
	if err != nil {
		return nil, fmt.Errorf("curve: exponent: %w", err)
	}
	if exp.Cmp(e.limits.MaxExpValue) > 0 {
		return nil, &ExponentTooLargeError{Exponent: exp, MaxExponent: new(big.Int).Set(e.limits.MaxExpValue)}
	}
	return exp, nil
}

// CurrentPrice returns the instantaneous price A * e^(B*supply). It is
// monotonically non-decreasing in supply and equals A exactly at zero supply.
func (e *Engine) CurrentPrice(supply *big.Int) (*big.Int, error) {
	if supply.Sign() < 0 {
		return nil, &NegativeValueError{Name: "supply", Value: new(big.Int).Set(supply)}
	}
	if supply.Cmp(e.limits.MaxSupply) > 0 {
		return nil, &SupplyExceedsMaximumError{Supply: new(big.Int).Set(supply), MaxSupply: new(big.Int).Set(e.limits.MaxSupply)}
	}

	exp, err := e.exponent(supply)
	if err != nil {
		return nil, err
	}
	ey, err := wad.ExpWad(exp)
	if err != nil {
		return nil, fmt.Errorf("curve: price: %w", err)
	}
	price, err := wad.Mul(e.params.A, ey)
	if err != nil {
		return nil, fmt.Errorf("curve: price: %w", err)
	}
	return price, nil
}

// FundsReceived returns the reserve-asset units released when moving supply
// from x0 down to x0-amount:
//
//	(A/B) * (e^(B*x0) - e^(B*(x0-amount)))
//
// The difference of exponentials is combined with A and divided by B in one
// full-width multiply-divide to avoid truncation bias. The result is never
// negative because amount <= x0 is enforced first.
func (e *Engine) FundsReceived(supply, amount *big.Int) (*big.Int, error) {
	if supply.Sign() < 0 {
		return nil, &NegativeValueError{Name: "supply", Value: new(big.Int).Set(supply)}
	}
	if amount.Sign() < 0 {
		return nil, &NegativeValueError{Name: "amount", Value: new(big.Int).Set(amount)}
	}
	if supply.Cmp(e.limits.MaxSupply) > 0 {
		return nil, &SupplyExceedsMaximumError{Supply: new(big.Int).Set(supply), MaxSupply: new(big.Int).Set(e.limits.MaxSupply)}
	}
	if amount.Cmp(e.limits.MaxTxSize) > 0 {
		return nil, &TransactionTooLargeError{Amount: new(big.Int).Set(amount), MaxTxSize: new(big.Int).Set(e.limits.MaxTxSize)}
	}
	if amount.Cmp(supply) > 0 {
		return nil, &InvalidRangeError{Amount: new(big.Int).Set(amount), Supply: new(big.Int).Set(supply)}
	}

	expHigh, err := e.exponent(supply)
	if err != nil {
		return nil, err
	}
	expLow, err := e.exponent(new(big.Int).Sub(supply, amount))
	if err != nil {
		return nil, err
	}

	eHigh, err := wad.ExpWad(expHigh)
	if err != nil {
		return nil, fmt.Errorf("curve: funds received: %w", err)
	}
	eLow, err := wad.ExpWad(expLow)
	if err != nil {
		return nil, fmt.Errorf("curve: funds received: %w", err)
	}

	diff := new(big.Int).Sub(eHigh, eLow)
	funds, err := wad.MulDiv(e.params.A, diff, e.params.B)
	if err != nil {
		return nil, fmt.Errorf("curve: funds received: %w", err)
	}
	return funds, nil
}

// CostToBuy returns the reserve-asset cost of minting amount tokens starting
// at the given supply: the same integral as FundsReceived, evaluated upward
// from supply to supply+amount.
func (e *Engine) CostToBuy(supply, amount *big.Int) (*big.Int, error) {
	if supply.Sign() < 0 {
		return nil, &NegativeValueError{Name: "supply", Value: new(big.Int).Set(supply)}
	}
	if amount.Sign() < 0 {
		return nil, &NegativeValueError{Name: "amount", Value: new(big.Int).Set(amount)}
	}
	if amount.Cmp(e.limits.MaxTxSize) > 0 {
		return nil, &TransactionTooLargeError{Amount: new(big.Int).Set(amount), MaxTxSize: new(big.Int).Set(e.limits.MaxTxSize)}
	}
	target := new(big.Int).Add(supply, amount)
	if target.Cmp(e.limits.MaxSupply) > 0 {
		return nil, &SupplyExceedsMaximumError{Supply: target, MaxSupply: new(big.Int).Set(e.limits.MaxSupply)}
	}
	return e.FundsReceived(target, amount)
}

// AmountOut returns the tokens obtainable for spending funds reserve-asset
// units at the given supply:
//
//	ln(e^(B*x0) + funds*B/A) / B - x0
//
// The headroom check runs before the basic supply cap: tight supply near the
// ceiling makes any purchase unsafe regardless of size, and that is the
// economically meaningful rejection.
func (e *Engine) AmountOut(supply, funds *big.Int) (*big.Int, error) {
	if supply.Sign() < 0 {
		return nil, &NegativeValueError{Name: "supply", Value: new(big.Int).Set(supply)}
	}
	if funds.Sign() < 0 {
		return nil, &NegativeValueError{Name: "funds", Value: new(big.Int).Set(funds)}
	}

	remaining := new(big.Int).Sub(e.limits.MaxSupply, supply)
	if remaining.Cmp(e.limits.MinRemainingSupply) < 0 {
		return nil, &InsufficientRemainingSupplyError{
			Remaining:    remaining,
			MinRemaining: new(big.Int).Set(e.limits.MinRemainingSupply),
		}
	}
	if supply.Cmp(e.limits.MaxSupply) >= 0 {
		return nil, &SupplyExceedsMaximumError{Supply: new(big.Int).Set(supply), MaxSupply: new(big.Int).Set(e.limits.MaxSupply)}
	}

	exp, err := e.exponent(supply)
	if err != nil {
		return nil, err
	}
	ey, err := wad.ExpWad(exp)
	if err != nil {
		return nil, fmt.Errorf("curve: amount out: %w", err)
	}

	// target = e^(B*x0) + funds*B/A, full-width to avoid truncation bias.
	scaled, err := wad.MulDiv(funds, e.params.B, e.params.A)
	if err != nil {
		return nil, fmt.Errorf("curve: amount out: %w", err)
	}
	target := new(big.Int).Add(ey, scaled)

	ln, err := wad.LnWad(target)
	if err != nil {
		return nil, fmt.Errorf("curve: amount out: %w", err)
	}
	newSupply, err := wad.Div(ln, e.params.B)
	if err != nil {
		return nil, fmt.Errorf("curve: amount out: %w", err)
	}

	amount := newSupply.Sub(newSupply, supply)
	if amount.Sign() < 0 {
		// ln truncation can land one unit under the starting supply when
		// funds is zero; clamp the rounding artifact, never a real value.
		amount.SetInt64(0)
	}

	if amount.Cmp(e.limits.MaxTxSize) > 0 {
		return nil, &TransactionTooLargeError{Amount: amount, MaxTxSize: new(big.Int).Set(e.limits.MaxTxSize)}
	}
	resulting := new(big.Int).Add(supply, amount)
	if resulting.Cmp(e.limits.MaxSupply) > 0 {
		return nil, &SupplyExceedsMaximumError{Supply: resulting, MaxSupply: new(big.Int).Set(e.limits.MaxSupply)}
	}
	return amount, nil
}

// SimulatePriceImpact returns the relative price move of buying amount tokens
// at the given supply, in basis points: (p1 - p0) * 10000 / p0. Errors from
// the two price evaluations propagate unchanged.
func (e *Engine) SimulatePriceImpact(supply, amount *big.Int) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, &NegativeValueError{Name: "amount", Value: new(big.Int).Set(amount)}
	}
	p0, err := e.CurrentPrice(supply)
	if err != nil {
		return nil, err
	}
	p1, err := e.CurrentPrice(new(big.Int).Add(supply, amount))
	if err != nil {
		return nil, err
	}
	if p0.Sign() == 0 {
		return nil, fmt.Errorf("curve: price impact: %w", wad.ErrDivideByZero)
	}
	bps := new(big.Int).Sub(p1, p0)
	bps.Mul(bps, basisPoints)
	return bps.Quo(bps, p0), nil
}
