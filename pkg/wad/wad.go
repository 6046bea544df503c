// Package wad implements deterministic fixed-point arithmetic at 18-decimal
// scale (WAD). Values are big integers representing value*10^18. Every
// operation rounds toward zero and returns a typed error instead of wrapping
// when a true result would leave the 256-bit unsigned range.
package wad

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional decimal digits in a WAD value.
const Decimals = 18

var (
	// Scale is the WAD unit: 10^18.
	Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

	// MaxValue is the largest representable value, 2^256 - 1. Results above
	// it are reported as ErrOverflow, never wrapped.
	MaxValue = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	// MaxExpInput is the largest input ExpWad accepts (135 in WAD). Beyond
	// it e^x * 10^18 no longer fits in 256 bits.
	MaxExpInput = new(big.Int).Mul(big.NewInt(135), Scale)

	// Ln2 is ln(2) in WAD, used for range reduction in ExpWad and LnWad.
	Ln2 = big.NewInt(693147180559945309)
)

var (
	ErrOverflow     = errors.New("wad: result exceeds 256-bit range")
	ErrDivideByZero = errors.New("wad: division by zero")
	ErrNegative     = errors.New("wad: negative operand")
	ErrExpDomain    = errors.New("wad: exp input outside supported domain")
	ErrLnDomain     = errors.New("wad: ln input must be positive")
)

// Mul returns a*b/Scale rounded toward zero. It fails with ErrOverflow when
// the unscaled product a*b exceeds MaxValue, so a silently-truncated product
// can never reach the caller.
func Mul(a, b *big.Int) (*big.Int, error) {
	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, ErrNegative
	}
	p := new(big.Int).Mul(a, b)
	if p.Cmp(MaxValue) > 0 {
		return nil, ErrOverflow
	}
	return p.Quo(p, Scale), nil
}

// Div returns a*Scale/b rounded toward zero. Fails with ErrDivideByZero when
// b is zero and ErrOverflow when the scaled quotient leaves the 256-bit range.
func Div(a, b *big.Int) (*big.Int, error) {
	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, ErrNegative
	}
	if b.Sign() == 0 {
		return nil, ErrDivideByZero
	}
	q := new(big.Int).Mul(a, Scale)
	q.Quo(q, b)
	if q.Cmp(MaxValue) > 0 {
		return nil, ErrOverflow
	}
	return q, nil
}

// MulDiv returns a*b/c rounded toward zero, computing the full-width product
// before dividing so the intermediate never overflows. Fails with
// ErrDivideByZero when c is zero and ErrOverflow when the true quotient
// exceeds MaxValue.
func MulDiv(a, b, c *big.Int) (*big.Int, error) {
	if a.Sign() < 0 || b.Sign() < 0 || c.Sign() < 0 {
		return nil, ErrNegative
	}
	if c.Sign() == 0 {
		return nil, ErrDivideByZero
	}
	q := new(big.Int).Mul(a, b)
	q.Quo(q, c)
	if q.Cmp(MaxValue) > 0 {
		return nil, ErrOverflow
	}
	return q, nil
}

// Parse converts a decimal string such as "0.000001" into a WAD value.
func Parse(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return d.Shift(Decimals).BigInt(), nil
}

// Format renders a WAD value as a plain decimal string.
func Format(x *big.Int) string {
	return decimal.NewFromBigInt(x, -Decimals).String()
}
