package wad

import "math/big"

// Series lengths are hard caps; both loops normally stop earlier once the
// running term truncates to zero at WAD precision.
const (
	expTerms = 40
	lnTerms  = 40
)

var two = big.NewInt(2)

// ExpWad returns e^(y/Scale) * Scale rounded toward zero.
//
// The input is reduced with y = k*ln2 + r, 0 <= r < ln2, so the result is
// exp(r) << k. e^r is a Taylor series whose terms shrink by at least r < 0.7
// per step, converging well past 18 decimals. Inputs above MaxExpInput fail
// with ErrOverflow because the true result would not fit in 256 bits;
// negative inputs are outside the supported domain.
func ExpWad(y *big.Int) (*big.Int, error) {
	if y.Sign() < 0 {
		return nil, ErrExpDomain
	}
	if y.Cmp(MaxExpInput) > 0 {
		return nil, ErrOverflow
	}

	k := new(big.Int)
	r := new(big.Int)
	k.QuoRem(y, Ln2, r)

	sum := new(big.Int).Set(Scale)
	term := new(big.Int).Set(Scale)
	for i := int64(1); i <= expTerms; i++ {
		term.Mul(term, r)
		term.Quo(term, Scale)
		term.Quo(term, big.NewInt(i))
		if term.Sign() == 0 {
			break
		}
		sum.Add(sum, term)
	}

	out := sum.Lsh(sum, uint(k.Uint64()))
	if out.Cmp(MaxValue) > 0 {
		return nil, ErrOverflow
	}
	return out, nil
}

// LnWad returns ln(y/Scale) * Scale rounded toward zero. The result is
// negative for inputs below one WAD. Fails with ErrLnDomain for y <= 0.
//
// The input is normalized to m in [Scale, 2*Scale) with y ~= m * 2^k, then
// ln(m) is computed from the atanh series
//
//	ln(m) = 2*(t + t^3/3 + t^5/5 + ...), t = (m-1)/(m+1)
//
// where t <= 1/3, so terms shrink ninefold per step.
func LnWad(y *big.Int) (*big.Int, error) {
	if y.Sign() <= 0 {
		return nil, ErrLnDomain
	}

	m := new(big.Int).Set(y)
	k := int64(0)
	twoScale := new(big.Int).Mul(Scale, two)
	for m.Cmp(twoScale) >= 0 {
		m.Rsh(m, 1)
		k++
	}
	for m.Cmp(Scale) < 0 {
		m.Lsh(m, 1)
		k--
	}

	num := new(big.Int).Sub(m, Scale)
	den := new(big.Int).Add(m, Scale)
	t := num.Mul(num, Scale)
	t.Quo(t, den)

	t2 := new(big.Int).Mul(t, t)
	t2.Quo(t2, Scale)

	sum := new(big.Int).Set(t)
	term := new(big.Int).Set(t)
	part := new(big.Int)
	for i := int64(3); i <= 2*lnTerms+1; i += 2 {
		term.Mul(term, t2)
		term.Quo(term, Scale)
		if term.Sign() == 0 {
			break
		}
		part.Quo(term, big.NewInt(i))
		sum.Add(sum, part)
	}
	sum.Mul(sum, two)

	shift := new(big.Int).Mul(big.NewInt(k), Ln2)
	return sum.Add(sum, shift), nil
}
