package curve

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/hamza-akhtar-dev/bondcurve/pkg/wad"
)

// Every rejection carries the offending value and the bound it violated so
// callers can surface or log the exact business rule that failed. All of
// these are hard rejections: retrying with the same inputs reproduces the
// same error.

// ParameterOutOfRangeError reports a construction-time parameter outside its
// allowed band.
type ParameterOutOfRangeError struct {
	Name     string
	Value    *big.Int
	Min, Max *big.Int
}

func (e *ParameterOutOfRangeError) Error() string {
	return fmt.Sprintf("curve: parameter %s = %s out of range [%s, %s]",
		e.Name, e.Value, e.Min, e.Max)
}

// SupplyExceedsMaximumError reports a supply argument above MaxSupply.
type SupplyExceedsMaximumError struct {
	Supply    *big.Int
	MaxSupply *big.Int
}

func (e *SupplyExceedsMaximumError) Error() string {
	return fmt.Sprintf("curve: supply %s exceeds maximum %s", e.Supply, e.MaxSupply)
}

// TransactionTooLargeError reports a trade delta above MaxTxSize.
type TransactionTooLargeError struct {
	Amount    *big.Int
	MaxTxSize *big.Int
}

func (e *TransactionTooLargeError) Error() string {
	return fmt.Sprintf("curve: transaction size %s exceeds maximum %s", e.Amount, e.MaxTxSize)
}

// ExponentTooLargeError reports B*x outside the configured safe exponent
// domain. This is a numeric-domain gate, not an economic rule.
type ExponentTooLargeError struct {
	Exponent    *big.Int
	MaxExponent *big.Int
}

func (e *ExponentTooLargeError) Error() string {
	return fmt.Sprintf("curve: exponent %s exceeds safe maximum %s", e.Exponent, e.MaxExponent)
}

// InsufficientRemainingSupplyError reports headroom below MaxSupply too small
// for any further purchase.
type InsufficientRemainingSupplyError struct {
	Remaining    *big.Int
	MinRemaining *big.Int
}

func (e *InsufficientRemainingSupplyError) Error() string {
	return fmt.Sprintf("curve: remaining supply %s below required minimum %s",
		e.Remaining, e.MinRemaining)
}

// InvalidRangeError reports a sell amount larger than the current supply.
type InvalidRangeError struct {
	Amount *big.Int
	Supply *big.Int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("curve: cannot remove %s from supply of %s", e.Amount, e.Supply)
}

// NegativeValueError reports a negative scalar where the curve domain is
// non-negative.
type NegativeValueError struct {
	Name  string
	Value *big.Int
}

func (e *NegativeValueError) Error() string {
	return fmt.Sprintf("curve: %s must be non-negative, got %s", e.Name, e.Value)
}

// Code returns a short machine-readable identifier for a curve or kernel
// error, used by the API layer and the quote log.
func Code(err error) string {
	switch err.(type) {
	case *ParameterOutOfRangeError:
		return "parameter_out_of_range"
	case *SupplyExceedsMaximumError:
		return "supply_exceeds_maximum"
	case *TransactionTooLargeError:
		return "transaction_too_large"
	case *ExponentTooLargeError:
		return "exponent_too_large"
	case *InsufficientRemainingSupplyError:
		return "insufficient_remaining_supply"
	case *InvalidRangeError:
		return "invalid_range"
	case *NegativeValueError:
		return "negative_value"
	}
	switch {
	case errors.Is(err, wad.ErrDivideByZero):
		return "divide_by_zero"
	case errors.Is(err, wad.ErrOverflow):
		return "overflow"
	}
	return "internal"
}
