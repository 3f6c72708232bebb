package clmath

import (
	"fmt"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// Q64Resolution is the number of fractional bits in a Q64.64 value.
const Q64Resolution = 64

// Q64 is 1.0 in Q64.64.
var Q64 = uint128.New(0, 1)

func toU256(v uint128.Uint128) *uint256.Int {
	return &uint256.Int{v.Lo, v.Hi, 0, 0}
}

func fromU256(v *uint256.Int) (uint128.Uint128, bool) {
	if v[2] != 0 || v[3] != 0 {
		return uint128.Zero, false
	}
	return uint128.New(v[0], v[1]), true
}

// CheckedMulShiftRight returns (n0 * n1) >> 64 as a token amount. The product is
// taken in 256 bits; the shifted result must fit in 64 bits.
func CheckedMulShiftRight(n0, n1 uint128.Uint128) (uint64, error) {
	if n0.IsZero() || n1.IsZero() {
		return 0, nil
	}

	p := new(uint256.Int).Mul(toU256(n0), toU256(n1))
	p.Rsh(p, Q64Resolution)
	if !p.IsUint64() {
		return 0, fmt.Errorf("%w: %w", errs.ArithmeticOverflow, errs.MultiplicationShiftRightOverflow)
	}
	return p.Uint64(), nil
}

// CheckedMulDiv returns floor(n0 * n1 / d) with a 256-bit intermediate.
func CheckedMulDiv(n0, n1, d uint128.Uint128) (uint128.Uint128, error) {
	if d.IsZero() {
		return uint128.Zero, errs.DivideByZero
	}
	if n0.IsZero() || n1.IsZero() {
		return uint128.Zero, nil
	}

	p := new(uint256.Int).Mul(toU256(n0), toU256(n1))
	p.Div(p, toU256(d))
	out, ok := fromU256(p)
	if !ok {
		return uint128.Zero, fmt.Errorf("%w: %w", errs.ArithmeticOverflow, errs.MulDivOverflow)
	}
	return out, nil
}

// ShiftLeftDiv returns (n << 64) / d, the Q64.64 growth of amount n spread over d.
func ShiftLeftDiv(n uint64, d uint128.Uint128) (uint128.Uint128, error) {
	if d.IsZero() {
		return uint128.Zero, errs.DivideByZero
	}
	return uint128.New(0, n).Div(d), nil
}
