package clmath

import (
	"math/big"

	"cosmossdk.io/math"
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"lukechampine.com/uint128"
)

var (
	two128 = new(big.Int).Lsh(big.NewInt(1), 128)

	// MaxI128 and MinI128 bound every signed liquidity value.
	MaxI128 = math.NewIntFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1)))
	MinI128 = math.NewIntFromBigInt(new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127)))
)

// ZeroIfNil maps an unset math.Int to zero.
func ZeroIfNil(v math.Int) math.Int {
	if v.IsNil() {
		return math.ZeroInt()
	}
	return v
}

// IsI128 reports whether v fits in a signed 128-bit integer.
func IsI128(v math.Int) bool {
	v = ZeroIfNil(v)
	return !v.GT(MaxI128) && !v.LT(MinI128)
}

// AddLiquidityDelta applies a signed delta to an unsigned liquidity value.
func AddLiquidityDelta(liquidity uint128.Uint128, delta math.Int) (uint128.Uint128, error) {
	delta = ZeroIfNil(delta)
	if delta.IsZero() {
		return liquidity, nil
	}

	out := new(big.Int).Add(liquidity.Big(), delta.BigInt())
	if out.Sign() < 0 {
		return uint128.Zero, errs.LiquidityUnderflow
	}
	if out.Cmp(two128) >= 0 {
		return uint128.Zero, errs.LiquidityOverflow
	}
	return uint128.FromBig(out), nil
}

// CheckedAddI128 adds two signed 128-bit values, reporting false on overflow.
func CheckedAddI128(a, b math.Int) (math.Int, bool) {
	sum := ZeroIfNil(a).Add(ZeroIfNil(b))
	if !IsI128(sum) {
		return math.ZeroInt(), false
	}
	return sum, true
}

// CheckedSubI128 subtracts b from a, reporting false on overflow.
func CheckedSubI128(a, b math.Int) (math.Int, bool) {
	diff := ZeroIfNil(a).Sub(ZeroIfNil(b))
	if !IsI128(diff) {
		return math.ZeroInt(), false
	}
	return diff, true
}

// U128ToInt widens an unsigned 128-bit value into a math.Int.
func U128ToInt(v uint128.Uint128) math.Int {
	return math.NewIntFromBigInt(v.Big())
}

// PutI128 writes v as 16 little-endian two's complement bytes.
func PutI128(b []byte, v math.Int) {
	n := ZeroIfNil(v).BigInt()
	if n.Sign() < 0 {
		n.Add(n, two128)
	}
	uint128.FromBig(n).PutBytes(b)
}

// I128FromBytes reads 16 little-endian two's complement bytes.
func I128FromBytes(b []byte) math.Int {
	u := uint128.FromBytes(b)
	n := u.Big()
	if u.Hi>>63 == 1 {
		n.Sub(n, two128)
	}
	return math.NewIntFromBigInt(n)
}
