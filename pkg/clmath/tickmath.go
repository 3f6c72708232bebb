package clmath

import (
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

const (
	// MinTickIndex and MaxTickIndex bound every initializable tick.
	MinTickIndex int32 = -443636
	MaxTickIndex int32 = 443636
)

var (
	// MinSqrtPriceX64 is the sqrt price at MinTickIndex.
	MinSqrtPriceX64 = uint128.From64(4295048016)
	// MaxSqrtPriceX64 is the sqrt price at MaxTickIndex.
	MaxSqrtPriceX64 = mustU128("79226673515401279992447579055")

	// sqrt(1.0001^(2^i)) in Q32.96, used for positive ticks.
	positiveRatios = [20]*uint256.Int{
		uint256.MustFromDecimal("79232123823359799118286999567"),
		uint256.MustFromDecimal("79228162514264337593543950336"),
		uint256.MustFromDecimal("79236085330515764027303304731"),
		uint256.MustFromDecimal("79244008939048815603706035061"),
		uint256.MustFromDecimal("79259858533276714757314932305"),
		uint256.MustFromDecimal("79291567232598584799939703904"),
		uint256.MustFromDecimal("79355022692464371645785046466"),
		uint256.MustFromDecimal("79482085999252804386437311141"),
		uint256.MustFromDecimal("79736823300114093921829183326"),
		uint256.MustFromDecimal("80248749790819932309965073892"),
		uint256.MustFromDecimal("81282483887344747381513967011"),
		uint256.MustFromDecimal("83390072131320151908154831281"),
		uint256.MustFromDecimal("87770609709833776024991924138"),
		uint256.MustFromDecimal("97234110755111693312479820773"),
		uint256.MustFromDecimal("119332217159966728226237229890"),
		uint256.MustFromDecimal("179736315981702064433883588727"),
		uint256.MustFromDecimal("407748233172238350107850275304"),
		uint256.MustFromDecimal("2098478828474011932436660412517"),
		uint256.MustFromDecimal("55581415166113811149459800483533"),
		uint256.MustFromDecimal("38992368544603139932233054999993551"),
	}

	// 1/sqrt(1.0001^(2^i)) in Q64.64, used for negative ticks.
	negativeRatios = [20]*uint256.Int{
		uint256.MustFromDecimal("18445821805675392311"),
		uint256.MustFromDecimal("18446744073709551616"),
		uint256.MustFromDecimal("18444899583751176498"),
		uint256.MustFromDecimal("18443055278223354162"),
		uint256.MustFromDecimal("18439367220385604838"),
		uint256.MustFromDecimal("18431993317065449817"),
		uint256.MustFromDecimal("18417254355718160513"),
		uint256.MustFromDecimal("18387811781193591352"),
		uint256.MustFromDecimal("18329067761203520168"),
		uint256.MustFromDecimal("18212142134806087854"),
		uint256.MustFromDecimal("17980523815641551639"),
		uint256.MustFromDecimal("17526086738831147013"),
		uint256.MustFromDecimal("16651378430235024244"),
		uint256.MustFromDecimal("15030750278693429944"),
		uint256.MustFromDecimal("12247334978882834399"),
		uint256.MustFromDecimal("8131365268884726200"),
		uint256.MustFromDecimal("3584323654723342297"),
		uint256.MustFromDecimal("696457651847595233"),
		uint256.MustFromDecimal("26294789957452057"),
		uint256.MustFromDecimal("37481735321082"),
	}
)

// SqrtPriceFromTickIndex returns sqrt(1.0001^tick) in Q64.64.
func SqrtPriceFromTickIndex(tick int32) (uint128.Uint128, error) {
	if tick < MinTickIndex || tick > MaxTickIndex {
		return uint128.Zero, errs.InvalidTickIndex
	}

	if tick >= 0 {
		ratio := new(uint256.Int).Set(positiveRatios[1])
		if tick&1 != 0 {
			ratio.Set(positiveRatios[0])
		}
		for i := 2; i < len(positiveRatios); i++ {
			if tick&(1<<(i-1)) != 0 {
				ratio.Mul(ratio, positiveRatios[i]).Rsh(ratio, 96)
			}
		}
		ratio.Rsh(ratio, 32)
		out, _ := fromU256(ratio)
		return out, nil
	}

	abs := -tick
	ratio := new(uint256.Int).Set(negativeRatios[1])
	if abs&1 != 0 {
		ratio.Set(negativeRatios[0])
	}
	for i := 2; i < len(negativeRatios); i++ {
		if abs&(1<<(i-1)) != 0 {
			ratio.Mul(ratio, negativeRatios[i]).Rsh(ratio, 64)
		}
	}
	out, _ := fromU256(ratio)
	return out, nil
}

// TickIndexFromSqrtPrice returns the greatest tick whose sqrt price is at most
// sqrtPrice.
func TickIndexFromSqrtPrice(sqrtPrice uint128.Uint128) (int32, error) {
	if sqrtPrice.Cmp(MinSqrtPriceX64) < 0 || sqrtPrice.Cmp(MaxSqrtPriceX64) > 0 {
		return 0, errs.SqrtPriceOutOfBounds
	}

	low, high := MinTickIndex, MaxTickIndex
	tick := MinTickIndex
	for low <= high {
		mid := low + (high-low)/2
		p, err := SqrtPriceFromTickIndex(mid)
		if err != nil {
			return 0, err
		}
		if p.Cmp(sqrtPrice) <= 0 {
			tick = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return tick, nil
}

func mustU128(s string) uint128.Uint128 {
	v, err := uint128.FromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsTickInBounds reports whether tick lies within the initializable range.
func IsTickInBounds(tick int32) bool {
	return tick >= MinTickIndex && tick <= MaxTickIndex
}
