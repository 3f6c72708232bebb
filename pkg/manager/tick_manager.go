package manager

import (
	"cosmossdk.io/math"
	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"lukechampine.com/uint128"
)

// NextTickCrossUpdate flips the outside growths of tick as price crosses it.
// Crossing the same tick back restores the previous values exactly.
func NextTickCrossUpdate(
	tick *state.Tick,
	feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128,
	rewardInfos *[state.NumRewards]state.RewardInfo,
) state.TickUpdate {
	update := state.NewTickUpdate(tick)
	update.FeeGrowthOutsideA = feeGrowthGlobalA.SubWrap(tick.FeeGrowthOutsideA)
	update.FeeGrowthOutsideB = feeGrowthGlobalB.SubWrap(tick.FeeGrowthOutsideB)
	for i, info := range rewardInfos {
		if !info.Initialized() {
			continue
		}
		update.RewardGrowthsOutside[i] = info.GrowthGlobalX64.SubWrap(tick.RewardGrowthsOutside[i])
	}
	return update
}

// NextTickModifyLiquidityUpdate computes the state of tick after a position
// bounded by it changes liquidity by delta.
func NextTickModifyLiquidityUpdate(
	tick *state.Tick,
	tickIndex int32,
	tickCurrentIndex int32,
	feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128,
	rewardInfos *[state.NumRewards]state.RewardInfo,
	liquidityDelta math.Int,
	isUpperTick bool,
) (state.TickUpdate, error) {
	liquidityDelta = clmath.ZeroIfNil(liquidityDelta)
	if liquidityDelta.IsZero() {
		return state.NewTickUpdate(tick), nil
	}

	gross, err := clmath.AddLiquidityDelta(tick.LiquidityGross, liquidityDelta)
	if err != nil {
		return state.TickUpdate{}, err
	}

	// No position references the tick anymore.
	if gross.IsZero() {
		return state.TickUpdate{LiquidityNet: math.ZeroInt()}, nil
	}

	feeOutsideA, feeOutsideB := tick.FeeGrowthOutsideA, tick.FeeGrowthOutsideB
	rewardsOutside := tick.RewardGrowthsOutside
	if tick.LiquidityGross.IsZero() {
		// By convention all growth before initialization happened below the tick.
		if tickCurrentIndex >= tickIndex {
			feeOutsideA, feeOutsideB = feeGrowthGlobalA, feeGrowthGlobalB
			rewardsOutside = state.RewardGrowths(*rewardInfos)
		} else {
			feeOutsideA, feeOutsideB = uint128.Zero, uint128.Zero
			rewardsOutside = [state.NumRewards]uint128.Uint128{}
		}
	}

	var net math.Int
	var ok bool
	if isUpperTick {
		net, ok = clmath.CheckedSubI128(tick.Net(), liquidityDelta)
	} else {
		net, ok = clmath.CheckedAddI128(tick.Net(), liquidityDelta)
	}
	if !ok {
		return state.TickUpdate{}, errs.LiquidityNetError
	}

	return state.TickUpdate{
		Initialized:          true,
		LiquidityNet:         net,
		LiquidityGross:       gross,
		FeeGrowthOutsideA:    feeOutsideA,
		FeeGrowthOutsideB:    feeOutsideB,
		RewardGrowthsOutside: rewardsOutside,
	}, nil
}

// NextFeeGrowthsInside returns the fee growth accumulated within
// [tickLowerIndex, tickUpperIndex). An uninitialized lower tick counts all
// growth as below; an uninitialized upper tick counts none as above.
func NextFeeGrowthsInside(
	tickCurrentIndex int32,
	tickLower *state.Tick,
	tickLowerIndex int32,
	tickUpper *state.Tick,
	tickUpperIndex int32,
	feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128,
) (uint128.Uint128, uint128.Uint128) {
	belowA := growthBelow(tickCurrentIndex, tickLower.Initialized, tickLowerIndex, tickLower.FeeGrowthOutsideA, feeGrowthGlobalA)
	belowB := growthBelow(tickCurrentIndex, tickLower.Initialized, tickLowerIndex, tickLower.FeeGrowthOutsideB, feeGrowthGlobalB)
	aboveA := growthAbove(tickCurrentIndex, tickUpper.Initialized, tickUpperIndex, tickUpper.FeeGrowthOutsideA, feeGrowthGlobalA)
	aboveB := growthAbove(tickCurrentIndex, tickUpper.Initialized, tickUpperIndex, tickUpper.FeeGrowthOutsideB, feeGrowthGlobalB)

	return feeGrowthGlobalA.SubWrap(belowA).SubWrap(aboveA),
		feeGrowthGlobalB.SubWrap(belowB).SubWrap(aboveB)
}

// NextRewardGrowthsInside is NextFeeGrowthsInside for every initialized
// reward slot. Uninitialized slots report zero.
func NextRewardGrowthsInside(
	tickCurrentIndex int32,
	tickLower *state.Tick,
	tickLowerIndex int32,
	tickUpper *state.Tick,
	tickUpperIndex int32,
	rewardInfos *[state.NumRewards]state.RewardInfo,
) [state.NumRewards]uint128.Uint128 {
	var inside [state.NumRewards]uint128.Uint128
	for i, info := range rewardInfos {
		if !info.Initialized() {
			continue
		}
		global := info.GrowthGlobalX64
		below := growthBelow(tickCurrentIndex, tickLower.Initialized, tickLowerIndex, tickLower.RewardGrowthsOutside[i], global)
		above := growthAbove(tickCurrentIndex, tickUpper.Initialized, tickUpperIndex, tickUpper.RewardGrowthsOutside[i], global)
		inside[i] = global.SubWrap(below).SubWrap(above)
	}
	return inside
}

func growthBelow(current int32, initialized bool, index int32, outside, global uint128.Uint128) uint128.Uint128 {
	switch {
	case !initialized:
		return global
	case current < index:
		return global.SubWrap(outside)
	default:
		return outside
	}
}

func growthAbove(current int32, initialized bool, index int32, outside, global uint128.Uint128) uint128.Uint128 {
	switch {
	case !initialized:
		return uint128.Zero
	case current < index:
		return outside
	default:
		return global.SubWrap(outside)
	}
}
