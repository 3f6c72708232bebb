package manager

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"lukechampine.com/uint128"
)

// ModifyLiquidityUpdate bundles every change produced by one liquidity
// modification. It is applied all at once or not at all.
type ModifyLiquidityUpdate struct {
	PoolLiquidity   uint128.Uint128
	RewardInfos     [state.NumRewards]state.RewardInfo
	PositionUpdate  state.PositionUpdate
	TickLowerUpdate state.TickUpdate
	TickUpperUpdate state.TickUpdate
}

// CalculateModifyLiquidity computes the effect of changing position's
// liquidity by liquidityDelta at timestamp. A zero delta only settles fees
// and rewards. Nothing passed in is mutated.
func CalculateModifyLiquidity(
	pool *state.Pool,
	position *state.Position,
	tickLower *state.Tick,
	tickUpper *state.Tick,
	liquidityDelta math.Int,
	timestamp uint64,
) (ModifyLiquidityUpdate, error) {
	liquidityDelta = clmath.ZeroIfNil(liquidityDelta)
	if !clmath.IsI128(liquidityDelta) {
		return ModifyLiquidityUpdate{}, errs.LiquidityTooHigh
	}
	if liquidityDelta.IsZero() && position.Liquidity.IsZero() {
		return ModifyLiquidityUpdate{}, errs.LiquidityZero
	}

	rewardInfos, err := NextPoolRewardInfos(pool, timestamp)
	if err != nil {
		return ModifyLiquidityUpdate{}, err
	}

	poolLiquidity, err := NextPoolLiquidity(pool, position.TickLowerIndex, position.TickUpperIndex, liquidityDelta)
	if err != nil {
		return ModifyLiquidityUpdate{}, fmt.Errorf("pool liquidity: %w", err)
	}

	lowerUpdate, err := NextTickModifyLiquidityUpdate(
		tickLower, position.TickLowerIndex, pool.TickCurrentIndex,
		pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB, &rewardInfos, liquidityDelta, false,
	)
	if err != nil {
		return ModifyLiquidityUpdate{}, fmt.Errorf("tick lower %d: %w", position.TickLowerIndex, err)
	}
	upperUpdate, err := NextTickModifyLiquidityUpdate(
		tickUpper, position.TickUpperIndex, pool.TickCurrentIndex,
		pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB, &rewardInfos, liquidityDelta, true,
	)
	if err != nil {
		return ModifyLiquidityUpdate{}, fmt.Errorf("tick upper %d: %w", position.TickUpperIndex, err)
	}

	// Inside growth is measured against the ticks as they were before this change.
	feeInsideA, feeInsideB := NextFeeGrowthsInside(
		pool.TickCurrentIndex,
		tickLower, position.TickLowerIndex,
		tickUpper, position.TickUpperIndex,
		pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB,
	)
	rewardsInside := NextRewardGrowthsInside(
		pool.TickCurrentIndex,
		tickLower, position.TickLowerIndex,
		tickUpper, position.TickUpperIndex,
		&rewardInfos,
	)

	positionUpdate, err := NextPositionModifyLiquidityUpdate(position, liquidityDelta, feeInsideA, feeInsideB, rewardsInside)
	if err != nil {
		return ModifyLiquidityUpdate{}, fmt.Errorf("position: %w", err)
	}

	return ModifyLiquidityUpdate{
		PoolLiquidity:   poolLiquidity,
		RewardInfos:     rewardInfos,
		PositionUpdate:  positionUpdate,
		TickLowerUpdate: lowerUpdate,
		TickUpperUpdate: upperUpdate,
	}, nil
}

// NextPoolLiquidity returns the pool's active liquidity after a position over
// [tickLowerIndex, tickUpperIndex) changes by liquidityDelta. Only in-range
// positions count toward active liquidity.
func NextPoolLiquidity(pool *state.Pool, tickLowerIndex, tickUpperIndex int32, liquidityDelta math.Int) (uint128.Uint128, error) {
	if pool.TickCurrentIndex < tickUpperIndex && pool.TickCurrentIndex >= tickLowerIndex {
		return clmath.AddLiquidityDelta(pool.Liquidity, liquidityDelta)
	}
	return pool.Liquidity, nil
}

// CalculateFeeAndRewardGrowths settles position's fees and rewards without
// changing liquidity. It returns the position update and the brought-current
// pool reward infos. Unlike a zero-delta modification it accepts empty
// positions.
func CalculateFeeAndRewardGrowths(
	pool *state.Pool,
	position *state.Position,
	tickLower *state.Tick,
	tickUpper *state.Tick,
	timestamp uint64,
) (state.PositionUpdate, [state.NumRewards]state.RewardInfo, error) {
	rewardInfos, err := NextPoolRewardInfos(pool, timestamp)
	if err != nil {
		return state.PositionUpdate{}, pool.RewardInfos, err
	}

	feeInsideA, feeInsideB := NextFeeGrowthsInside(
		pool.TickCurrentIndex,
		tickLower, position.TickLowerIndex,
		tickUpper, position.TickUpperIndex,
		pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB,
	)
	rewardsInside := NextRewardGrowthsInside(
		pool.TickCurrentIndex,
		tickLower, position.TickLowerIndex,
		tickUpper, position.TickUpperIndex,
		&rewardInfos,
	)

	update, err := NextPositionModifyLiquidityUpdate(position, math.ZeroInt(), feeInsideA, feeInsideB, rewardsInside)
	if err != nil {
		return state.PositionUpdate{}, pool.RewardInfos, fmt.Errorf("position: %w", err)
	}
	return update, rewardInfos, nil
}

// SyncModifyLiquidityValues applies update to the live containers. Both
// ticks are resolved before anything is written.
func SyncModifyLiquidityValues(
	pool *state.Pool,
	position *state.Position,
	tickArrayLower *state.TickArray,
	tickArrayUpper *state.TickArray,
	update ModifyLiquidityUpdate,
	timestamp uint64,
) error {
	lower, err := tickArrayLower.GetTick(position.TickLowerIndex, pool.TickSpacing)
	if err != nil {
		return fmt.Errorf("tick lower %d: %w", position.TickLowerIndex, err)
	}
	upper, err := tickArrayUpper.GetTick(position.TickUpperIndex, pool.TickSpacing)
	if err != nil {
		return fmt.Errorf("tick upper %d: %w", position.TickUpperIndex, err)
	}

	pool.UpdateRewardsAndLiquidity(update.RewardInfos, update.PoolLiquidity, timestamp)
	lower.Update(update.TickLowerUpdate)
	upper.Update(update.TickUpperUpdate)
	position.Update(update.PositionUpdate)
	return nil
}
