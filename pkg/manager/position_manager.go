package manager

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"lukechampine.com/uint128"
)

// NextPositionModifyLiquidityUpdate settles the fees and rewards earned since
// the last checkpoint and applies liquidityDelta.
func NextPositionModifyLiquidityUpdate(
	position *state.Position,
	liquidityDelta math.Int,
	feeGrowthInsideA, feeGrowthInsideB uint128.Uint128,
	rewardGrowthsInside [state.NumRewards]uint128.Uint128,
) (state.PositionUpdate, error) {
	owedA, err := clmath.CheckedMulShiftRight(position.Liquidity, feeGrowthInsideA.SubWrap(position.FeeGrowthCheckpointA))
	if err != nil {
		return state.PositionUpdate{}, fmt.Errorf("fee a owed: %w", err)
	}
	owedB, err := clmath.CheckedMulShiftRight(position.Liquidity, feeGrowthInsideB.SubWrap(position.FeeGrowthCheckpointB))
	if err != nil {
		return state.PositionUpdate{}, fmt.Errorf("fee b owed: %w", err)
	}

	update := state.PositionUpdate{
		FeeGrowthCheckpointA: feeGrowthInsideA,
		FeeOwedA:             position.FeeOwedA + owedA,
		FeeGrowthCheckpointB: feeGrowthInsideB,
		FeeOwedB:             position.FeeOwedB + owedB,
	}

	for i, inside := range rewardGrowthsInside {
		current := position.RewardInfos[i]
		owed, err := clmath.CheckedMulShiftRight(position.Liquidity, inside.SubWrap(current.GrowthInsideCheckpoint))
		if err != nil {
			return state.PositionUpdate{}, fmt.Errorf("reward %d owed: %w", i, err)
		}
		update.RewardInfos[i] = state.PositionRewardInfo{
			GrowthInsideCheckpoint: inside,
			AmountOwed:             current.AmountOwed + owed,
		}
	}

	update.Liquidity, err = clmath.AddLiquidityDelta(position.Liquidity, liquidityDelta)
	if err != nil {
		return state.PositionUpdate{}, err
	}
	return update, nil
}
