package manager

import (
	"fmt"

	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"lukechampine.com/uint128"
)

// SwapStep is one leg of an externally computed swap. The fee is charged in
// the input token; CrossTick is set when the leg ends on an initialized tick.
type SwapStep struct {
	FeeAmount uint64
	CrossTick *int32
}

// SwapInput describes a completed swap whose curve math ran elsewhere.
type SwapInput struct {
	AToB             bool
	Steps            []SwapStep
	SqrtPrice        uint128.Uint128
	TickCurrentIndex int32
}

// CrossedTick is the new state of a tick crossed during a swap.
type CrossedTick struct {
	TickIndex int32
	Update    state.TickUpdate
}

// SwapResult holds everything a reported swap changes.
type SwapResult struct {
	PoolUpdate   state.SwapUpdate
	CrossedTicks []CrossedTick
}

// TickLookup resolves the ticks a reported swap passes over.
type TickLookup interface {
	// Tick returns the initialized tick at tickIndex.
	Tick(tickIndex int32) (*state.Tick, error)
	// NextInitializedTick returns the initialized tick nearest to from in the
	// swap direction: within (limit, from] when aToB, within (from, limit]
	// otherwise. ok is false when the range holds none.
	NextInitializedTick(from, limit int32, aToB bool) (tick int32, ok bool, err error)
}

// CalculateSwap accrues the fees of input into global fee growth and flips
// every crossed tick. Protocol fees are carved out of each leg first. Every
// initialized tick between the pool's tick and the final tick must be
// crossed, in order, and the final tick must match the final sqrt price.
func CalculateSwap(pool *state.Pool, input SwapInput, lookup TickLookup, timestamp uint64) (SwapResult, error) {
	if input.SqrtPrice.Cmp(clmath.MinSqrtPriceX64) < 0 || input.SqrtPrice.Cmp(clmath.MaxSqrtPriceX64) > 0 {
		return SwapResult{}, errs.SqrtPriceOutOfBounds
	}
	if !clmath.IsTickInBounds(input.TickCurrentIndex) && input.TickCurrentIndex != clmath.MinTickIndex-1 {
		return SwapResult{}, errs.InvalidTickIndex
	}
	if err := checkFinalTick(input); err != nil {
		return SwapResult{}, err
	}

	rewardInfos, err := NextPoolRewardInfos(pool, timestamp)
	if err != nil {
		return SwapResult{}, err
	}

	liquidity := pool.Liquidity
	current := pool.TickCurrentIndex
	feeGrowth := pool.FeeGrowthGlobalB
	if input.AToB {
		feeGrowth = pool.FeeGrowthGlobalA
	}
	var protocolFee uint64
	var crossed []CrossedTick

	for i, step := range input.Steps {
		fee := step.FeeAmount
		if pool.ProtocolFeeRate > 0 && fee > 0 {
			delta, err := clmath.CheckedMulDiv(uint128.From64(fee), uint128.From64(uint64(pool.ProtocolFeeRate)), uint128.From64(state.ProtocolFeeRateMulValue))
			if err != nil {
				return SwapResult{}, fmt.Errorf("step %d protocol fee: %w", i, err)
			}
			fee -= delta.Lo
			protocolFee += delta.Lo
		}
		if fee > 0 && !liquidity.IsZero() {
			growth, err := clmath.ShiftLeftDiv(fee, liquidity)
			if err != nil {
				return SwapResult{}, fmt.Errorf("step %d fee growth: %w", i, err)
			}
			feeGrowth = feeGrowth.AddWrap(growth)
		}

		if step.CrossTick == nil {
			continue
		}
		tickIndex := *step.CrossTick
		if input.AToB && tickIndex > current || !input.AToB && tickIndex <= current {
			return SwapResult{}, fmt.Errorf("step %d crosses tick %d from %d: %w", i, tickIndex, current, errs.InvalidTickArraySequence)
		}
		tick, err := lookup.Tick(tickIndex)
		if err != nil {
			return SwapResult{}, fmt.Errorf("step %d tick %d: %w", i, tickIndex, err)
		}
		limit := tickIndex
		if input.AToB {
			limit = tickIndex - 1
		}
		next, ok, err := lookup.NextInitializedTick(current, limit, input.AToB)
		if err != nil {
			return SwapResult{}, fmt.Errorf("step %d tick %d: %w", i, tickIndex, err)
		}
		if !ok {
			return SwapResult{}, fmt.Errorf("step %d tick %d not reachable from %d: %w", i, tickIndex, current, errs.InvalidTickArraySequence)
		}
		if next != tickIndex {
			return SwapResult{}, fmt.Errorf("step %d crosses tick %d before initialized tick %d: %w", i, tickIndex, next, errs.InvalidTickArraySequence)
		}

		feeGrowthA, feeGrowthB := pool.FeeGrowthGlobalA, feeGrowth
		if input.AToB {
			feeGrowthA, feeGrowthB = feeGrowth, pool.FeeGrowthGlobalB
		}
		crossed = append(crossed, CrossedTick{
			TickIndex: tickIndex,
			Update:    NextTickCrossUpdate(tick, feeGrowthA, feeGrowthB, &rewardInfos),
		})

		net := tick.Net()
		if input.AToB {
			net = net.Neg()
			current = tickIndex - 1
		} else {
			current = tickIndex
		}
		liquidity, err = clmath.AddLiquidityDelta(liquidity, net)
		if err != nil {
			return SwapResult{}, fmt.Errorf("step %d cross tick %d: %w", i, tickIndex, err)
		}
	}

	if input.AToB && input.TickCurrentIndex > current || !input.AToB && input.TickCurrentIndex < current {
		return SwapResult{}, fmt.Errorf("final tick %d behind last crossing %d: %w", input.TickCurrentIndex, current, errs.InvalidTickArraySequence)
	}
	skipped, ok, err := lookup.NextInitializedTick(current, input.TickCurrentIndex, input.AToB)
	if err != nil {
		return SwapResult{}, fmt.Errorf("final tick %d: %w", input.TickCurrentIndex, err)
	}
	if ok {
		return SwapResult{}, fmt.Errorf("initialized tick %d not crossed: %w", skipped, errs.InvalidTickArraySequence)
	}

	return SwapResult{
		PoolUpdate: state.SwapUpdate{
			Liquidity:        liquidity,
			TickCurrentIndex: input.TickCurrentIndex,
			SqrtPrice:        input.SqrtPrice,
			FeeGrowthGlobal:  feeGrowth,
			RewardInfos:      rewardInfos,
			ProtocolFee:      protocolFee,
			IsTokenFeeInA:    input.AToB,
		},
		CrossedTicks: crossed,
	}, nil
}

// checkFinalTick requires the final tick to be the tick of the final sqrt
// price. An a to b swap stopping exactly on a tick's price sits one tick
// below it.
func checkFinalTick(input SwapInput) error {
	tick, err := clmath.TickIndexFromSqrtPrice(input.SqrtPrice)
	if err != nil {
		return err
	}
	if tick == input.TickCurrentIndex {
		return nil
	}
	if input.AToB && tick == input.TickCurrentIndex+1 {
		boundary, err := clmath.SqrtPriceFromTickIndex(tick)
		if err != nil {
			return err
		}
		if boundary.Equals(input.SqrtPrice) {
			return nil
		}
	}
	return fmt.Errorf("tick %d does not match sqrt price at tick %d: %w", input.TickCurrentIndex, tick, errs.InvalidTickIndex)
}
