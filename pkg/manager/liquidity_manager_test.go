package manager

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestCalculateModifyLiquidity(t *testing.T) {
	t.Run("zero delta settles fees of an in range position", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{
			currIndexLoc:            currInside,
			poolLiquidity:           1000,
			positionLiquidity:       500,
			tickLowerLiquidityGross: 500,
			tickUpperLiquidityGross: 500,
		})
		f.incrementPoolFeeGrowths(toX64(100), toX64(200))

		update, err := f.modify(0, 0)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(1000), update.PoolLiquidity)
		assert.Equal(t, uint64(50000), update.PositionUpdate.FeeOwedA)
		assert.Equal(t, uint64(100000), update.PositionUpdate.FeeOwedB)
		assert.Equal(t, toX64(100), update.PositionUpdate.FeeGrowthCheckpointA)
		assert.Equal(t, toX64(200), update.PositionUpdate.FeeGrowthCheckpointB)
		assert.Equal(t, uint128.From64(500), update.PositionUpdate.Liquidity)
		requireTickUpdate(t, state.NewTickUpdate(f.tickLower), update.TickLowerUpdate)
		requireTickUpdate(t, state.NewTickUpdate(f.tickUpper), update.TickUpperUpdate)
	})

	t.Run("zero delta settles rewards", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{
			currIndexLoc:            currInside,
			poolLiquidity:           1000,
			positionLiquidity:       500,
			tickLowerLiquidityGross: 500,
			tickUpperLiquidityGross: 500,
			rewardInfos:             createPoolRewardInfos(toX64(2), uint128.Zero),
		})

		update, err := f.modify(0, 10)
		require.NoError(t, err)
		for i := range update.RewardInfos {
			assert.Equal(t, uint128.From64(368934881474191032), update.RewardInfos[i].GrowthGlobalX64)
			assert.Equal(t, uint64(9), update.PositionUpdate.RewardInfos[i].AmountOwed)
			assert.Equal(t, uint128.From64(368934881474191032), update.PositionUpdate.RewardInfos[i].GrowthInsideCheckpoint)
		}
	})

	t.Run("out of range positions earn nothing", func(t *testing.T) {
		for _, loc := range []currIndex{currBelow, currAbove} {
			f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{
				currIndexLoc:            loc,
				poolLiquidity:           1000,
				positionLiquidity:       500,
				tickLowerLiquidityGross: 500,
				tickUpperLiquidityGross: 500,
			})
			// Above the range all earlier growth sits below both ticks.
			if loc == currAbove {
				f.tickLower.FeeGrowthOutsideA = toX64(100)
				f.tickUpper.FeeGrowthOutsideA = toX64(100)
			}
			f.incrementPoolFeeGrowths(toX64(100), uint128.Zero)

			update, err := f.modify(100, 0)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), update.PositionUpdate.FeeOwedA)
			assert.Equal(t, uint128.From64(1000), update.PoolLiquidity)
			assert.Equal(t, uint128.From64(600), update.PositionUpdate.Liquidity)
		}
	})

	t.Run("updates ticks and pool liquidity", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{
			currIndexLoc:            currInside,
			poolLiquidity:           1000,
			positionLiquidity:       500,
			tickLowerLiquidityGross: 500,
			tickUpperLiquidityGross: 500,
		})

		update, err := f.modify(250, 0)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(1250), update.PoolLiquidity)
		assert.Equal(t, uint128.From64(750), update.TickLowerUpdate.LiquidityGross)
		assert.True(t, update.TickLowerUpdate.LiquidityNet.Equal(math.NewInt(750)))
		assert.Equal(t, uint128.From64(750), update.TickUpperUpdate.LiquidityGross)
		assert.True(t, update.TickUpperUpdate.LiquidityNet.Equal(math.NewInt(-750)))
	})

	t.Run("removing more than the position holds", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{
			currIndexLoc:            currInside,
			poolLiquidity:           1000,
			positionLiquidity:       500,
			tickLowerLiquidityGross: 500,
			tickUpperLiquidityGross: 500,
		})
		poolBefore, positionBefore := *f.pool, *f.position
		lowerBefore, upperBefore := *f.tickLower, *f.tickUpper

		_, err := f.modify(-501, 0)
		assert.ErrorIs(t, err, errs.LiquidityUnderflow)
		assert.Equal(t, poolBefore, *f.pool)
		assert.Equal(t, positionBefore, *f.position)
		assert.Equal(t, lowerBefore, *f.tickLower)
		assert.Equal(t, upperBefore, *f.tickUpper)
	})

	t.Run("zero delta on an empty position", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{currIndexLoc: currInside})
		_, err := f.modify(0, 0)
		assert.ErrorIs(t, err, errs.LiquidityZero)
	})

	t.Run("delta beyond i128", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{currIndexLoc: currInside})
		_, err := CalculateModifyLiquidity(f.pool, f.position, f.tickLower, f.tickUpper, clmath.MaxI128.AddRaw(1), 0)
		assert.ErrorIs(t, err, errs.LiquidityTooHigh)
	})

	t.Run("timestamp before last update", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{currIndexLoc: currInside})
		f.pool.RewardLastUpdatedTimestamp = 50
		_, err := f.modify(10, 49)
		assert.ErrorIs(t, err, errs.InvalidTimestamp)
	})
}

func TestModifyLiquidityConservation(t *testing.T) {
	f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{
		currIndexLoc: currInside,
		rewardInfos:  createPoolRewardInfos(toX64(1), uint128.Zero),
	})

	update, err := f.modify(1000, 0)
	require.NoError(t, err)
	f.applyUpdate(t, update, 0)
	assert.Equal(t, uint128.From64(1000), f.pool.Liquidity)
	assert.True(t, f.tickLower.Initialized)
	assert.True(t, f.tickUpper.Initialized)

	f.incrementPoolFeeGrowths(toX64(10), uint128.Zero)

	update, err = f.modify(500, 100)
	require.NoError(t, err)
	f.applyUpdate(t, update, 100)
	assert.Equal(t, uint64(10000), f.position.FeeOwedA)
	assert.Equal(t, uint64(99), f.position.RewardInfos[0].AmountOwed)
	assert.Equal(t, uint128.From64(1500), f.pool.Liquidity)

	f.incrementPoolFeeGrowths(toX64(3), uint128.Zero)

	update, err = f.modify(-1500, 200)
	require.NoError(t, err)
	f.applyUpdate(t, update, 200)

	assert.Equal(t, uint64(14500), f.position.FeeOwedA)
	assert.Equal(t, uint64(0), f.position.FeeOwedB)
	for i := range f.position.RewardInfos {
		assert.Equal(t, uint64(198), f.position.RewardInfos[i].AmountOwed)
	}
	assert.True(t, f.position.Liquidity.IsZero())
	assert.True(t, f.pool.Liquidity.IsZero())
	assert.Equal(t, uint64(200), f.pool.RewardLastUpdatedTimestamp)
	requireTickUpdate(t, state.TickUpdate{}, state.NewTickUpdate(f.tickLower))
	requireTickUpdate(t, state.TickUpdate{}, state.NewTickUpdate(f.tickUpper))
}

func TestModifyLiquidityAcrossTickCrossings(t *testing.T) {
	f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{currIndexLoc: currInside})

	update, err := f.modify(1000, 0)
	require.NoError(t, err)
	f.applyUpdate(t, update, 0)

	f.incrementPoolFeeGrowths(toX64(5), uint128.Zero)
	f.crossTick(t, tickUpper, moveRight)
	assert.True(t, f.pool.Liquidity.IsZero())

	// Accrues while the position is out of range.
	f.incrementPoolFeeGrowths(toX64(10), uint128.Zero)
	f.crossTick(t, tickUpper, moveLeft)
	assert.Equal(t, uint128.From64(1000), f.pool.Liquidity)

	f.incrementPoolFeeGrowths(uint128.New(1<<63, 2), uint128.Zero)

	update, err = f.modify(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(7500), update.PositionUpdate.FeeOwedA)
}

func TestNextPoolLiquidity(t *testing.T) {
	pool := &state.Pool{Liquidity: uint128.From64(100)}
	cases := []struct {
		current int32
		want    uint64
	}{
		{-11, 100},
		{-10, 150},
		{0, 150},
		{9, 150},
		{10, 100},
	}
	for _, tc := range cases {
		pool.TickCurrentIndex = tc.current
		got, err := NextPoolLiquidity(pool, -10, 10, math.NewInt(50))
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(tc.want), got, "current %d", tc.current)
	}

	pool.TickCurrentIndex = 0
	_, err := NextPoolLiquidity(pool, -10, 10, math.NewInt(-101))
	assert.ErrorIs(t, err, errs.LiquidityUnderflow)
}

func TestCalculateFeeAndRewardGrowths(t *testing.T) {
	t.Run("empty position is accepted", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{
			currIndexLoc: currInside,
			rewardInfos:  createPoolRewardInfos(toX64(1), uint128.Zero),
		})
		f.incrementPoolFeeGrowths(toX64(3), toX64(4))

		update, infos, err := CalculateFeeAndRewardGrowths(f.pool, f.position, f.tickLower, f.tickUpper, 10)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), update.FeeOwedA)
		assert.True(t, update.Liquidity.IsZero())
		// No liquidity in the pool, so rewards do not grow.
		assert.Equal(t, f.pool.RewardInfos, infos)
	})

	t.Run("matches a zero delta modification", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{
			currIndexLoc:            currInside,
			poolLiquidity:           1000,
			positionLiquidity:       500,
			tickLowerLiquidityGross: 500,
			tickUpperLiquidityGross: 500,
			rewardInfos:             createPoolRewardInfos(toX64(2), uint128.Zero),
		})
		f.incrementPoolFeeGrowths(toX64(100), toX64(200))

		update, infos, err := CalculateFeeAndRewardGrowths(f.pool, f.position, f.tickLower, f.tickUpper, 10)
		require.NoError(t, err)
		modify, err := f.modify(0, 10)
		require.NoError(t, err)
		assert.Equal(t, modify.PositionUpdate, update)
		assert.Equal(t, modify.RewardInfos, infos)
	})
}

func TestSyncModifyLiquidityValues(t *testing.T) {
	newArrays := func() (*state.TickArray, *state.TickArray) {
		lower := &state.TickArray{StartTickIndex: state.StartTickIndex(positionLowerIndex, 1)}
		upper := &state.TickArray{StartTickIndex: state.StartTickIndex(positionUpperIndex, 1)}
		return lower, upper
	}

	t.Run("applies every part of the update", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{currIndexLoc: currInside})
		lowerArray, upperArray := newArrays()
		lower, err := lowerArray.GetTick(positionLowerIndex, 1)
		require.NoError(t, err)
		upper, err := upperArray.GetTick(positionUpperIndex, 1)
		require.NoError(t, err)

		update, err := CalculateModifyLiquidity(f.pool, f.position, lower, upper, math.NewInt(300), 5)
		require.NoError(t, err)
		require.NoError(t, SyncModifyLiquidityValues(f.pool, f.position, lowerArray, upperArray, update, 5))

		assert.Equal(t, uint128.From64(300), f.pool.Liquidity)
		assert.Equal(t, uint64(5), f.pool.RewardLastUpdatedTimestamp)
		assert.Equal(t, uint128.From64(300), f.position.Liquidity)
		assert.True(t, lower.Net().Equal(math.NewInt(300)))
		assert.True(t, upper.Net().Equal(math.NewInt(-300)))
	})

	t.Run("wrong array leaves everything untouched", func(t *testing.T) {
		f := newLiquidityTestFixture(t, liquidityTestFixtureInfo{currIndexLoc: currInside})
		lowerArray, _ := newArrays()

		update, err := f.modify(300, 5)
		require.NoError(t, err)
		poolBefore, positionBefore := *f.pool, *f.position

		err = SyncModifyLiquidityValues(f.pool, f.position, lowerArray, lowerArray, update, 5)
		assert.ErrorIs(t, err, errs.TickNotFound)
		assert.Equal(t, poolBefore, *f.pool)
		assert.Equal(t, positionBefore, *f.position)
		assert.False(t, lowerArray.Ticks[positionLowerIndex-lowerArray.StartTickIndex].Initialized)
	})
}
