package manager

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

const (
	belowLowerTickIndex int32 = -120
	aboveUpperTickIndex int32 = 120
	positionLowerIndex  int32 = -100
	positionUpperIndex  int32 = 100
)

type currIndex int

const (
	currBelow currIndex = iota
	currInside
	currAbove
)

type tickLabel int

const (
	tickLower tickLabel = iota
	tickUpper
)

type direction int

const (
	moveLeft direction = iota
	moveRight
)

// liquidityTestFixture is one position over [-100, 100) in a pool whose
// current tick sits below, inside or above that range.
type liquidityTestFixture struct {
	pool      *state.Pool
	position  *state.Position
	tickLower *state.Tick
	tickUpper *state.Tick
}

type liquidityTestFixtureInfo struct {
	currIndexLoc            currIndex
	poolLiquidity           uint64
	positionLiquidity       uint64
	tickLowerLiquidityGross uint64
	tickUpperLiquidityGross uint64
	feeGrowthGlobalA        uint128.Uint128
	feeGrowthGlobalB        uint128.Uint128
	rewardInfos             [state.NumRewards]state.RewardInfo
}

func newLiquidityTestFixture(t *testing.T, info liquidityTestFixtureInfo) *liquidityTestFixture {
	t.Helper()
	require.GreaterOrEqual(t, info.tickLowerLiquidityGross, info.positionLiquidity)
	require.GreaterOrEqual(t, info.tickUpperLiquidityGross, info.positionLiquidity)

	current := int32(0)
	switch info.currIndexLoc {
	case currBelow:
		current = belowLowerTickIndex
	case currAbove:
		current = aboveUpperTickIndex
	}

	return &liquidityTestFixture{
		pool: &state.Pool{
			TickSpacing:      1,
			TickCurrentIndex: current,
			Liquidity:        uint128.From64(info.poolLiquidity),
			FeeGrowthGlobalA: info.feeGrowthGlobalA,
			FeeGrowthGlobalB: info.feeGrowthGlobalB,
			RewardInfos:      info.rewardInfos,
		},
		position: &state.Position{
			TickLowerIndex: positionLowerIndex,
			TickUpperIndex: positionUpperIndex,
			Liquidity:      uint128.From64(info.positionLiquidity),
		},
		tickLower: &state.Tick{
			Initialized:    info.tickLowerLiquidityGross > 0,
			LiquidityGross: uint128.From64(info.tickLowerLiquidityGross),
			LiquidityNet:   math.NewIntFromUint64(info.tickLowerLiquidityGross),
		},
		tickUpper: &state.Tick{
			Initialized:    info.tickUpperLiquidityGross > 0,
			LiquidityGross: uint128.From64(info.tickUpperLiquidityGross),
			LiquidityNet:   math.NewIntFromUint64(info.tickUpperLiquidityGross).Neg(),
		},
	}
}

func (f *liquidityTestFixture) incrementPoolFeeGrowths(deltaA, deltaB uint128.Uint128) {
	f.pool.FeeGrowthGlobalA = f.pool.FeeGrowthGlobalA.AddWrap(deltaA)
	f.pool.FeeGrowthGlobalB = f.pool.FeeGrowthGlobalB.AddWrap(deltaB)
}

func (f *liquidityTestFixture) incrementPoolRewardGrowthsByTime(t *testing.T, seconds uint64) {
	t.Helper()
	next := f.pool.RewardLastUpdatedTimestamp + seconds
	infos, err := NextPoolRewardInfos(f.pool, next)
	require.NoError(t, err)
	f.pool.UpdateRewards(infos, next)
}

// crossTick simulates price moving across one of the position's ticks.
func (f *liquidityTestFixture) crossTick(t *testing.T, label tickLabel, dir direction) {
	t.Helper()
	tick := f.tickLower
	if label == tickUpper {
		tick = f.tickUpper
	}
	tick.Update(NextTickCrossUpdate(tick, f.pool.FeeGrowthGlobalA, f.pool.FeeGrowthGlobalB, &f.pool.RewardInfos))

	net := tick.Net()
	if dir == moveLeft {
		net = net.Neg()
	}
	liquidity, err := clmath.AddLiquidityDelta(f.pool.Liquidity, net)
	require.NoError(t, err)
	f.pool.Liquidity = liquidity

	switch {
	case label == tickLower && dir == moveRight, label == tickUpper && dir == moveLeft:
		f.pool.TickCurrentIndex = 0
	case label == tickLower && dir == moveLeft:
		f.pool.TickCurrentIndex = belowLowerTickIndex
	default:
		f.pool.TickCurrentIndex = aboveUpperTickIndex
	}
}

func (f *liquidityTestFixture) applyUpdate(t *testing.T, update ModifyLiquidityUpdate, timestamp uint64) {
	t.Helper()
	require.GreaterOrEqual(t, timestamp, f.pool.RewardLastUpdatedTimestamp)
	f.pool.UpdateRewardsAndLiquidity(update.RewardInfos, update.PoolLiquidity, timestamp)
	f.tickLower.Update(update.TickLowerUpdate)
	f.tickUpper.Update(update.TickUpperUpdate)
	f.position.Update(update.PositionUpdate)
}

func (f *liquidityTestFixture) modify(delta int64, timestamp uint64) (ModifyLiquidityUpdate, error) {
	return CalculateModifyLiquidity(f.pool, f.position, f.tickLower, f.tickUpper, math.NewInt(delta), timestamp)
}

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	k[31] = b
	return k
}

func createPoolRewardInfos(emissionsPerSecondX64, growthGlobalX64 uint128.Uint128) [state.NumRewards]state.RewardInfo {
	var infos [state.NumRewards]state.RewardInfo
	for i := range infos {
		infos[i] = state.RewardInfo{
			Mint:                  testKey(byte(100 + i)),
			EmissionsPerSecondX64: emissionsPerSecondX64,
			GrowthGlobalX64:       growthGlobalX64,
		}
	}
	return infos
}

func toX64(n uint64) uint128.Uint128 {
	return uint128.New(0, n)
}

func rewardGrowths(infos [state.NumRewards]state.RewardInfo) [state.NumRewards]uint128.Uint128 {
	return state.RewardGrowths(infos)
}

// requireTickUpdate compares updates field by field since LiquidityNet is a
// math.Int.
func requireTickUpdate(t *testing.T, want, got state.TickUpdate) {
	t.Helper()
	require.Equal(t, want.Initialized, got.Initialized)
	require.True(t, clmath.ZeroIfNil(want.LiquidityNet).Equal(clmath.ZeroIfNil(got.LiquidityNet)),
		"liquidity net: want %s got %s", clmath.ZeroIfNil(want.LiquidityNet), clmath.ZeroIfNil(got.LiquidityNet))
	require.Equal(t, want.LiquidityGross, got.LiquidityGross)
	require.Equal(t, want.FeeGrowthOutsideA, got.FeeGrowthOutsideA)
	require.Equal(t, want.FeeGrowthOutsideB, got.FeeGrowthOutsideB)
	require.Equal(t, want.RewardGrowthsOutside, got.RewardGrowthsOutside)
}
