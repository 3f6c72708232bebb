package state

import (
	"fmt"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Position is one liquidity provider's stake over [TickLowerIndex, TickUpperIndex).
type Position struct {
	Pool         solana.PublicKey // pool
	PositionMint solana.PublicKey // positionMint
	Liquidity    uint128.Uint128  // liquidity

	TickLowerIndex int32 // tickLowerIndex
	TickUpperIndex int32 // tickUpperIndex

	FeeGrowthCheckpointA uint128.Uint128 // feeGrowthCheckpointA, Q64.64
	FeeOwedA             uint64          // feeOwedA
	FeeGrowthCheckpointB uint128.Uint128 // feeGrowthCheckpointB, Q64.64
	FeeOwedB             uint64          // feeOwedB

	RewardInfos [NumRewards]PositionRewardInfo // rewardInfos
}

// PositionRewardInfo tracks one reward slot for a position.
type PositionRewardInfo struct {
	GrowthInsideCheckpoint uint128.Uint128 // growthInsideCheckpoint, Q64.64
	AmountOwed             uint64          // amountOwed
}

// PositionUpdate carries every mutable field of a position.
type PositionUpdate struct {
	Liquidity            uint128.Uint128
	FeeGrowthCheckpointA uint128.Uint128
	FeeOwedA             uint64
	FeeGrowthCheckpointB uint128.Uint128
	FeeOwedB             uint64
	RewardInfos          [NumRewards]PositionRewardInfo
}

func (p *Position) Discriminator() [8]byte { return PositionDiscriminator }

// IsInitialized reports whether OpenPosition has already run.
func (p *Position) IsInitialized() bool {
	return p.PositionMint != solana.PublicKey{}
}

// IsPositionEmpty reports whether the position holds no liquidity and owes
// nothing.
func (p *Position) IsPositionEmpty() bool {
	if !p.Liquidity.IsZero() || p.FeeOwedA != 0 || p.FeeOwedB != 0 {
		return false
	}
	for _, info := range p.RewardInfos {
		if info.AmountOwed != 0 {
			return false
		}
	}
	return true
}

// OpenPosition sets up a new empty position in pool.
func (p *Position) OpenPosition(pool *Pool, poolKey, positionMint solana.PublicKey, tickLowerIndex, tickUpperIndex int32) error {
	if p.IsInitialized() {
		return errs.AlreadyInitialized
	}
	if err := CheckUsableTick(tickLowerIndex, pool.TickSpacing); err != nil {
		return fmt.Errorf("tick lower %d: %w", tickLowerIndex, err)
	}
	if err := CheckUsableTick(tickUpperIndex, pool.TickSpacing); err != nil {
		return fmt.Errorf("tick upper %d: %w", tickUpperIndex, err)
	}
	if tickLowerIndex >= tickUpperIndex {
		return errs.InvalidTickIndex
	}

	*p = Position{
		Pool:           poolKey,
		PositionMint:   positionMint,
		TickLowerIndex: tickLowerIndex,
		TickUpperIndex: tickUpperIndex,
	}
	return nil
}

// Update overwrites the mutable fields with a precomputed update.
func (p *Position) Update(u PositionUpdate) {
	p.Liquidity = u.Liquidity
	p.FeeGrowthCheckpointA = u.FeeGrowthCheckpointA
	p.FeeOwedA = u.FeeOwedA
	p.FeeGrowthCheckpointB = u.FeeGrowthCheckpointB
	p.FeeOwedB = u.FeeOwedB
	p.RewardInfos = u.RewardInfos
}

// ResetFeesOwed zeroes both fee balances after collection.
func (p *Position) ResetFeesOwed() {
	p.FeeOwedA = 0
	p.FeeOwedB = 0
}

// UpdateRewardOwed sets the remaining amount owed for slot index.
func (p *Position) UpdateRewardOwed(index int, amountOwed uint64) error {
	if index < 0 || index >= NumRewards {
		return errs.InvalidRewardIndex
	}
	p.RewardInfos[index].AmountOwed = amountOwed
	return nil
}

func (p *Position) MarshalWithEncoder(enc *bin.Encoder) error {
	w := &writer{enc: enc}
	w.pubkey(p.Pool)
	w.pubkey(p.PositionMint)
	w.u128(p.Liquidity)
	w.i32(p.TickLowerIndex)
	w.i32(p.TickUpperIndex)
	w.u128(p.FeeGrowthCheckpointA)
	w.u64(p.FeeOwedA)
	w.u128(p.FeeGrowthCheckpointB)
	w.u64(p.FeeOwedB)
	for _, info := range p.RewardInfos {
		w.u128(info.GrowthInsideCheckpoint)
		w.u64(info.AmountOwed)
	}
	if w.err != nil {
		return fmt.Errorf("failed to encode position: %w", w.err)
	}
	return nil
}

func (p *Position) UnmarshalWithDecoder(dec *bin.Decoder) error {
	r := &reader{dec: dec}
	p.Pool = r.pubkey()
	p.PositionMint = r.pubkey()
	p.Liquidity = r.u128()
	p.TickLowerIndex = r.i32()
	p.TickUpperIndex = r.i32()
	p.FeeGrowthCheckpointA = r.u128()
	p.FeeOwedA = r.u64()
	p.FeeGrowthCheckpointB = r.u128()
	p.FeeOwedB = r.u64()
	for i := range p.RewardInfos {
		p.RewardInfos[i].GrowthInsideCheckpoint = r.u128()
		p.RewardInfos[i].AmountOwed = r.u64()
	}
	if r.err != nil {
		return fmt.Errorf("failed to decode position: %w", r.err)
	}
	return nil
}
