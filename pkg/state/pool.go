package state

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Pool is one trading pair at a fixed tick spacing.
//
// Field order matches the persisted account layout (653 bytes including the
// 8-byte discriminator).
type Pool struct {
	PoolsConfig     solana.PublicKey // poolsConfig
	PoolBump        [1]uint8         // poolBump
	TickSpacing     uint16           // tickSpacing
	TickSpacingSeed [2]uint8         // tickSpacingSeed
	FeeRate         uint16           // feeRate, hundredths of a basis point
	ProtocolFeeRate uint16           // protocolFeeRate, basis points of the fee

	Liquidity        uint128.Uint128 // liquidity
	SqrtPrice        uint128.Uint128 // sqrtPrice, Q64.64
	TickCurrentIndex int32           // tickCurrentIndex

	ProtocolFeeOwedA uint64 // protocolFeeOwedA
	ProtocolFeeOwedB uint64 // protocolFeeOwedB

	TokenMintA       solana.PublicKey // tokenMintA
	TokenVaultA      solana.PublicKey // tokenVaultA
	FeeGrowthGlobalA uint128.Uint128  // feeGrowthGlobalA, Q64.64

	TokenMintB       solana.PublicKey // tokenMintB
	TokenVaultB      solana.PublicKey // tokenVaultB
	FeeGrowthGlobalB uint128.Uint128  // feeGrowthGlobalB, Q64.64

	RewardLastUpdatedTimestamp uint64                 // rewardLastUpdatedTimestamp
	RewardInfos                [NumRewards]RewardInfo // rewardInfos
}

// RewardInfo is one reward emission slot of a pool.
type RewardInfo struct {
	Mint                  solana.PublicKey // mint
	Vault                 solana.PublicKey // vault
	Authority             solana.PublicKey // authority
	EmissionsPerSecondX64 uint128.Uint128  // emissionsPerSecondX64
	GrowthGlobalX64       uint128.Uint128  // growthGlobalX64
}

// Initialized reports whether the slot has a reward mint.
func (r RewardInfo) Initialized() bool {
	return r.Mint != solana.PublicKey{}
}

// RewardGrowths returns the growth of every slot, zero for uninitialized ones.
func RewardGrowths(infos [NumRewards]RewardInfo) [NumRewards]uint128.Uint128 {
	var out [NumRewards]uint128.Uint128
	for i, info := range infos {
		if info.Initialized() {
			out[i] = info.GrowthGlobalX64
		}
	}
	return out
}

func (p *Pool) Discriminator() [8]byte { return PoolDiscriminator }

// IsInitialized reports whether Initialize has already run.
func (p *Pool) IsInitialized() bool {
	return p.PoolsConfig != solana.PublicKey{}
}

// Seeds returns the signer seeds of the pool.
func (p *Pool) Seeds() [][]byte {
	return [][]byte{
		[]byte(PoolSeed),
		p.PoolsConfig.Bytes(),
		p.TokenMintA.Bytes(),
		p.TokenMintB.Bytes(),
		p.TickSpacingSeed[:],
		p.PoolBump[:],
	}
}

// Initialize sets up a new pool. Mints must be ordered and the sqrt price
// within bounds.
func (p *Pool) Initialize(
	configKey solana.PublicKey,
	config *PoolsConfig,
	bump uint8,
	tickSpacing uint16,
	sqrtPrice uint128.Uint128,
	defaultFeeRate uint16,
	tokenMintA, tokenVaultA solana.PublicKey,
	tokenMintB, tokenVaultB solana.PublicKey,
) error {
	if p.IsInitialized() {
		return errs.AlreadyInitialized
	}
	if tickSpacing == 0 {
		return errs.InvalidTickSpacing
	}
	if bytes.Compare(tokenMintA[:], tokenMintB[:]) >= 0 {
		return errs.InvalidTokenMintOrder
	}
	if sqrtPrice.Cmp(clmath.MinSqrtPriceX64) < 0 || sqrtPrice.Cmp(clmath.MaxSqrtPriceX64) > 0 {
		return errs.SqrtPriceOutOfBounds
	}
	tick, err := clmath.TickIndexFromSqrtPrice(sqrtPrice)
	if err != nil {
		return err
	}

	next := Pool{
		PoolsConfig: configKey,
		PoolBump:    [1]uint8{bump},
		TickSpacing: tickSpacing,
	}
	binary.LittleEndian.PutUint16(next.TickSpacingSeed[:], tickSpacing)
	if err := next.UpdateFeeRate(defaultFeeRate); err != nil {
		return err
	}
	if err := next.UpdateProtocolFeeRate(config.DefaultProtocolFeeRate); err != nil {
		return err
	}

	next.SqrtPrice = sqrtPrice
	next.TickCurrentIndex = tick
	next.TokenMintA = tokenMintA
	next.TokenVaultA = tokenVaultA
	next.TokenMintB = tokenMintB
	next.TokenVaultB = tokenVaultB
	for i := range next.RewardInfos {
		next.RewardInfos[i].Authority = config.RewardEmissionsSuperAuthority
	}

	*p = next
	return nil
}

// UpdateRewards applies precomputed reward growths at timestamp.
func (p *Pool) UpdateRewards(rewardInfos [NumRewards]RewardInfo, timestamp uint64) {
	p.RewardLastUpdatedTimestamp = timestamp
	p.RewardInfos = rewardInfos
}

// UpdateRewardsAndLiquidity applies reward growths together with a new
// active liquidity.
func (p *Pool) UpdateRewardsAndLiquidity(rewardInfos [NumRewards]RewardInfo, liquidity uint128.Uint128, timestamp uint64) {
	p.UpdateRewards(rewardInfos, timestamp)
	p.Liquidity = liquidity
}

// UpdateEmissions applies brought-current reward growths and sets a new
// emission rate for slot index.
func (p *Pool) UpdateEmissions(index int, rewardInfos [NumRewards]RewardInfo, timestamp uint64, emissionsPerSecondX64 uint128.Uint128) error {
	if index < 0 || index >= NumRewards {
		return errs.InvalidRewardIndex
	}
	if !p.RewardInfos[index].Initialized() {
		return errs.RewardNotInitialized
	}
	p.UpdateRewards(rewardInfos, timestamp)
	p.RewardInfos[index].EmissionsPerSecondX64 = emissionsPerSecondX64
	return nil
}

// InitializeReward assigns mint and vault to the lowest uninitialized slot.
func (p *Pool) InitializeReward(index int, mint, vault solana.PublicKey) error {
	if index < 0 || index >= NumRewards {
		return errs.InvalidRewardIndex
	}
	lowest := -1
	for i, info := range p.RewardInfos {
		if !info.Initialized() {
			lowest = i
			break
		}
	}
	if p.RewardInfos[index].Initialized() {
		return errs.AlreadyInitialized
	}
	if lowest != index {
		return errs.InvalidRewardIndex
	}
	p.RewardInfos[index].Mint = mint
	p.RewardInfos[index].Vault = vault
	return nil
}

// UpdateRewardAuthority changes the authority of slot index.
func (p *Pool) UpdateRewardAuthority(index int, authority solana.PublicKey) error {
	if index < 0 || index >= NumRewards {
		return errs.InvalidRewardIndex
	}
	p.RewardInfos[index].Authority = authority
	return nil
}

func (p *Pool) UpdateFeeRate(feeRate uint16) error {
	if feeRate > MaxFeeRate {
		return errs.FeeRateMaxExceeded
	}
	p.FeeRate = feeRate
	return nil
}

func (p *Pool) UpdateProtocolFeeRate(protocolFeeRate uint16) error {
	if protocolFeeRate > MaxProtocolFeeRate {
		return errs.ProtocolFeeRateMaxExceeded
	}
	p.ProtocolFeeRate = protocolFeeRate
	return nil
}

// ResetProtocolFeesOwed zeroes the protocol fee balances after collection.
func (p *Pool) ResetProtocolFeesOwed() {
	p.ProtocolFeeOwedA = 0
	p.ProtocolFeeOwedB = 0
}

// SwapUpdate is the outcome of a reported swap.
type SwapUpdate struct {
	Liquidity        uint128.Uint128
	TickCurrentIndex int32
	SqrtPrice        uint128.Uint128
	FeeGrowthGlobal  uint128.Uint128
	RewardInfos      [NumRewards]RewardInfo
	ProtocolFee      uint64
	IsTokenFeeInA    bool
}

// UpdateAfterSwap applies a swap outcome. Protocol fees wrap like the
// on-chain counters.
func (p *Pool) UpdateAfterSwap(u SwapUpdate, timestamp uint64) {
	p.TickCurrentIndex = u.TickCurrentIndex
	p.SqrtPrice = u.SqrtPrice
	p.UpdateRewardsAndLiquidity(u.RewardInfos, u.Liquidity, timestamp)
	if u.IsTokenFeeInA {
		p.FeeGrowthGlobalA = u.FeeGrowthGlobal
		p.ProtocolFeeOwedA += u.ProtocolFee
	} else {
		p.FeeGrowthGlobalB = u.FeeGrowthGlobal
		p.ProtocolFeeOwedB += u.ProtocolFee
	}
}

func (p *Pool) MarshalWithEncoder(enc *bin.Encoder) error {
	w := &writer{enc: enc}
	w.pubkey(p.PoolsConfig)
	w.bytes(p.PoolBump[:])
	w.u16(p.TickSpacing)
	w.bytes(p.TickSpacingSeed[:])
	w.u16(p.FeeRate)
	w.u16(p.ProtocolFeeRate)
	w.u128(p.Liquidity)
	w.u128(p.SqrtPrice)
	w.i32(p.TickCurrentIndex)
	w.u64(p.ProtocolFeeOwedA)
	w.u64(p.ProtocolFeeOwedB)
	w.pubkey(p.TokenMintA)
	w.pubkey(p.TokenVaultA)
	w.u128(p.FeeGrowthGlobalA)
	w.pubkey(p.TokenMintB)
	w.pubkey(p.TokenVaultB)
	w.u128(p.FeeGrowthGlobalB)
	w.u64(p.RewardLastUpdatedTimestamp)
	for _, info := range p.RewardInfos {
		w.pubkey(info.Mint)
		w.pubkey(info.Vault)
		w.pubkey(info.Authority)
		w.u128(info.EmissionsPerSecondX64)
		w.u128(info.GrowthGlobalX64)
	}
	if w.err != nil {
		return fmt.Errorf("failed to encode pool: %w", w.err)
	}
	return nil
}

func (p *Pool) UnmarshalWithDecoder(dec *bin.Decoder) error {
	r := &reader{dec: dec}
	p.PoolsConfig = r.pubkey()
	copy(p.PoolBump[:], r.bytes(1))
	p.TickSpacing = r.u16()
	copy(p.TickSpacingSeed[:], r.bytes(2))
	p.FeeRate = r.u16()
	p.ProtocolFeeRate = r.u16()
	p.Liquidity = r.u128()
	p.SqrtPrice = r.u128()
	p.TickCurrentIndex = r.i32()
	p.ProtocolFeeOwedA = r.u64()
	p.ProtocolFeeOwedB = r.u64()
	p.TokenMintA = r.pubkey()
	p.TokenVaultA = r.pubkey()
	p.FeeGrowthGlobalA = r.u128()
	p.TokenMintB = r.pubkey()
	p.TokenVaultB = r.pubkey()
	p.FeeGrowthGlobalB = r.u128()
	p.RewardLastUpdatedTimestamp = r.u64()
	for i := range p.RewardInfos {
		p.RewardInfos[i].Mint = r.pubkey()
		p.RewardInfos[i].Vault = r.pubkey()
		p.RewardInfos[i].Authority = r.pubkey()
		p.RewardInfos[i].EmissionsPerSecondX64 = r.u128()
		p.RewardInfos[i].GrowthGlobalX64 = r.u128()
	}
	if r.err != nil {
		return fmt.Errorf("failed to decode pool: %w", r.err)
	}
	return nil
}
