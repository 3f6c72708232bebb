package state

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Tick is the price boundary state at one tick index.
type Tick struct {
	Initialized          bool                        // initialized
	LiquidityNet         math.Int                    // liquidityNet, i128
	LiquidityGross       uint128.Uint128             // liquidityGross
	FeeGrowthOutsideA    uint128.Uint128             // feeGrowthOutsideA, Q64.64
	FeeGrowthOutsideB    uint128.Uint128             // feeGrowthOutsideB, Q64.64
	RewardGrowthsOutside [NumRewards]uint128.Uint128 // rewardGrowthsOutside, Q64.64
}

// TickUpdate carries every field of a tick.
type TickUpdate struct {
	Initialized          bool
	LiquidityNet         math.Int
	LiquidityGross       uint128.Uint128
	FeeGrowthOutsideA    uint128.Uint128
	FeeGrowthOutsideB    uint128.Uint128
	RewardGrowthsOutside [NumRewards]uint128.Uint128
}

// NewTickUpdate copies the current state of t.
func NewTickUpdate(t *Tick) TickUpdate {
	return TickUpdate{
		Initialized:          t.Initialized,
		LiquidityNet:         clmath.ZeroIfNil(t.LiquidityNet),
		LiquidityGross:       t.LiquidityGross,
		FeeGrowthOutsideA:    t.FeeGrowthOutsideA,
		FeeGrowthOutsideB:    t.FeeGrowthOutsideB,
		RewardGrowthsOutside: t.RewardGrowthsOutside,
	}
}

// Net returns the liquidity net, zero when unset.
func (t *Tick) Net() math.Int {
	return clmath.ZeroIfNil(t.LiquidityNet)
}

// Update overwrites the tick with a precomputed update.
func (t *Tick) Update(u TickUpdate) {
	t.Initialized = u.Initialized
	t.LiquidityNet = clmath.ZeroIfNil(u.LiquidityNet)
	t.LiquidityGross = u.LiquidityGross
	t.FeeGrowthOutsideA = u.FeeGrowthOutsideA
	t.FeeGrowthOutsideB = u.FeeGrowthOutsideB
	t.RewardGrowthsOutside = u.RewardGrowthsOutside
}

// CheckUsableTick verifies tick is in bounds and aligned to tickSpacing.
func CheckUsableTick(tick int32, tickSpacing uint16) error {
	if !clmath.IsTickInBounds(tick) {
		return errs.InvalidTickIndex
	}
	if tickSpacing == 0 {
		return errs.InvalidTickSpacing
	}
	if tick%int32(tickSpacing) != 0 {
		return errs.TickNotAlignedWithSpacing
	}
	return nil
}

// StartTickIndex returns the start of the tick array containing tick.
func StartTickIndex(tick int32, tickSpacing uint16) int32 {
	ticksInArray := TickArraySize * int32(tickSpacing)
	start := tick / ticksInArray
	if tick < 0 && tick%ticksInArray != 0 {
		start--
	}
	return start * ticksInArray
}

func (t *Tick) marshal(w *writer) {
	w.boolean(t.Initialized)
	w.i128(t.Net())
	w.u128(t.LiquidityGross)
	w.u128(t.FeeGrowthOutsideA)
	w.u128(t.FeeGrowthOutsideB)
	for _, g := range t.RewardGrowthsOutside {
		w.u128(g)
	}
}

func (t *Tick) unmarshal(r *reader) {
	t.Initialized = r.boolean()
	t.LiquidityNet = r.i128()
	t.LiquidityGross = r.u128()
	t.FeeGrowthOutsideA = r.u128()
	t.FeeGrowthOutsideB = r.u128()
	for i := range t.RewardGrowthsOutside {
		t.RewardGrowthsOutside[i] = r.u128()
	}
}

// TickArray holds TickArraySize consecutive usable ticks of one pool.
type TickArray struct {
	StartTickIndex int32               // startTickIndex
	Ticks          [TickArraySize]Tick // ticks
	Pool           solana.PublicKey    // pool
}

func (ta *TickArray) Discriminator() [8]byte { return TickArrayDiscriminator }

// IsInitialized reports whether Initialize has already run.
func (ta *TickArray) IsInitialized() bool {
	return ta.Pool != solana.PublicKey{}
}

// Initialize binds the array to pool at startTickIndex.
func (ta *TickArray) Initialize(poolKey solana.PublicKey, pool *Pool, startTickIndex int32) error {
	if ta.IsInitialized() {
		return errs.AlreadyInitialized
	}
	if !IsValidStartTick(startTickIndex, pool.TickSpacing) {
		return errs.InvalidStartTick
	}
	*ta = TickArray{StartTickIndex: startTickIndex, Pool: poolKey}
	return nil
}

// IsValidStartTick reports whether start is the first tick of an array that
// overlaps the usable tick range.
func IsValidStartTick(start int32, tickSpacing uint16) bool {
	if tickSpacing == 0 {
		return false
	}
	ticksInArray := TickArraySize * int32(tickSpacing)
	if start%ticksInArray != 0 {
		return false
	}
	return start >= StartTickIndex(MinTickIndex, tickSpacing) && start <= MaxTickIndex
}

// InArray reports whether tick falls within this array's range.
func (ta *TickArray) InArray(tick int32, tickSpacing uint16) bool {
	end := ta.StartTickIndex + TickArraySize*int32(tickSpacing)
	return tick >= ta.StartTickIndex && tick < end
}

func (ta *TickArray) offset(tick int32, tickSpacing uint16) (int, error) {
	if tickSpacing == 0 {
		return 0, errs.InvalidTickSpacing
	}
	if !ta.InArray(tick, tickSpacing) {
		return 0, errs.TickNotFound
	}
	if tick%int32(tickSpacing) != 0 {
		return 0, errs.TickNotAlignedWithSpacing
	}
	return int((tick - ta.StartTickIndex) / int32(tickSpacing)), nil
}

// GetTick returns the tick at index.
func (ta *TickArray) GetTick(tick int32, tickSpacing uint16) (*Tick, error) {
	i, err := ta.offset(tick, tickSpacing)
	if err != nil {
		return nil, err
	}
	return &ta.Ticks[i], nil
}

// NextInitializedTick returns the initialized tick of this array nearest to
// from in the swap direction: within (limit, from] when aToB, within
// (from, limit] otherwise.
func (ta *TickArray) NextInitializedTick(from, limit int32, tickSpacing uint16, aToB bool) (int32, bool) {
	spacing := int32(tickSpacing)
	if aToB {
		for i := TickArraySize - 1; i >= 0; i-- {
			tick := ta.StartTickIndex + int32(i)*spacing
			if tick <= from && tick > limit && ta.Ticks[i].Initialized {
				return tick, true
			}
		}
		return 0, false
	}
	for i := 0; i < TickArraySize; i++ {
		tick := ta.StartTickIndex + int32(i)*spacing
		if tick > from && tick <= limit && ta.Ticks[i].Initialized {
			return tick, true
		}
	}
	return 0, false
}

// UpdateTick applies update to the tick at index.
func (ta *TickArray) UpdateTick(tick int32, tickSpacing uint16, update TickUpdate) error {
	i, err := ta.offset(tick, tickSpacing)
	if err != nil {
		return err
	}
	ta.Ticks[i].Update(update)
	return nil
}

func (ta *TickArray) MarshalWithEncoder(enc *bin.Encoder) error {
	w := &writer{enc: enc}
	w.i32(ta.StartTickIndex)
	for i := range ta.Ticks {
		ta.Ticks[i].marshal(w)
	}
	w.pubkey(ta.Pool)
	if w.err != nil {
		return fmt.Errorf("failed to encode tick array: %w", w.err)
	}
	return nil
}

func (ta *TickArray) UnmarshalWithDecoder(dec *bin.Decoder) error {
	r := &reader{dec: dec}
	ta.StartTickIndex = r.i32()
	for i := range ta.Ticks {
		ta.Ticks[i].unmarshal(r)
	}
	ta.Pool = r.pubkey()
	if r.err != nil {
		return fmt.Errorf("failed to decode tick array: %w", r.err)
	}
	return nil
}
