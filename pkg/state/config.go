package state

import (
	"fmt"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// PoolsConfig holds the administrative authorities shared by a set of pools.
type PoolsConfig struct {
	FeeAuthority                  solana.PublicKey // feeAuthority
	CollectProtocolFeesAuthority  solana.PublicKey // collectProtocolFeesAuthority
	RewardEmissionsSuperAuthority solana.PublicKey // rewardEmissionsSuperAuthority
	DefaultProtocolFeeRate        uint16           // defaultProtocolFeeRate
}

func (c *PoolsConfig) Discriminator() [8]byte { return PoolsConfigDiscriminator }

// IsInitialized reports whether Initialize has already run.
func (c *PoolsConfig) IsInitialized() bool {
	return c.FeeAuthority != solana.PublicKey{}
}

func (c *PoolsConfig) Initialize(
	feeAuthority solana.PublicKey,
	collectProtocolFeesAuthority solana.PublicKey,
	rewardEmissionsSuperAuthority solana.PublicKey,
	defaultProtocolFeeRate uint16,
) error {
	if c.IsInitialized() {
		return errs.AlreadyInitialized
	}
	if feeAuthority.IsZero() {
		return errs.InvalidAuthority
	}
	next := PoolsConfig{
		FeeAuthority:                  feeAuthority,
		CollectProtocolFeesAuthority:  collectProtocolFeesAuthority,
		RewardEmissionsSuperAuthority: rewardEmissionsSuperAuthority,
	}
	if err := next.UpdateDefaultProtocolFeeRate(defaultProtocolFeeRate); err != nil {
		return err
	}
	*c = next
	return nil
}

// UpdateFeeAuthority replaces the fee authority. It must stay non-zero since
// it also marks the config as initialized.
func (c *PoolsConfig) UpdateFeeAuthority(authority solana.PublicKey) error {
	if authority.IsZero() {
		return errs.InvalidAuthority
	}
	c.FeeAuthority = authority
	return nil
}

func (c *PoolsConfig) UpdateCollectProtocolFeesAuthority(authority solana.PublicKey) {
	c.CollectProtocolFeesAuthority = authority
}

func (c *PoolsConfig) UpdateRewardEmissionsSuperAuthority(authority solana.PublicKey) {
	c.RewardEmissionsSuperAuthority = authority
}

func (c *PoolsConfig) UpdateDefaultProtocolFeeRate(rate uint16) error {
	if rate > MaxProtocolFeeRate {
		return errs.ProtocolFeeRateMaxExceeded
	}
	c.DefaultProtocolFeeRate = rate
	return nil
}

func (c *PoolsConfig) MarshalWithEncoder(enc *bin.Encoder) error {
	w := &writer{enc: enc}
	w.pubkey(c.FeeAuthority)
	w.pubkey(c.CollectProtocolFeesAuthority)
	w.pubkey(c.RewardEmissionsSuperAuthority)
	w.u16(c.DefaultProtocolFeeRate)
	w.bytes(make([]byte, PoolsConfigSize-8-32*3-2))
	if w.err != nil {
		return fmt.Errorf("failed to encode pools config: %w", w.err)
	}
	return nil
}

func (c *PoolsConfig) UnmarshalWithDecoder(dec *bin.Decoder) error {
	r := &reader{dec: dec}
	c.FeeAuthority = r.pubkey()
	c.CollectProtocolFeesAuthority = r.pubkey()
	c.RewardEmissionsSuperAuthority = r.pubkey()
	c.DefaultProtocolFeeRate = r.u16()
	if r.err != nil {
		return fmt.Errorf("failed to decode pools config: %w", r.err)
	}
	return nil
}

// FeeTier is the default fee rate for one tick spacing under a config.
type FeeTier struct {
	PoolsConfig    solana.PublicKey // poolsConfig
	TickSpacing    uint16           // tickSpacing
	DefaultFeeRate uint16           // defaultFeeRate
}

func (f *FeeTier) Discriminator() [8]byte { return FeeTierDiscriminator }

// IsInitialized reports whether Initialize has already run.
func (f *FeeTier) IsInitialized() bool {
	return f.PoolsConfig != solana.PublicKey{}
}

func (f *FeeTier) Initialize(configKey solana.PublicKey, tickSpacing uint16, defaultFeeRate uint16) error {
	if f.IsInitialized() {
		return errs.AlreadyInitialized
	}
	if tickSpacing == 0 {
		return errs.InvalidTickSpacing
	}
	next := FeeTier{PoolsConfig: configKey, TickSpacing: tickSpacing}
	if err := next.UpdateDefaultFeeRate(defaultFeeRate); err != nil {
		return err
	}
	*f = next
	return nil
}

func (f *FeeTier) UpdateDefaultFeeRate(rate uint16) error {
	if rate > MaxFeeRate {
		return errs.FeeRateMaxExceeded
	}
	f.DefaultFeeRate = rate
	return nil
}

func (f *FeeTier) MarshalWithEncoder(enc *bin.Encoder) error {
	w := &writer{enc: enc}
	w.pubkey(f.PoolsConfig)
	w.u16(f.TickSpacing)
	w.u16(f.DefaultFeeRate)
	if w.err != nil {
		return fmt.Errorf("failed to encode fee tier: %w", w.err)
	}
	return nil
}

func (f *FeeTier) UnmarshalWithDecoder(dec *bin.Decoder) error {
	r := &reader{dec: dec}
	f.PoolsConfig = r.pubkey()
	f.TickSpacing = r.u16()
	f.DefaultFeeRate = r.u16()
	if r.err != nil {
		return fmt.Errorf("failed to decode fee tier: %w", r.err)
	}
	return nil
}
