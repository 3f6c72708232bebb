package program

import (
	"context"

	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// InitializeConfigParams are the initial authorities of a pools config.
type InitializeConfigParams struct {
	FeeAuthority                  solana.PublicKey
	CollectProtocolFeesAuthority  solana.PublicKey
	RewardEmissionsSuperAuthority solana.PublicKey
	DefaultProtocolFeeRate        uint16
}

func (p *Program) InitializeConfig(ctx context.Context, configKey solana.PublicKey, params InitializeConfigParams) error {
	return p.execute(ctx, "initialize_config", []zap.Field{zap.Stringer("config", configKey)}, func(tx *txn) error {
		config := &state.PoolsConfig{}
		if err := config.Initialize(
			params.FeeAuthority,
			params.CollectProtocolFeesAuthority,
			params.RewardEmissionsSuperAuthority,
			params.DefaultProtocolFeeRate,
		); err != nil {
			return err
		}
		return tx.create(configKey, config)
	})
}

// configUpdate loads the config, checks signer against the authority picked
// by authority and applies fn.
func (p *Program) configUpdate(ctx context.Context, name string, configKey, signer solana.PublicKey, authority func(*state.PoolsConfig) solana.PublicKey, fn func(*state.PoolsConfig) error) error {
	return p.execute(ctx, name, []zap.Field{zap.Stringer("config", configKey)}, func(tx *txn) error {
		config, err := tx.config(configKey)
		if err != nil {
			return err
		}
		if err := requireAuthority(authority(config), signer); err != nil {
			return err
		}
		if err := fn(config); err != nil {
			return err
		}
		tx.markDirty(configKey)
		return nil
	})
}

func feeAuthority(c *state.PoolsConfig) solana.PublicKey { return c.FeeAuthority }

func (p *Program) SetFeeAuthority(ctx context.Context, configKey, signer, newAuthority solana.PublicKey) error {
	return p.configUpdate(ctx, "set_fee_authority", configKey, signer, feeAuthority, func(c *state.PoolsConfig) error {
		return c.UpdateFeeAuthority(newAuthority)
	})
}

func (p *Program) SetCollectProtocolFeesAuthority(ctx context.Context, configKey, signer, newAuthority solana.PublicKey) error {
	return p.configUpdate(ctx, "set_collect_protocol_fees_authority", configKey, signer,
		func(c *state.PoolsConfig) solana.PublicKey { return c.CollectProtocolFeesAuthority },
		func(c *state.PoolsConfig) error {
			c.UpdateCollectProtocolFeesAuthority(newAuthority)
			return nil
		})
}

func (p *Program) SetRewardEmissionsSuperAuthority(ctx context.Context, configKey, signer, newAuthority solana.PublicKey) error {
	return p.configUpdate(ctx, "set_reward_emissions_super_authority", configKey, signer,
		func(c *state.PoolsConfig) solana.PublicKey { return c.RewardEmissionsSuperAuthority },
		func(c *state.PoolsConfig) error {
			c.UpdateRewardEmissionsSuperAuthority(newAuthority)
			return nil
		})
}

func (p *Program) SetDefaultProtocolFeeRate(ctx context.Context, configKey, signer solana.PublicKey, rate uint16) error {
	return p.configUpdate(ctx, "set_default_protocol_fee_rate", configKey, signer, feeAuthority, func(c *state.PoolsConfig) error {
		return c.UpdateDefaultProtocolFeeRate(rate)
	})
}

// InitializeFeeTier creates the fee tier of configKey for tickSpacing and
// returns its address.
func (p *Program) InitializeFeeTier(ctx context.Context, configKey, signer solana.PublicKey, tickSpacing, defaultFeeRate uint16) (solana.PublicKey, error) {
	key, _, err := state.DeriveFeeTierAddress(p.id, configKey, tickSpacing)
	if err != nil {
		return solana.PublicKey{}, err
	}
	fields := []zap.Field{zap.Stringer("config", configKey), zap.Uint16("tick_spacing", tickSpacing)}
	err = p.execute(ctx, "initialize_fee_tier", fields, func(tx *txn) error {
		config, err := tx.config(configKey)
		if err != nil {
			return err
		}
		if err := requireAuthority(config.FeeAuthority, signer); err != nil {
			return err
		}
		tier := &state.FeeTier{}
		if err := tier.Initialize(configKey, tickSpacing, defaultFeeRate); err != nil {
			return err
		}
		return tx.create(key, tier)
	})
	return key, err
}

func (p *Program) SetDefaultFeeRate(ctx context.Context, configKey, signer solana.PublicKey, tickSpacing, rate uint16) error {
	key, _, err := state.DeriveFeeTierAddress(p.id, configKey, tickSpacing)
	if err != nil {
		return err
	}
	fields := []zap.Field{zap.Stringer("fee_tier", key), zap.Uint16("rate", rate)}
	return p.execute(ctx, "set_default_fee_rate", fields, func(tx *txn) error {
		config, err := tx.config(configKey)
		if err != nil {
			return err
		}
		if err := requireAuthority(config.FeeAuthority, signer); err != nil {
			return err
		}
		tier, err := tx.feeTier(key)
		if err != nil {
			return err
		}
		if err := tier.UpdateDefaultFeeRate(rate); err != nil {
			return err
		}
		tx.markDirty(key)
		return nil
	})
}
