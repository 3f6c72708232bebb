package program

import (
	"context"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

// InitializePoolParams describe a new pool. The fee tier is the one of
// Config for TickSpacing.
type InitializePoolParams struct {
	Config      solana.PublicKey
	MintA       solana.PublicKey
	VaultA      solana.PublicKey
	MintB       solana.PublicKey
	VaultB      solana.PublicKey
	TickSpacing uint16
	SqrtPrice   uint128.Uint128
}

// InitializePool creates a pool at its derived address and returns it.
func (p *Program) InitializePool(ctx context.Context, params InitializePoolParams) (solana.PublicKey, error) {
	key, bump, err := state.DerivePoolAddress(p.id, params.Config, params.MintA, params.MintB, params.TickSpacing)
	if err != nil {
		return solana.PublicKey{}, err
	}
	tierKey, _, err := state.DeriveFeeTierAddress(p.id, params.Config, params.TickSpacing)
	if err != nil {
		return solana.PublicKey{}, err
	}

	fields := []zap.Field{
		zap.Stringer("pool", key),
		zap.Stringer("mint_a", params.MintA),
		zap.Stringer("mint_b", params.MintB),
		zap.Uint16("tick_spacing", params.TickSpacing),
	}
	err = p.execute(ctx, "initialize_pool", fields, func(tx *txn) error {
		config, err := tx.config(params.Config)
		if err != nil {
			return err
		}
		tier, err := tx.feeTier(tierKey)
		if err != nil {
			return err
		}
		if tier.PoolsConfig != params.Config {
			return errs.AccountMismatch
		}
		pool := &state.Pool{}
		if err := pool.Initialize(
			params.Config, config, bump, params.TickSpacing, params.SqrtPrice, tier.DefaultFeeRate,
			params.MintA, params.VaultA, params.MintB, params.VaultB,
		); err != nil {
			return err
		}
		return tx.create(key, pool)
	})
	return key, err
}

// InitializeTickArray creates the tick array of poolKey starting at
// startTickIndex.
func (p *Program) InitializeTickArray(ctx context.Context, poolKey solana.PublicKey, startTickIndex int32) (solana.PublicKey, error) {
	key, err := state.DeriveTickArrayAddress(p.id, poolKey, startTickIndex)
	if err != nil {
		return solana.PublicKey{}, err
	}
	fields := []zap.Field{zap.Stringer("pool", poolKey), zap.Int32("start_tick_index", startTickIndex)}
	err = p.execute(ctx, "initialize_tick_array", fields, func(tx *txn) error {
		pool, err := tx.pool(poolKey)
		if err != nil {
			return err
		}
		ta := &state.TickArray{}
		if err := ta.Initialize(poolKey, pool, startTickIndex); err != nil {
			return err
		}
		return tx.create(key, ta)
	})
	return key, err
}

// poolWithConfig loads a pool and the config it belongs to.
func poolWithConfig(tx *txn, poolKey, configKey solana.PublicKey) (*state.Pool, *state.PoolsConfig, error) {
	pool, err := tx.pool(poolKey)
	if err != nil {
		return nil, nil, err
	}
	if pool.PoolsConfig != configKey {
		return nil, nil, errs.AccountMismatch
	}
	config, err := tx.config(configKey)
	if err != nil {
		return nil, nil, err
	}
	return pool, config, nil
}

func (p *Program) SetFeeRate(ctx context.Context, configKey, poolKey, signer solana.PublicKey, rate uint16) error {
	fields := []zap.Field{zap.Stringer("pool", poolKey), zap.Uint16("fee_rate", rate)}
	return p.execute(ctx, "set_fee_rate", fields, func(tx *txn) error {
		pool, config, err := poolWithConfig(tx, poolKey, configKey)
		if err != nil {
			return err
		}
		if err := requireAuthority(config.FeeAuthority, signer); err != nil {
			return err
		}
		if err := pool.UpdateFeeRate(rate); err != nil {
			return err
		}
		tx.markDirty(poolKey)
		return nil
	})
}

func (p *Program) SetProtocolFeeRate(ctx context.Context, configKey, poolKey, signer solana.PublicKey, rate uint16) error {
	fields := []zap.Field{zap.Stringer("pool", poolKey), zap.Uint16("protocol_fee_rate", rate)}
	return p.execute(ctx, "set_protocol_fee_rate", fields, func(tx *txn) error {
		pool, config, err := poolWithConfig(tx, poolKey, configKey)
		if err != nil {
			return err
		}
		if err := requireAuthority(config.FeeAuthority, signer); err != nil {
			return err
		}
		if err := pool.UpdateProtocolFeeRate(rate); err != nil {
			return err
		}
		tx.markDirty(poolKey)
		return nil
	})
}

// CollectProtocolFees zeroes the pool's protocol fee balances and returns what
// was owed.
func (p *Program) CollectProtocolFees(ctx context.Context, configKey, poolKey, signer solana.PublicKey) (uint64, uint64, error) {
	var owedA, owedB uint64
	err := p.execute(ctx, "collect_protocol_fees", []zap.Field{zap.Stringer("pool", poolKey)}, func(tx *txn) error {
		pool, config, err := poolWithConfig(tx, poolKey, configKey)
		if err != nil {
			return err
		}
		if err := requireAuthority(config.CollectProtocolFeesAuthority, signer); err != nil {
			return err
		}
		owedA, owedB = pool.ProtocolFeeOwedA, pool.ProtocolFeeOwedB
		pool.ResetProtocolFeesOwed()
		tx.markDirty(poolKey)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if p.metrics != nil {
		p.metrics.FeesCollected.WithLabelValues("protocol", "a").Add(float64(owedA))
		p.metrics.FeesCollected.WithLabelValues("protocol", "b").Add(float64(owedB))
	}
	return owedA, owedB, nil
}
