package program

import (
	"context"
	"fmt"

	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/manager"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

func checkRewardIndex(index int) error {
	if index < 0 || index >= state.NumRewards {
		return errs.InvalidRewardIndex
	}
	return nil
}

// InitializeReward binds mint and vault to reward slot index of poolKey.
// Slots are filled lowest first and only by the slot's authority.
func (p *Program) InitializeReward(ctx context.Context, poolKey, signer solana.PublicKey, index int, mint, vault solana.PublicKey) error {
	fields := []zap.Field{
		zap.Stringer("pool", poolKey),
		zap.Int("reward_index", index),
		zap.Stringer("mint", mint),
	}
	return p.execute(ctx, "initialize_reward", fields, func(tx *txn) error {
		if err := checkRewardIndex(index); err != nil {
			return err
		}
		pool, err := tx.pool(poolKey)
		if err != nil {
			return err
		}
		if err := requireAuthority(pool.RewardInfos[index].Authority, signer); err != nil {
			return err
		}
		if err := pool.InitializeReward(index, mint, vault); err != nil {
			return err
		}
		tx.markDirty(poolKey)
		return nil
	})
}

// SetRewardEmissions changes the emission rate of slot index. The reward
// vault must hold at least one day of emissions at the new rate. Growth is
// brought current at the old rate first.
func (p *Program) SetRewardEmissions(ctx context.Context, poolKey, signer solana.PublicKey, index int, emissionsPerSecondX64 uint128.Uint128) error {
	fields := []zap.Field{
		zap.Stringer("pool", poolKey),
		zap.Int("reward_index", index),
		zap.Stringer("emissions_per_second_x64", emissionsPerSecondX64),
	}
	return p.execute(ctx, "set_reward_emissions", fields, func(tx *txn) error {
		if err := checkRewardIndex(index); err != nil {
			return err
		}
		pool, err := tx.pool(poolKey)
		if err != nil {
			return err
		}
		reward := pool.RewardInfos[index]
		if !reward.Initialized() {
			return errs.RewardNotInitialized
		}
		if err := requireAuthority(reward.Authority, signer); err != nil {
			return err
		}

		balance, err := p.vaults.VaultBalance(tx.ctx, reward.Vault)
		if err != nil {
			return fmt.Errorf("reward vault %s: %w", reward.Vault, err)
		}
		perDay, err := clmath.CheckedMulShiftRight(uint128.From64(state.DayInSeconds), emissionsPerSecondX64)
		if err != nil {
			return err
		}
		if balance < perDay {
			return errs.RewardVaultAmountInsufficient
		}

		rewardInfos, err := manager.NextPoolRewardInfos(pool, tx.now)
		if err != nil {
			return err
		}
		if err := pool.UpdateEmissions(index, rewardInfos, tx.now, emissionsPerSecondX64); err != nil {
			return err
		}
		tx.markDirty(poolKey)
		return nil
	})
}

// SetRewardAuthority hands slot index over to newAuthority. The current
// authority must sign.
func (p *Program) SetRewardAuthority(ctx context.Context, poolKey, signer solana.PublicKey, index int, newAuthority solana.PublicKey) error {
	fields := []zap.Field{
		zap.Stringer("pool", poolKey),
		zap.Int("reward_index", index),
		zap.Stringer("authority", newAuthority),
	}
	return p.execute(ctx, "set_reward_authority", fields, func(tx *txn) error {
		if err := checkRewardIndex(index); err != nil {
			return err
		}
		pool, err := tx.pool(poolKey)
		if err != nil {
			return err
		}
		if err := requireAuthority(pool.RewardInfos[index].Authority, signer); err != nil {
			return err
		}
		if err := pool.UpdateRewardAuthority(index, newAuthority); err != nil {
			return err
		}
		tx.markDirty(poolKey)
		return nil
	})
}

// SetRewardAuthorityBySuperAuthority lets the config's reward emissions super
// authority reassign any slot of a pool under that config.
func (p *Program) SetRewardAuthorityBySuperAuthority(ctx context.Context, configKey, poolKey, signer solana.PublicKey, index int, newAuthority solana.PublicKey) error {
	fields := []zap.Field{
		zap.Stringer("pool", poolKey),
		zap.Int("reward_index", index),
		zap.Stringer("authority", newAuthority),
	}
	return p.execute(ctx, "set_reward_authority_by_super_authority", fields, func(tx *txn) error {
		if err := checkRewardIndex(index); err != nil {
			return err
		}
		pool, config, err := poolWithConfig(tx, poolKey, configKey)
		if err != nil {
			return err
		}
		if err := requireAuthority(config.RewardEmissionsSuperAuthority, signer); err != nil {
			return err
		}
		if err := pool.UpdateRewardAuthority(index, newAuthority); err != nil {
			return err
		}
		tx.markDirty(poolKey)
		return nil
	})
}

// CollectReward pays out min(owed, vault balance) for reward slot index and
// keeps the remainder owed.
func (p *Program) CollectReward(ctx context.Context, positionKey solana.PublicKey, index int) (uint64, error) {
	var paid uint64
	fields := []zap.Field{zap.Stringer("position", positionKey), zap.Int("reward_index", index)}
	err := p.execute(ctx, "collect_reward", fields, func(tx *txn) error {
		if err := checkRewardIndex(index); err != nil {
			return err
		}
		position, err := tx.position(positionKey)
		if err != nil {
			return err
		}
		pool, err := tx.pool(position.Pool)
		if err != nil {
			return err
		}
		reward := pool.RewardInfos[index]
		if !reward.Initialized() {
			return errs.RewardNotInitialized
		}
		balance, err := p.vaults.VaultBalance(tx.ctx, reward.Vault)
		if err != nil {
			return err
		}

		owed := position.RewardInfos[index].AmountOwed
		paid = min(owed, balance)
		if err := position.UpdateRewardOwed(index, owed-paid); err != nil {
			return err
		}
		tx.markDirty(positionKey)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if p.metrics != nil {
		p.metrics.RewardsCollected.Add(float64(paid))
	}
	return paid, nil
}
