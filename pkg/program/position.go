package program

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/manager"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

// positionAccounts is everything a liquidity instruction touches.
type positionAccounts struct {
	positionKey solana.PublicKey
	position    *state.Position
	poolKey     solana.PublicKey
	pool        *state.Pool
	lowerKey    solana.PublicKey
	lowerArray  *state.TickArray
	upperKey    solana.PublicKey
	upperArray  *state.TickArray
	tickLower   *state.Tick
	tickUpper   *state.Tick
}

func (p *Program) loadPositionAccounts(tx *txn, positionKey solana.PublicKey) (*positionAccounts, error) {
	position, err := tx.position(positionKey)
	if err != nil {
		return nil, err
	}
	pool, err := tx.pool(position.Pool)
	if err != nil {
		return nil, err
	}
	a := &positionAccounts{
		positionKey: positionKey,
		position:    position,
		poolKey:     position.Pool,
		pool:        pool,
	}

	a.lowerKey, a.lowerArray, a.tickLower, err = p.loadTick(tx, a.poolKey, pool, position.TickLowerIndex)
	if err != nil {
		return nil, fmt.Errorf("tick lower: %w", err)
	}
	a.upperKey, a.upperArray, a.tickUpper, err = p.loadTick(tx, a.poolKey, pool, position.TickUpperIndex)
	if err != nil {
		return nil, fmt.Errorf("tick upper: %w", err)
	}
	return a, nil
}

// loadTick resolves tickIndex through the tick array that must hold it.
func (p *Program) loadTick(tx *txn, poolKey solana.PublicKey, pool *state.Pool, tickIndex int32) (solana.PublicKey, *state.TickArray, *state.Tick, error) {
	start := state.StartTickIndex(tickIndex, pool.TickSpacing)
	key, err := state.DeriveTickArrayAddress(p.id, poolKey, start)
	if err != nil {
		return solana.PublicKey{}, nil, nil, err
	}
	ta, err := tx.tickArray(key)
	if err != nil {
		return solana.PublicKey{}, nil, nil, err
	}
	if ta.Pool != poolKey {
		return solana.PublicKey{}, nil, nil, errs.AccountMismatch
	}
	tick, err := ta.GetTick(tickIndex, pool.TickSpacing)
	if err != nil {
		return solana.PublicKey{}, nil, nil, err
	}
	return key, ta, tick, nil
}

// OpenPosition creates an empty position over [tickLowerIndex, tickUpperIndex)
// and returns its address.
func (p *Program) OpenPosition(ctx context.Context, poolKey, positionMint solana.PublicKey, tickLowerIndex, tickUpperIndex int32) (solana.PublicKey, error) {
	key, _, err := state.DerivePositionAddress(p.id, positionMint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	fields := []zap.Field{
		zap.Stringer("position", key),
		zap.Int32("tick_lower", tickLowerIndex),
		zap.Int32("tick_upper", tickUpperIndex),
	}
	err = p.execute(ctx, "open_position", fields, func(tx *txn) error {
		pool, err := tx.pool(poolKey)
		if err != nil {
			return err
		}
		position := &state.Position{}
		if err := position.OpenPosition(pool, poolKey, positionMint, tickLowerIndex, tickUpperIndex); err != nil {
			return err
		}
		return tx.create(key, position)
	})
	return key, err
}

// IncreaseLiquidity adds amount of liquidity to the position.
func (p *Program) IncreaseLiquidity(ctx context.Context, positionKey solana.PublicKey, amount uint128.Uint128) error {
	return p.modifyLiquidity(ctx, "increase_liquidity", positionKey, amount, false)
}

// DecreaseLiquidity removes amount of liquidity from the position.
func (p *Program) DecreaseLiquidity(ctx context.Context, positionKey solana.PublicKey, amount uint128.Uint128) error {
	return p.modifyLiquidity(ctx, "decrease_liquidity", positionKey, amount, true)
}

func liquidityDelta(amount uint128.Uint128, decrease bool) (math.Int, error) {
	if amount.IsZero() {
		return math.Int{}, errs.LiquidityZero
	}
	delta := clmath.U128ToInt(amount)
	if !clmath.IsI128(delta) {
		return math.Int{}, errs.LiquidityTooHigh
	}
	if decrease {
		delta = delta.Neg()
	}
	return delta, nil
}

func (p *Program) modifyLiquidity(ctx context.Context, name string, positionKey solana.PublicKey, amount uint128.Uint128, decrease bool) error {
	fields := []zap.Field{zap.Stringer("position", positionKey), zap.Stringer("amount", amount)}
	return p.execute(ctx, name, fields, func(tx *txn) error {
		delta, err := liquidityDelta(amount, decrease)
		if err != nil {
			return err
		}
		a, err := p.loadPositionAccounts(tx, positionKey)
		if err != nil {
			return err
		}
		update, err := manager.CalculateModifyLiquidity(a.pool, a.position, a.tickLower, a.tickUpper, delta, tx.now)
		if err != nil {
			return err
		}
		if err := manager.SyncModifyLiquidityValues(a.pool, a.position, a.lowerArray, a.upperArray, update, tx.now); err != nil {
			return err
		}
		tx.markDirty(a.poolKey, a.positionKey, a.lowerKey, a.upperKey)
		return nil
	})
}

// UpdateFeesAndRewards settles the position's fees and rewards up to now.
func (p *Program) UpdateFeesAndRewards(ctx context.Context, positionKey solana.PublicKey) error {
	return p.execute(ctx, "update_fees_and_rewards", []zap.Field{zap.Stringer("position", positionKey)}, func(tx *txn) error {
		a, err := p.loadPositionAccounts(tx, positionKey)
		if err != nil {
			return err
		}
		update, rewardInfos, err := manager.CalculateFeeAndRewardGrowths(a.pool, a.position, a.tickLower, a.tickUpper, tx.now)
		if err != nil {
			return err
		}
		a.pool.UpdateRewards(rewardInfos, tx.now)
		a.position.Update(update)
		tx.markDirty(a.poolKey, a.positionKey)
		return nil
	})
}

// CollectFees zeroes the position's owed fees and returns them. It does not
// settle first; call UpdateFeesAndRewards for that.
func (p *Program) CollectFees(ctx context.Context, positionKey solana.PublicKey) (uint64, uint64, error) {
	var owedA, owedB uint64
	err := p.execute(ctx, "collect_fees", []zap.Field{zap.Stringer("position", positionKey)}, func(tx *txn) error {
		position, err := tx.position(positionKey)
		if err != nil {
			return err
		}
		owedA, owedB = position.FeeOwedA, position.FeeOwedB
		position.ResetFeesOwed()
		tx.markDirty(positionKey)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if p.metrics != nil {
		p.metrics.FeesCollected.WithLabelValues("position", "a").Add(float64(owedA))
		p.metrics.FeesCollected.WithLabelValues("position", "b").Add(float64(owedB))
	}
	return owedA, owedB, nil
}

// ClosePosition deletes a position that holds no liquidity and owes nothing.
func (p *Program) ClosePosition(ctx context.Context, positionKey solana.PublicKey) error {
	return p.execute(ctx, "close_position", []zap.Field{zap.Stringer("position", positionKey)}, func(tx *txn) error {
		position, err := tx.position(positionKey)
		if err != nil {
			return err
		}
		if !position.IsPositionEmpty() {
			return errs.ClosePositionNotEmpty
		}
		tx.remove(positionKey)
		return nil
	})
}
