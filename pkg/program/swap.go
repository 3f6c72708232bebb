package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/manager"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// RecordSwap applies a swap whose price movement was computed elsewhere:
// fees accrue to the pool and every crossed tick is flipped.
func (p *Program) RecordSwap(ctx context.Context, poolKey solana.PublicKey, input manager.SwapInput) (manager.SwapResult, error) {
	var result manager.SwapResult
	fields := []zap.Field{
		zap.Stringer("pool", poolKey),
		zap.Bool("a_to_b", input.AToB),
		zap.Int("steps", len(input.Steps)),
	}
	err := p.execute(ctx, "swap", fields, func(tx *txn) error {
		pool, err := tx.pool(poolKey)
		if err != nil {
			return err
		}
		lookup := &swapTicks{program: p, tx: tx, poolKey: poolKey, pool: pool}
		result, err = manager.CalculateSwap(pool, input, lookup, tx.now)
		if err != nil {
			return err
		}

		for _, crossed := range result.CrossedTicks {
			key, ta, _, err := p.loadTick(tx, poolKey, pool, crossed.TickIndex)
			if err != nil {
				return err
			}
			if err := ta.UpdateTick(crossed.TickIndex, pool.TickSpacing, crossed.Update); err != nil {
				return fmt.Errorf("tick %d: %w", crossed.TickIndex, err)
			}
			tx.markDirty(key)
		}
		pool.UpdateAfterSwap(result.PoolUpdate, tx.now)
		tx.markDirty(poolKey)
		return nil
	})
	if err != nil {
		return manager.SwapResult{}, err
	}
	return result, nil
}

// swapTicks serves the ticks of one pool to the swap manager.
type swapTicks struct {
	program *Program
	tx      *txn
	poolKey solana.PublicKey
	pool    *state.Pool
}

func (s *swapTicks) Tick(tickIndex int32) (*state.Tick, error) {
	_, _, tick, err := s.program.loadTick(s.tx, s.poolKey, s.pool, tickIndex)
	if err != nil {
		return nil, err
	}
	if !tick.Initialized {
		return nil, errs.TickNotFound
	}
	return tick, nil
}

// NextInitializedTick walks the tick arrays from the one holding from toward
// limit. Arrays that were never created hold no initialized ticks.
func (s *swapTicks) NextInitializedTick(from, limit int32, aToB bool) (int32, bool, error) {
	step := state.TickArraySize * int32(s.pool.TickSpacing)
	start := state.StartTickIndex(from, s.pool.TickSpacing)
	end := state.StartTickIndex(limit, s.pool.TickSpacing)
	if aToB {
		step = -step
	}
	for ; aToB && start >= end || !aToB && start <= end; start += step {
		key, err := state.DeriveTickArrayAddress(s.program.id, s.poolKey, start)
		if err != nil {
			return 0, false, err
		}
		ta, err := s.tx.tickArray(key)
		if errors.Is(err, errs.AccountNotFound) {
			continue
		}
		if err != nil {
			return 0, false, err
		}
		if ta.Pool != s.poolKey {
			return 0, false, errs.AccountMismatch
		}
		if tick, ok := ta.NextInitializedTick(from, limit, s.pool.TickSpacing, aToB); ok {
			return tick, true, nil
		}
	}
	return 0, false, nil
}
