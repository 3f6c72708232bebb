package program

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/gagliardetto/solana-go"
)

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock returns whatever was last set. Replays drive it from recorded
// timestamps.
type ManualClock struct {
	mu sync.Mutex
	ts uint64
}

func NewManualClock(ts uint64) *ManualClock {
	return &ManualClock{ts: ts}
}

func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ts
}

func (c *ManualClock) Set(ts uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ts = ts
}

// MemoryVaults keeps token balances in memory.
type MemoryVaults struct {
	mu       sync.Mutex
	balances map[solana.PublicKey]uint64
}

func NewMemoryVaults() *MemoryVaults {
	return &MemoryVaults{balances: make(map[solana.PublicKey]uint64)}
}

func (v *MemoryVaults) VaultBalance(_ context.Context, vault solana.PublicKey) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	balance, ok := v.balances[vault]
	if !ok {
		return 0, fmt.Errorf("vault %s: %w", vault, errs.AccountNotFound)
	}
	return balance, nil
}

func (v *MemoryVaults) SetBalance(vault solana.PublicKey, amount uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[vault] = amount
}

// Withdraw moves amount out of vault. It fails without change when the
// balance is short.
func (v *MemoryVaults) Withdraw(vault solana.PublicKey, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	balance := v.balances[vault]
	if balance < amount {
		return fmt.Errorf("vault %s holds %d, need %d: %w", vault, balance, amount, errs.ArithmeticUnderflow)
	}
	v.balances[vault] = balance - amount
	return nil
}
