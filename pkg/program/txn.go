package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/elysium-labs/elysium-pools/pkg/store"
	"github.com/gagliardetto/solana-go"
)

// txn caches decoded accounts for one instruction. Loaded accounts are
// mutated in place and only reach the store on commit.
type txn struct {
	ctx   context.Context
	store store.AccountStore
	now   uint64

	accounts map[solana.PublicKey]state.Account
	removed  map[solana.PublicKey]bool
	dirty    map[solana.PublicKey]bool
	order    []solana.PublicKey
}

func newTxn(ctx context.Context, s store.AccountStore, now uint64) *txn {
	return &txn{
		ctx:      ctx,
		store:    s,
		now:      now,
		accounts: make(map[solana.PublicKey]state.Account),
		removed:  make(map[solana.PublicKey]bool),
		dirty:    make(map[solana.PublicKey]bool),
	}
}

func load[T any, PT interface {
	*T
	state.Account
}](tx *txn, key solana.PublicKey) (PT, error) {
	if cached, ok := tx.accounts[key]; ok {
		acc, ok := cached.(PT)
		if !ok {
			return nil, fmt.Errorf("account %s: %w", key, errs.AccountMismatch)
		}
		return acc, nil
	}
	if tx.removed[key] {
		return nil, fmt.Errorf("account %s: %w", key, errs.AccountNotFound)
	}

	data, err := tx.store.Get(tx.ctx, key)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", key, err)
	}
	acc := PT(new(T))
	if err := state.Decode(data, acc); err != nil {
		return nil, fmt.Errorf("account %s: %w: %w", key, errs.AccountMismatch, err)
	}
	tx.accounts[key] = acc
	return acc, nil
}

func (tx *txn) pool(key solana.PublicKey) (*state.Pool, error) {
	return load[state.Pool](tx, key)
}

func (tx *txn) position(key solana.PublicKey) (*state.Position, error) {
	return load[state.Position](tx, key)
}

func (tx *txn) tickArray(key solana.PublicKey) (*state.TickArray, error) {
	return load[state.TickArray](tx, key)
}

func (tx *txn) config(key solana.PublicKey) (*state.PoolsConfig, error) {
	return load[state.PoolsConfig](tx, key)
}

func (tx *txn) feeTier(key solana.PublicKey) (*state.FeeTier, error) {
	return load[state.FeeTier](tx, key)
}

// create registers a new account; key must not exist yet.
func (tx *txn) create(key solana.PublicKey, acc state.Account) error {
	if _, ok := tx.accounts[key]; ok {
		return fmt.Errorf("account %s: %w", key, errs.AlreadyInitialized)
	}
	if !tx.removed[key] {
		_, err := tx.store.Get(tx.ctx, key)
		if err == nil {
			return fmt.Errorf("account %s: %w", key, errs.AlreadyInitialized)
		}
		if !errors.Is(err, errs.AccountNotFound) {
			return fmt.Errorf("account %s: %w", key, err)
		}
	}
	delete(tx.removed, key)
	tx.accounts[key] = acc
	tx.markDirty(key)
	return nil
}

func (tx *txn) markDirty(keys ...solana.PublicKey) {
	for _, key := range keys {
		if tx.dirty[key] {
			continue
		}
		tx.dirty[key] = true
		tx.order = append(tx.order, key)
	}
}

func (tx *txn) remove(key solana.PublicKey) {
	delete(tx.accounts, key)
	tx.removed[key] = true
	tx.markDirty(key)
}

func (tx *txn) commit() error {
	if len(tx.order) == 0 {
		return nil
	}
	writes := make([]store.Write, 0, len(tx.order))
	for _, key := range tx.order {
		if tx.removed[key] {
			writes = append(writes, store.Write{Key: key})
			continue
		}
		data, err := state.Encode(tx.accounts[key])
		if err != nil {
			return fmt.Errorf("account %s: %w", key, err)
		}
		writes = append(writes, store.Write{Key: key, Data: data})
	}
	if err := tx.store.Commit(tx.ctx, writes); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
