// Package program runs instructions against persisted accounts. Each
// instruction loads what it needs, computes updates with pkg/manager and
// commits every touched account at once, or nothing on error.
package program

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/metrics"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/elysium-labs/elysium-pools/pkg/store"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// VaultBalances reports token account balances.
type VaultBalances interface {
	VaultBalance(ctx context.Context, vault solana.PublicKey) (uint64, error)
}

// Clock supplies the instruction timestamp in unix seconds.
type Clock interface {
	Now() uint64
}

// Program serializes instructions over one account store.
type Program struct {
	mu sync.Mutex

	id      solana.PublicKey
	store   store.AccountStore
	vaults  VaultBalances
	clock   Clock
	logger  *zap.Logger
	metrics *metrics.Metrics

	touched map[solana.PublicKey]struct{}
	order   []solana.PublicKey
}

type Option func(*Program)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Program) { p.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Program) { p.metrics = m }
}

// WithProgramID overrides the id used to derive account addresses.
func WithProgramID(id solana.PublicKey) Option {
	return func(p *Program) { p.id = id }
}

func New(accounts store.AccountStore, vaults VaultBalances, clock Clock, opts ...Option) *Program {
	p := &Program{
		id:      state.ProgramID,
		store:   accounts,
		vaults:  vaults,
		clock:   clock,
		logger:  zap.NewNop(),
		touched: make(map[solana.PublicKey]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the program id used for address derivation.
func (p *Program) ID() solana.PublicKey {
	return p.id
}

// Touched lists every account written so far, in first-write order.
func (p *Program) Touched() []solana.PublicKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]solana.PublicKey(nil), p.order...)
}

// execute runs fn inside a transaction and commits it when fn succeeds.
func (p *Program) execute(ctx context.Context, name string, fields []zap.Field, fn func(tx *txn) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	tx := newTxn(ctx, p.store, p.clock.Now())
	err := fn(tx)
	if err == nil {
		err = tx.commit()
	}
	if p.metrics != nil {
		p.metrics.ObserveInstruction(name, err, time.Since(start).Seconds())
	}

	fields = append(fields, zap.String("instruction", name), zap.Uint64("ts", tx.now))
	if err != nil {
		if code, ok := errs.Code(err); ok {
			fields = append(fields, zap.String("code", code.Name()))
		}
		p.logger.Warn("instruction rejected", append(fields, zap.Error(err))...)
		return fmt.Errorf("%s: %w", name, err)
	}

	for _, key := range tx.order {
		if _, ok := p.touched[key]; !ok {
			p.touched[key] = struct{}{}
			p.order = append(p.order, key)
		}
	}
	if p.metrics != nil {
		p.metrics.LastTimestamp.Set(float64(tx.now))
	}
	p.logger.Debug("instruction applied", append(fields, zap.Int("accounts", len(tx.order)))...)
	return nil
}

// Account loads and decodes any program account.
func (p *Program) Account(ctx context.Context, key solana.PublicKey) (state.Account, error) {
	data, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", key, err)
	}
	return state.DecodeAccount(data)
}

func requireAuthority(expected, signer solana.PublicKey) error {
	if expected != signer {
		return errs.Unauthorized
	}
	return nil
}
