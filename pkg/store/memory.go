package store

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/gagliardetto/solana-go"
)

// Memory is an in-process AccountStore.
type Memory struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey][]byte
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[solana.PublicKey][]byte)}
}

func (m *Memory) Get(_ context.Context, key solana.PublicKey) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.accounts[key]
	if !ok {
		return nil, errs.AccountNotFound
	}
	return bytes.Clone(data), nil
}

func (m *Memory) Commit(_ context.Context, writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range writes {
		if w.Data == nil {
			delete(m.accounts, w.Key)
			continue
		}
		m.accounts[w.Key] = bytes.Clone(w.Data)
	}
	return nil
}

// Keys lists every stored account in byte order.
func (m *Memory) Keys() []solana.PublicKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]solana.PublicKey, 0, len(m.accounts))
	for k := range m.accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	return keys
}
