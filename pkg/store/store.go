// Package store persists encoded program accounts.
package store

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Write is one account change in a commit. Nil Data deletes the account.
type Write struct {
	Key  solana.PublicKey
	Data []byte
}

// AccountStore loads and atomically commits encoded accounts. Get returns
// errs.AccountNotFound for unknown keys.
type AccountStore interface {
	Get(ctx context.Context, key solana.PublicKey) ([]byte, error)
	Commit(ctx context.Context, writes []Write) error
}
