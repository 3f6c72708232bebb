package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS program_accounts (
	address       TEXT PRIMARY KEY,
	discriminator BYTEA NOT NULL,
	data          BYTEA NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres keeps accounts in a single table keyed by base58 address. A commit
// runs in one transaction.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// EnsureSchema creates the accounts table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Postgres) Get(ctx context.Context, key solana.PublicKey) ([]byte, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM program_accounts WHERE address=$1`, key.String())
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.AccountNotFound
		}
		return nil, fmt.Errorf("load account %s: %w", key, err)
	}
	return data, nil
}

func (s *Postgres) Commit(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, w := range writes {
			if w.Data == nil {
				batch.Queue(`DELETE FROM program_accounts WHERE address=$1`, w.Key.String())
				continue
			}
			if len(w.Data) < 8 {
				return fmt.Errorf("account %s: data too short", w.Key)
			}
			batch.Queue(`
				INSERT INTO program_accounts (address, discriminator, data, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (address)
				DO UPDATE SET
					discriminator = EXCLUDED.discriminator,
					data = EXCLUDED.data,
					updated_at = now()
			`, w.Key.String(), w.Data[:8], w.Data)
		}

		br := tx.SendBatch(ctx, batch)
		for _, w := range writes {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("write account %s: %w", w.Key, err)
			}
		}
		return br.Close()
	})
}

// Keys lists every stored account address.
func (s *Postgres) Keys(ctx context.Context) ([]solana.PublicKey, error) {
	rows, err := s.pool.Query(ctx, `SELECT address FROM program_accounts ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	addresses, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	keys := make([]solana.PublicKey, 0, len(addresses))
	for _, a := range addresses {
		k, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			return nil, fmt.Errorf("stored address %q: %w", a, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}
