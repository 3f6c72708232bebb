package sol

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client reads vault balances and program accounts over Solana JSON-RPC.
type Client struct {
	RpcClient  *rpc.Client
	Commitment rpc.CommitmentType
}

// NewClient creates a client for the given RPC endpoint.
func NewClient(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is required")
	}
	return &Client{
		RpcClient:  rpc.New(endpoint),
		Commitment: rpc.CommitmentConfirmed,
	}, nil
}

// VaultBalance returns the raw token amount held by an SPL token account.
func (c *Client) VaultBalance(ctx context.Context, vault solana.PublicKey) (uint64, error) {
	out, err := c.RpcClient.GetTokenAccountBalance(ctx, vault, c.Commitment)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, fmt.Errorf("vault %s: %w", vault, errs.AccountNotFound)
		}
		return 0, fmt.Errorf("failed to get vault %s balance: %w", vault, err)
	}
	if out == nil || out.Value == nil {
		return 0, fmt.Errorf("vault %s: %w", vault, errs.AccountNotFound)
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("vault %s amount %q: %w", vault, out.Value.Amount, err)
	}
	return amount, nil
}

// AccountData fetches the raw data of an account.
func (c *Client) AccountData(ctx context.Context, key solana.PublicKey) ([]byte, error) {
	out, err := c.RpcClient.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.Commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("account %s: %w", key, errs.AccountNotFound)
		}
		return nil, fmt.Errorf("failed to get account %s: %w", key, err)
	}
	return out.GetBinary(), nil
}

// Close releases the underlying RPC transport.
func (c *Client) Close() error {
	return c.RpcClient.Close()
}

// PoolAccounts returns the raw data of every pool account of programID that
// trades mintA against mintB, keyed by address.
func (c *Client) PoolAccounts(ctx context.Context, programID, mintA, mintB solana.PublicKey) (map[solana.PublicKey][]byte, error) {
	result, err := c.RpcClient.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
		Commitment: c.Commitment,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  state.PoolDiscriminator[:],
				},
			},
			{
				DataSize: state.PoolSize,
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: state.PoolTokenMintAOffset,
					Bytes:  mintA.Bytes(),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: state.PoolTokenMintBOffset,
					Bytes:  mintB.Bytes(),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}

	pools := make(map[solana.PublicKey][]byte, len(result))
	for _, acc := range result {
		if acc == nil || acc.Account == nil {
			continue
		}
		pools[acc.Pubkey] = acc.Account.Data.GetBinary()
	}
	return pools, nil
}
