package sol

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers JSON-RPC calls with the result registered for the method.
func rpcServer(t *testing.T, results map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, ok := results[req.Method]
		if !ok {
			t.Errorf("unexpected method %s", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultBalance(t *testing.T) {
	srv := rpcServer(t, map[string]any{
		"getTokenAccountBalance": map[string]any{
			"context": map[string]any{"slot": 1},
			"value": map[string]any{
				"amount":         "86400",
				"decimals":       6,
				"uiAmountString": "0.0864",
			},
		},
	})
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	balance, err := c.VaultBalance(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(86400), balance)
}

func TestAccountData(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	srv := rpcServer(t, map[string]any{
		"getAccountInfo": map[string]any{
			"context": map[string]any{"slot": 1},
			"value": map[string]any{
				"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
				"executable": false,
				"lamports":   1,
				"owner":      solana.SystemProgramID.String(),
				"rentEpoch":  0,
			},
		},
	})
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	got, err := c.AccountData(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestAccountDataMissing(t *testing.T) {
	srv := rpcServer(t, map[string]any{
		"getAccountInfo": map[string]any{
			"context": map[string]any{"slot": 1},
			"value":   nil,
		},
	})
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.AccountData(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, errs.AccountNotFound)
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestPoolAccounts(t *testing.T) {
	poolKey := solana.NewWallet().PublicKey()
	data := append(state.PoolDiscriminator[:], make([]byte, state.PoolSize-8)...)
	srv := rpcServer(t, map[string]any{
		"getProgramAccounts": []any{
			map[string]any{
				"pubkey": poolKey.String(),
				"account": map[string]any{
					"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
					"executable": false,
					"lamports":   1,
					"owner":      state.ProgramID.String(),
					"rentEpoch":  0,
				},
			},
		},
	})
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	pools, err := c.PoolAccounts(context.Background(), state.ProgramID, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, data, pools[poolKey])
}
