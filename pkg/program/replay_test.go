package program

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/elysium-labs/elysium-pools/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func replayOps(t *testing.T) string {
	t.Helper()
	poolKey, _, err := state.DerivePoolAddress(state.ProgramID, configKey, mintA, mintB, testTickSpacing)
	require.NoError(t, err)
	positionKey, _, err := state.DerivePositionAddress(state.ProgramID, positionMint)
	require.NoError(t, err)

	lines := []string{
		fmt.Sprintf(`{"ts":100,"op":"initialize_config","args":{"config":%q,"feeAuthority":%q,"collectProtocolFeesAuthority":%q,"rewardEmissionsSuperAuthority":%q,"defaultProtocolFeeRate":300}}`,
			configKey, feeAuth, collectAuth, superAuth),
		fmt.Sprintf(`{"ts":100,"op":"initialize_fee_tier","args":{"config":%q,"signer":%q,"tickSpacing":8,"rate":3000}}`, configKey, feeAuth),
		fmt.Sprintf(`{"ts":100,"op":"initialize_pool","args":{"config":%q,"mintA":%q,"vaultA":%q,"mintB":%q,"vaultB":%q,"tickSpacing":8,"sqrtPrice":"18446744073709551616"}}`,
			configKey, mintA, vaultA, mintB, vaultB),
		fmt.Sprintf(`{"ts":100,"op":"initialize_tick_array","args":{"pool":%q,"startTickIndex":-704}}`, poolKey),
		fmt.Sprintf(`{"ts":100,"op":"initialize_tick_array","args":{"pool":%q,"startTickIndex":0}}`, poolKey),
		"",
		"# one position over [-64, 64)",
		fmt.Sprintf(`{"ts":100,"op":"open_position","args":{"pool":%q,"positionMint":%q,"tickLowerIndex":-64,"tickUpperIndex":64}}`, poolKey, positionMint),
		fmt.Sprintf(`{"ts":100,"op":"increase_liquidity","args":{"position":%q,"amount":"1024"}}`, positionKey),
		fmt.Sprintf(`{"ts":100,"op":"set_vault_balance","args":{"vault":%q,"amount":1000}}`, rewardVault),
		fmt.Sprintf(`{"ts":100,"op":"initialize_reward","args":{"pool":%q,"signer":%q,"index":0,"mint":%q,"vault":%q}}`, poolKey, superAuth, rewardMint, rewardVault),
		fmt.Sprintf(`{"ts":100,"op":"set_reward_emissions","args":{"pool":%q,"signer":%q,"index":0,"emissionsPerSecondX64":"184467440737095516160"}}`, poolKey, superAuth),
		fmt.Sprintf(`{"ts":100,"op":"set_vault_balance","args":{"vault":%q,"amount":1000000}}`, rewardVault),
		fmt.Sprintf(`{"ts":100,"op":"set_reward_emissions","args":{"pool":%q,"signer":%q,"index":0,"emissionsPerSecondX64":"184467440737095516160"}}`, poolKey, superAuth),
		fmt.Sprintf(`{"ts":200,"op":"swap","args":{"pool":%q,"aToB":false,"steps":[{"feeAmount":1000}],"sqrtPrice":"18446744073709551616","tickCurrentIndex":0}}`, poolKey),
		fmt.Sprintf(`{"ts":200,"op":"update_fees_and_rewards","args":{"position":%q}}`, positionKey),
		fmt.Sprintf(`{"ts":200,"op":"collect_fees","args":{"position":%q}}`, positionKey),
		fmt.Sprintf(`{"ts":200,"op":"collect_reward","args":{"position":%q,"index":0}}`, positionKey),
		fmt.Sprintf(`{"ts":200,"op":"decrease_liquidity","args":{"position":%q,"amount":"1024"}}`, positionKey),
		fmt.Sprintf(`{"ts":200,"op":"close_position","args":{"position":%q}}`, positionKey),
	}
	return strings.Join(lines, "\n")
}

func readOutcomes(t *testing.T, data []byte) []Outcome {
	t.Helper()
	var outcomes []Outcome
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var o Outcome
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &o))
		outcomes = append(outcomes, o)
	}
	require.NoError(t, scanner.Err())
	return outcomes
}

func TestReplay(t *testing.T) {
	ctx := context.Background()
	clock := NewManualClock(0)
	vaults := NewMemoryVaults()
	p := New(store.NewMemory(), vaults, clock)
	r := NewReplayer(p, clock, vaults, zap.NewNop())

	var out bytes.Buffer
	summary, err := r.Replay(ctx, strings.NewReader(replayOps(t)), &out)
	require.NoError(t, err)
	assert.Equal(t, ReplaySummary{Applied: 17, Rejected: 1}, summary)

	outcomes := readOutcomes(t, out.Bytes())
	require.Len(t, outcomes, 18)

	rejected := outcomes[9]
	assert.Equal(t, "set_reward_emissions", rejected.Op)
	assert.False(t, rejected.OK)
	assert.Equal(t, "RewardVaultAmountInsufficient", rejected.Code)
	assert.Equal(t, 12, rejected.Line)

	fees := outcomes[14]
	assert.Equal(t, "collect_fees", fees.Op)
	assert.Equal(t, map[string]any{"feeA": float64(0), "feeB": float64(970)}, fees.Result)

	reward := outcomes[15]
	assert.Equal(t, "collect_reward", reward.Op)
	assert.Equal(t, map[string]any{"amount": float64(1000)}, reward.Result)

	balance, err := vaults.VaultBalance(ctx, rewardVault)
	require.NoError(t, err)
	assert.Equal(t, uint64(999_000), balance)
	assert.Equal(t, uint64(200), clock.Now())

	var snapshot bytes.Buffer
	require.NoError(t, p.WriteSnapshot(ctx, &snapshot, p.Touched()))
	var closed int
	for _, line := range strings.Split(strings.TrimSpace(snapshot.String()), "\n") {
		var view struct {
			Type   string `json:"type"`
			Closed bool   `json:"closed"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &view))
		if view.Closed {
			closed++
		}
	}
	assert.Equal(t, 1, closed)
}

func TestReplayStopsOnMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bad json", input: `{"ts":1,`, want: "line 1: decode op"},
		{name: "unknown op", input: `{"ts":1,"op":"burn"}`, want: `unknown op "burn"`},
		{name: "unknown field", input: `{"ts":1,"op":"collect_fees","args":{"positon":"x"}}`, want: "decode args"},
		{name: "bad u128", input: `{"ts":1,"op":"increase_liquidity","args":{"amount":"-1"}}`, want: "parse u128"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewManualClock(0)
			r := NewReplayer(New(store.NewMemory(), NewMemoryVaults(), clock), clock, nil, nil)
			_, err := r.Replay(context.Background(), strings.NewReader(tt.input), &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReplayWithoutMemoryVaults(t *testing.T) {
	clock := NewManualClock(0)
	r := NewReplayer(New(store.NewMemory(), NewMemoryVaults(), clock), clock, nil, nil)
	var out bytes.Buffer
	summary, err := r.Replay(context.Background(), strings.NewReader(`{"ts":1,"op":"set_vault_balance","args":{"amount":5}}`), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rejected)
}
