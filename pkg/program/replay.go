package program

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/manager"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

const maxOpLineSize = 1 << 20

// Op is one line of a replay file.
type Op struct {
	TS   uint64          `json:"ts"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

// Outcome is written for every replayed op.
type Outcome struct {
	Line   int    `json:"line"`
	Op     string `json:"op"`
	TS     uint64 `json:"ts"`
	OK     bool   `json:"ok"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// ReplaySummary counts replayed ops.
type ReplaySummary struct {
	Applied  int
	Rejected int
}

// U128 decodes a 128-bit integer from a JSON decimal string or number.
type U128 struct {
	uint128.Uint128
}

func (u *U128) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	v, err := uint128.FromString(s)
	if err != nil {
		return fmt.Errorf("parse u128 %q: %w", s, err)
	}
	u.Uint128 = v
	return nil
}

func (u U128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

type handler func(ctx context.Context, args json.RawMessage) (any, error)

// Replayer applies recorded ops to a program, setting the clock from each
// op's timestamp.
type Replayer struct {
	program  *Program
	clock    *ManualClock
	vaults   *MemoryVaults
	logger   *zap.Logger
	handlers map[string]handler
}

// NewReplayer drives p. vaults may be nil when balances come from elsewhere;
// then set_vault_balance is rejected and collected rewards are not withdrawn.
func NewReplayer(p *Program, clock *ManualClock, vaults *MemoryVaults, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Replayer{program: p, clock: clock, vaults: vaults, logger: logger}
	r.handlers = map[string]handler{
		"initialize_config":                       r.initializeConfig,
		"set_fee_authority":                       r.setFeeAuthority,
		"set_collect_protocol_fees_authority":     r.setCollectProtocolFeesAuthority,
		"set_reward_emissions_super_authority":    r.setRewardEmissionsSuperAuthority,
		"set_default_protocol_fee_rate":           r.setDefaultProtocolFeeRate,
		"initialize_fee_tier":                     r.initializeFeeTier,
		"set_default_fee_rate":                    r.setDefaultFeeRate,
		"initialize_pool":                         r.initializePool,
		"initialize_tick_array":                   r.initializeTickArray,
		"set_fee_rate":                            r.setFeeRate,
		"set_protocol_fee_rate":                   r.setProtocolFeeRate,
		"collect_protocol_fees":                   r.collectProtocolFees,
		"initialize_reward":                       r.initializeReward,
		"set_reward_emissions":                    r.setRewardEmissions,
		"set_reward_authority":                    r.setRewardAuthority,
		"set_reward_authority_by_super_authority": r.setRewardAuthorityBySuperAuthority,
		"open_position":                           r.openPosition,
		"increase_liquidity":                      r.increaseLiquidity,
		"decrease_liquidity":                      r.decreaseLiquidity,
		"update_fees_and_rewards":                 r.updateFeesAndRewards,
		"collect_fees":                            r.collectFees,
		"collect_reward":                          r.collectReward,
		"close_position":                          r.closePosition,
		"swap":                                    r.swap,
		"set_vault_balance":                       r.setVaultBalance,
	}
	return r
}

// Replay reads JSONL ops from in and writes one Outcome per op to out.
// Rejected instructions are reported and replay continues; malformed lines
// stop it.
func (r *Replayer) Replay(ctx context.Context, in io.Reader, out io.Writer) (ReplaySummary, error) {
	var summary ReplaySummary
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxOpLineSize)
	writer := bufio.NewWriter(out)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var op Op
		if err := json.Unmarshal(raw, &op); err != nil {
			return summary, fmt.Errorf("line %d: decode op: %w", line, err)
		}
		outcome, err := r.apply(ctx, line, op)
		if err != nil {
			return summary, err
		}
		if outcome.OK {
			summary.Applied++
		} else {
			summary.Rejected++
		}

		data, err := json.Marshal(outcome)
		if err != nil {
			return summary, fmt.Errorf("line %d: marshal outcome: %w", line, err)
		}
		if _, err := writer.Write(data); err != nil {
			return summary, fmt.Errorf("write outcome: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return summary, fmt.Errorf("write newline: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read ops: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return summary, fmt.Errorf("flush outcomes: %w", err)
	}
	return summary, nil
}

func (r *Replayer) apply(ctx context.Context, line int, op Op) (Outcome, error) {
	h, ok := r.handlers[op.Op]
	if !ok {
		return Outcome{}, fmt.Errorf("line %d: unknown op %q", line, op.Op)
	}
	if len(op.Args) == 0 {
		op.Args = json.RawMessage("{}")
	}

	r.clock.Set(op.TS)
	outcome := Outcome{Line: line, Op: op.Op, TS: op.TS}
	result, err := h(ctx, op.Args)
	if err != nil {
		var badArgs *argsError
		if errors.As(err, &badArgs) {
			return Outcome{}, fmt.Errorf("line %d: %w", line, err)
		}
		outcome.Error = err.Error()
		if code, ok := errs.Code(err); ok {
			outcome.Code = code.Name()
		}
		r.logger.Info("op rejected", zap.Int("line", line), zap.String("op", op.Op), zap.Error(err))
		return outcome, nil
	}
	outcome.OK = true
	outcome.Result = result
	return outcome, nil
}

// argsError marks op arguments that could not be decoded.
type argsError struct {
	err error
}

func (e *argsError) Error() string { return "decode args: " + e.err.Error() }

func (e *argsError) Unwrap() error { return e.err }

func decodeArgs[T any](raw json.RawMessage) (T, error) {
	var args T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return args, &argsError{err: err}
	}
	return args, nil
}

type configArgs struct {
	Config                        solana.PublicKey `json:"config"`
	FeeAuthority                  solana.PublicKey `json:"feeAuthority"`
	CollectProtocolFeesAuthority  solana.PublicKey `json:"collectProtocolFeesAuthority"`
	RewardEmissionsSuperAuthority solana.PublicKey `json:"rewardEmissionsSuperAuthority"`
	DefaultProtocolFeeRate        uint16           `json:"defaultProtocolFeeRate"`
}

func (r *Replayer) initializeConfig(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[configArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.InitializeConfig(ctx, a.Config, InitializeConfigParams{
		FeeAuthority:                  a.FeeAuthority,
		CollectProtocolFeesAuthority:  a.CollectProtocolFeesAuthority,
		RewardEmissionsSuperAuthority: a.RewardEmissionsSuperAuthority,
		DefaultProtocolFeeRate:        a.DefaultProtocolFeeRate,
	})
}

type authorityArgs struct {
	Config    solana.PublicKey `json:"config"`
	Signer    solana.PublicKey `json:"signer"`
	Authority solana.PublicKey `json:"authority"`
}

func (r *Replayer) setFeeAuthority(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[authorityArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.SetFeeAuthority(ctx, a.Config, a.Signer, a.Authority)
}

func (r *Replayer) setCollectProtocolFeesAuthority(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[authorityArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.SetCollectProtocolFeesAuthority(ctx, a.Config, a.Signer, a.Authority)
}

func (r *Replayer) setRewardEmissionsSuperAuthority(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[authorityArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.SetRewardEmissionsSuperAuthority(ctx, a.Config, a.Signer, a.Authority)
}

type rateArgs struct {
	Config      solana.PublicKey `json:"config"`
	Pool        solana.PublicKey `json:"pool"`
	Signer      solana.PublicKey `json:"signer"`
	TickSpacing uint16           `json:"tickSpacing"`
	Rate        uint16           `json:"rate"`
}

func (r *Replayer) setDefaultProtocolFeeRate(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[rateArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.SetDefaultProtocolFeeRate(ctx, a.Config, a.Signer, a.Rate)
}

func (r *Replayer) initializeFeeTier(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[rateArgs](raw)
	if err != nil {
		return nil, err
	}
	key, err := r.program.InitializeFeeTier(ctx, a.Config, a.Signer, a.TickSpacing, a.Rate)
	if err != nil {
		return nil, err
	}
	return map[string]solana.PublicKey{"feeTier": key}, nil
}

func (r *Replayer) setDefaultFeeRate(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[rateArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.SetDefaultFeeRate(ctx, a.Config, a.Signer, a.TickSpacing, a.Rate)
}

func (r *Replayer) setFeeRate(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[rateArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.SetFeeRate(ctx, a.Config, a.Pool, a.Signer, a.Rate)
}

func (r *Replayer) setProtocolFeeRate(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[rateArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.SetProtocolFeeRate(ctx, a.Config, a.Pool, a.Signer, a.Rate)
}

type poolArgs struct {
	Config      solana.PublicKey `json:"config"`
	MintA       solana.PublicKey `json:"mintA"`
	VaultA      solana.PublicKey `json:"vaultA"`
	MintB       solana.PublicKey `json:"mintB"`
	VaultB      solana.PublicKey `json:"vaultB"`
	TickSpacing uint16           `json:"tickSpacing"`
	SqrtPrice   U128             `json:"sqrtPrice"`
}

func (r *Replayer) initializePool(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[poolArgs](raw)
	if err != nil {
		return nil, err
	}
	key, err := r.program.InitializePool(ctx, InitializePoolParams{
		Config:      a.Config,
		MintA:       a.MintA,
		VaultA:      a.VaultA,
		MintB:       a.MintB,
		VaultB:      a.VaultB,
		TickSpacing: a.TickSpacing,
		SqrtPrice:   a.SqrtPrice.Uint128,
	})
	if err != nil {
		return nil, err
	}
	return map[string]solana.PublicKey{"pool": key}, nil
}

type tickArrayArgs struct {
	Pool           solana.PublicKey `json:"pool"`
	StartTickIndex int32            `json:"startTickIndex"`
}

func (r *Replayer) initializeTickArray(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[tickArrayArgs](raw)
	if err != nil {
		return nil, err
	}
	key, err := r.program.InitializeTickArray(ctx, a.Pool, a.StartTickIndex)
	if err != nil {
		return nil, err
	}
	return map[string]solana.PublicKey{"tickArray": key}, nil
}

type protocolFeesArgs struct {
	Config solana.PublicKey `json:"config"`
	Pool   solana.PublicKey `json:"pool"`
	Signer solana.PublicKey `json:"signer"`
}

func (r *Replayer) collectProtocolFees(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[protocolFeesArgs](raw)
	if err != nil {
		return nil, err
	}
	owedA, owedB, err := r.program.CollectProtocolFees(ctx, a.Config, a.Pool, a.Signer)
	if err != nil {
		return nil, err
	}
	return map[string]uint64{"feeA": owedA, "feeB": owedB}, nil
}

type rewardArgs struct {
	Config                solana.PublicKey `json:"config"`
	Pool                  solana.PublicKey `json:"pool"`
	Signer                solana.PublicKey `json:"signer"`
	Index                 int              `json:"index"`
	Mint                  solana.PublicKey `json:"mint"`
	Vault                 solana.PublicKey `json:"vault"`
	Authority             solana.PublicKey `json:"authority"`
	EmissionsPerSecondX64 U128             `json:"emissionsPerSecondX64"`
}

func (r *Replayer) initializeReward(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[rewardArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.InitializeReward(ctx, a.Pool, a.Signer, a.Index, a.Mint, a.Vault)
}

func (r *Replayer) setRewardEmissions(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[rewardArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.SetRewardEmissions(ctx, a.Pool, a.Signer, a.Index, a.EmissionsPerSecondX64.Uint128)
}

func (r *Replayer) setRewardAuthority(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[rewardArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.SetRewardAuthority(ctx, a.Pool, a.Signer, a.Index, a.Authority)
}

func (r *Replayer) setRewardAuthorityBySuperAuthority(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[rewardArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.SetRewardAuthorityBySuperAuthority(ctx, a.Config, a.Pool, a.Signer, a.Index, a.Authority)
}

type positionArgs struct {
	Pool           solana.PublicKey `json:"pool"`
	PositionMint   solana.PublicKey `json:"positionMint"`
	TickLowerIndex int32            `json:"tickLowerIndex"`
	TickUpperIndex int32            `json:"tickUpperIndex"`
	Position       solana.PublicKey `json:"position"`
	Amount         U128             `json:"amount"`
	Index          int              `json:"index"`
}

func (r *Replayer) openPosition(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[positionArgs](raw)
	if err != nil {
		return nil, err
	}
	key, err := r.program.OpenPosition(ctx, a.Pool, a.PositionMint, a.TickLowerIndex, a.TickUpperIndex)
	if err != nil {
		return nil, err
	}
	return map[string]solana.PublicKey{"position": key}, nil
}

func (r *Replayer) increaseLiquidity(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[positionArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.IncreaseLiquidity(ctx, a.Position, a.Amount.Uint128)
}

func (r *Replayer) decreaseLiquidity(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[positionArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.DecreaseLiquidity(ctx, a.Position, a.Amount.Uint128)
}

func (r *Replayer) updateFeesAndRewards(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[positionArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.UpdateFeesAndRewards(ctx, a.Position)
}

func (r *Replayer) collectFees(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[positionArgs](raw)
	if err != nil {
		return nil, err
	}
	owedA, owedB, err := r.program.CollectFees(ctx, a.Position)
	if err != nil {
		return nil, err
	}
	return map[string]uint64{"feeA": owedA, "feeB": owedB}, nil
}

func (r *Replayer) collectReward(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[positionArgs](raw)
	if err != nil {
		return nil, err
	}
	paid, err := r.program.CollectReward(ctx, a.Position, a.Index)
	if err != nil {
		return nil, err
	}
	if r.vaults != nil && paid > 0 {
		vault, err := r.rewardVault(ctx, a.Position, a.Index)
		if err != nil {
			return nil, err
		}
		if err := r.vaults.Withdraw(vault, paid); err != nil {
			return nil, err
		}
	}
	return map[string]uint64{"amount": paid}, nil
}

func (r *Replayer) rewardVault(ctx context.Context, positionKey solana.PublicKey, index int) (solana.PublicKey, error) {
	acc, err := r.program.Account(ctx, positionKey)
	if err != nil {
		return solana.PublicKey{}, err
	}
	position, ok := acc.(*state.Position)
	if !ok {
		return solana.PublicKey{}, errs.AccountMismatch
	}
	acc, err = r.program.Account(ctx, position.Pool)
	if err != nil {
		return solana.PublicKey{}, err
	}
	pool, ok := acc.(*state.Pool)
	if !ok {
		return solana.PublicKey{}, errs.AccountMismatch
	}
	return pool.RewardInfos[index].Vault, nil
}

func (r *Replayer) closePosition(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[positionArgs](raw)
	if err != nil {
		return nil, err
	}
	return nil, r.program.ClosePosition(ctx, a.Position)
}

type swapStepArgs struct {
	FeeAmount uint64 `json:"feeAmount"`
	CrossTick *int32 `json:"crossTick"`
}

type swapArgs struct {
	Pool             solana.PublicKey `json:"pool"`
	AToB             bool             `json:"aToB"`
	Steps            []swapStepArgs   `json:"steps"`
	SqrtPrice        U128             `json:"sqrtPrice"`
	TickCurrentIndex int32            `json:"tickCurrentIndex"`
}

func (r *Replayer) swap(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[swapArgs](raw)
	if err != nil {
		return nil, err
	}
	input := manager.SwapInput{
		AToB:             a.AToB,
		SqrtPrice:        a.SqrtPrice.Uint128,
		TickCurrentIndex: a.TickCurrentIndex,
	}
	for _, step := range a.Steps {
		input.Steps = append(input.Steps, manager.SwapStep{FeeAmount: step.FeeAmount, CrossTick: step.CrossTick})
	}
	result, err := r.program.RecordSwap(ctx, a.Pool, input)
	if err != nil {
		return nil, err
	}
	crossed := make([]int32, 0, len(result.CrossedTicks))
	for _, c := range result.CrossedTicks {
		crossed = append(crossed, c.TickIndex)
	}
	return map[string]any{
		"crossedTicks": crossed,
		"protocolFee":  result.PoolUpdate.ProtocolFee,
		"liquidity":    result.PoolUpdate.Liquidity.String(),
	}, nil
}

type vaultArgs struct {
	Vault  solana.PublicKey `json:"vault"`
	Amount uint64           `json:"amount"`
}

func (r *Replayer) setVaultBalance(_ context.Context, raw json.RawMessage) (any, error) {
	a, err := decodeArgs[vaultArgs](raw)
	if err != nil {
		return nil, err
	}
	if r.vaults == nil {
		return nil, errors.New("vault balances are read from chain")
	}
	r.vaults.SetBalance(a.Vault, a.Amount)
	return nil, nil
}
