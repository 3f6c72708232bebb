package program

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
)

// AccountView is the JSON rendering of one account. 128-bit values are
// decimal strings.
type AccountView struct {
	Address solana.PublicKey `json:"address"`
	Type    string           `json:"type"`
	Closed  bool             `json:"closed,omitempty"`
	Data    any              `json:"data,omitempty"`
}

type rewardInfoView struct {
	Mint                  solana.PublicKey `json:"mint"`
	Vault                 solana.PublicKey `json:"vault"`
	Authority             solana.PublicKey `json:"authority"`
	EmissionsPerSecondX64 string           `json:"emissionsPerSecondX64"`
	GrowthGlobalX64       string           `json:"growthGlobalX64"`
}

type poolView struct {
	PoolsConfig                solana.PublicKey `json:"poolsConfig"`
	TickSpacing                uint16           `json:"tickSpacing"`
	FeeRate                    uint16           `json:"feeRate"`
	ProtocolFeeRate            uint16           `json:"protocolFeeRate"`
	Liquidity                  string           `json:"liquidity"`
	SqrtPrice                  string           `json:"sqrtPrice"`
	TickCurrentIndex           int32            `json:"tickCurrentIndex"`
	ProtocolFeeOwedA           uint64           `json:"protocolFeeOwedA"`
	ProtocolFeeOwedB           uint64           `json:"protocolFeeOwedB"`
	TokenMintA                 solana.PublicKey `json:"tokenMintA"`
	TokenVaultA                solana.PublicKey `json:"tokenVaultA"`
	FeeGrowthGlobalA           string           `json:"feeGrowthGlobalA"`
	TokenMintB                 solana.PublicKey `json:"tokenMintB"`
	TokenVaultB                solana.PublicKey `json:"tokenVaultB"`
	FeeGrowthGlobalB           string           `json:"feeGrowthGlobalB"`
	RewardLastUpdatedTimestamp uint64           `json:"rewardLastUpdatedTimestamp"`
	RewardInfos                []rewardInfoView `json:"rewardInfos"`
}

type positionRewardView struct {
	GrowthInsideCheckpoint string `json:"growthInsideCheckpoint"`
	AmountOwed             uint64 `json:"amountOwed"`
}

type positionView struct {
	Pool                 solana.PublicKey     `json:"pool"`
	PositionMint         solana.PublicKey     `json:"positionMint"`
	Liquidity            string               `json:"liquidity"`
	TickLowerIndex       int32                `json:"tickLowerIndex"`
	TickUpperIndex       int32                `json:"tickUpperIndex"`
	FeeGrowthCheckpointA string               `json:"feeGrowthCheckpointA"`
	FeeOwedA             uint64               `json:"feeOwedA"`
	FeeGrowthCheckpointB string               `json:"feeGrowthCheckpointB"`
	FeeOwedB             uint64               `json:"feeOwedB"`
	RewardInfos          []positionRewardView `json:"rewardInfos"`
}

type tickView struct {
	Offset               int      `json:"offset"`
	LiquidityNet         string   `json:"liquidityNet"`
	LiquidityGross       string   `json:"liquidityGross"`
	FeeGrowthOutsideA    string   `json:"feeGrowthOutsideA"`
	FeeGrowthOutsideB    string   `json:"feeGrowthOutsideB"`
	RewardGrowthsOutside []string `json:"rewardGrowthsOutside"`
}

// tickArrayView lists initialized ticks only, by offset from the start.
type tickArrayView struct {
	Pool           solana.PublicKey `json:"pool"`
	StartTickIndex int32            `json:"startTickIndex"`
	Ticks          []tickView       `json:"ticks"`
}

type configView struct {
	FeeAuthority                  solana.PublicKey `json:"feeAuthority"`
	CollectProtocolFeesAuthority  solana.PublicKey `json:"collectProtocolFeesAuthority"`
	RewardEmissionsSuperAuthority solana.PublicKey `json:"rewardEmissionsSuperAuthority"`
	DefaultProtocolFeeRate        uint16           `json:"defaultProtocolFeeRate"`
}

type feeTierView struct {
	PoolsConfig    solana.PublicKey `json:"poolsConfig"`
	TickSpacing    uint16           `json:"tickSpacing"`
	DefaultFeeRate uint16           `json:"defaultFeeRate"`
}

// NewAccountView renders acc stored at address.
func NewAccountView(address solana.PublicKey, acc state.Account) (AccountView, error) {
	switch a := acc.(type) {
	case *state.Pool:
		return AccountView{Address: address, Type: "pool", Data: newPoolView(a)}, nil
	case *state.Position:
		return AccountView{Address: address, Type: "position", Data: newPositionView(a)}, nil
	case *state.TickArray:
		return AccountView{Address: address, Type: "tick_array", Data: newTickArrayView(a)}, nil
	case *state.PoolsConfig:
		return AccountView{Address: address, Type: "pools_config", Data: configView{
			FeeAuthority:                  a.FeeAuthority,
			CollectProtocolFeesAuthority:  a.CollectProtocolFeesAuthority,
			RewardEmissionsSuperAuthority: a.RewardEmissionsSuperAuthority,
			DefaultProtocolFeeRate:        a.DefaultProtocolFeeRate,
		}}, nil
	case *state.FeeTier:
		return AccountView{Address: address, Type: "fee_tier", Data: feeTierView{
			PoolsConfig:    a.PoolsConfig,
			TickSpacing:    a.TickSpacing,
			DefaultFeeRate: a.DefaultFeeRate,
		}}, nil
	default:
		return AccountView{}, fmt.Errorf("no view for %T", acc)
	}
}

func newPoolView(p *state.Pool) poolView {
	v := poolView{
		PoolsConfig:                p.PoolsConfig,
		TickSpacing:                p.TickSpacing,
		FeeRate:                    p.FeeRate,
		ProtocolFeeRate:            p.ProtocolFeeRate,
		Liquidity:                  p.Liquidity.String(),
		SqrtPrice:                  p.SqrtPrice.String(),
		TickCurrentIndex:           p.TickCurrentIndex,
		ProtocolFeeOwedA:           p.ProtocolFeeOwedA,
		ProtocolFeeOwedB:           p.ProtocolFeeOwedB,
		TokenMintA:                 p.TokenMintA,
		TokenVaultA:                p.TokenVaultA,
		FeeGrowthGlobalA:           p.FeeGrowthGlobalA.String(),
		TokenMintB:                 p.TokenMintB,
		TokenVaultB:                p.TokenVaultB,
		FeeGrowthGlobalB:           p.FeeGrowthGlobalB.String(),
		RewardLastUpdatedTimestamp: p.RewardLastUpdatedTimestamp,
	}
	for _, r := range p.RewardInfos {
		v.RewardInfos = append(v.RewardInfos, rewardInfoView{
			Mint:                  r.Mint,
			Vault:                 r.Vault,
			Authority:             r.Authority,
			EmissionsPerSecondX64: r.EmissionsPerSecondX64.String(),
			GrowthGlobalX64:       r.GrowthGlobalX64.String(),
		})
	}
	return v
}

func newPositionView(p *state.Position) positionView {
	v := positionView{
		Pool:                 p.Pool,
		PositionMint:         p.PositionMint,
		Liquidity:            p.Liquidity.String(),
		TickLowerIndex:       p.TickLowerIndex,
		TickUpperIndex:       p.TickUpperIndex,
		FeeGrowthCheckpointA: p.FeeGrowthCheckpointA.String(),
		FeeOwedA:             p.FeeOwedA,
		FeeGrowthCheckpointB: p.FeeGrowthCheckpointB.String(),
		FeeOwedB:             p.FeeOwedB,
	}
	for _, r := range p.RewardInfos {
		v.RewardInfos = append(v.RewardInfos, positionRewardView{
			GrowthInsideCheckpoint: r.GrowthInsideCheckpoint.String(),
			AmountOwed:             r.AmountOwed,
		})
	}
	return v
}

func newTickArrayView(ta *state.TickArray) tickArrayView {
	v := tickArrayView{Pool: ta.Pool, StartTickIndex: ta.StartTickIndex, Ticks: []tickView{}}
	for i := range ta.Ticks {
		t := &ta.Ticks[i]
		if !t.Initialized {
			continue
		}
		tv := tickView{
			Offset:            i,
			LiquidityNet:      t.Net().String(),
			LiquidityGross:    t.LiquidityGross.String(),
			FeeGrowthOutsideA: t.FeeGrowthOutsideA.String(),
			FeeGrowthOutsideB: t.FeeGrowthOutsideB.String(),
		}
		for _, g := range t.RewardGrowthsOutside {
			tv.RewardGrowthsOutside = append(tv.RewardGrowthsOutside, g.String())
		}
		v.Ticks = append(v.Ticks, tv)
	}
	return v
}

// Snapshot renders the current state of keys. Deleted accounts are reported
// as closed.
func (p *Program) Snapshot(ctx context.Context, keys []solana.PublicKey) ([]AccountView, error) {
	views := make([]AccountView, 0, len(keys))
	for _, key := range keys {
		acc, err := p.Account(ctx, key)
		if errors.Is(err, errs.AccountNotFound) {
			views = append(views, AccountView{Address: key, Type: "closed", Closed: true})
			continue
		}
		if err != nil {
			return nil, err
		}
		view, err := NewAccountView(key, acc)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// WriteSnapshot writes the view of every key as one JSON line.
func (p *Program) WriteSnapshot(ctx context.Context, w io.Writer, keys []solana.PublicKey) error {
	views, err := p.Snapshot(ctx, keys)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, view := range views {
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("write %s: %w", view.Address, err)
		}
	}
	return nil
}
