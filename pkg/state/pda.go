package state

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

// DerivePoolAddress derives the pool PDA:
// seeds = ["pool", config, mint_a, mint_b, tick_spacing.to_le_bytes()]
func DerivePoolAddress(programID, config, mintA, mintB solana.PublicKey, tickSpacing uint16) (solana.PublicKey, uint8, error) {
	spacing := make([]byte, 2)
	binary.LittleEndian.PutUint16(spacing, tickSpacing)
	seeds := [][]byte{
		[]byte(PoolSeed),
		config.Bytes(),
		mintA.Bytes(),
		mintB.Bytes(),
		spacing,
	}
	pda, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to find program address for pool: %w", err)
	}
	return pda, bump, nil
}

// DeriveFeeTierAddress derives the fee tier PDA:
// seeds = ["fee_tier", config, tick_spacing.to_le_bytes()]
func DeriveFeeTierAddress(programID, config solana.PublicKey, tickSpacing uint16) (solana.PublicKey, uint8, error) {
	spacing := make([]byte, 2)
	binary.LittleEndian.PutUint16(spacing, tickSpacing)
	seeds := [][]byte{
		[]byte(FeeTierSeed),
		config.Bytes(),
		spacing,
	}
	pda, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to find program address for fee tier: %w", err)
	}
	return pda, bump, nil
}

// DerivePositionAddress derives the position PDA:
// seeds = ["position", position_mint]
func DerivePositionAddress(programID, positionMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{
		[]byte(PositionSeed),
		positionMint.Bytes(),
	}
	pda, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to find program address for position: %w", err)
	}
	return pda, bump, nil
}

// DeriveTickArrayAddress derives the tick array PDA. The start index is
// encoded as its decimal string:
// seeds = ["tick_array", pool, start_tick_index.to_string()]
func DeriveTickArrayAddress(programID, pool solana.PublicKey, startTickIndex int32) (solana.PublicKey, error) {
	seeds := [][]byte{
		[]byte(TickArraySeed),
		pool.Bytes(),
		[]byte(strconv.FormatInt(int64(startTickIndex), 10)),
	}
	pda, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to find program address for tick array: %w", err)
	}
	return pda, nil
}
