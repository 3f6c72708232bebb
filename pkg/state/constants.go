package state

import (
	"github.com/elysium-labs/elysium-pools/pkg/clmath"
	"github.com/gagliardetto/solana-go"
)

// ProgramID owns every derived account address.
var ProgramID = solana.MustPublicKeyFromBase58("7ur2aXAUqpVpPfdeSA2DMfQS1WDfJ49BdnrwNtfFuYE3")

const (
	NumRewards    = 3
	TickArraySize = 88

	MinTickIndex = clmath.MinTickIndex
	MaxTickIndex = clmath.MaxTickIndex

	// MaxFeeRate is 3% in hundredths of a basis point.
	MaxFeeRate uint16 = 30000
	// MaxProtocolFeeRate is 25% of the trade fee in basis points.
	MaxProtocolFeeRate uint16 = 2500
	// ProtocolFeeRateMulValue is the protocol fee rate denominator.
	ProtocolFeeRateMulValue = 10000

	DayInSeconds = 86400
)

// Account sizes including the 8 byte discriminator.
const (
	PoolSize        = 653
	PositionSize    = 216
	TickSize        = 113
	TickArrayLen    = 8 + 4 + TickArraySize*TickSize + 32
	PoolsConfigSize = 108
	FeeTierSize     = 44
)

// Pool field offsets including the discriminator, for RPC memcmp filters.
const (
	PoolTokenMintAOffset = 101
	PoolTokenMintBOffset = 181
)

// Seeds
const (
	PoolSeed      = "pool"
	PositionSeed  = "position"
	TickArraySeed = "tick_array"
	FeeTierSeed   = "fee_tier"
)
