package errs

import (
	"errors"
	"fmt"
)

// ErrorCode is a numbered program error. Codes are stable and start at 6000 so
// they line up with the on-chain custom error range.
type ErrorCode uint32

const (
	InvalidEnum ErrorCode = iota + 6000
	InvalidStartTick
	TickArrayExistInPool
	TickArrayIndexOutOfBounds
	InvalidTickSpacing
	ClosePositionNotEmpty
	DivideByZero
	NumberCastError
	NumberDownCastError
	TickNotFound
	InvalidTickIndex
	SqrtPriceOutOfBounds
	LiquidityZero
	LiquidityTooHigh
	LiquidityOverflow
	LiquidityUnderflow
	LiquidityNetError
	TokenMaxExceeded
	TokenMinSubceeded
	MissingOrInvalidDelegate
	InvalidPositionTokenAmount
	InvalidTimestampConversion
	InvalidTimestamp
	InvalidTickArraySequence
	InvalidTokenMintOrder
	RewardNotInitialized
	InvalidRewardIndex
	RewardVaultAmountInsufficient
	FeeRateMaxExceeded
	ProtocolFeeRateMaxExceeded
	MultiplicationShiftRightOverflow
	MulDivOverflow
	MulDivInvalidInput
	MultiplicationOverflow
	InvalidSqrtPriceLimitDirection
	ZeroTradableAmount
	AmountOutBelowMinimum
	AmountInAboveMaximum
	TickArraySequenceInvalidIndex
	AmountCalcOverflow
	AmountRemainingOverflow
	InvalidIntermediaryMint
	DuplicateTwoHopPool
	TickNotAlignedWithSpacing
	ArithmeticOverflow
	ArithmeticUnderflow
	AlreadyInitialized
	AccountNotFound
	AccountMismatch
	Unauthorized
	InvalidAuthority
)

var messages = map[ErrorCode]string{
	InvalidEnum:                      "enum value could not be converted",
	InvalidStartTick:                 "invalid start tick index provided",
	TickArrayExistInPool:             "tick-array already exists in this pool",
	TickArrayIndexOutOfBounds:        "attempt to search for a tick-array failed",
	InvalidTickSpacing:               "tick-spacing is not supported",
	ClosePositionNotEmpty:            "position is not empty, it cannot be closed",
	DivideByZero:                     "unable to divide by zero",
	NumberCastError:                  "unable to cast number into big int",
	NumberDownCastError:              "unable to down cast number",
	TickNotFound:                     "tick not found within tick array",
	InvalidTickIndex:                 "provided tick index is either out of bounds or uninitializable",
	SqrtPriceOutOfBounds:             "provided sqrt price out of bounds",
	LiquidityZero:                    "liquidity amount must be greater than zero",
	LiquidityTooHigh:                 "liquidity amount must be less than i128::MAX",
	LiquidityOverflow:                "liquidity overflow",
	LiquidityUnderflow:               "liquidity underflow",
	LiquidityNetError:                "tick liquidity net underflowed or overflowed",
	TokenMaxExceeded:                 "exceeded token max",
	TokenMinSubceeded:                "did not meet token min",
	MissingOrInvalidDelegate:         "position token account has a missing or invalid delegate",
	InvalidPositionTokenAmount:       "position token amount must be 1",
	InvalidTimestampConversion:       "timestamp should be convertible from i64 to u64",
	InvalidTimestamp:                 "timestamp should be greater than the last updated timestamp",
	InvalidTickArraySequence:         "invalid tick array sequence provided for instruction",
	InvalidTokenMintOrder:            "token mint in wrong order",
	RewardNotInitialized:             "reward not initialized",
	InvalidRewardIndex:               "invalid reward index",
	RewardVaultAmountInsufficient:    "reward vault requires amount to support emissions for at least one day",
	FeeRateMaxExceeded:               "exceeded max fee rate",
	ProtocolFeeRateMaxExceeded:       "exceeded max protocol fee rate",
	MultiplicationShiftRightOverflow: "multiplication with shift right overflow",
	MulDivOverflow:                   "muldiv overflow",
	MulDivInvalidInput:               "invalid div_u256 input",
	MultiplicationOverflow:           "multiplication overflow",
	InvalidSqrtPriceLimitDirection:   "provided sqrt price limit does not match the swap direction",
	ZeroTradableAmount:               "there are no tradable amount to swap",
	AmountOutBelowMinimum:            "amount out below minimum threshold",
	AmountInAboveMaximum:             "amount in above maximum threshold",
	TickArraySequenceInvalidIndex:    "invalid index for tick array sequence",
	AmountCalcOverflow:               "amount calculated overflows",
	AmountRemainingOverflow:          "amount remaining overflows",
	InvalidIntermediaryMint:          "invalid intermediary mint",
	DuplicateTwoHopPool:              "duplicate two hop pool",
	TickNotAlignedWithSpacing:        "tick index is not a multiple of the tick spacing",
	ArithmeticOverflow:               "arithmetic overflow",
	ArithmeticUnderflow:              "arithmetic underflow",
	AlreadyInitialized:               "account already initialized",
	AccountNotFound:                  "account not found",
	AccountMismatch:                  "account does not belong to the expected parent",
	Unauthorized:                     "signer is not the required authority",
	InvalidAuthority:                 "authority must not be the zero address",
}

var names = map[ErrorCode]string{
	InvalidEnum:                      "InvalidEnum",
	InvalidStartTick:                 "InvalidStartTick",
	TickArrayExistInPool:             "TickArrayExistInPool",
	TickArrayIndexOutOfBounds:        "TickArrayIndexOutOfBounds",
	InvalidTickSpacing:               "InvalidTickSpacing",
	ClosePositionNotEmpty:            "ClosePositionNotEmpty",
	DivideByZero:                     "DivideByZero",
	NumberCastError:                  "NumberCastError",
	NumberDownCastError:              "NumberDownCastError",
	TickNotFound:                     "TickNotFound",
	InvalidTickIndex:                 "InvalidTickIndex",
	SqrtPriceOutOfBounds:             "SqrtPriceOutOfBounds",
	LiquidityZero:                    "LiquidityZero",
	LiquidityTooHigh:                 "LiquidityTooHigh",
	LiquidityOverflow:                "LiquidityOverflow",
	LiquidityUnderflow:               "LiquidityUnderflow",
	LiquidityNetError:                "LiquidityNetError",
	TokenMaxExceeded:                 "TokenMaxExceeded",
	TokenMinSubceeded:                "TokenMinSubceeded",
	MissingOrInvalidDelegate:         "MissingOrInvalidDelegate",
	InvalidPositionTokenAmount:       "InvalidPositionTokenAmount",
	InvalidTimestampConversion:       "InvalidTimestampConversion",
	InvalidTimestamp:                 "InvalidTimestamp",
	InvalidTickArraySequence:         "InvalidTickArraySequence",
	InvalidTokenMintOrder:            "InvalidTokenMintOrder",
	RewardNotInitialized:             "RewardNotInitialized",
	InvalidRewardIndex:               "InvalidRewardIndex",
	RewardVaultAmountInsufficient:    "RewardVaultAmountInsufficient",
	FeeRateMaxExceeded:               "FeeRateMaxExceeded",
	ProtocolFeeRateMaxExceeded:       "ProtocolFeeRateMaxExceeded",
	MultiplicationShiftRightOverflow: "MultiplicationShiftRightOverflow",
	MulDivOverflow:                   "MulDivOverflow",
	MulDivInvalidInput:               "MulDivInvalidInput",
	MultiplicationOverflow:           "MultiplicationOverflow",
	InvalidSqrtPriceLimitDirection:   "InvalidSqrtPriceLimitDirection",
	ZeroTradableAmount:               "ZeroTradableAmount",
	AmountOutBelowMinimum:            "AmountOutBelowMinimum",
	AmountInAboveMaximum:             "AmountInAboveMaximum",
	TickArraySequenceInvalidIndex:    "TickArraySequenceInvalidIndex",
	AmountCalcOverflow:               "AmountCalcOverflow",
	AmountRemainingOverflow:          "AmountRemainingOverflow",
	InvalidIntermediaryMint:          "InvalidIntermediaryMint",
	DuplicateTwoHopPool:              "DuplicateTwoHopPool",
	TickNotAlignedWithSpacing:        "TickNotAlignedWithSpacing",
	ArithmeticOverflow:               "ArithmeticOverflow",
	ArithmeticUnderflow:              "ArithmeticUnderflow",
	AlreadyInitialized:               "AlreadyInitialized",
	AccountNotFound:                  "AccountNotFound",
	AccountMismatch:                  "AccountMismatch",
	Unauthorized:                     "Unauthorized",
	InvalidAuthority:                 "InvalidAuthority",
}

// Error implements error.
func (c ErrorCode) Error() string {
	msg, ok := messages[c]
	if !ok {
		return fmt.Sprintf("unknown error code %d", uint32(c))
	}
	return fmt.Sprintf("%s (%d): %s", c.Name(), uint32(c), msg)
}

// Name returns the symbolic name of the code, e.g. "LiquidityUnderflow".
func (c ErrorCode) Name() string {
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("Code%d", uint32(c))
}

// Code unwraps err down to its ErrorCode, if any.
func Code(err error) (ErrorCode, bool) {
	var c ErrorCode
	if errors.As(err, &c) {
		return c, true
	}
	return 0, false
}
