package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeNumbering(t *testing.T) {
	assert.Equal(t, uint32(6000), uint32(InvalidEnum))
	assert.Equal(t, uint32(6001), uint32(InvalidStartTick))
	assert.Equal(t, uint32(6015), uint32(LiquidityUnderflow))
	assert.Equal(t, uint32(6022), uint32(InvalidTimestamp))
	assert.Equal(t, uint32(6027), uint32(RewardVaultAmountInsufficient))
}

func TestErrorCodeMessages(t *testing.T) {
	for code := InvalidEnum; code <= InvalidAuthority; code++ {
		_, ok := messages[code]
		assert.True(t, ok, "missing message for %d", uint32(code))
		_, ok = names[code]
		assert.True(t, ok, "missing name for %d", uint32(code))
	}
	assert.Equal(t, "LiquidityZero (6012): liquidity amount must be greater than zero", LiquidityZero.Error())
	assert.Equal(t, "Code1", ErrorCode(1).Name())
}

func TestCodeUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("decrease liquidity: %w", fmt.Errorf("position: %w", LiquidityUnderflow))
	require.True(t, errors.Is(wrapped, LiquidityUnderflow))

	code, ok := Code(wrapped)
	require.True(t, ok)
	assert.Equal(t, LiquidityUnderflow, code)

	_, ok = Code(errors.New("plain"))
	assert.False(t, ok)
}
