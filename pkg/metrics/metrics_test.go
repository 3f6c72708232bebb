package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "LiquidityZero", Result(fmt.Errorf("increase: %w", errs.LiquidityZero)))
	assert.Equal(t, "error", Result(errors.New("boom")))
}

func TestObserveInstruction(t *testing.T) {
	m := New("")
	m.ObserveInstruction("increase_liquidity", nil, 0.001)
	m.ObserveInstruction("increase_liquidity", nil, 0.002)
	m.ObserveInstruction("increase_liquidity", errs.LiquidityTooHigh, 0.001)

	// Separate instances do not share a registry.
	other := New("other")
	other.ObserveInstruction("close_position", nil, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `elysium_program_instructions_total{instruction="increase_liquidity",result="ok"} 2`))
	assert.True(t, strings.Contains(body, `elysium_program_instructions_total{instruction="increase_liquidity",result="LiquidityTooHigh"} 1`))
	assert.False(t, strings.Contains(body, "close_position"))
}
