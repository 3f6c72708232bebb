package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, state.ProgramID, cfg.ProgramID)
	assert.Empty(t, cfg.PgDSN)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "elysium.yaml")
	require.NoError(t, os.WriteFile(file, []byte("log-level: warn\nrpc: http://file\nin: ops.jsonl\n"), 0o644))

	t.Setenv("ELYSIUM_PG_DSN", "postgres://env")
	t.Setenv("ELYSIUM_RPC", "http://env")
	t.Setenv("ELYSIUM_MINT_A", "So11111111111111111111111111111111111111112")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.String("metrics-addr", "", "")
	require.NoError(t, flags.Parse([]string{"--log-level=debug", "--metrics-addr=:9090"}))

	cfg, err := Load(file, flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://env", cfg.PgDSN)
	assert.Equal(t, "http://env", cfg.RPCURL)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "ops.jsonl", cfg.In)
	assert.Equal(t, "So11111111111111111111111111111111111111112", cfg.MintA)
	assert.Empty(t, cfg.MintB)
}

func TestLoadRejectsBadProgramID(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ELYSIUM_PROGRAM_ID", "not-base58!")
	_, err := Load("", nil)
	assert.Error(t, err)
}
