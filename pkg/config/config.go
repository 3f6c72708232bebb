// Package config loads CLI settings from flags, environment and config file.
package config

import (
	"fmt"
	"strings"

	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ELYSIUM"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	LogLevel    string
	PgDSN       string
	RPCURL      string
	MetricsAddr string
	In          string
	Out         string
	Address     string
	MintA       string
	MintB       string
	ProgramID   solana.PublicKey
}

// Load merges config file, environment variables, and flags into Config.
// Environment keys use the ELYSIUM_ prefix with dashes as underscores.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("out", "")
	v.SetDefault("program-id", state.ProgramID.String())

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	programID, err := solana.PublicKeyFromBase58(v.GetString("program-id"))
	if err != nil {
		return Config{}, fmt.Errorf("program-id: %w", err)
	}

	return Config{
		LogLevel:    v.GetString("log-level"),
		PgDSN:       v.GetString("pg-dsn"),
		RPCURL:      v.GetString("rpc"),
		MetricsAddr: v.GetString("metrics-addr"),
		In:          v.GetString("in"),
		Out:         v.GetString("out"),
		Address:     v.GetString("address"),
		MintA:       v.GetString("mint-a"),
		MintB:       v.GetString("mint-b"),
		ProgramID:   programID,
	}, nil
}
