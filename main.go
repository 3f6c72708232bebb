package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elysium-labs/elysium-pools/pkg/config"
	"github.com/elysium-labs/elysium-pools/pkg/metrics"
	"github.com/elysium-labs/elysium-pools/pkg/program"
	"github.com/elysium-labs/elysium-pools/pkg/sol"
	"github.com/elysium-labs/elysium-pools/pkg/state"
	"github.com/elysium-labs/elysium-pools/pkg/store"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "elysium",
		Short:        "Concentrated liquidity pool state engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply recorded instructions from a JSONL file",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input ops JSONL")
	replayCmd.Flags().String("out", "", "snapshot JSONL of touched accounts")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN, in-memory store when empty")
	replayCmd.Flags().String("rpc", "", "Solana RPC URL for vault balances, in-memory vaults when empty")
	replayCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	replayCmd.Flags().String("program-id", state.ProgramID.String(), "program id for address derivation")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a decoded program account",
		RunE:  runInspect,
	}

	inspectCmd.Flags().String("address", "", "account address (base58)")
	inspectCmd.Flags().String("mint-a", "", "with mint-b and rpc, list every pool of the pair instead")
	inspectCmd.Flags().String("mint-b", "", "second mint of the pair")
	inspectCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	inspectCmd.Flags().String("rpc", "", "Solana RPC URL, used when pg-dsn is empty")
	inspectCmd.Flags().String("program-id", state.ProgramID.String(), "program id owning the accounts")
	inspectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(inspectCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accounts, closeStore, err := openStore(ctx, cfg.PgDSN)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		vaults       program.VaultBalances
		memoryVaults *program.MemoryVaults
	)
	if cfg.RPCURL != "" {
		client, err := sol.NewClient(cfg.RPCURL)
		if err != nil {
			return err
		}
		defer client.Close()
		vaults = client
	} else {
		memoryVaults = program.NewMemoryVaults()
		vaults = memoryVaults
	}

	m := metrics.New("")
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, m, logger)
		defer shutdown()
	}

	clock := program.NewManualClock(0)
	p := program.New(accounts, vaults, clock,
		program.WithLogger(logger),
		program.WithMetrics(m),
		program.WithProgramID(cfg.ProgramID),
	)

	in, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	logger.Info("replay start",
		zap.String("in", cfg.In),
		zap.Bool("postgres", cfg.PgDSN != ""),
		zap.Bool("rpc_vaults", cfg.RPCURL != ""),
		zap.Stringer("program_id", cfg.ProgramID),
	)

	replayer := program.NewReplayer(p, clock, memoryVaults, logger)
	summary, err := replayer.Replay(ctx, in, os.Stdout)
	if err != nil {
		return err
	}

	logger.Info("replay complete",
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("accounts", len(p.Touched())),
	)

	if cfg.Out == "" {
		return nil
	}
	out, err := os.Create(cfg.Out)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer out.Close()
	if err := p.WriteSnapshot(ctx, out, p.Touched()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if cfg.Address == "" && cfg.MintA != "" && cfg.MintB != "" {
		return inspectPair(ctx, cfg, enc, logger)
	}
	if cfg.Address == "" {
		return fmt.Errorf("address is required")
	}
	address, err := solana.PublicKeyFromBase58(cfg.Address)
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}

	var data []byte
	switch {
	case cfg.PgDSN != "":
		pg, err := store.NewPostgres(ctx, cfg.PgDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		data, err = pg.Get(ctx, address)
		if err != nil {
			return fmt.Errorf("load %s: %w", address, err)
		}
	case cfg.RPCURL != "":
		client, err := sol.NewClient(cfg.RPCURL)
		if err != nil {
			return err
		}
		defer client.Close()
		data, err = client.AccountData(ctx, address)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("pg-dsn or rpc is required")
	}

	acc, err := state.DecodeAccount(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", address, err)
	}
	view, err := program.NewAccountView(address, acc)
	if err != nil {
		return err
	}
	logger.Debug("account decoded", zap.Stringer("address", address), zap.String("type", view.Type))
	return enc.Encode(view)
}

// inspectPair prints every pool of cfg.ProgramID trading MintA against MintB.
func inspectPair(ctx context.Context, cfg config.Config, enc *json.Encoder, logger *zap.Logger) error {
	mintA, err := solana.PublicKeyFromBase58(cfg.MintA)
	if err != nil {
		return fmt.Errorf("parse mint-a: %w", err)
	}
	mintB, err := solana.PublicKeyFromBase58(cfg.MintB)
	if err != nil {
		return fmt.Errorf("parse mint-b: %w", err)
	}
	client, err := sol.NewClient(cfg.RPCURL)
	if err != nil {
		return err
	}
	defer client.Close()

	pools, err := client.PoolAccounts(ctx, cfg.ProgramID, mintA, mintB)
	if err != nil {
		return err
	}
	logger.Info("pools found", zap.Int("count", len(pools)))

	for address, data := range pools {
		acc, err := state.DecodeAccount(data)
		if err != nil {
			logger.Warn("skip undecodable pool", zap.Stringer("address", address), zap.Error(err))
			continue
		}
		view, err := program.NewAccountView(address, acc)
		if err != nil {
			return err
		}
		if err := enc.Encode(view); err != nil {
			return err
		}
	}
	return nil
}

// openStore returns the Postgres store when dsn is set, the in-memory one
// otherwise.
func openStore(ctx context.Context, dsn string) (store.AccountStore, func(), error) {
	if dsn == "" {
		return store.NewMemory(), func() {}, nil
	}
	pg, err := store.NewPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
