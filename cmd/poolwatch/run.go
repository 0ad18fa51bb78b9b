package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolwatch/internal/chain"
	"poolwatch/internal/config"
	"poolwatch/internal/dex"
	"poolwatch/internal/indexer"
	"poolwatch/internal/storage"
	"poolwatch/internal/storage/memory"
	"poolwatch/internal/storage/postgres"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan tracked pools and store their events",
		RunE:  runScan,
	}

	cmd.Flags().String("rpc", "", "EVM RPC URL")
	cmd.Flags().StringSlice("pool", nil, "pool contract addresses (comma-separated)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN; empty runs against an in-memory store")
	cmd.Flags().Uint64("backfill-window", 200_000, "blocks behind the target a new pool starts from")
	cmd.Flags().Uint64("chunk-width", 5_000, "blocks per log fetch")
	cmd.Flags().Uint64("head-offset", 0, "blocks to stay behind the chain head")
	cmd.Flags().Int("max-concurrent", 4, "pools scanned concurrently")
	cmd.Flags().Int("max-retries", 5, "retry attempts per remote call")
	cmd.Flags().Duration("retry-backoff", time.Second, "initial retry backoff")
	cmd.Flags().Duration("max-backoff", 30*time.Second, "backoff ceiling")
	cmd.Flags().Duration("rate-limit-cooldown", 30*time.Second, "wait after a rate-limit response")
	cmd.Flags().Duration("call-timeout", 30*time.Second, "per-request timeout")
	cmd.Flags().Float64("rps", 0, "request pacing across all pools, 0 disables")
	cmd.Flags().Duration("interval", 0, "poll interval; 0 runs a single cycle")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pools, err := indexer.ParseAddresses(cfg.Pools)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return fmt.Errorf("pool list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	store, closeStore, err := openStore(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	decoder, err := dex.NewDecoder(dex.NewMetaResolver(client, logger))
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	source := indexer.NewPacedSource(client, indexer.SourceConfig{
		Retry: indexer.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBackoff,
			MaxDelay:    cfg.MaxBackoff,
			Cooldown:    cfg.RateLimitCooldown,
			CallTimeout: cfg.CallTimeout,
		},
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, logger)

	coord := indexer.New(indexer.Config{
		Pools:          pools,
		BackfillWindow: cfg.BackfillWindow,
		ChunkWidth:     cfg.ChunkWidth,
		HeadOffset:     cfg.HeadOffset,
		MaxConcurrent:  cfg.MaxConcurrent,
	}, source, decoder, store, logger)

	logger.Info("poolwatch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pg_dsn", redactDSN(cfg.PostgresDSN)),
		zap.Int("pools", len(pools)),
		zap.Uint64("backfill_window", cfg.BackfillWindow),
		zap.Uint64("chunk_width", cfg.ChunkWidth),
		zap.Uint64("head_offset", cfg.HeadOffset),
		zap.Duration("interval", cfg.Interval),
	)

	for {
		reports, err := coord.Run(ctx)
		if err != nil {
			return err
		}
		logReports(logger, reports)

		if cfg.Interval <= 0 {
			if !indexer.AllCaughtUp(reports) {
				return fmt.Errorf("one or more pools did not reach the target block")
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.Interval):
		}
	}
}

func openStore(ctx context.Context, dsn string, logger *zap.Logger) (storage.Store, func(), error) {
	if dsn == "" {
		logger.Warn("no pg-dsn configured, events will not survive the process")
		return memory.NewStore(), func() {}, nil
	}

	pg, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return pg, pg.Close, nil
}

func logReports(logger *zap.Logger, reports []indexer.PoolReport) {
	for _, report := range reports {
		if report.Err != nil {
			logger.Error("pool scan failed",
				zap.String("pool", report.Pool),
				zap.Uint64("from", report.FromBlock),
				zap.Uint64("to", report.ToBlock),
				zap.Int("chunks", report.Chunks),
				zap.Error(report.Err),
			)
			continue
		}
		logger.Info("pool scan complete",
			zap.String("pool", report.Pool),
			zap.Uint64("from", report.FromBlock),
			zap.Uint64("to", report.ToBlock),
			zap.Uint64("blocks", report.BlocksScanned),
			zap.Int("chunks", report.Chunks),
			zap.Int("chunks_shrunk", report.ChunksShrunk),
			zap.Int("liquidity_events", report.LiquidityEvents),
			zap.Int("swaps", report.SwapEvents),
			zap.Int("fee_claims", report.FeeClaimEvents),
			zap.Int("ignored_logs", report.IgnoredLogs),
			zap.Int("skipped_records", report.SkippedRecords),
		)
	}
}

// redactDSN strips credentials before the DSN reaches a log line.
func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.User == nil {
		return dsn
	}
	parsed.User = url.User(parsed.User.Username())
	return parsed.Redacted()
}
