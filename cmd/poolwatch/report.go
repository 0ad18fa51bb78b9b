package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"poolwatch/internal/config"
	"poolwatch/internal/report"
	"poolwatch/internal/storage/postgres"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize stored events for one pool over a time window",
		RunE:  runReport,
	}

	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("pool", "", "pool contract address")
	cmd.Flags().Uint64("from-time", 0, "window start (unix seconds, 0 unbounded)")
	cmd.Flags().Uint64("to-time", 0, "window end (unix seconds, 0 unbounded)")
	cmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("pg-dsn is required")
	}
	pool, _ := cmd.Flags().GetString("pool")
	if pool == "" {
		return fmt.Errorf("pool is required")
	}
	fromTime, _ := cmd.Flags().GetUint64("from-time")
	toTime, _ := cmd.Flags().GetUint64("to-time")

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	summary, err := report.Build(ctx, store, pool, fromTime, toTime)
	if err != nil {
		return err
	}

	fmt.Printf("pool %s\n", summary.Pool)
	if summary.FirstBlock > 0 {
		fmt.Printf("  blocks:            %d - %d\n", summary.FirstBlock, summary.LastBlock)
	}
	fmt.Printf("  liquidity adds:    %d\n", summary.LiquidityAdds)
	fmt.Printf("  liquidity removes: %d\n", summary.LiquidityRemoves)
	fmt.Printf("  swaps:             %d\n", summary.Swaps)
	fmt.Printf("  fee claims:        %d\n", summary.FeeClaims)
	fmt.Printf("  token0 volume:     %s\n", summary.Volume0)
	fmt.Printf("  token1 volume:     %s\n", summary.Volume1)
	fmt.Printf("  token0 fees:       %s\n", summary.Fees0)
	fmt.Printf("  token1 fees:       %s\n", summary.Fees1)

	return nil
}
