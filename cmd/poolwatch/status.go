package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolwatch/internal/config"
	"poolwatch/internal/storage/postgres"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show indexed progress per pool",
		RunE:  runStatus,
	}

	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("pg-dsn is required")
	}

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

	progress, err := store.AllProgress(ctx)
	if err != nil {
		return err
	}
	if len(progress) == 0 {
		fmt.Println("no pools indexed yet")
		return nil
	}

	pools := make([]string, 0, len(progress))
	for pool := range progress {
		pools = append(pools, pool)
	}
	sort.Strings(pools)

	for _, pool := range pools {
		fmt.Printf("%s  last_indexed_block=%d\n", pool, progress[pool])
	}

	logger.Debug("status served", zap.Int("pools", len(pools)))
	return nil
}
