package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Transport is the raw chain capability the source adapter wraps.
type Transport interface {
	HeadHeight(ctx context.Context) (uint64, error)
	FetchLogs(ctx context.Context, addresses []common.Address, topic0 []common.Hash, fromBlock, toBlock uint64) ([]types.Log, error)
	BlockTime(ctx context.Context, number uint64) (uint64, error)
}

// LogSource is the retried, paced view of the chain the coordinator scans
// from. Retries are transparent; only final exhaustion surfaces, carrying
// the last underlying cause.
type LogSource interface {
	HeadHeight(ctx context.Context) (uint64, error)
	FetchLogs(ctx context.Context, addresses []common.Address, topic0 []common.Hash, fromBlock, toBlock uint64) ([]types.Log, error)
	BlockTime(ctx context.Context, number uint64) (uint64, error)
}

// SourceConfig tunes the retry policy and the shared request pacing.
type SourceConfig struct {
	Retry RetryConfig
	// RequestsPerSecond paces all calls through one shared gate, so
	// concurrent pool pipelines do not multiply rate-limit pressure.
	// Zero disables pacing.
	RequestsPerSecond float64
}

// PacedSource implements LogSource over a Transport with retry, backoff,
// and a process-wide rate gate. It never truncates a requested range:
// oversized ranges surface to the caller, which shrinks and retries.
type PacedSource struct {
	transport Transport
	cfg       SourceConfig
	limiter   *rate.Limiter
	logger    *zap.Logger
}

func NewPacedSource(transport Transport, cfg SourceConfig, logger *zap.Logger) *PacedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &PacedSource{
		transport: transport,
		cfg:       cfg,
		limiter:   limiter,
		logger:    logger,
	}
}

func (s *PacedSource) HeadHeight(ctx context.Context) (uint64, error) {
	var head uint64
	err := withRetry(ctx, s.cfg.Retry, s.logger, "head height", func(ctx context.Context) error {
		if err := s.pace(ctx); err != nil {
			return err
		}
		var err error
		head, err = s.transport.HeadHeight(ctx)
		return err
	})
	return head, err
}

func (s *PacedSource) FetchLogs(ctx context.Context, addresses []common.Address, topic0 []common.Hash, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, s.cfg.Retry, s.logger, "fetch logs", func(ctx context.Context) error {
		if err := s.pace(ctx); err != nil {
			return err
		}
		var err error
		logs, err = s.transport.FetchLogs(ctx, addresses, topic0, fromBlock, toBlock)
		return err
	})
	return logs, err
}

func (s *PacedSource) BlockTime(ctx context.Context, number uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, s.cfg.Retry, s.logger, "block time", func(ctx context.Context) error {
		if err := s.pace(ctx); err != nil {
			return err
		}
		var err error
		ts, err = s.transport.BlockTime(ctx, number)
		return err
	})
	return ts, err
}

func (s *PacedSource) pace(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}
