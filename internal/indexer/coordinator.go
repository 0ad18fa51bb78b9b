package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolwatch/internal/chain"
	"poolwatch/internal/model"
	"poolwatch/internal/storage"
)

// EventDecoder turns raw logs into typed events. *dex.Decoder satisfies it.
type EventDecoder interface {
	Signatures() []common.Hash
	Decode(ctx context.Context, log types.Log, blockTime uint64) (model.Event, bool, error)
}

// Config tunes one indexing run across all tracked pools.
type Config struct {
	Pools []common.Address
	// BackfillWindow is how far behind the target a brand-new pool starts.
	BackfillWindow uint64
	// ChunkWidth is the starting block span per log fetch. Oversized-range
	// rejections shrink it per pool, per run.
	ChunkWidth uint64
	// HeadOffset keeps the scan this many blocks behind the head so shallow
	// reorgs settle before their blocks are read.
	HeadOffset uint64
	// MaxConcurrent caps how many pools scan at once. Zero means all.
	MaxConcurrent int
}

func (c Config) validate() error {
	if len(c.Pools) == 0 {
		return errors.New("no pools configured")
	}
	if c.ChunkWidth == 0 {
		return errors.New("chunk width must be greater than zero")
	}
	return nil
}

// PoolReport summarizes one pool's scan cycle.
type PoolReport struct {
	Pool            string
	FromBlock       uint64
	ToBlock         uint64
	BlocksScanned   uint64
	Chunks          int
	ChunksShrunk    int
	LiquidityEvents int
	SwapEvents      int
	FeeClaimEvents  int
	IgnoredLogs     int
	SkippedRecords  int
	CaughtUp        bool
	Err             error
}

// Coordinator drives one scan cycle per pool: resolve the resume point,
// split the remaining span into chunks, fetch-decode-commit each chunk, and
// report. Pools run concurrently and fail independently.
type Coordinator struct {
	cfg     Config
	source  LogSource
	decoder EventDecoder
	store   storage.Store
	logger  *zap.Logger
}

func New(cfg Config, source LogSource, decoder EventDecoder, store storage.Store, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:     cfg,
		source:  source,
		decoder: decoder,
		store:   store,
		logger:  logger,
	}
}

// Run executes one scan cycle for every configured pool and returns one
// report per pool, in configuration order. A pool's failure lands in its
// report, not in the returned error; only an invalid config or a canceled
// context fails the run as a whole.
func (c *Coordinator) Run(ctx context.Context) ([]PoolReport, error) {
	if err := c.cfg.validate(); err != nil {
		return nil, err
	}

	head, err := c.source.HeadHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("head height: %w", err)
	}
	target := head
	if c.cfg.HeadOffset < target {
		target = head - c.cfg.HeadOffset
	} else {
		target = 0
	}

	c.logger.Info("scan cycle starting",
		zap.Uint64("head", head),
		zap.Uint64("target", target),
		zap.Int("pools", len(c.cfg.Pools)),
	)

	reports := make([]PoolReport, len(c.cfg.Pools))
	group, groupCtx := errgroup.WithContext(ctx)
	if c.cfg.MaxConcurrent > 0 {
		group.SetLimit(c.cfg.MaxConcurrent)
	}
	for i, pool := range c.cfg.Pools {
		i, pool := i, pool
		group.Go(func() error {
			reports[i] = c.scanPool(groupCtx, pool, target)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return reports, err
	}
	return reports, ctx.Err()
}

// scanPool runs one pool's cycle up to the target block. Every committed
// chunk advances the pool's durable progress, so a failure mid-cycle loses
// at most the chunk in flight.
func (c *Coordinator) scanPool(ctx context.Context, pool common.Address, target uint64) PoolReport {
	key := model.NormalizeAddress(pool.Hex())
	report := PoolReport{Pool: key, ToBlock: target}
	logger := c.logger.With(zap.String("pool", key))

	lastIndexed, found, err := c.store.Progress(ctx, key)
	if err != nil {
		report.Err = fmt.Errorf("load progress: %w", err)
		return report
	}
	if !found {
		lastIndexed = seedHeight(target, c.cfg.BackfillWindow)
		// Persist the seed so a crash before the first commit does not
		// re-derive a deeper window from a later head.
		if err := c.store.AdvanceProgress(ctx, key, lastIndexed); err != nil {
			report.Err = fmt.Errorf("seed progress: %w", err)
			return report
		}
		logger.Info("new pool, seeding backfill window", zap.Uint64("from", lastIndexed))
	}

	if lastIndexed >= target {
		report.FromBlock = lastIndexed
		report.CaughtUp = true
		logger.Info("pool already caught up", zap.Uint64("last_indexed", lastIndexed))
		return report
	}
	report.FromBlock = lastIndexed + 1

	chunks, err := SplitRange(lastIndexed+1, target, c.cfg.ChunkWidth)
	if err != nil {
		report.Err = fmt.Errorf("split range: %w", err)
		return report
	}

	for i := 0; i < len(chunks); i++ {
		if err := ctx.Err(); err != nil {
			report.Err = err
			return report
		}
		chunk := chunks[i]

		logs, err := c.source.FetchLogs(ctx, []common.Address{pool}, c.decoder.Signatures(), chunk.From, chunk.To)
		if chain.IsRangeTooLarge(err) {
			sub, ok := chunk.Halve()
			if !ok {
				report.Err = fmt.Errorf("fetch logs [%d, %d]: %w", chunk.From, chunk.To, err)
				return report
			}
			logger.Warn("range rejected as too large, shrinking",
				zap.Uint64("from", chunk.From),
				zap.Uint64("to", chunk.To),
				zap.Uint64("new_width", sub[0].Width()),
			)
			report.ChunksShrunk++
			chunks = append(chunks[:i], append(sub, chunks[i+1:]...)...)
			i--
			continue
		}
		if err != nil {
			report.Err = fmt.Errorf("fetch logs [%d, %d]: %w", chunk.From, chunk.To, err)
			return report
		}

		events, err := c.decodeLogs(ctx, logs, logger, &report)
		if err != nil {
			report.Err = err
			return report
		}

		if err := c.store.CommitChunk(ctx, key, events, chunk.To); err != nil {
			report.Err = fmt.Errorf("commit chunk [%d, %d]: %w", chunk.From, chunk.To, err)
			return report
		}

		report.Chunks++
		report.BlocksScanned += chunk.Width()
		logger.Debug("chunk committed",
			zap.Uint64("from", chunk.From),
			zap.Uint64("to", chunk.To),
			zap.Int("logs", len(logs)),
			zap.Int("events", len(events)),
		)
	}

	report.CaughtUp = true
	logger.Info("pool caught up",
		zap.Uint64("to", target),
		zap.Uint64("blocks", report.BlocksScanned),
		zap.Int("chunks", report.Chunks),
		zap.Int("liquidity_events", report.LiquidityEvents),
		zap.Int("swaps", report.SwapEvents),
		zap.Int("fee_claims", report.FeeClaimEvents),
		zap.Int("skipped", report.SkippedRecords),
	)
	return report
}

// decodeLogs converts a chunk's logs into events. Malformed records are
// logged and skipped; metadata or timestamp lookup failures abort the chunk
// so it can be rescanned whole.
func (c *Coordinator) decodeLogs(ctx context.Context, logs []types.Log, logger *zap.Logger, report *PoolReport) ([]model.Event, error) {
	events := make([]model.Event, 0, len(logs))
	for _, log := range logs {
		blockTime, err := c.source.BlockTime(ctx, log.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("block time %d: %w", log.BlockNumber, err)
		}

		event, recognized, err := c.decoder.Decode(ctx, log, blockTime)
		if !recognized {
			report.IgnoredLogs++
			continue
		}
		if err != nil {
			var decodeErr *model.DecodeError
			if errors.As(err, &decodeErr) {
				logger.Warn("malformed event record skipped", zap.Error(decodeErr))
				report.SkippedRecords++
				continue
			}
			return nil, fmt.Errorf("decode log %s/%d: %w", log.TxHash.Hex(), log.Index, err)
		}

		switch event.(type) {
		case model.LiquidityEvent:
			report.LiquidityEvents++
		case model.SwapEvent:
			report.SwapEvents++
		case model.FeeClaimEvent:
			report.FeeClaimEvents++
		}
		events = append(events, event)
	}
	return events, nil
}

// AllCaughtUp reports whether every pool in the run reached its target.
func AllCaughtUp(reports []PoolReport) bool {
	for _, report := range reports {
		if !report.CaughtUp {
			return false
		}
	}
	return true
}

func seedHeight(target, backfill uint64) uint64 {
	if backfill >= target {
		return 0
	}
	return target - backfill
}
