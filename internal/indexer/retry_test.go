package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"poolwatch/internal/chain"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Cooldown:    time.Millisecond,
	}
}

func TestWithRetryRecoversFromTransientFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastRetry(5), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &chain.NetworkError{Op: "op", Err: errors.New("connection reset")}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestWithRetryStopsOnNonTransientFailure(t *testing.T) {
	calls := 0
	rangeErr := fmt.Errorf("fetch: %w", chain.ErrRangeTooLarge)
	err := withRetry(context.Background(), fastRetry(5), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		return rangeErr
	})
	require.ErrorIs(t, err, chain.ErrRangeTooLarge)
	require.Equal(t, 1, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastRetry(3), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		return fmt.Errorf("fetch: %w", chain.ErrRateLimited)
	})
	require.Error(t, err)
	require.ErrorIs(t, err, chain.ErrRateLimited)
	require.Equal(t, 3, calls)
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, fastRetry(5), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		cancel()
		return &chain.NetworkError{Op: "op", Err: errors.New("connection reset")}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestPacedSourcePassesRangeErrorsThrough(t *testing.T) {
	transport := newFakeTransport(1_000, 0)
	transport.maxRangeWidth = 10
	source := testSource(transport)

	_, err := source.FetchLogs(context.Background(), []common.Address{{}}, nil, 1, 100)
	require.True(t, chain.IsRangeTooLarge(err))
}
