package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"poolwatch/internal/model"
	"poolwatch/internal/storage/memory"
)

func TestBuildSummary(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.InsertEvents(ctx, []model.Event{
		model.LiquidityEvent{
			Pool: "0xpool", Kind: model.LiquidityAdd,
			BlockNumber: 100, BlockTime: 1_000, TxHash: "0xa", LogIndex: 0,
			Amount0: "1500000", Amount1: "2000000000000000000",
			Decimals0: 6, Decimals1: 18,
		},
		model.LiquidityEvent{
			Pool: "0xpool", Kind: model.LiquidityRemove,
			BlockNumber: 120, BlockTime: 1_200, TxHash: "0xb", LogIndex: 0,
			Amount0: "500000", Amount1: "1000000000000000000",
			Decimals0: 6, Decimals1: 18,
		},
		model.SwapEvent{
			Pool:        "0xpool",
			BlockNumber: 110, BlockTime: 1_100, TxHash: "0xc", LogIndex: 1,
			Amount0In: "1000000", Amount1In: "0",
			Amount0Out: "0", Amount1Out: "500000000000000000",
			Decimals0: 6, Decimals1: 18,
		},
		model.FeeClaimEvent{
			Pool:        "0xpool",
			BlockNumber: 130, BlockTime: 1_300, TxHash: "0xd", LogIndex: 2,
			Amount0: "2500", Amount1: "30000000000000000",
			Decimals0: 6, Decimals1: 18,
		},
	})
	require.NoError(t, err)

	summary, err := Build(ctx, store, "0xPool", 0, 0)
	require.NoError(t, err)
	require.Equal(t, "0xpool", summary.Pool)
	require.Equal(t, 1, summary.LiquidityAdds)
	require.Equal(t, 1, summary.LiquidityRemoves)
	require.Equal(t, 1, summary.Swaps)
	require.Equal(t, 1, summary.FeeClaims)
	require.Equal(t, "1", summary.Volume0.String())
	require.Equal(t, "0.5", summary.Volume1.String())
	require.Equal(t, "0.0025", summary.Fees0.String())
	require.Equal(t, "0.03", summary.Fees1.String())
	require.Equal(t, uint64(100), summary.FirstBlock)
	require.Equal(t, uint64(130), summary.LastBlock)
}

func TestBuildSummaryHonorsWindow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.InsertEvents(ctx, []model.Event{
		model.SwapEvent{
			Pool:        "0xpool",
			BlockNumber: 100, BlockTime: 1_000, TxHash: "0xa", LogIndex: 0,
			Amount0In: "1000000", Amount1In: "0", Amount0Out: "0", Amount1Out: "1",
			Decimals0: 6, Decimals1: 18,
		},
		model.SwapEvent{
			Pool:        "0xpool",
			BlockNumber: 200, BlockTime: 2_000, TxHash: "0xb", LogIndex: 0,
			Amount0In: "1000000", Amount1In: "0", Amount0Out: "0", Amount1Out: "1",
			Decimals0: 6, Decimals1: 18,
		},
	})
	require.NoError(t, err)

	summary, err := Build(ctx, store, "0xpool", 1_500, 0)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Swaps)
	require.Equal(t, uint64(200), summary.FirstBlock)
}

func TestBuildSummaryEmptyPool(t *testing.T) {
	summary, err := Build(context.Background(), memory.NewStore(), "0xpool", 0, 0)
	require.NoError(t, err)
	require.Zero(t, summary.Swaps)
	require.True(t, summary.Volume0.IsZero())
}
