package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"poolwatch/internal/model"
)

func liquidityEvent(pool, tx string, logIndex, block uint64) model.LiquidityEvent {
	return model.LiquidityEvent{
		Pool:        model.NormalizeAddress(pool),
		Kind:        model.LiquidityAdd,
		BlockNumber: block,
		BlockTime:   block * 2,
		TxHash:      tx,
		LogIndex:    logIndex,
		Amount0:     "1500000",
		Amount1:     "3000000000000000000",
		Decimals0:   6,
		Decimals1:   18,
		Provider:    "0xprovider",
	}
}

func TestInsertEventsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	batch := []model.Event{
		liquidityEvent("0xPool", "0xtx1", 0, 100),
		liquidityEvent("0xPool", "0xtx1", 1, 100),
		model.SwapEvent{Pool: "0xpool", TxHash: "0xtx2", LogIndex: 0, BlockNumber: 101},
	}

	inserted, err := store.InsertEvents(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 3, inserted)

	// Re-inserting an overlapping batch must not change the stored count.
	inserted, err = store.InsertEvents(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 0, inserted)
	require.Equal(t, 3, store.EventCount())
}

func TestAdvanceProgressMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, found, err := store.Progress(ctx, "0xPool")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.AdvanceProgress(ctx, "0xPool", 500))
	require.NoError(t, store.AdvanceProgress(ctx, "0xPool", 400))
	require.NoError(t, store.AdvanceProgress(ctx, "0xPool", 500))

	height, found, err := store.Progress(ctx, "0xpool")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(500), height)

	require.NoError(t, store.AdvanceProgress(ctx, "0xPOOL", 600))
	height, _, _ = store.Progress(ctx, "0xpool")
	require.Equal(t, uint64(600), height)
}

func TestCommitChunkPairsInsertAndAdvance(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	events := []model.Event{liquidityEvent("0xpool", "0xtx1", 0, 105)}
	require.NoError(t, store.CommitChunk(ctx, "0xpool", events, 110))

	height, found, err := store.Progress(ctx, "0xpool")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(110), height)
	require.Equal(t, 1, store.EventCount())

	// Re-committing the same chunk, as a crash-resumed run would, changes nothing.
	require.NoError(t, store.CommitChunk(ctx, "0xpool", events, 110))
	require.Equal(t, 1, store.EventCount())
}

func TestReadersFilterByPoolAndWindow(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.InsertEvents(ctx, []model.Event{
		liquidityEvent("0xpool", "0xtx1", 0, 100), // time 200
		liquidityEvent("0xpool", "0xtx2", 0, 200), // time 400
		liquidityEvent("0xother", "0xtx3", 0, 100),
		model.SwapEvent{Pool: "0xpool", TxHash: "0xtx4", LogIndex: 1, BlockNumber: 150, BlockTime: 300},
		model.FeeClaimEvent{Pool: "0xpool", TxHash: "0xtx5", LogIndex: 2, BlockNumber: 160, BlockTime: 320},
	})
	require.NoError(t, err)

	liq, err := store.LiquidityEvents(ctx, "0xPool", 0, 250)
	require.NoError(t, err)
	require.Len(t, liq, 1)
	require.Equal(t, "0xtx1", liq[0].TxHash)

	swaps, err := store.Swaps(ctx, "0xpool", 0, 0)
	require.NoError(t, err)
	require.Len(t, swaps, 1)

	claims, err := store.FeeClaims(ctx, "0xpool", 310, 330)
	require.NoError(t, err)
	require.Len(t, claims, 1)
}

func TestReadersReturnBlockOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.InsertEvents(ctx, []model.Event{
		liquidityEvent("0xpool", "0xtx3", 2, 300),
		liquidityEvent("0xpool", "0xtx1", 0, 100),
		liquidityEvent("0xpool", "0xtx2", 5, 100),
	})
	require.NoError(t, err)

	liq, err := store.LiquidityEvents(ctx, "0xpool", 0, 0)
	require.NoError(t, err)
	require.Len(t, liq, 3)
	require.Equal(t, "0xtx1", liq[0].TxHash)
	require.Equal(t, "0xtx2", liq[1].TxHash)
	require.Equal(t, "0xtx3", liq[2].TxHash)
}
