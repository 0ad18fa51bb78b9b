package storage

import (
	"context"

	"poolwatch/internal/model"
)

// ProgressStore tracks the last indexed block per pool. Heights only move
// forward; advancing to a height at or below the current one is a no-op.
type ProgressStore interface {
	Progress(ctx context.Context, pool string) (uint64, bool, error)
	AdvanceProgress(ctx context.Context, pool string, height uint64) error
	AllProgress(ctx context.Context) (map[string]uint64, error)
}

// EventStore persists decoded events with insert-if-absent semantics keyed
// by (pool, txHash, logIndex). Returns the number of newly inserted rows.
type EventStore interface {
	InsertEvents(ctx context.Context, events []model.Event) (int, error)
}

// EventReader is the read-only surface the dashboard consumes.
type EventReader interface {
	LiquidityEvents(ctx context.Context, pool string, fromTime, toTime uint64) ([]model.LiquidityEvent, error)
	Swaps(ctx context.Context, pool string, fromTime, toTime uint64) ([]model.SwapEvent, error)
	FeeClaims(ctx context.Context, pool string, fromTime, toTime uint64) ([]model.FeeClaimEvent, error)
}

// Store is the full persistence contract the coordinator writes through.
// CommitChunk pairs the event insert with the progress advance atomically:
// a crash between the two must never be observable.
type Store interface {
	ProgressStore
	EventStore
	EventReader
	CommitChunk(ctx context.Context, pool string, events []model.Event, toBlock uint64) error
}
