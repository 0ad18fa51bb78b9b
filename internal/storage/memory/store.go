package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"poolwatch/internal/model"
)

// Store is an in-memory Store implementation used in tests and dry runs.
type Store struct {
	mu        sync.RWMutex
	progress  map[string]progressRecord
	liquidity map[model.EventKey]model.LiquidityEvent
	swaps     map[model.EventKey]model.SwapEvent
	feeClaims map[model.EventKey]model.FeeClaimEvent
}

type progressRecord struct {
	height    uint64
	updatedAt time.Time
}

func NewStore() *Store {
	return &Store{
		progress:  make(map[string]progressRecord),
		liquidity: make(map[model.EventKey]model.LiquidityEvent),
		swaps:     make(map[model.EventKey]model.SwapEvent),
		feeClaims: make(map[model.EventKey]model.FeeClaimEvent),
	}
}

func (s *Store) Progress(ctx context.Context, pool string) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.progress[model.NormalizeAddress(pool)]
	if !ok {
		return 0, false, nil
	}
	return rec.height, true, nil
}

func (s *Store) AdvanceProgress(ctx context.Context, pool string, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked(pool, height)
	return nil
}

func (s *Store) advanceLocked(pool string, height uint64) {
	key := model.NormalizeAddress(pool)
	if rec, ok := s.progress[key]; ok && rec.height >= height {
		return
	}
	s.progress[key] = progressRecord{height: height, updatedAt: time.Now().UTC()}
}

func (s *Store) AllProgress(ctx context.Context) (map[string]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]uint64, len(s.progress))
	for pool, rec := range s.progress {
		out[pool] = rec.height
	}
	return out, nil
}

func (s *Store) InsertEvents(ctx context.Context, events []model.Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(events)
}

func (s *Store) insertLocked(events []model.Event) (int, error) {
	inserted := 0
	for _, event := range events {
		key := event.Key()
		switch typed := event.(type) {
		case model.LiquidityEvent:
			if _, ok := s.liquidity[key]; !ok {
				s.liquidity[key] = typed
				inserted++
			}
		case model.SwapEvent:
			if _, ok := s.swaps[key]; !ok {
				s.swaps[key] = typed
				inserted++
			}
		case model.FeeClaimEvent:
			if _, ok := s.feeClaims[key]; !ok {
				s.feeClaims[key] = typed
				inserted++
			}
		default:
			return inserted, fmt.Errorf("unsupported event type %T", event)
		}
	}
	return inserted, nil
}

// CommitChunk inserts the chunk's events and advances progress under one
// lock section, mirroring the transactional pairing of the durable store.
func (s *Store) CommitChunk(ctx context.Context, pool string, events []model.Event, toBlock uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.insertLocked(events); err != nil {
		return err
	}
	s.advanceLocked(pool, toBlock)
	return nil
}

func (s *Store) LiquidityEvents(ctx context.Context, pool string, fromTime, toTime uint64) ([]model.LiquidityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := model.NormalizeAddress(pool)
	out := make([]model.LiquidityEvent, 0)
	for _, event := range s.liquidity {
		if event.Pool == key && inWindow(event.BlockTime, fromTime, toTime) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return eventBefore(out[i].BlockNumber, out[i].LogIndex, out[j].BlockNumber, out[j].LogIndex) })
	return out, nil
}

func (s *Store) Swaps(ctx context.Context, pool string, fromTime, toTime uint64) ([]model.SwapEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := model.NormalizeAddress(pool)
	out := make([]model.SwapEvent, 0)
	for _, event := range s.swaps {
		if event.Pool == key && inWindow(event.BlockTime, fromTime, toTime) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return eventBefore(out[i].BlockNumber, out[i].LogIndex, out[j].BlockNumber, out[j].LogIndex) })
	return out, nil
}

func (s *Store) FeeClaims(ctx context.Context, pool string, fromTime, toTime uint64) ([]model.FeeClaimEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := model.NormalizeAddress(pool)
	out := make([]model.FeeClaimEvent, 0)
	for _, event := range s.feeClaims {
		if event.Pool == key && inWindow(event.BlockTime, fromTime, toTime) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return eventBefore(out[i].BlockNumber, out[i].LogIndex, out[j].BlockNumber, out[j].LogIndex) })
	return out, nil
}

// EventCount reports the total stored events across all kinds.
func (s *Store) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.liquidity) + len(s.swaps) + len(s.feeClaims)
}

func inWindow(ts, from, to uint64) bool {
	if from > 0 && ts < from {
		return false
	}
	if to > 0 && ts > to {
		return false
	}
	return true
}

func eventBefore(blockA, indexA, blockB, indexB uint64) bool {
	if blockA != blockB {
		return blockA < blockB
	}
	return indexA < indexB
}
