package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"poolwatch/internal/model"
	"poolwatch/internal/storage"
)

// Summary aggregates a pool's stored events over a block-time window.
type Summary struct {
	Pool             string
	FromTime         uint64
	ToTime           uint64
	LiquidityAdds    int
	LiquidityRemoves int
	Swaps            int
	FeeClaims        int
	// Volumes sum both legs of every swap, rescaled by token decimals.
	Volume0 decimal.Decimal
	Volume1 decimal.Decimal
	// Fees sum claimed amounts, rescaled by token decimals.
	Fees0      decimal.Decimal
	Fees1      decimal.Decimal
	FirstBlock uint64
	LastBlock  uint64
}

// Build reads a pool's events in [fromTime, toTime] and folds them into a
// Summary. A zero bound leaves that side of the window open.
func Build(ctx context.Context, reader storage.EventReader, pool string, fromTime, toTime uint64) (Summary, error) {
	summary := Summary{
		Pool:     model.NormalizeAddress(pool),
		FromTime: fromTime,
		ToTime:   toTime,
	}

	liquidity, err := reader.LiquidityEvents(ctx, pool, fromTime, toTime)
	if err != nil {
		return Summary{}, fmt.Errorf("read liquidity events: %w", err)
	}
	for _, event := range liquidity {
		if event.Kind == model.LiquidityAdd {
			summary.LiquidityAdds++
		} else {
			summary.LiquidityRemoves++
		}
		summary.observeBlock(event.BlockNumber)
	}

	swaps, err := reader.Swaps(ctx, pool, fromTime, toTime)
	if err != nil {
		return Summary{}, fmt.Errorf("read swaps: %w", err)
	}
	for _, swap := range swaps {
		if err := summary.applySwap(swap); err != nil {
			return Summary{}, err
		}
		summary.observeBlock(swap.BlockNumber)
	}

	claims, err := reader.FeeClaims(ctx, pool, fromTime, toTime)
	if err != nil {
		return Summary{}, fmt.Errorf("read fee claims: %w", err)
	}
	for _, claim := range claims {
		if err := summary.applyClaim(claim); err != nil {
			return Summary{}, err
		}
		summary.observeBlock(claim.BlockNumber)
	}

	return summary, nil
}

func (s *Summary) applySwap(swap model.SwapEvent) error {
	for _, leg := range []struct {
		raw      string
		decimals uint8
		total    *decimal.Decimal
	}{
		{swap.Amount0In, swap.Decimals0, &s.Volume0},
		{swap.Amount0Out, swap.Decimals0, &s.Volume0},
		{swap.Amount1In, swap.Decimals1, &s.Volume1},
		{swap.Amount1Out, swap.Decimals1, &s.Volume1},
	} {
		scaled, err := model.ScaleAmount(leg.raw, leg.decimals)
		if err != nil {
			return fmt.Errorf("scale swap amount %s/%d: %w", swap.TxHash, swap.LogIndex, err)
		}
		*leg.total = leg.total.Add(scaled)
	}
	s.Swaps++
	return nil
}

func (s *Summary) applyClaim(claim model.FeeClaimEvent) error {
	fee0, err := model.ScaleAmount(claim.Amount0, claim.Decimals0)
	if err != nil {
		return fmt.Errorf("scale claim amount %s/%d: %w", claim.TxHash, claim.LogIndex, err)
	}
	fee1, err := model.ScaleAmount(claim.Amount1, claim.Decimals1)
	if err != nil {
		return fmt.Errorf("scale claim amount %s/%d: %w", claim.TxHash, claim.LogIndex, err)
	}
	s.Fees0 = s.Fees0.Add(fee0)
	s.Fees1 = s.Fees1.Add(fee1)
	s.FeeClaims++
	return nil
}

func (s *Summary) observeBlock(block uint64) {
	if s.FirstBlock == 0 || block < s.FirstBlock {
		s.FirstBlock = block
	}
	if block > s.LastBlock {
		s.LastBlock = block
	}
}
