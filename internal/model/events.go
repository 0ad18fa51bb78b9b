package model

import "fmt"

// LiquidityKind distinguishes liquidity additions from removals.
type LiquidityKind string

const (
	LiquidityAdd    LiquidityKind = "ADD"
	LiquidityRemove LiquidityKind = "REMOVE"
)

// EventKey is the identity of a stored event. Inserts keyed by it are
// idempotent, so re-scanning a block range never duplicates rows.
type EventKey struct {
	Pool     string
	TxHash   string
	LogIndex uint64
}

func (k EventKey) String() string {
	return fmt.Sprintf("%s:%s:%d", k.Pool, k.TxHash, k.LogIndex)
}

// Event is a decoded pool event ready for storage.
type Event interface {
	Key() EventKey
	Block() uint64
}

// LiquidityEvent is a decoded Mint or Burn.
// Amounts are raw integer units; rescale with the stored decimals.
type LiquidityEvent struct {
	Pool        string        `json:"pool"`
	Kind        LiquidityKind `json:"kind"`
	BlockNumber uint64        `json:"block_number"`
	BlockTime   uint64        `json:"block_time"`
	TxHash      string        `json:"tx_hash"`
	LogIndex    uint64        `json:"log_index"`
	Amount0     string        `json:"amount0"`
	Amount1     string        `json:"amount1"`
	Decimals0   uint8         `json:"decimals0"`
	Decimals1   uint8         `json:"decimals1"`
	Provider    string        `json:"provider"`
}

func (e LiquidityEvent) Key() EventKey {
	return EventKey{Pool: e.Pool, TxHash: e.TxHash, LogIndex: e.LogIndex}
}

func (e LiquidityEvent) Block() uint64 { return e.BlockNumber }

// SwapEvent is a decoded Swap.
type SwapEvent struct {
	Pool        string `json:"pool"`
	BlockNumber uint64 `json:"block_number"`
	BlockTime   uint64 `json:"block_time"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Amount0In   string `json:"amount0_in"`
	Amount1In   string `json:"amount1_in"`
	Amount0Out  string `json:"amount0_out"`
	Amount1Out  string `json:"amount1_out"`
	Decimals0   uint8  `json:"decimals0"`
	Decimals1   uint8  `json:"decimals1"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
}

func (e SwapEvent) Key() EventKey {
	return EventKey{Pool: e.Pool, TxHash: e.TxHash, LogIndex: e.LogIndex}
}

func (e SwapEvent) Block() uint64 { return e.BlockNumber }

// FeeClaimEvent is a decoded Claim of accumulated fees.
type FeeClaimEvent struct {
	Pool        string `json:"pool"`
	BlockNumber uint64 `json:"block_number"`
	BlockTime   uint64 `json:"block_time"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Amount0     string `json:"amount0"`
	Amount1     string `json:"amount1"`
	Decimals0   uint8  `json:"decimals0"`
	Decimals1   uint8  `json:"decimals1"`
	Sender      string `json:"sender"`
	Recipient   string `json:"recipient"`
}

func (e FeeClaimEvent) Key() EventKey {
	return EventKey{Pool: e.Pool, TxHash: e.TxHash, LogIndex: e.LogIndex}
}

func (e FeeClaimEvent) Block() uint64 { return e.BlockNumber }
