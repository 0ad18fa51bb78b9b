package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"poolwatch/internal/model"
)

func newTestDecoder(t *testing.T, pool common.Address) *Decoder {
	t.Helper()

	meta := NewMetaResolver(nil, zap.NewNop())
	meta.Seed(pool, model.Pool{
		Address:   model.NormalizeAddress(pool.Hex()),
		Token0:    "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa",
		Token1:    "0xBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBb",
		Decimals0: 6,
		Decimals1: 18,
	})

	decoder, err := NewDecoder(meta)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	return decoder
}

func buildLog(pool common.Address, topic0 common.Hash, indexed []common.Hash, data []byte) types.Log {
	topics := append([]common.Hash{topic0}, indexed...)
	return types.Log{
		Address:     pool,
		Topics:      topics,
		Data:        data,
		BlockNumber: 12345,
		TxHash:      common.HexToHash("0xdef456"),
		Index:       7,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func TestDecodeMint(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder := newTestDecoder(t, pool)

	parsed, err := PoolABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	data, err := parsed.Events["Mint"].Inputs.NonIndexed().Pack(
		big.NewInt(1500000),
		big.NewInt(2500000),
		big.NewInt(777),
	)
	if err != nil {
		t.Fatalf("pack mint: %v", err)
	}

	log := buildLog(pool, parsed.Events["Mint"].ID, []common.Hash{
		topicFromAddress(sender),
		topicFromAddress(to),
	}, data)

	event, ok, err := decoder.Decode(context.Background(), log, 1700000000)
	if err != nil {
		t.Fatalf("decode mint: %v", err)
	}
	if !ok {
		t.Fatalf("mint should be recognized")
	}

	liq, isLiq := event.(model.LiquidityEvent)
	if !isLiq {
		t.Fatalf("decoded type mismatch: %T", event)
	}
	if liq.Kind != model.LiquidityAdd {
		t.Fatalf("kind mismatch: %s", liq.Kind)
	}
	if liq.Amount0 != "1500000" || liq.Amount1 != "2500000" {
		t.Fatalf("amounts mismatch: %+v", liq)
	}
	if liq.Decimals0 != 6 || liq.Decimals1 != 18 {
		t.Fatalf("decimals mismatch: %+v", liq)
	}
	if liq.Provider != sender.Hex() {
		t.Fatalf("provider mismatch: %s", liq.Provider)
	}
	if liq.BlockTime != 1700000000 {
		t.Fatalf("block time mismatch: %d", liq.BlockTime)
	}
}

func TestDecodeBurn(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder := newTestDecoder(t, pool)

	parsed, _ := PoolABI()
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	data, err := parsed.Events["Burn"].Inputs.NonIndexed().Pack(
		big.NewInt(100),
		big.NewInt(200),
		big.NewInt(300),
	)
	if err != nil {
		t.Fatalf("pack burn: %v", err)
	}

	log := buildLog(pool, parsed.Events["Burn"].ID, []common.Hash{
		topicFromAddress(sender),
		topicFromAddress(to),
	}, data)

	event, ok, err := decoder.Decode(context.Background(), log, 1700000001)
	if err != nil || !ok {
		t.Fatalf("decode burn: ok=%v err=%v", ok, err)
	}

	liq := event.(model.LiquidityEvent)
	if liq.Kind != model.LiquidityRemove {
		t.Fatalf("kind mismatch: %s", liq.Kind)
	}
	if liq.Amount0 != "100" || liq.Amount1 != "200" {
		t.Fatalf("amounts mismatch: %+v", liq)
	}
}

func TestDecodeSwap(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder := newTestDecoder(t, pool)

	parsed, _ := PoolABI()
	sender := common.HexToAddress("0x4444444444444444444444444444444444444444")
	recipient := common.HexToAddress("0x5555555555555555555555555555555555555555")

	data, err := parsed.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(1000),
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(993),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}

	log := buildLog(pool, parsed.Events["Swap"].ID, []common.Hash{
		topicFromAddress(sender),
		topicFromAddress(recipient),
	}, data)

	event, ok, err := decoder.Decode(context.Background(), log, 1700000002)
	if err != nil || !ok {
		t.Fatalf("decode swap: ok=%v err=%v", ok, err)
	}

	swap := event.(model.SwapEvent)
	if swap.Amount0In != "1000" || swap.Amount1Out != "993" {
		t.Fatalf("amounts mismatch: %+v", swap)
	}
	if swap.Amount1In != "0" || swap.Amount0Out != "0" {
		t.Fatalf("zero legs mismatch: %+v", swap)
	}
	if swap.Sender != sender.Hex() || swap.Recipient != recipient.Hex() {
		t.Fatalf("address mismatch: %+v", swap)
	}
}

func TestDecodeClaim(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder := newTestDecoder(t, pool)

	parsed, _ := PoolABI()
	sender := common.HexToAddress("0x6666666666666666666666666666666666666666")
	recipient := common.HexToAddress("0x7777777777777777777777777777777777777777")

	data, err := parsed.Events["Claim"].Inputs.NonIndexed().Pack(
		big.NewInt(42),
		big.NewInt(84),
	)
	if err != nil {
		t.Fatalf("pack claim: %v", err)
	}

	log := buildLog(pool, parsed.Events["Claim"].ID, []common.Hash{
		topicFromAddress(sender),
		topicFromAddress(recipient),
	}, data)

	event, ok, err := decoder.Decode(context.Background(), log, 1700000003)
	if err != nil || !ok {
		t.Fatalf("decode claim: ok=%v err=%v", ok, err)
	}

	claim := event.(model.FeeClaimEvent)
	if claim.Amount0 != "42" || claim.Amount1 != "84" {
		t.Fatalf("amounts mismatch: %+v", claim)
	}
	if claim.Recipient != recipient.Hex() {
		t.Fatalf("recipient mismatch: %s", claim.Recipient)
	}
}

func TestDecodeUnknownSignatureIgnored(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder := newTestDecoder(t, pool)

	log := buildLog(pool, common.HexToHash("0xdeadbeef"), nil, nil)

	event, ok, err := decoder.Decode(context.Background(), log, 0)
	if err != nil {
		t.Fatalf("unknown signature should not error: %v", err)
	}
	if ok || event != nil {
		t.Fatalf("unknown signature should be ignored")
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder := newTestDecoder(t, pool)

	parsed, _ := PoolABI()
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	log := buildLog(pool, parsed.Events["Mint"].ID, []common.Hash{
		topicFromAddress(sender),
		topicFromAddress(to),
	}, []byte{0x01, 0x02})

	_, ok, err := decoder.Decode(context.Background(), log, 0)
	if !ok {
		t.Fatalf("recognized signature should report ok")
	}
	var decodeErr *model.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.TxHash == "" || decodeErr.Reason == "" {
		t.Fatalf("decode error missing diagnostics: %+v", decodeErr)
	}
}

func TestSignaturesCoverEventSet(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder := newTestDecoder(t, pool)

	if len(decoder.Signatures()) != 4 {
		t.Fatalf("expected 4 signatures, got %d", len(decoder.Signatures()))
	}
}
