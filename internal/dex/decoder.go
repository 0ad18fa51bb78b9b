package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"poolwatch/internal/model"
)

// Decoder classifies raw logs by topic0 and decodes the recognized ones into
// typed events. Logs with an unknown signature are ignored, not failed.
type Decoder struct {
	poolABI     abi.ABI
	topicToName map[common.Hash]string
	meta        *MetaResolver
}

func NewDecoder(meta *MetaResolver) (*Decoder, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, err
	}

	topicToName := map[common.Hash]string{
		parsed.Events["Mint"].ID:  "Mint",
		parsed.Events["Burn"].ID:  "Burn",
		parsed.Events["Swap"].ID:  "Swap",
		parsed.Events["Claim"].ID: "Claim",
	}

	return &Decoder{
		poolABI:     parsed,
		topicToName: topicToName,
		meta:        meta,
	}, nil
}

// Signatures returns the topic0 hashes of every event kind the decoder
// recognizes, for use as a log filter.
func (d *Decoder) Signatures() []common.Hash {
	out := make([]common.Hash, 0, len(d.topicToName))
	for topic := range d.topicToName {
		out = append(out, topic)
	}
	return out
}

// Decode converts a raw log into a typed event. The second return value is
// false when the signature is unrecognized. A recognized log with a malformed
// payload yields a *model.DecodeError.
func (d *Decoder) Decode(ctx context.Context, log types.Log, blockTime uint64) (model.Event, bool, error) {
	if len(log.Topics) == 0 {
		return nil, false, nil
	}
	name, ok := d.topicToName[log.Topics[0]]
	if !ok {
		return nil, false, nil
	}

	pool, err := d.meta.Pool(ctx, log.Address)
	if err != nil {
		return nil, true, err
	}

	var event model.Event
	switch name {
	case "Mint":
		event, err = d.decodeLiquidity(log, pool, blockTime, model.LiquidityAdd)
	case "Burn":
		event, err = d.decodeLiquidity(log, pool, blockTime, model.LiquidityRemove)
	case "Swap":
		event, err = d.decodeSwap(log, pool, blockTime)
	case "Claim":
		event, err = d.decodeClaim(log, pool, blockTime)
	}
	if err != nil {
		return nil, true, decodeError(log, pool.Address, err)
	}
	return event, true, nil
}

func (d *Decoder) decodeLiquidity(log types.Log, pool model.Pool, blockTime uint64, kind model.LiquidityKind) (model.Event, error) {
	eventName := "Mint"
	if kind == model.LiquidityRemove {
		eventName = "Burn"
	}
	event := d.poolABI.Events[eventName]

	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", eventName, err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unexpected %s values: %d", eventName, len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}

	return model.LiquidityEvent{
		Pool:        pool.Address,
		Kind:        kind,
		BlockNumber: log.BlockNumber,
		BlockTime:   blockTime,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Amount0:     amount0.String(),
		Amount1:     amount1.String(),
		Decimals0:   pool.Decimals0,
		Decimals1:   pool.Decimals1,
		Provider:    indexed.Sender.Hex(),
	}, nil
}

func (d *Decoder) decodeSwap(log types.Log, pool model.Pool, blockTime uint64) (model.Event, error) {
	event := d.poolABI.Events["Swap"]

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack Swap: %w", err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unexpected Swap values: %d", len(values))
	}

	amounts := make([]*big.Int, 4)
	for i, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return nil, err
		}
		amounts[i] = amount
	}

	return model.SwapEvent{
		Pool:        pool.Address,
		BlockNumber: log.BlockNumber,
		BlockTime:   blockTime,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Amount0In:   amounts[0].String(),
		Amount1In:   amounts[1].String(),
		Amount0Out:  amounts[2].String(),
		Amount1Out:  amounts[3].String(),
		Decimals0:   pool.Decimals0,
		Decimals1:   pool.Decimals1,
		Sender:      indexed.Sender.Hex(),
		Recipient:   indexed.Recipient.Hex(),
	}, nil
}

func (d *Decoder) decodeClaim(log types.Log, pool model.Pool, blockTime uint64) (model.Event, error) {
	event := d.poolABI.Events["Claim"]

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack Claim: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected Claim values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}

	return model.FeeClaimEvent{
		Pool:        pool.Address,
		BlockNumber: log.BlockNumber,
		BlockTime:   blockTime,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Amount0:     amount0.String(),
		Amount1:     amount1.String(),
		Decimals0:   pool.Decimals0,
		Decimals1:   pool.Decimals1,
		Sender:      indexed.Sender.Hex(),
		Recipient:   indexed.Recipient.Hex(),
	}, nil
}

func parseIndexed(event abi.Event, topics []common.Hash, out interface{}) error {
	indexed := indexedArguments(event.Inputs)
	if len(topics) != len(indexed)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(topics))
	}
	if err := abi.ParseTopics(out, indexed, topics[1:]); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func decodeError(log types.Log, pool string, err error) *model.DecodeError {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}
	return &model.DecodeError{
		Pool:        pool,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Reason:      err.Error(),
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
