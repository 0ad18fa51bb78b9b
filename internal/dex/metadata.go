package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolwatch/internal/model"
)

// fallbackDecimals is assumed when a token's decimals() call fails.
const fallbackDecimals uint8 = 18

// ContractCaller is the eth_call capability metadata lookups need.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// MetaResolver resolves pool token pairs and token decimals, caching both for
// the process lifetime. Lookups happen once per address, on first encounter.
type MetaResolver struct {
	caller ContractCaller
	logger *zap.Logger

	mu       sync.RWMutex
	pools    map[common.Address]model.Pool
	decimals map[common.Address]uint8
}

func NewMetaResolver(caller ContractCaller, logger *zap.Logger) *MetaResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaResolver{
		caller:   caller,
		logger:   logger,
		pools:    make(map[common.Address]model.Pool),
		decimals: make(map[common.Address]uint8),
	}
}

// Pool returns the pool's token metadata, fetching and caching it on first use.
func (r *MetaResolver) Pool(ctx context.Context, address common.Address) (model.Pool, error) {
	r.mu.RLock()
	pool, ok := r.pools[address]
	r.mu.RUnlock()
	if ok {
		return pool, nil
	}

	token0, token1, err := r.fetchPoolTokens(ctx, address)
	if err != nil {
		return model.Pool{}, fmt.Errorf("pool tokens %s: %w", address.Hex(), err)
	}

	dec0 := r.tokenDecimals(ctx, token0)
	dec1 := r.tokenDecimals(ctx, token1)

	pool = model.Pool{
		Address:   model.NormalizeAddress(address.Hex()),
		Token0:    token0.Hex(),
		Token1:    token1.Hex(),
		Decimals0: dec0,
		Decimals1: dec1,
	}

	r.mu.Lock()
	r.pools[address] = pool
	r.mu.Unlock()

	return pool, nil
}

// Seed primes the pool cache, letting tests and preconfigured deployments
// skip the on-chain lookup.
func (r *MetaResolver) Seed(address common.Address, pool model.Pool) {
	r.mu.Lock()
	r.pools[address] = pool
	r.mu.Unlock()
}

func (r *MetaResolver) fetchPoolTokens(ctx context.Context, pool common.Address) (common.Address, common.Address, error) {
	parsed, err := PoolABI()
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("parse pool abi: %w", err)
	}

	token0, err := r.callAddress(ctx, pool, parsed, "token0")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token1, err := r.callAddress(ctx, pool, parsed, "token1")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return token0, token1, nil
}

func (r *MetaResolver) callAddress(ctx context.Context, contract common.Address, parsed abi.ABI, method string) (common.Address, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", method, err)
	}
	addr, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", method, err)
	}
	return addr, nil
}

// tokenDecimals looks up a token's decimals, falling back to 18 on failure.
// The fallback is cached too so a broken token is only probed once.
func (r *MetaResolver) tokenDecimals(ctx context.Context, token common.Address) uint8 {
	r.mu.RLock()
	dec, ok := r.decimals[token]
	r.mu.RUnlock()
	if ok {
		return dec
	}

	dec, err := r.fetchDecimals(ctx, token)
	if err != nil {
		r.logger.Warn("token decimals lookup failed, assuming 18",
			zap.String("token", token.Hex()), zap.Error(err))
		dec = fallbackDecimals
	}

	r.mu.Lock()
	r.decimals[token] = dec
	r.mu.Unlock()

	return dec
}

func (r *MetaResolver) fetchDecimals(ctx context.Context, token common.Address) (uint8, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}
	resp, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("call decimals: %w", err)
	}
	values, err := parsed.Unpack("decimals", resp)
	if err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	return asUint8(values[0])
}
