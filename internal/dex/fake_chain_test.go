package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type fakeTick struct {
	net         *big.Int
	initialized bool
}

type fakeToken struct {
	decimals uint8
	symbol   string
	balance  *big.Int
}

// fakeChain answers eth_call by decoding the selector against the pool and
// ERC20 ABIs and packing canned outputs.
type fakeChain struct {
	mu sync.Mutex

	pool        common.Address
	token0      common.Address
	token1      common.Address
	fee         uint32
	tickSpacing int32
	sqrtPrice   *big.Int
	tick        int32
	liquidity   *big.Int
	words       map[int16]*big.Int
	ticks       map[int32]fakeTick
	tokens      map[common.Address]fakeToken

	// failures counts down per method before calls start succeeding
	failures map[string]int
	// latestOnly rejects historical calls for these methods
	latestOnly map[string]bool
	calls      map[string]int
	blocks     []*big.Int
}

func newFakeChain() *fakeChain {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	token0 := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1 := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	sqrt, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	return &fakeChain{
		pool:        pool,
		token0:      token0,
		token1:      token1,
		fee:         3000,
		tickSpacing: 60,
		sqrtPrice:   sqrt,
		tick:        0,
		liquidity:   big.NewInt(123456),
		words:       make(map[int16]*big.Int),
		ticks:       make(map[int32]fakeTick),
		tokens: map[common.Address]fakeToken{
			token0: {decimals: 18, symbol: "WETH", balance: new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))},
			token1: {decimals: 6, symbol: "USDC", balance: big.NewInt(2500_000000)},
		},
		failures:   make(map[string]int),
		latestOnly: make(map[string]bool),
		calls:      make(map[string]int),
	}
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("invalid call")
	}
	var parsed abi.ABI
	var err error
	if *msg.To == f.pool {
		parsed, err = V3PoolABI()
	} else {
		parsed, err = erc20ABIStringInstance()
	}
	if err != nil {
		return nil, err
	}
	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	f.calls[method.Name]++
	f.blocks = append(f.blocks, blockNumber)
	if f.failures[method.Name] > 0 {
		f.failures[method.Name]--
		return nil, fmt.Errorf("%s: upstream timeout", method.Name)
	}
	if f.latestOnly[method.Name] && blockNumber != nil {
		return nil, errors.New("missing trie node")
	}

	outputs, err := f.answer(*msg.To, method.Name, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(outputs...)
}

func (f *fakeChain) answer(to common.Address, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "token0":
		return []interface{}{f.token0}, nil
	case "token1":
		return []interface{}{f.token1}, nil
	case "fee":
		return []interface{}{big.NewInt(int64(f.fee))}, nil
	case "tickSpacing":
		return []interface{}{big.NewInt(int64(f.tickSpacing))}, nil
	case "liquidity":
		return []interface{}{f.liquidity}, nil
	case "slot0":
		return []interface{}{f.sqrtPrice, big.NewInt(int64(f.tick)), uint16(1), uint16(1), uint16(1), uint8(0), true}, nil
	case "tickBitmap":
		word := args[0].(int16)
		value, ok := f.words[word]
		if !ok {
			value = new(big.Int)
		}
		return []interface{}{value}, nil
	case "ticks":
		tick := int32(args[0].(*big.Int).Int64())
		rec, ok := f.ticks[tick]
		if !ok {
			rec = fakeTick{net: new(big.Int)}
		}
		gross := new(big.Int).Abs(rec.net)
		return []interface{}{gross, rec.net, new(big.Int), new(big.Int), new(big.Int), new(big.Int), uint32(0), rec.initialized}, nil
	case "decimals":
		return []interface{}{f.tokens[to].decimals}, nil
	case "symbol":
		return []interface{}{f.tokens[to].symbol}, nil
	case "name":
		return []interface{}{f.tokens[to].symbol + " token"}, nil
	case "balanceOf":
		return []interface{}{f.tokens[to].balance}, nil
	default:
		return nil, fmt.Errorf("unexpected method %s", method)
	}
}

// setTick marks tick initialized in its bitmap word.
func (f *fakeChain) setTick(tick int32, net int64) {
	compressed := tick / f.tickSpacing
	if tick < 0 && tick%f.tickSpacing != 0 {
		compressed--
	}
	word := int16(compressed >> 8)
	bit := uint(compressed & 0xff)
	value, ok := f.words[word]
	if !ok {
		value = new(big.Int)
		f.words[word] = value
	}
	value.SetBit(value, int(bit), 1)
	f.ticks[tick] = fakeTick{net: big.NewInt(net), initialized: true}
}
