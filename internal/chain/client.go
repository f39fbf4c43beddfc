package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is the RPC surface the indexer and the snapshot reader share. It
// satisfies dex.Caller and indexer.LogSource.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu sync.RWMutex
	// block number -> header time, filled by BlockTimestamp and BlockForTime
	tsCache map[uint64]uint64
}

func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}, nil
}

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockTimestamp returns the header time of block number. Results are cached
// for the life of the client.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.tsCache[number] = header.Time
	c.mu.Unlock()
	return header.Time, nil
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// IsContract reports whether address has code at blockNumber (nil for latest).
func (c *Client) IsContract(ctx context.Context, address common.Address, blockNumber *big.Int) (bool, error) {
	code, err := c.ethClient.CodeAt(ctx, address, blockNumber)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// BlockForTime returns the first block in [1, latest] whose timestamp is at
// or after ts.
func (c *Client) BlockForTime(ctx context.Context, ts uint64) (uint64, error) {
	latest, err := c.LatestBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}
	return SearchBlock(ctx, 1, latest, ts, c.BlockTimestamp)
}

// SearchBlock binary searches [lo, hi] for the first block with timestamp >= ts.
// hi is returned when every block is older than ts.
func SearchBlock(ctx context.Context, lo, hi, ts uint64, timestampOf func(context.Context, uint64) (uint64, error)) (uint64, error) {
	for lo < hi {
		mid := lo + (hi-lo)/2
		blockTs, err := timestampOf(ctx, mid)
		if err != nil {
			return 0, fmt.Errorf("block %d timestamp: %w", mid, err)
		}
		if blockTs < ts {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// CallContract runs eth_call at blockNumber (nil for latest).
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}
