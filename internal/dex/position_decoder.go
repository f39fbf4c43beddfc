package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"liquidityProfile/internal/model"
)

const (
	EventMint = "Mint"
	EventBurn = "Burn"
)

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	// Topic0Map aliases extra topic0 hashes (forks with renamed events) to
	// Mint or Burn.
	Topic0Map map[string]string
}

// PositionDecoder decodes the V3 pool events that move liquidity: Mint and Burn.
type PositionDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

var _ Decoder = (*PositionDecoder)(nil)

// NewPositionDecoder builds a Mint/Burn decoder.
func NewPositionDecoder(cfg DecoderConfig) (*PositionDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}

	topicToName := map[string]string{
		strings.ToLower(poolABI.Events[EventMint].ID.Hex()): EventMint,
		strings.ToLower(poolABI.Events[EventBurn].ID.Hex()): EventBurn,
	}

	for topic0, name := range cfg.Topic0Map {
		original := name
		name = normalizeEventName(name)
		if name == "" {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", original)
		}
		if topic0 == "" {
			continue
		}
		topicToName[strings.ToLower(topic0)] = name
	}

	return &PositionDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// LiquidityTopics returns the lower-case topic0 hashes of Mint and Burn.
func LiquidityTopics(poolABI abi.ABI) []string {
	return []string{
		strings.ToLower(poolABI.Events[EventMint].ID.Hex()),
		strings.ToLower(poolABI.Events[EventBurn].ID.Hex()),
	}
}

// CanDecode checks if the topic0 is supported.
func (d *PositionDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent carrying PositionEventData.
func (d *PositionDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topic0())]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topic0())
	}

	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", log.Address)
	}
	pool := common.HexToAddress(log.Address)

	decoded, err := d.decodePosition(name, log)
	if err != nil {
		return nil, err
	}

	poolMeta, err := getPoolMeta(ctx, pool, log.BlockNumber)
	if err != nil {
		return nil, err
	}

	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		PoolMeta:    poolMeta,
		Raw:         &model.RawLogRef{Topic0: log.Topic0(), Data: log.Data},
	}, nil
}

func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mint":
		return EventMint
	case "burn":
		return EventBurn
	default:
		return ""
	}
}

func getPoolMeta(ctx DecodeContext, pool common.Address, blockNumber uint64) (model.PoolMeta, error) {
	var meta model.PoolMeta
	var ok bool
	if ctx.PoolMetaCache != nil {
		meta, ok = ctx.PoolMetaCache.Get(pool)
	}
	if ok && !ctx.IncludeLiveMeta {
		return meta, nil
	}
	if ctx.Chain == nil {
		return model.PoolMeta{}, fmt.Errorf("chain client is nil")
	}

	callCtx := ctx.Context
	if callCtx == nil {
		callCtx = context.Background()
	}

	if !ok {
		var err error
		meta, err = FetchPoolMeta(callCtx, ctx.Chain, pool, ctx.TokenMetaCache, ctx.Logger)
		if err != nil {
			return model.PoolMeta{}, err
		}
		if ctx.PoolMetaCache != nil {
			ctx.PoolMetaCache.Set(pool, meta)
		}
	}

	if ctx.IncludeLiveMeta {
		if optional, err := FetchPoolOptionalMeta(callCtx, ctx.Chain, pool, blockNumber, ctx.Logger); err == nil {
			if optional.Liquidity != "" {
				meta.Liquidity = optional.Liquidity
			}
			if optional.Slot0 != nil {
				meta.Slot0 = optional.Slot0
			}
		}
	}
	return meta, nil
}

// decodePosition handles both layouts: Mint carries sender as its first
// non-indexed field, Burn does not.
func (d *PositionDecoder) decodePosition(name string, log model.LogRecord) (model.PositionEventData, error) {
	event := d.poolABI.Events[name]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.PositionEventData{}, err
	}

	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.PositionEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.PositionEventData{}, err
	}

	out := model.PositionEventData{Owner: indexed.Owner.Hex()}
	if name == EventMint {
		if len(values) != 4 {
			return model.PositionEventData{}, fmt.Errorf("unexpected mint values: %d", len(values))
		}
		sender, err := asAddress(values[0])
		if err != nil {
			return model.PositionEventData{}, err
		}
		out.Sender = sender.Hex()
		values = values[1:]
	} else if len(values) != 3 {
		return model.PositionEventData{}, fmt.Errorf("unexpected burn values: %d", len(values))
	}

	amounts := make([]string, 3)
	for i, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return model.PositionEventData{}, err
		}
		amounts[i] = amount.String()
	}
	out.Amount, out.Amount0, out.Amount1 = amounts[0], amounts[1], amounts[2]

	if out.TickLower, err = int24FromBig(indexed.TickLower); err != nil {
		return model.PositionEventData{}, err
	}
	if out.TickUpper, err = int24FromBig(indexed.TickUpper); err != nil {
		return model.PositionEventData{}, err
	}
	return out, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	out := make([]common.Hash, 0, indexedCount)
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
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

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
