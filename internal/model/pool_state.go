package model

// PoolState is the read-only view of a pool at one block that price
// conversion needs.
type PoolState struct {
	Address      string    `json:"address"`
	BlockNumber  uint64    `json:"block_number"`
	Token0       TokenMeta `json:"token0"`
	Token1       TokenMeta `json:"token1"`
	Fee          uint32    `json:"fee"`
	TickSpacing  int32     `json:"tick_spacing"`
	SqrtPriceX96 string    `json:"sqrt_price_x96"`
	Tick         int32     `json:"tick"`
	Liquidity    string    `json:"liquidity,omitempty"`
}

// Pool returns the storage row for the state, first seen at its block.
func (s PoolState) Pool(chainID uint64) Pool {
	return Pool{
		ChainID:        chainID,
		Address:        s.Address,
		Token0:         s.Token0.Address,
		Token1:         s.Token1.Address,
		Fee:            s.Fee,
		TickSpacing:    s.TickSpacing,
		FirstSeenBlock: s.BlockNumber,
	}
}

// Pair renders the quote as token1/token0, the direction prices are in.
func (s PoolState) Pair() string {
	sym0, sym1 := s.Token0.Symbol, s.Token1.Symbol
	if sym0 == "" {
		sym0 = "token0"
	}
	if sym1 == "" {
		sym1 = "token1"
	}
	return sym1 + "/" + sym0
}

// PoolReserves holds token balances held by the pool contract.
type PoolReserves struct {
	Raw0    string `json:"raw0"`
	Raw1    string `json:"raw1"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
	Method  string `json:"method"`
}
