package model

const (
	SnapshotSourceBitmap = "bitmap"
	SnapshotSourceEvents = "events"
)

// LiquiditySnapshot is one reconstructed liquidity curve of a pool.
type LiquiditySnapshot struct {
	ChainID      uint64             `json:"chain_id"`
	PoolAddress  string             `json:"pool_address"`
	BlockNumber  uint64             `json:"block_number"`
	Source       string             `json:"source"`
	CurrentTick  int32              `json:"current_tick"`
	CurrentPrice float64            `json:"current_price"`
	Reserve0     string             `json:"reserve0,omitempty"`
	Reserve1     string             `json:"reserve1,omitempty"`
	Reliable     bool               `json:"reliable"`
	Integrity    string             `json:"integrity,omitempty"`
	Segments     []LiquiditySegment `json:"segments"`
}

// LiquiditySegment is a half-open tick range with constant active liquidity.
type LiquiditySegment struct {
	TickLower  int32   `json:"tick_lower"`
	TickUpper  int32   `json:"tick_upper"`
	Liquidity  string  `json:"liquidity"`
	PriceLower float64 `json:"price_lower"`
	PriceUpper float64 `json:"price_upper"`
}
