package model

// PositionEventData is the decoded payload of a Mint or Burn. Sender is
// only set for Mint. Amounts are decimal strings.
type PositionEventData struct {
	Sender    string `json:"sender,omitempty"`
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}
