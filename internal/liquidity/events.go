package liquidity

import (
	"context"
	"fmt"
	"math/big"
	"strings"
)

// EventKind is the liquidity-changing pool event type.
type EventKind int

const (
	Mint EventKind = iota + 1
	Burn
)

func (k EventKind) String() string {
	switch k {
	case Mint:
		return "Mint"
	case Burn:
		return "Burn"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// ParseEventKind maps an event name to its kind, ignoring case.
func ParseEventKind(name string) (EventKind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mint":
		return Mint, true
	case "burn":
		return Burn, true
	default:
		return 0, false
	}
}

// Event is one position change over [TickLower, TickUpper).
type Event struct {
	Kind      EventKind
	TickLower int32
	TickUpper int32
	Amount    *big.Int
}

// EventSource yields a finite set of liquidity events in any order.
type EventSource interface {
	Events(ctx context.Context) ([]Event, error)
}

// AccumulateEvents folds events into a Delta. Mint adds +amount at the lower
// tick and -amount at the upper tick; Burn is the exact inverse. The result
// does not depend on event order.
func AccumulateEvents(events []Event) (Delta, error) {
	delta := NewDelta()
	for i, ev := range events {
		if err := ApplyEvent(delta, ev); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return delta, nil
}

// ApplyEvent adds a single event's contribution to delta.
func ApplyEvent(delta Delta, ev Event) error {
	if err := ev.validate(); err != nil {
		return err
	}
	amount := ev.Amount
	switch ev.Kind {
	case Mint:
		delta.Add(ev.TickLower, amount)
		delta.Add(ev.TickUpper, new(big.Int).Neg(amount))
	case Burn:
		delta.Add(ev.TickLower, new(big.Int).Neg(amount))
		delta.Add(ev.TickUpper, amount)
	}
	return nil
}

func (ev Event) validate() error {
	if ev.Kind != Mint && ev.Kind != Burn {
		return fmt.Errorf("unsupported event kind %s", ev.Kind)
	}
	if ev.Amount == nil || ev.Amount.Sign() < 0 {
		return fmt.Errorf("%s amount must be non-negative", ev.Kind)
	}
	if ev.TickLower >= ev.TickUpper {
		return fmt.Errorf("%s tick range [%d, %d) is empty", ev.Kind, ev.TickLower, ev.TickUpper)
	}
	if ev.TickLower < MinTick || ev.TickUpper > MaxTick {
		return fmt.Errorf("%s tick range [%d, %d) out of bounds", ev.Kind, ev.TickLower, ev.TickUpper)
	}
	return nil
}
