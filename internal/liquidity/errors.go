package liquidity

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrProviderFailure marks a bitmap or tick fetch that failed after retries.
	ErrProviderFailure = errors.New("provider failure")
	// ErrIntegrityViolation marks a curve built from incomplete or corrupted deltas.
	ErrIntegrityViolation = errors.New("liquidity integrity violation")
)

// ProviderError wraps a failed provider call with the word or tick it was for.
type ProviderError struct {
	Op   string
	Word int16
	Tick int32
	Err  error
}

func (e *ProviderError) Error() string {
	switch e.Op {
	case OpTickBitmap:
		return fmt.Sprintf("%s word %d: %v", e.Op, e.Word, e.Err)
	default:
		return fmt.Sprintf("%s tick %d: %v", e.Op, e.Tick, e.Err)
	}
}

func (e *ProviderError) Unwrap() []error {
	return []error{ErrProviderFailure, e.Err}
}

const (
	OpTickBitmap = "tickBitmap"
	OpTickRecord = "ticks"
)

// IntegrityKind classifies an integrity violation.
type IntegrityKind string

const (
	NegativeLiquidity IntegrityKind = "negative_liquidity"
	NonZeroSum        IntegrityKind = "non_zero_sum"
)

// IntegrityError reports where the running liquidity went negative, or the
// residual when deltas do not sum to zero.
type IntegrityError struct {
	Kind  IntegrityKind
	Tick  int32
	Value *big.Int
}

func (e *IntegrityError) Error() string {
	switch e.Kind {
	case NegativeLiquidity:
		return fmt.Sprintf("%v: active liquidity %s at tick %d", ErrIntegrityViolation, e.Value, e.Tick)
	default:
		return fmt.Sprintf("%v: deltas sum to %s", ErrIntegrityViolation, e.Value)
	}
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityViolation
}
