package book

import "github.com/b25/orderbook/internal/decimal"

// Level is all resting interest at a single price on one side of the book.
// Value is always the exact decimal product of Price and Size - it is never
// recomputed from a lossy intermediate.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
	Value decimal.Decimal
}

// NewLevel lifts feed-provided binary-floating price and size into the
// decimal domain and computes the notional value in the decimal domain.
func NewLevel(price, size float64) Level {
	return NewLevelFromDecimal(decimal.NewFromFloat(price), decimal.NewFromFloat(size))
}

// NewLevelFromDecimal builds a Level from already-lifted decimals.
func NewLevelFromDecimal(price, size decimal.Decimal) Level {
	return Level{
		Price: price,
		Size:  size,
		Value: price.Mul(size),
	}
}

// Side distinguishes bid (buy) interest from ask (sell) interest.
type Side int

const (
	// Bid is resting buy interest; the highest bid price is "best".
	Bid Side = iota
	// Ask is resting sell interest; the lowest ask price is "best".
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}
