// Package book implements the stateful order book aggregate: two
// price-indexed ordered ladders (bids, asks), running per-side totals, a
// grouped/bucketed ladder kept incrementally in sync, and the view
// projections consumed by UI layers.
package book

import (
	"go.uber.org/zap"

	"github.com/b25/orderbook/internal/bucket"
	"github.com/b25/orderbook/internal/decimal"
)

// DefaultGroupSize is the group size a newly created book starts with.
const DefaultGroupSize = 1.0

// Config controls the tunables a newly created book starts with.
type Config struct {
	GroupSize       float64
	BucketCacheSize int
}

// DefaultConfig returns the tunables New uses when no configuration is
// threaded through.
func DefaultConfig() Config {
	return Config{GroupSize: DefaultGroupSize, BucketCacheSize: bucket.DefaultCacheSize}
}

// OrderBook is the stateful, side-partitioned, price-sorted order book for
// a single instrument. It is owned by a single logical caller: no method is
// safe for concurrent use against the same instance (see package registry
// for the host-facing multi-book container).
type OrderBook struct {
	Instrument string
	Sequence   uint64

	bids *ladder
	asks *ladder

	bidsTotal      decimal.Decimal
	asksTotal      decimal.Decimal
	bidsValueTotal decimal.Decimal
	asksValueTotal decimal.Decimal

	groupedBids *groupedLadder
	groupedAsks *groupedLadder
	groupSize   float64

	cache  *bucket.Cache
	logger *zap.Logger
}

// New creates an empty order book for instrument, starting at
// initialSequence, with the default group size and bucket cache tunables.
func New(instrument string, initialSequence uint64, logger *zap.Logger) *OrderBook {
	return NewWithConfig(instrument, initialSequence, logger, DefaultConfig())
}

// NewWithConfig is New with explicit group size and bucket cache tunables,
// for callers (the registry, chiefly) that thread configuration through
// from the host's config file instead of taking the package defaults.
func NewWithConfig(instrument string, initialSequence uint64, logger *zap.Logger, cfg Config) *OrderBook {
	if logger == nil {
		logger = zap.NewNop()
	}
	ob := &OrderBook{
		Instrument:     instrument,
		Sequence:       initialSequence,
		bids:           newLadder(Bid),
		asks:           newLadder(Ask),
		groupedBids:    newGroupedLadder(Bid),
		groupedAsks:    newGroupedLadder(Ask),
		groupSize:      cfg.GroupSize,
		bidsTotal:      decimal.Zero(),
		asksTotal:      decimal.Zero(),
		bidsValueTotal: decimal.Zero(),
		asksValueTotal: decimal.Zero(),
		cache:          bucket.NewCache(cfg.BucketCacheSize),
		logger:         logger,
	}
	return ob
}

func (ob *OrderBook) ladderFor(side Side) *ladder {
	if side == Bid {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) groupedFor(side Side) *groupedLadder {
	if side == Bid {
		return ob.groupedBids
	}
	return ob.groupedAsks
}

// GroupSize returns the current bucket width.
func (ob *OrderBook) GroupSize() float64 { return ob.groupSize }

// BidsTotal returns the total resting bid size.
func (ob *OrderBook) BidsTotal() decimal.Decimal { return ob.bidsTotal }

// AsksTotal returns the total resting ask size.
func (ob *OrderBook) AsksTotal() decimal.Decimal { return ob.asksTotal }

// BidsValueTotal returns the total resting bid notional.
func (ob *OrderBook) BidsValueTotal() decimal.Decimal { return ob.bidsValueTotal }

// AsksValueTotal returns the total resting ask notional.
func (ob *OrderBook) AsksValueTotal() decimal.Decimal { return ob.asksValueTotal }

// BidCount returns the number of distinct resting bid price levels.
func (ob *OrderBook) BidCount() int { return ob.bids.len() }

// AskCount returns the number of distinct resting ask price levels.
func (ob *OrderBook) AskCount() int { return ob.asks.len() }

// SetGroupSize replaces the bucket width and rebuilds both grouped ladders
// from scratch by re-projecting every resting raw level.
func (ob *OrderBook) SetGroupSize(g float64) {
	ob.groupSize = g
	ob.groupedBids.reset()
	ob.groupedAsks.reset()

	ob.bids.ascend(func(l Level) bool {
		b := bucket.GroupCached(ob.cache, l.Price, g, true)
		ob.groupedBids.adjust(b, l.Size)
		return true
	})
	ob.asks.ascend(func(l Level) bool {
		b := bucket.GroupCached(ob.cache, l.Price, g, false)
		ob.groupedAsks.adjust(b, l.Size)
		return true
	})
}

// AddLevel upserts the level at price with absolute size (not a delta).
// The previous size at that price, if any, is differenced out of the
// running totals before the new size is added in, so re-quoting a price at
// a different size never drifts the aggregate (see the aggregate-drift
// design note).
func (ob *OrderBook) AddLevel(side Side, price, size float64, seq uint64) {
	p := decimal.NewFromFloat(price)
	sz := decimal.NewFromFloat(size)

	l := ob.ladderFor(side)
	prev, had := l.get(p)
	prevSize := decimal.Zero()
	if had {
		prevSize = prev.Size
	}

	switch side {
	case Bid:
		ob.bidsTotal = ob.bidsTotal.Sub(prevSize).Add(sz)
		ob.bidsValueTotal = ob.bidsValueTotal.Sub(prevSize.Mul(p)).Add(sz.Mul(p))
	case Ask:
		ob.asksTotal = ob.asksTotal.Sub(prevSize).Add(sz)
		ob.asksValueTotal = ob.asksValueTotal.Sub(prevSize.Mul(p)).Add(sz.Mul(p))
	}

	l.upsert(NewLevelFromDecimal(p, sz))

	b := bucket.GroupCached(ob.cache, p, ob.groupSize, side == Bid)
	ob.groupedFor(side).adjust(b, sz.Sub(prevSize))

	ob.Sequence = seq
}

// RemoveLevel deletes the level at price, if present. Deleting an absent
// price is a no-op except for the sequence bump.
func (ob *OrderBook) RemoveLevel(side Side, price float64, seq uint64) {
	p := decimal.NewFromFloat(price)
	l := ob.ladderFor(side)

	removed, had := l.delete(p)
	if had {
		switch side {
		case Bid:
			ob.bidsTotal = ob.bidsTotal.Sub(removed.Size)
			ob.bidsValueTotal = ob.bidsValueTotal.Sub(removed.Value)
		case Ask:
			ob.asksTotal = ob.asksTotal.Sub(removed.Size)
			ob.asksValueTotal = ob.asksValueTotal.Sub(removed.Value)
		}
		b := bucket.GroupCached(ob.cache, p, ob.groupSize, side == Bid)
		ob.groupedFor(side).adjust(b, removed.Size.Neg())
	}

	ob.Sequence = seq
}

// FeedSide mirrors the upstream feed's Buy/Sell tagging in a LevelUpdate
// message (0 = Buy, 1 = Sell).
type FeedSide int32

const (
	FeedBuy  FeedSide = 0
	FeedSell FeedSide = 1
)

// LevelUpdate is a single decoded per-level update from the feed.
type LevelUpdate struct {
	Sequence uint64
	Side     FeedSide
	Price    float64
	Size     float64
}

// ApplyLevelUpdate is the integrating entry point for a single feed
// message: it gates on sequence, then removes (size == 0) or upserts
// (size != 0) the level. It returns true unless the update was rejected as
// a sequence gap, in which case the book is left unmodified.
func (ob *OrderBook) ApplyLevelUpdate(msg LevelUpdate) bool {
	stop, valid := ob.VerifySequence(msg.Sequence)
	if stop {
		return valid
	}

	if msg.Size == 0 {
		ob.RemoveLevel(Bid, msg.Price, msg.Sequence)
		ob.RemoveLevel(Ask, msg.Price, msg.Sequence)
		return true
	}

	side := Bid
	if msg.Side == FeedSell {
		side = Ask
	}
	ob.AddLevel(side, msg.Price, msg.Size, msg.Sequence)
	return true
}

// VerifySequence is the sole ordering gate. received < next: stale
// duplicate, dropped without error (stop=true, valid=true). received >
// next: gap, the book is desynchronized and must not be mutated
// (stop=true, valid=false). received == next: the caller should proceed
// with the mutation (stop=false, valid=false).
func (ob *OrderBook) VerifySequence(received uint64) (stop bool, valid bool) {
	next := ob.Sequence + 1
	switch {
	case received < next:
		ob.logger.Debug("stale sequence dropped",
			zap.String("instrument", ob.Instrument),
			zap.Uint64("sequence", ob.Sequence),
			zap.Uint64("received", received))
		return true, true
	case received > next:
		ob.logger.Warn("sequence gap detected",
			zap.String("instrument", ob.Instrument),
			zap.Uint64("sequence", ob.Sequence),
			zap.Uint64("received", received))
		return true, false
	default:
		return false, false
	}
}
