package book

import (
	"github.com/b25/orderbook/internal/bucket"
	"github.com/b25/orderbook/internal/decimal"
)

// GetLevels returns the top n resting levels per side. Bids are in
// descending price order (best first). Asks are the n lowest-priced
// resting levels, returned highest-first, so a printed ladder reads
// ask-top downward to ask-best, then bid-best at the top of the bid
// column.
func (ob *OrderBook) GetLevels(n int) (bids []Level, asks []Level) {
	bids = ob.bids.topN(n)

	asksAscending := ob.asks.topN(n)
	asks = make([]Level, len(asksAscending))
	for i, l := range asksAscending {
		asks[len(asksAscending)-1-i] = l
	}
	return bids, asks
}

// GetAllLevels returns every resting level per side, in the same order as
// GetLevels (bids best-first, asks highest-first) but without an n cap - the slice is sized from the
// ladder's own length, so the book's actual depth bounds the allocation.
func (ob *OrderBook) GetAllLevels() (bids []Level, asks []Level) {
	bids = ob.bids.all()

	asksAscending := ob.asks.all()
	asks = make([]Level, len(asksAscending))
	for i, l := range asksAscending {
		asks[len(asksAscending)-1-i] = l
	}
	return bids, asks
}

// GetGroupedLevels returns the same shape as GetLevels, but drawn from the
// bucketed ladders.
func (ob *OrderBook) GetGroupedLevels(n int) (bids []Level, asks []Level) {
	bidItems := ob.groupedBids.topN(n)
	bids = make([]Level, len(bidItems))
	for i, it := range bidItems {
		bids[i] = syntheticLevel(it.price, it.size)
	}

	askItems := ob.groupedAsks.topN(n)
	asks = make([]Level, len(askItems))
	for i, it := range askItems {
		asks[len(askItems)-1-i] = syntheticLevel(it.price, it.size)
	}
	return bids, asks
}

func syntheticLevel(price, size decimal.Decimal) Level {
	return Level{Price: price, Size: size, Value: price.Mul(size)}
}

// SnapshotInfo carries the aggregate totals and spread accompanying a
// grouped snapshot.
type SnapshotInfo struct {
	BidTotal       decimal.Decimal
	BidValueTotal  decimal.Decimal
	AskTotal       decimal.Decimal
	AskValueTotal  decimal.Decimal
	Spread         decimal.Decimal
}

// GroupedSnapshot is a fixed-width, mid-centered grouped depth window.
type GroupedSnapshot struct {
	Bids          []Level
	Asks          []Level
	Info          SnapshotInfo
	CumBidValues  []CumulativeEntry
	CumAskValues  []CumulativeEntry
}

// GetGroupedSnapshot produces a fixed-width n-per-side snapshot centered on
// the mid of the grouped best prices. Missing buckets (no resting
// liquidity) are emitted with size zero so the result is always exactly n
// entries per side.
func (ob *OrderBook) GetGroupedSnapshot(n int) GroupedSnapshot {
	bestBid := ob.groupedBids.bestPrice()
	bestAsk := ob.groupedAsks.bestPrice()

	mid := bestBid.Add(bestAsk).Div(decimal.NewFromInt64(2))

	scale := bucket.ValueToScale(ob.groupSize)
	step := decimal.NewFromFloat(ob.groupSize)

	bid0 := bucket.GroupCached(ob.cache, mid, ob.groupSize, true)
	ask0 := bucket.GroupCached(ob.cache, mid, ob.groupSize, false)

	// Walk bids downward from bid0 (nearest mid) to furthest, then reverse
	// so the result reads ascending price (furthest-from-mid first).
	bidsDescending := make([]Level, n)
	for i := 0; i < n; i++ {
		price := bid0.Sub(step.Mul(decimal.NewFromInt64(int64(i)))).Round(scale, decimal.RoundHalfUp)
		bidsDescending[i] = syntheticLevel(price, ob.groupedBids.get(price))
	}
	bids := make([]Level, n)
	for i, l := range bidsDescending {
		bids[n-1-i] = l
	}

	// Asks walk upward from ask0 (nearest mid); this is already ascending.
	asks := make([]Level, n)
	for i := 0; i < n; i++ {
		price := ask0.Add(step.Mul(decimal.NewFromInt64(int64(i)))).Round(scale, decimal.RoundHalfUp)
		asks[i] = syntheticLevel(price, ob.groupedAsks.get(price))
	}

	return GroupedSnapshot{
		Bids: bids,
		Asks: asks,
		Info: SnapshotInfo{
			BidTotal:      ob.bidsTotal,
			BidValueTotal: ob.bidsValueTotal,
			AskTotal:      ob.asksTotal,
			AskValueTotal: ob.asksValueTotal,
			Spread:        bestAsk.Sub(bestBid),
		},
		CumBidValues: nil,
		CumAskValues: nil,
	}
}

// CumulativeEntry is one point in a cumulative-value walk of the raw
// ladder.
type CumulativeEntry struct {
	Price    decimal.Decimal
	CumSize  decimal.Decimal
	CumValue decimal.Decimal
}

// GetCumulativeValue walks the raw ladder for side over the closed price
// interval [lo, hi]. Bids are walked in descending price order starting
// from hi; asks in ascending order starting from lo.
func (ob *OrderBook) GetCumulativeValue(side Side, lo, hi decimal.Decimal) []CumulativeEntry {
	l := ob.ladderFor(side)
	var out []CumulativeEntry
	cumSize := decimal.Zero()
	cumValue := decimal.Zero()

	visit := func(lv Level) bool {
		if lv.Price.LessThan(lo) || lv.Price.GreaterThan(hi) {
			// Bids descend from high to low: once below lo, nothing left
			// in range. Asks ascend from low to high: once above hi,
			// nothing left in range. Either way we can stop scanning.
			if side == Bid && lv.Price.LessThan(lo) {
				return false
			}
			if side == Ask && lv.Price.GreaterThan(hi) {
				return false
			}
			return true
		}
		cumSize = cumSize.Add(lv.Size)
		cumValue = cumValue.Add(lv.Value)
		out = append(out, CumulativeEntry{Price: lv.Price, CumSize: cumSize, CumValue: cumValue})
		return true
	}

	if side == Bid {
		l.descend(visit)
	} else {
		l.ascend(visit)
	}
	return out
}

// GetHeatmapSnapshotLevels returns a flat vector of length 2n describing a
// percent-spaced depth histogram around mid: n bid bins (furthest-outward
// first) followed by n ask bins (nearest-inward first). Bin k collects the
// size of every raw level whose distance from mid falls within the k-th
// step of width mid*stepPercent/100; levels beyond n steps are discarded.
func (ob *OrderBook) GetHeatmapSnapshotLevels(n int, stepPercent float64) []decimal.Decimal {
	bestBid, hasBid := ob.bids.best()
	bestAsk, hasAsk := ob.asks.best()
	if !hasBid || !hasAsk {
		return make([]decimal.Decimal, 2*n)
	}
	mid := bestBid.Price.Add(bestAsk.Price).Div(decimal.NewFromInt64(2))
	step := mid.Mul(decimal.NewFromFloat(stepPercent)).Div(decimal.NewFromInt64(100))

	bidBins := make([]decimal.Decimal, n)
	askBins := make([]decimal.Decimal, n)
	for i := range bidBins {
		bidBins[i] = decimal.Zero()
		askBins[i] = decimal.Zero()
	}

	if step.IsPositive() {
		ob.bids.descend(func(lv Level) bool {
			dist := mid.Sub(lv.Price)
			if dist.IsNegative() {
				dist = dist.Abs()
			}
			idx := binIndex(dist, step)
			if idx >= n {
				return false
			}
			bidBins[idx] = bidBins[idx].Add(lv.Size)
			return true
		})
		ob.asks.ascend(func(lv Level) bool {
			dist := lv.Price.Sub(mid)
			if dist.IsNegative() {
				dist = dist.Abs()
			}
			idx := binIndex(dist, step)
			if idx >= n {
				return false
			}
			askBins[idx] = askBins[idx].Add(lv.Size)
			return true
		})
	}

	out := make([]decimal.Decimal, 0, 2*n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, bidBins[i])
	}
	out = append(out, askBins...)
	return out
}

// binIndex returns the zero-based bin index of a non-negative distance
// under step width, i.e. floor(dist/step).
func binIndex(dist, step decimal.Decimal) int {
	q := dist.Div(step).Floor()
	return int(q.Float64())
}
