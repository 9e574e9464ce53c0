package book

import (
	"github.com/google/btree"

	"github.com/b25/orderbook/internal/decimal"
)

const btreeDegree = 32

// priceItem wraps a resting Level for storage in a btree.BTree, keyed by
// price. The tree is always kept in ascending price order internally;
// "best" direction (highest for bids, lowest for asks) is a choice of
// traversal direction, not storage order.
type priceItem struct {
	price decimal.Decimal
	level Level
}

func (a *priceItem) Less(other btree.Item) bool {
	return a.price.LessThan(other.(*priceItem).price)
}

// ladder is one side's raw, price-indexed ladder.
type ladder struct {
	tree *btree.BTree
	side Side
}

func newLadder(side Side) *ladder {
	return &ladder{tree: btree.New(btreeDegree), side: side}
}

func (l *ladder) get(price decimal.Decimal) (Level, bool) {
	item := l.tree.Get(&priceItem{price: price})
	if item == nil {
		return Level{}, false
	}
	return item.(*priceItem).level, true
}

// upsert inserts or replaces the level at its price, returning the
// previously resting level (if any).
func (l *ladder) upsert(level Level) (prev Level, had bool) {
	prev, had = l.get(level.Price)
	l.tree.ReplaceOrInsert(&priceItem{price: level.Price, level: level})
	return prev, had
}

// delete removes the level at price, returning it if present.
func (l *ladder) delete(price decimal.Decimal) (removed Level, had bool) {
	item := l.tree.Delete(&priceItem{price: price})
	if item == nil {
		return Level{}, false
	}
	return item.(*priceItem).level, true
}

func (l *ladder) len() int { return l.tree.Len() }

// best returns the best resting level: highest price for bids, lowest for
// asks.
func (l *ladder) best() (Level, bool) {
	var item btree.Item
	if l.side == Bid {
		item = l.tree.Max()
	} else {
		item = l.tree.Min()
	}
	if item == nil {
		return Level{}, false
	}
	return item.(*priceItem).level, true
}

// topN returns up to n resting levels starting from the best, in best-first
// order (descending price for bids, ascending price for asks).
func (l *ladder) topN(n int) []Level {
	if n <= 0 {
		return nil
	}
	out := make([]Level, 0, n)
	visit := func(item btree.Item) bool {
		out = append(out, item.(*priceItem).level)
		return len(out) < n
	}
	if l.side == Bid {
		l.tree.Descend(visit)
	} else {
		l.tree.Ascend(visit)
	}
	return out
}

// all returns every resting level, best-first order (descending price for
// bids, ascending price for asks).
func (l *ladder) all() []Level {
	out := make([]Level, 0, l.tree.Len())
	visit := func(item btree.Item) bool {
		out = append(out, item.(*priceItem).level)
		return true
	}
	if l.side == Bid {
		l.tree.Descend(visit)
	} else {
		l.tree.Ascend(visit)
	}
	return out
}

// ascend visits every resting level in ascending price order.
func (l *ladder) ascend(fn func(Level) bool) {
	l.tree.Ascend(func(item btree.Item) bool { return fn(item.(*priceItem).level) })
}

// descend visits every resting level in descending price order.
func (l *ladder) descend(fn func(Level) bool) {
	l.tree.Descend(func(item btree.Item) bool { return fn(item.(*priceItem).level) })
}

// bucketItem wraps an aggregated grouped-bucket size.
type bucketItem struct {
	price decimal.Decimal
	size  decimal.Decimal
}

func (a *bucketItem) Less(other btree.Item) bool {
	return a.price.LessThan(other.(*bucketItem).price)
}

// groupedLadder is one side's bucketed ladder: bucket price -> aggregate
// resting size. Zero-size entries are never retained.
type groupedLadder struct {
	tree *btree.BTree
	side Side
}

func newGroupedLadder(side Side) *groupedLadder {
	return &groupedLadder{tree: btree.New(btreeDegree), side: side}
}

func (g *groupedLadder) get(price decimal.Decimal) decimal.Decimal {
	item := g.tree.Get(&bucketItem{price: price})
	if item == nil {
		return decimal.Zero()
	}
	return item.(*bucketItem).size
}

// adjust adds delta to the bucket at price, deleting the entry if the
// result is exactly zero. A decrement of a missing bucket is a no-op.
func (g *groupedLadder) adjust(price decimal.Decimal, delta decimal.Decimal) {
	if delta.IsNegative() && g.tree.Get(&bucketItem{price: price}) == nil {
		return
	}
	current := g.get(price)
	next := current.Add(delta)
	if next.IsZero() {
		g.tree.Delete(&bucketItem{price: price})
		return
	}
	g.tree.ReplaceOrInsert(&bucketItem{price: price, size: next})
}

func (g *groupedLadder) reset() {
	g.tree = btree.New(btreeDegree)
}

func (g *groupedLadder) len() int { return g.tree.Len() }

// bestPrice returns the best bucket price (highest for bids, lowest for
// asks), or zero if the side is empty.
func (g *groupedLadder) bestPrice() decimal.Decimal {
	var item btree.Item
	if g.side == Bid {
		item = g.tree.Max()
	} else {
		item = g.tree.Min()
	}
	if item == nil {
		return decimal.Zero()
	}
	return item.(*bucketItem).price
}

func (g *groupedLadder) topN(n int) []bucketItem {
	if n <= 0 {
		return nil
	}
	out := make([]bucketItem, 0, n)
	visit := func(item btree.Item) bool {
		out = append(out, *item.(*bucketItem))
		return len(out) < n
	}
	if g.side == Bid {
		g.tree.Descend(visit)
	} else {
		g.tree.Ascend(visit)
	}
	return out
}
