package book

import (
	"testing"

	"github.com/b25/orderbook/internal/decimal"
)

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

// TestBasicLadder mirrors the literal "basic ladder" scenario: asks at
// 100..199 (size == price) and bids at 1..99 (size == price), applied as
// 199 sequential updates starting just after an initial sequence of 100.
func TestBasicLadder(t *testing.T) {
	ob := New("X", 100, nil)

	seq := uint64(100)
	for price := 100; price <= 199; price++ {
		seq++
		ob.AddLevel(Ask, float64(price), float64(price), seq)
	}
	for price := 1; price <= 99; price++ {
		seq++
		ob.AddLevel(Bid, float64(price), float64(price), seq)
	}

	bids, asks := ob.GetLevels(1)
	if len(asks) != 1 || asks[0].Price.Float64() != 100 || asks[0].Size.Float64() != 100 {
		t.Fatalf("best ask = %+v, want (100, 100)", asks)
	}
	if len(bids) != 1 || bids[0].Price.Float64() != 99 || bids[0].Size.Float64() != 99 {
		t.Fatalf("best bid = %+v, want (99, 99)", bids)
	}
	// 100 asks + 99 bids = 199 operations applied after sequence 100.
	if ob.Sequence != 100+199 {
		t.Fatalf("sequence = %d, want %d", ob.Sequence, 100+199)
	}
}

func TestUpsertSemantics(t *testing.T) {
	ob := New("X", 100, nil)
	seq := uint64(100)
	for price := 100; price <= 199; price++ {
		seq++
		ob.AddLevel(Ask, float64(price), float64(price), seq)
	}
	for price := 1; price <= 99; price++ {
		seq++
		ob.AddLevel(Bid, float64(price), float64(price), seq)
	}

	ob.AddLevel(Bid, 99.1, 99.1, seq+1)
	ob.AddLevel(Ask, 99.9, 99.9, seq+2)

	bids, asks := ob.GetLevels(1)
	if bids[0].Price.Float64() != 99.1 || bids[0].Size.Float64() != 99.1 {
		t.Fatalf("best bid = %+v, want (99.1, 99.1)", bids[0])
	}
	if asks[0].Price.Float64() != 99.9 || asks[0].Size.Float64() != 99.9 {
		t.Fatalf("best ask = %+v, want (99.9, 99.9)", asks[0])
	}

	totalBefore := ob.BidsTotal()
	ob.AddLevel(Bid, 99.1, 99.2, seq+3)
	bids, _ = ob.GetLevels(1)
	if bids[0].Size.Float64() != 99.2 {
		t.Fatalf("re-quoted best bid size = %v, want 99.2 (not 99.1+99.2)", bids[0].Size.Float64())
	}
	// Upsert must difference out the previous size: total should only
	// move by (99.2 - 99.1), never by the full new size.
	want := totalBefore.Sub(decimal.NewFromFloat(99.1)).Add(decimal.NewFromFloat(99.2))
	if !ob.BidsTotal().Equal(want) {
		t.Fatalf("bids_total after re-quote = %s, want %s", ob.BidsTotal(), want)
	}
}

func TestRemoveRestoresPreviousBest(t *testing.T) {
	ob := New("X", 100, nil)
	seq := uint64(100)
	for price := 100; price <= 199; price++ {
		seq++
		ob.AddLevel(Ask, float64(price), float64(price), seq)
	}
	for price := 1; price <= 99; price++ {
		seq++
		ob.AddLevel(Bid, float64(price), float64(price), seq)
	}
	seq++
	ob.AddLevel(Bid, 99.1, 99.1, seq)
	seq++
	ob.AddLevel(Ask, 99.9, 99.9, seq)

	seq++
	ob.RemoveLevel(Bid, 99.1, seq)
	seq++
	ob.RemoveLevel(Ask, 99.9, seq)

	bids, asks := ob.GetLevels(1)
	if bids[0].Price.Float64() != 99 || asks[0].Price.Float64() != 100 {
		t.Fatalf("expected best bid/ask restored, got bid=%+v ask=%+v", bids[0], asks[0])
	}
}

func TestRemoveAbsentPriceIsNoOpExceptSequence(t *testing.T) {
	ob := New("X", 100, nil)
	before := ob.BidsTotal()
	ob.RemoveLevel(Bid, 12345, 101)
	if !ob.BidsTotal().Equal(before) {
		t.Fatalf("removing an absent price must not change totals")
	}
	if ob.Sequence != 101 {
		t.Fatalf("sequence = %d, want 101 (bumped even on no-op remove)", ob.Sequence)
	}
}

func TestSequenceGapLeavesBookUnchanged(t *testing.T) {
	ob := New("X", 100, nil)
	stop, valid := ob.VerifySequence(105)
	if !stop || valid {
		t.Fatalf("VerifySequence(105) with sequence=100 = (%v,%v), want (true,false)", stop, valid)
	}

	before := *ob
	ok := ob.ApplyLevelUpdate(LevelUpdate{Sequence: 105, Side: FeedBuy, Price: 1, Size: 1})
	if ok {
		t.Fatalf("ApplyLevelUpdate should report failure on a gap")
	}
	if ob.Sequence != before.Sequence {
		t.Fatalf("sequence must not change on a gap: got %d, want %d", ob.Sequence, before.Sequence)
	}
	if ob.BidCount() != 0 {
		t.Fatalf("book must be unmodified on a gap")
	}
}

func TestStaleDuplicateDropped(t *testing.T) {
	ob := New("X", 100, nil)
	ob.AddLevel(Bid, 10, 1, 101)

	stop, valid := ob.VerifySequence(101)
	if !stop || !valid {
		t.Fatalf("VerifySequence(101) with sequence=101 = (%v,%v), want (true,true)", stop, valid)
	}

	ok := ob.ApplyLevelUpdate(LevelUpdate{Sequence: 101, Side: FeedBuy, Price: 20, Size: 5})
	if !ok {
		t.Fatalf("stale duplicate should report success (dropped, not an error)")
	}
	bids, _ := ob.GetLevels(5)
	if len(bids) != 1 || bids[0].Price.Float64() != 10 {
		t.Fatalf("stale duplicate must not mutate the book, got %+v", bids)
	}
}

func TestSizeZeroRemovesFromEitherSide(t *testing.T) {
	ob := New("X", 100, nil)
	ob.AddLevel(Bid, 10, 1, 101)
	ok := ob.ApplyLevelUpdate(LevelUpdate{Sequence: 102, Side: FeedBuy, Price: 10, Size: 0})
	if !ok {
		t.Fatalf("zero-size update should report success")
	}
	if ob.BidCount() != 0 {
		t.Fatalf("zero-size update should remove the level regardless of disclosed side")
	}
}

func TestGroupedInvariantAfterMutation(t *testing.T) {
	ob := New("X", 100, nil)
	ob.SetGroupSize(0.5)
	ob.AddLevel(Bid, 4.32421, 10, 101)
	ob.AddLevel(Bid, 4.1, 5, 102)

	bids, _ := ob.GetGroupedLevels(1)
	if len(bids) != 1 {
		t.Fatalf("expected one grouped bucket, got %+v", bids)
	}
	if bids[0].Size.Float64() != 15 {
		t.Fatalf("grouped bucket size = %v, want 15 (10 + 5 both floor to 4.0)", bids[0].Size.Float64())
	}

	ob.RemoveLevel(Bid, 4.1, 103)
	bids, _ = ob.GetGroupedLevels(1)
	if bids[0].Size.Float64() != 10 {
		t.Fatalf("grouped bucket size after partial remove = %v, want 10", bids[0].Size.Float64())
	}

	ob.RemoveLevel(Bid, 4.32421, 104)
	bids, _ = ob.GetGroupedLevels(5)
	if len(bids) != 0 {
		t.Fatalf("grouped bucket must be deleted once its size reaches zero, got %+v", bids)
	}
}

func TestDecimalKeyCollisionOnUpsert(t *testing.T) {
	ob := New("X", 100, nil)
	ob.AddLevel(Bid, 1.0, 10, 101)
	ob.AddLevel(Bid, 1.00, 20, 102)
	bids, _ := ob.GetLevels(5)
	if len(bids) != 1 {
		t.Fatalf("1.0 and 1.00 must key to the same level, got %d levels", len(bids))
	}
	if bids[0].Size.Float64() != 20 {
		t.Fatalf("second upsert at an equal-value price should replace, got size %v", bids[0].Size.Float64())
	}
}

func TestCumulativeValue(t *testing.T) {
	ob := New("X", 100, nil)
	for price := 1; price <= 10; price++ {
		ob.AddLevel(Bid, float64(price), 1, uint64(100+price))
	}
	entries := ob.GetCumulativeValue(Bid, d(t, "3"), d(t, "7"))
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries in [3,7], got %d", len(entries))
	}
	if entries[0].Price.Float64() != 7 {
		t.Fatalf("bid cumulative walk must start at hi=7, got %v", entries[0].Price.Float64())
	}
	if entries[len(entries)-1].Price.Float64() != 3 {
		t.Fatalf("bid cumulative walk must end at lo=3, got %v", entries[len(entries)-1].Price.Float64())
	}
	if entries[len(entries)-1].CumSize.Float64() != 5 {
		t.Fatalf("cumulative size at end = %v, want 5", entries[len(entries)-1].CumSize.Float64())
	}
}

func TestHeatmapSnapshotLevels(t *testing.T) {
	ob := New("X", 100, nil)
	ob.AddLevel(Bid, 99, 1, 101)
	ob.AddLevel(Ask, 101, 1, 102)
	out := ob.GetHeatmapSnapshotLevels(2, 100) // step = mid*1.0 = 100
	if len(out) != 4 {
		t.Fatalf("expected length 2n=4, got %d", len(out))
	}
}
