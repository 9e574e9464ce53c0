package registry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/b25/orderbook/internal/book"
	"github.com/b25/orderbook/internal/codec"
	"github.com/b25/orderbook/internal/metrics"
)

func TestHasBookUnknownByDefault(t *testing.T) {
	r := New(nil, nil, nil)
	if r.HasBook(1) {
		t.Fatalf("fresh registry must report no books")
	}
}

func TestUpdateSnapshotInstallsBook(t *testing.T) {
	r := New(nil, nil, nil)
	ob := book.New("BTC_USDT", 100, nil)
	ob.AddLevel(book.Bid, 100, 1, 101)
	ob.AddLevel(book.Ask, 101, 1, 102)

	data := codec.MarshalSnapshot(codec.EncodeSnapshot(ob, "binance"))
	if ok := r.UpdateSnapshot(1, data); !ok {
		t.Fatalf("UpdateSnapshot must report success")
	}
	if !r.HasBook(1) {
		t.Fatalf("book must be installed after UpdateSnapshot")
	}
}

func TestUpdateSnapshotMalformedInstallsEmptyBookAndReportsTrue(t *testing.T) {
	r := New(nil, nil, nil)
	ok := r.UpdateSnapshot(2, []byte{0xff, 0xff, 0xff})
	if !ok {
		t.Fatalf("UpdateSnapshot on malformed bytes must still report true")
	}
	if !r.HasBook(2) {
		t.Fatalf("a placeholder book must be installed on decode failure")
	}
}

func TestUpdateBookLevelUnknownBookReturnsFalse(t *testing.T) {
	r := New(nil, nil, nil)
	msg := codec.LevelUpdate{Type: "l2update", Side: 0, Price: 10, Size: 1, Sequence: 1}
	data := codec.MarshalLevelUpdate(msg)
	if r.UpdateBookLevel(99, data) {
		t.Fatalf("UpdateBookLevel on unknown book-id must return false")
	}
}

func TestUpdateBookLevelStructAutoAssignsSequence(t *testing.T) {
	r := New(nil, nil, nil)
	r.CreateBook(1, "X", 100)

	if !r.UpdateBookLevelStruct(1, book.Bid, 10, 5) {
		t.Fatalf("expected success")
	}
	snapshot := r.GetSnapshot(1, "test")
	if snapshot == nil {
		t.Fatalf("expected a non-nil snapshot after a level add")
	}
}

func TestGetGroupedSnapshotLayout(t *testing.T) {
	r := New(nil, nil, nil)
	r.CreateBook(1, "X", 100)
	r.UpdateBookLevelStruct(1, book.Bid, 99, 1)
	r.UpdateBookLevelStruct(1, book.Ask, 101, 1)

	out := r.GetGroupedSnapshot(1, 2)
	wantLen := 2 * (2*2 + 1)
	if len(out) != wantLen {
		t.Fatalf("len = %d, want %d", len(out), wantLen)
	}
	// The sentinel pair sits at the midpoint of the flat vector, right
	// after the n ask pairs (indices 2n and 2n+1).
	mid := len(out) / 2
	if out[mid-1] != sentinelValue || out[mid] != sentinelValue {
		t.Fatalf("expected sentinel pair at indices %d,%d, got %v,%v", mid-1, mid, out[mid-1], out[mid])
	}
}

func TestSetGroupSizeNoOpOnUnknownBook(t *testing.T) {
	r := New(nil, nil, nil)
	r.SetGroupSize(42, 0.5) // must not panic
}

func TestUpdateBookLevelGapLeavesBookUnchanged(t *testing.T) {
	r := New(nil, nil, nil)
	r.CreateBook(1, "X", 100)
	r.UpdateBookLevelStruct(1, book.Bid, 10, 1) // sequence now 101

	msg := codec.LevelUpdate{Type: "l2update", Side: 0, Price: 99, Size: 1, Sequence: 105}
	if r.UpdateBookLevel(1, codec.MarshalLevelUpdate(msg)) {
		t.Fatalf("a sequence gap must report failure")
	}

	decoded, err := codec.UnmarshalSnapshot(r.GetSnapshot(1, ""))
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if decoded.Info.Sequence != 101 || len(decoded.Bids) != 1 || decoded.Bids[0].Price != 10 {
		t.Fatalf("book must be unmodified by a gapped update, got %+v", decoded)
	}
}

func TestUpdateSnapshotAfterGapResyncs(t *testing.T) {
	r := New(nil, nil, nil)
	r.CreateBook(1, "X", 100)

	gap := codec.LevelUpdate{Type: "l2update", Side: 0, Price: 99, Size: 1, Sequence: 150}
	r.UpdateBookLevel(1, codec.MarshalLevelUpdate(gap))

	fresh := book.New("X", 150, nil)
	fresh.AddLevel(book.Bid, 99, 1, 150)
	r.UpdateSnapshot(1, codec.MarshalSnapshot(codec.EncodeSnapshot(fresh, "")))

	// Now that the book has been resynced at sequence 150, the next
	// in-order update (151) must apply cleanly.
	ok := r.UpdateBookLevel(1, codec.MarshalLevelUpdate(codec.LevelUpdate{
		Type: "l2update", Side: 1, Price: 101, Size: 1, Sequence: 151,
	}))
	if !ok {
		t.Fatalf("in-order update after resync must apply")
	}
}

// TestMetricsWiring is the sole test in this package that constructs a real
// metrics.Metrics, since promauto registers against Prometheus's global
// default registry and a second construction in the same test binary would
// panic on duplicate registration.
func TestMetricsWiring(t *testing.T) {
	m := metrics.New()
	r := New(nil, nil, m)
	r.CreateBook(1, "X", 100)

	if _, err := codec.UnmarshalSnapshot([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatalf("fixture bytes must fail to decode")
	}
	r.UpdateSnapshot(2, []byte{0xff, 0xff, 0xff})
	if got := testutil.ToFloat64(m.DecodeFailures.WithLabelValues("snapshot")); got != 1 {
		t.Fatalf("DecodeFailures{snapshot} = %v, want 1", got)
	}

	r.UpdateBookLevel(1, []byte{0xff, 0xff, 0xff})
	if got := testutil.ToFloat64(m.DecodeFailures.WithLabelValues("level_update")); got != 1 {
		t.Fatalf("DecodeFailures{level_update} = %v, want 1", got)
	}

	msg := codec.LevelUpdate{Type: "l2update", Side: 0, Price: 10, Size: 2, Sequence: 101}
	if !r.UpdateBookLevel(1, codec.MarshalLevelUpdate(msg)) {
		t.Fatalf("in-order update must apply")
	}
	if got := testutil.ToFloat64(m.RestingLevels.WithLabelValues("", "bid")); got != 1 {
		t.Fatalf("RestingLevels{bid} = %v, want 1", got)
	}
}
