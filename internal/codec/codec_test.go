package codec

import "testing"

func TestPriceLevelRoundtrip(t *testing.T) {
	want := PriceLevel{Price: 4321.5, TotalSize: 12.75, TotalValue: 55099.125}
	got, err := unmarshalPriceLevel(marshalPriceLevel(want))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != want {
		t.Fatalf("roundtrip = %+v, want %+v", got, want)
	}
}

func TestSnapshotMessageRoundtrip(t *testing.T) {
	want := SnapshotMessage{
		Type:           "snapshot",
		Exchange:       "binance",
		ProductID:      "BTC_USDT",
		SourceSequence: 42,
		Time:           1700000000,
		Info: SnapshotInfo{
			Sequence:      7,
			AskTotalSize:  10,
			AskTotalValue: 500000,
			BidTotalSize:  9,
			BidTotalValue: 449991,
		},
		Bids: []PriceLevel{
			{Price: 49999, TotalSize: 1, TotalValue: 49999},
			{Price: 49998, TotalSize: 2, TotalValue: 99996},
		},
		Asks: []PriceLevel{
			{Price: 50001, TotalSize: 3, TotalValue: 150003},
		},
		Trades: [][]byte{[]byte("t1"), []byte("t2")},
		Takers: [][]byte{[]byte("buy")},
	}

	data := MarshalSnapshot(want)
	got, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Type != want.Type || got.Exchange != want.Exchange || got.ProductID != want.ProductID {
		t.Fatalf("header mismatch: %+v", got)
	}
	if got.SourceSequence != want.SourceSequence || got.Time != want.Time {
		t.Fatalf("sequence/time mismatch: %+v", got)
	}
	if got.Info != want.Info {
		t.Fatalf("info mismatch: got %+v, want %+v", got.Info, want.Info)
	}
	if len(got.Bids) != len(want.Bids) || len(got.Asks) != len(want.Asks) {
		t.Fatalf("level count mismatch: got bids=%d asks=%d, want bids=%d asks=%d",
			len(got.Bids), len(got.Asks), len(want.Bids), len(want.Asks))
	}
	for i := range want.Bids {
		if got.Bids[i] != want.Bids[i] {
			t.Fatalf("bid[%d] = %+v, want %+v", i, got.Bids[i], want.Bids[i])
		}
	}
	for i := range want.Asks {
		if got.Asks[i] != want.Asks[i] {
			t.Fatalf("ask[%d] = %+v, want %+v", i, got.Asks[i], want.Asks[i])
		}
	}
	if len(got.Trades) != 2 || string(got.Trades[0]) != "t1" || string(got.Trades[1]) != "t2" {
		t.Fatalf("trades mismatch: %+v", got.Trades)
	}
	if len(got.Takers) != 1 || string(got.Takers[0]) != "buy" {
		t.Fatalf("takers mismatch: %+v", got.Takers)
	}
}

func TestLevelUpdateRoundtrip(t *testing.T) {
	want := LevelUpdate{
		Type:      "l2update",
		Exchange:  "binance",
		ProductID: "BTC_USDT",
		Side:      1,
		Price:     50012.5,
		Size:      0.125,
		Sequence:  99,
		Time:      1700000001,
		Count:     3,
	}
	data := MarshalLevelUpdate(want)
	got, err := UnmarshalLevelUpdate(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != want {
		t.Fatalf("roundtrip = %+v, want %+v", got, want)
	}
}

func TestZeroValuedFieldsOmittedButDefaultOnDecode(t *testing.T) {
	// A level update with a zero price/size/sequence still roundtrips to
	// the same zero values: proto3-style "omit the zero value" encoding
	// is lossless for unset numeric fields.
	want := LevelUpdate{Type: "l2update", Side: 0, Price: 0, Size: 0, Sequence: 0}
	data := MarshalLevelUpdate(want)
	got, err := UnmarshalLevelUpdate(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != want {
		t.Fatalf("roundtrip = %+v, want %+v", got, want)
	}
}

func TestUnmarshalSnapshotMalformed(t *testing.T) {
	_, err := UnmarshalSnapshot([]byte{0xff, 0xff, 0xff})
	if err == nil {
		t.Fatalf("expected error decoding malformed bytes")
	}
}

func TestUnmarshalLevelUpdateUnknownFieldSkipped(t *testing.T) {
	want := LevelUpdate{Type: "l2update", Price: 1.5}
	data := MarshalLevelUpdate(want)
	// Append an unrecognized field (number 99, varint type) that a newer
	// producer might send; the decoder must skip it rather than fail.
	data = appendVarint(data, 99, 7)

	got, err := UnmarshalLevelUpdate(data)
	if err != nil {
		t.Fatalf("unmarshal with unknown field: %v", err)
	}
	if got.Type != want.Type || got.Price != want.Price {
		t.Fatalf("unknown field corrupted known fields: %+v", got)
	}
}
