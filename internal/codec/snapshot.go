package codec

import (
	"go.uber.org/zap"

	"github.com/b25/orderbook/internal/book"
)

// EncodeSnapshot produces a SnapshotMessage from the current state of ob.
func EncodeSnapshot(ob *book.OrderBook, exchange string) SnapshotMessage {
	bids, asks := ob.GetAllLevels()

	msg := SnapshotMessage{
		Type:      "snapshot",
		Exchange:  exchange,
		ProductID: ob.Instrument,
		Time:      0,
		Info: SnapshotInfo{
			Sequence:      uint32(ob.Sequence),
			AskTotalSize:  ob.AsksTotal().Float64(),
			AskTotalValue: ob.AsksValueTotal().Float64(),
			BidTotalSize:  ob.BidsTotal().Float64(),
			BidTotalValue: ob.BidsValueTotal().Float64(),
		},
	}
	for _, l := range bids {
		msg.Bids = append(msg.Bids, PriceLevel{Price: l.Price.Float64(), TotalSize: l.Size.Float64(), TotalValue: l.Value.Float64()})
	}
	// asks come back from GetAllLevels highest-first; the wire schema carries
	// them in the same best-first convention used for bids so the decoder
	// does not need to know the display convention.
	for i := len(asks) - 1; i >= 0; i-- {
		l := asks[i]
		msg.Asks = append(msg.Asks, PriceLevel{Price: l.Price.Float64(), TotalSize: l.Size.Float64(), TotalValue: l.Value.Float64()})
	}
	return msg
}

// DecodeSnapshot builds a fresh OrderBook from a decoded SnapshotMessage,
// using the package's default group size and bucket cache tunables.
// Per the codec contract, the message's own aggregate fields in Info are
// informational only: totals are always recomputed from the level lists,
// never trusted from the wire.
func DecodeSnapshot(msg SnapshotMessage, logger *zap.Logger) *book.OrderBook {
	return DecodeSnapshotWithConfig(msg, logger, book.DefaultConfig())
}

// DecodeSnapshotWithConfig is DecodeSnapshot with explicit book tunables,
// for callers (the registry) that thread configuration through from the
// host's config file.
func DecodeSnapshotWithConfig(msg SnapshotMessage, logger *zap.Logger, cfg book.Config) *book.OrderBook {
	ob := book.NewWithConfig(msg.ProductID, uint64(msg.Info.Sequence), logger, cfg)
	seq := ob.Sequence
	for _, lv := range msg.Bids {
		ob.AddLevel(book.Bid, lv.Price, lv.TotalSize, seq)
	}
	for _, lv := range msg.Asks {
		ob.AddLevel(book.Ask, lv.Price, lv.TotalSize, seq)
	}
	return ob
}
