// Package codec translates between the wire schema of the upstream feed
// (SnapshotMessage, LevelUpdate) and the in-memory OrderBook. Messages are
// encoded with the protobuf wire format via
// google.golang.org/protobuf/encoding/protowire - there is no .proto/codegen
// step in this repository, only the hand-maintained field-number table
// below, matching the schema the specification fixes.
package codec

// Field numbers are part of the wire contract; do not renumber without
// also bumping every reader of this format.
const (
	fieldSnapshotType           = 1
	fieldSnapshotExchange       = 2
	fieldSnapshotProductID      = 3
	fieldSnapshotSourceSequence = 4
	fieldSnapshotTime           = 5
	fieldSnapshotInfo           = 6
	fieldSnapshotBids           = 7
	fieldSnapshotAsks           = 8
	fieldSnapshotTrades         = 9
	fieldSnapshotTakers         = 10

	fieldInfoSequence      = 1
	fieldInfoAskTotalSize  = 2
	fieldInfoAskTotalValue = 3
	fieldInfoBidTotalSize  = 4
	fieldInfoBidTotalValue = 5

	fieldLevelPrice      = 1
	fieldLevelTotalSize  = 2
	fieldLevelTotalValue = 3

	fieldUpdateType      = 1
	fieldUpdateExchange  = 2
	fieldUpdateProductID = 3
	fieldUpdateSide      = 4
	fieldUpdatePrice     = 5
	fieldUpdateSize      = 6
	fieldUpdateSequence  = 7
	fieldUpdateTime      = 8
	fieldUpdateCount     = 9
)

// PriceLevel is one resting level in a snapshot message.
type PriceLevel struct {
	Price      float64
	TotalSize  float64
	TotalValue float64
}

// SnapshotInfo carries the feed's own aggregate fields. These are
// informational only - the decoder never trusts them for the book's
// running totals, which are always recomputed from the level lists.
type SnapshotInfo struct {
	Sequence      uint32
	AskTotalSize  float64
	AskTotalValue float64
	BidTotalSize  float64
	BidTotalValue float64
}

// SnapshotMessage is the full wire schema of a depth snapshot.
type SnapshotMessage struct {
	Type           string
	Exchange       string
	ProductID      string
	SourceSequence int32
	Time           uint64
	Info           SnapshotInfo
	Bids           []PriceLevel
	Asks           []PriceLevel
	Trades         [][]byte
	Takers         [][]byte
}

// LevelUpdate is the wire schema of a single per-level update.
type LevelUpdate struct {
	Type      string
	Exchange  string
	ProductID string
	Side      int32 // 0 = Buy, 1 = Sell
	Price     float64
	Size      float64
	Sequence  int32
	Time      uint64
	Count     int32
}
