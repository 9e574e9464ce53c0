// Package registry is the host-facing façade: a process-wide map from
// book-id to OrderBook, exposing exactly the operation surface a host
// embedding layer calls into. Every operation here holds the registry's
// lock only while it reads or writes the book map; the OrderBook itself is
// then read or mutated without that lock, so calls on the same book-id must
// not run concurrently. No reference to an OrderBook's internals escapes a
// call.
package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/b25/orderbook/internal/book"
	"github.com/b25/orderbook/internal/codec"
	"github.com/b25/orderbook/internal/metrics"
	"github.com/b25/orderbook/internal/notify"
)

// sentinelValue marks the boundary between ask pairs and bid pairs in the
// flat vector returned by GetGroupedSnapshot, per the wire contract.
const sentinelValue = 99999.99999

// Registry owns every live OrderBook, keyed by the host's book-id.
type Registry struct {
	mu         sync.RWMutex
	books      map[uint32]*book.OrderBook
	desynced   map[uint32]bool
	logger     *zap.Logger
	notifier   *notify.Notifier
	metrics    *metrics.Metrics
	bookConfig book.Config
}

// New creates an empty registry. notifier and m may both be nil: desync
// notification and metrics export are then simply skipped. Books are
// created with book.DefaultConfig's tunables until SetBookConfig is called.
func New(logger *zap.Logger, notifier *notify.Notifier, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		books:      make(map[uint32]*book.OrderBook),
		desynced:   make(map[uint32]bool),
		logger:     logger,
		notifier:   notifier,
		metrics:    m,
		bookConfig: book.DefaultConfig(),
	}
}

// SetBookConfig replaces the group size and bucket cache tunables applied
// to every book the registry creates from this point on. Intended to be
// called once at startup, before any book is created, with the host's
// loaded configuration.
func (r *Registry) SetBookConfig(cfg book.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookConfig = cfg
}

// HasBook reports whether bookID has a live book.
func (r *Registry) HasBook(bookID uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.books[bookID]
	return ok
}

// UpdateSnapshot decodes data as a SnapshotMessage and installs the result
// as bookID's book. A decode failure still installs an empty placeholder
// book (so a subsequent update_book_level has somewhere to land) and
// reports success, matching the façade contract.
func (r *Registry) UpdateSnapshot(bookID uint32, data []byte) bool {
	msg, err := codec.UnmarshalSnapshot(data)
	if err != nil {
		r.logger.Warn("registry: snapshot decode failed, installing empty book",
			zap.Uint32("book_id", bookID), zap.Error(err))
		if r.metrics != nil {
			r.metrics.DecodeFailures.WithLabelValues("snapshot").Inc()
		}
		r.mu.Lock()
		r.books[bookID] = book.NewWithConfig("", 0, r.logger, r.bookConfig)
		r.mu.Unlock()
		return true
	}

	ob := codec.DecodeSnapshotWithConfig(msg, r.logger, r.bookConfig)

	r.mu.Lock()
	wasDesynced := r.desynced[bookID]
	r.books[bookID] = ob
	r.desynced[bookID] = false
	r.mu.Unlock()

	if wasDesynced && r.notifier != nil {
		r.notifier.PublishResynced(notify.ResyncEvent{
			Instrument: msg.ProductID,
			Sequence:   ob.Sequence,
			Time:       time.Now().UnixMilli(),
		})
		if r.metrics != nil {
			r.metrics.ResyncEvents.WithLabelValues(msg.ProductID).Inc()
		}
	}
	r.observeDepth(msg.ProductID, ob)
	r.observeBreakerState()
	return true
}

// UpdateBookLevel decodes data as a LevelUpdate and applies it to bookID's
// book. Returns false if the book-id is unknown, the bytes are malformed,
// or the update is rejected as a sequence gap.
func (r *Registry) UpdateBookLevel(bookID uint32, data []byte) bool {
	msg, err := codec.UnmarshalLevelUpdate(data)
	if err != nil {
		r.logger.Warn("registry: level update decode failed",
			zap.Uint32("book_id", bookID), zap.Error(err))
		if r.metrics != nil {
			r.metrics.DecodeFailures.WithLabelValues("level_update").Inc()
		}
		return false
	}

	ob, ok := r.get(bookID)
	if !ok {
		return false
	}

	seq := uint64(msg.Sequence)
	stop, valid := ob.VerifySequence(seq)
	if stop && !valid {
		r.markDesynced(bookID, msg.ProductID, ob.Sequence, seq)
	}

	side := book.FeedBuy
	if msg.Side == 1 {
		side = book.FeedSell
	}
	applied := ob.ApplyLevelUpdate(book.LevelUpdate{
		Sequence: seq,
		Side:     side,
		Price:    msg.Price,
		Size:     msg.Size,
	})

	if r.metrics != nil {
		switch {
		case stop && valid:
			r.metrics.UpdatesStale.WithLabelValues(msg.ProductID).Inc()
		case stop && !valid:
			r.metrics.UpdatesGapped.WithLabelValues(msg.ProductID).Inc()
		default:
			r.metrics.UpdatesApplied.WithLabelValues(msg.ProductID).Inc()
		}
	}
	r.observeDepth(msg.ProductID, ob)
	r.observeBreakerState()
	return applied
}

// observeDepth refreshes the resting-level-count gauges for instrument from
// ob's current state. A no-op if metrics export is disabled.
func (r *Registry) observeDepth(instrument string, ob *book.OrderBook) {
	if r.metrics == nil {
		return
	}
	r.metrics.RestingLevels.WithLabelValues(instrument, "bid").Set(float64(ob.BidCount()))
	r.metrics.RestingLevels.WithLabelValues(instrument, "ask").Set(float64(ob.AskCount()))
}

// observeBreakerState mirrors the notifier's circuit breaker state into the
// gauge so it shows up alongside the rest of the book's metrics. A no-op if
// either metrics export or the notifier is disabled.
func (r *Registry) observeBreakerState() {
	if r.metrics == nil || r.notifier == nil {
		return
	}
	r.metrics.CircuitBreakerState.WithLabelValues("notify-publish").Set(float64(r.notifier.State()))
}

// markDesynced records that bookID's book has fallen out of sync and, the
// first time this happens since the last resync, publishes a book.desync
// notification.
func (r *Registry) markDesynced(bookID uint32, instrument string, expected, received uint64) {
	r.mu.Lock()
	already := r.desynced[bookID]
	r.desynced[bookID] = true
	r.mu.Unlock()

	if already || r.notifier == nil {
		return
	}
	r.notifier.PublishDesync(notify.DesyncEvent{
		Instrument:       instrument,
		ExpectedSequence: expected + 1,
		ReceivedSequence: received,
		Time:             time.Now().UnixMilli(),
	})
	if r.metrics != nil {
		r.metrics.DesyncEvents.WithLabelValues(instrument).Inc()
	}
}

// UpdateBookLevelStruct is a convenience path, chiefly for tests, that
// applies a level update without going through the wire codec. The
// sequence is auto-assigned as book.sequence + 1, so callers never need to
// track it.
func (r *Registry) UpdateBookLevelStruct(bookID uint32, side book.Side, price, size float64) bool {
	ob, ok := r.get(bookID)
	if !ok {
		return false
	}
	seq := ob.Sequence + 1
	if size == 0 {
		ob.RemoveLevel(book.Bid, price, seq)
		ob.RemoveLevel(book.Ask, price, seq)
		return true
	}
	ob.AddLevel(side, price, size, seq)
	return true
}

// GetSnapshot encodes bookID's current state. Returns nil if the book-id
// is unknown.
func (r *Registry) GetSnapshot(bookID uint32, exchange string) []byte {
	ob, ok := r.get(bookID)
	if !ok {
		return nil
	}
	return codec.MarshalSnapshot(codec.EncodeSnapshot(ob, exchange))
}

// GetGroupedSnapshot returns a flat interleaved [price, size, ...] vector:
// n ask pairs in descending price order, the sentinel (99999.99999,
// 99999.99999), then n bid pairs in ascending price order. Total length
// 2*(2n+1). Returns nil if the book-id is unknown.
func (r *Registry) GetGroupedSnapshot(bookID uint32, n int) []float64 {
	ob, ok := r.get(bookID)
	if !ok {
		return nil
	}

	snap := ob.GetGroupedSnapshot(n)

	out := make([]float64, 0, 2*(2*n+1))
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		out = append(out, snap.Asks[i].Price.Float64(), snap.Asks[i].Size.Float64())
	}
	out = append(out, sentinelValue, sentinelValue)
	for _, l := range snap.Bids {
		out = append(out, l.Price.Float64(), l.Size.Float64())
	}
	return out
}

// SetGroupSize rebuilds bookID's grouped ladders under the new bucket
// width. No-op if the book-id is unknown.
func (r *Registry) SetGroupSize(bookID uint32, g float64) {
	ob, ok := r.get(bookID)
	if !ok {
		return
	}
	ob.SetGroupSize(g)
}

// CreateBook installs a fresh empty book at bookID, overwriting any
// existing one. Used by the host when wiring up a brand-new instrument
// ahead of its first snapshot.
func (r *Registry) CreateBook(bookID uint32, instrument string, initialSequence uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[bookID] = book.NewWithConfig(instrument, initialSequence, r.logger, r.bookConfig)
}

// Count returns the number of live books, for metrics/diagnostics.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.books)
}

func (r *Registry) get(bookID uint32) (*book.OrderBook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ob, ok := r.books[bookID]
	return ob, ok
}
