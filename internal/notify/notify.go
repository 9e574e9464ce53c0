// Package notify publishes book.desync and book.resynced events to NATS so
// downstream consumers (dashboards, risk systems) learn about a
// sequence-gap desync or a subsequent resync without polling. Publishing
// sits behind a rate limiter and a circuit breaker so a stalled or
// unreachable NATS server never blocks the book's synchronous mutation
// path: PublishDesync and PublishResynced are fire-and-forget and never
// return an error.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	subjectDesync   = "book.desync"
	subjectResynced = "book.resynced"
)

// DesyncEvent is published when VerifySequence detects a gap.
type DesyncEvent struct {
	EventID          string `json:"event_id"`
	Instrument       string `json:"instrument"`
	ExpectedSequence uint64 `json:"expected_sequence"`
	ReceivedSequence uint64 `json:"received_sequence"`
	Time             int64  `json:"time"`
}

// ResyncEvent is published once a fresh snapshot has replaced a desynced
// book.
type ResyncEvent struct {
	EventID    string `json:"event_id"`
	Instrument string `json:"instrument"`
	Sequence   uint64 `json:"sequence"`
	Time       int64  `json:"time"`
}

// Notifier publishes desync/resync events, non-blocking and best-effort.
type Notifier struct {
	conn    *nats.Conn
	logger  *zap.Logger
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Config controls the rate limiter and circuit breaker guarding Publish.
type Config struct {
	URL               string
	RequestsPerSecond float64
	Burst             int
	FailureThreshold  uint32
	OpenTimeout       time.Duration
}

// DefaultConfig mirrors the conservative defaults used elsewhere in the
// stack for outbound event publication.
func DefaultConfig() Config {
	return Config{
		URL:               nats.DefaultURL,
		RequestsPerSecond: 10,
		Burst:             20,
		FailureThreshold:  5,
		OpenTimeout:       30 * time.Second,
	}
}

// Connect dials NATS and wraps the connection in rate-limit/circuit-breaker
// protection. A connection failure is returned to the caller; once
// connected, transient publish failures never propagate past Publish.
func Connect(cfg Config, logger *zap.Logger) (*Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("notify: nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("notify: nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: connect to nats: %w", err)
	}

	settings := gobreaker.Settings{
		Name:        "notify-publish",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}

	return &Notifier{
		conn:    conn,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}, nil
}

// Close closes the underlying NATS connection without draining it.
func (n *Notifier) Close() {
	n.conn.Close()
}

// State reports the circuit breaker's current state, for metrics export.
func (n *Notifier) State() gobreaker.State {
	return n.breaker.State()
}

// PublishDesync notifies that instrument's book has fallen out of sync.
func (n *Notifier) PublishDesync(ev DesyncEvent) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	n.publish(subjectDesync, ev)
}

// PublishResynced notifies that instrument's book has been made whole
// again by a fresh snapshot.
func (n *Notifier) PublishResynced(ev ResyncEvent) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	n.publish(subjectResynced, ev)
}

// publish is the shared, non-blocking publish path: a rate-limit rejection
// or an open circuit breaker both silently drop the event rather than
// stall the caller.
func (n *Notifier) publish(subject string, payload interface{}) {
	if !n.limiter.Allow() {
		n.logger.Debug("notify: rate limited, dropping event", zap.String("subject", subject))
		return
	}

	_, err := n.breaker.Execute(func() (interface{}, error) {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		return nil, n.conn.Publish(subject, data)
	})
	if err != nil {
		n.logger.Warn("notify: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
