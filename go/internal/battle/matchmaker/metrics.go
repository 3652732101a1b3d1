package matchmaker

import (
	"time"

	"github.com/mcdev12/blockbattle/go/internal/battle/events"
)

// DropCause labels why an inbound message was not acted on
type DropCause string

const (
	DropMalformed   DropCause = "malformed"
	DropMisuse      DropCause = "misuse"
	DropRateLimited DropCause = "rate_limited"
	DropOversized   DropCause = "oversized"
)

// MetricsCollector defines the interface for collecting matchmaker metrics.
// Calls happen on the event loop and must not block.
type MetricsCollector interface {
	RecordPlayerConnected()
	RecordPlayerDisconnected()
	RecordMatchStarted()
	RecordMatchEnded(reason EndReason, duration time.Duration)
	RecordRelayed(kind events.MessageType)
	RecordDropped(kind events.MessageType, cause DropCause)
	SetWaiting(waiting bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordPlayerConnected()                                {}
func (NoOpMetricsCollector) RecordPlayerDisconnected()                             {}
func (NoOpMetricsCollector) RecordMatchStarted()                                   {}
func (NoOpMetricsCollector) RecordMatchEnded(reason EndReason, d time.Duration)    {}
func (NoOpMetricsCollector) RecordRelayed(kind events.MessageType)                 {}
func (NoOpMetricsCollector) RecordDropped(kind events.MessageType, c DropCause)    {}
func (NoOpMetricsCollector) SetWaiting(waiting bool)                               {}

// EventPublisher receives match lifecycle events for downstream consumers.
// Implementations must enqueue and return immediately.
type EventPublisher interface {
	PublishMatchStarted(payload events.MatchStartedPayload)
	PublishMatchEnded(payload events.MatchEndedPayload)
}

// NoOpPublisher discards lifecycle events
type NoOpPublisher struct{}

func (NoOpPublisher) PublishMatchStarted(events.MatchStartedPayload) {}
func (NoOpPublisher) PublishMatchEnded(events.MatchEndedPayload)     {}
